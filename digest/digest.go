// This file is part of Gopherbox.
//
// Gopherbox is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopherbox is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopherbox.  If not, see <https://www.gnu.org/licenses/>.

// Package digest creates fingerprints of the state of the address space. The
// fingerprints are chained so that a digest depends on every state that has
// been given to it, not only the most recent. Two runs with the same digest
// have passed through the same sequence of states.
package digest

// Digest implementations compute a fingerprint of a sequence of states.
type Digest interface {
	Hash() string
	ResetDigest()
}
