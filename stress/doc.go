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

// Package stress exercises a vmm.Manager with a random sequence of mappings,
// unmappings and reprotections while other goroutines query the address
// space. The consistency of the address space is checked periodically and
// at the end of the run.
//
// Readers only make checks that hold for a single call to the manager, for
// example that the VMAs returned by one call to VMAs() exactly cover the
// address space. A failed check by a reader or by the consistency check ends
// the run with an error.
package stress
