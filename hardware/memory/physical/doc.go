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

// Package physical manages the physical frames of guest RAM. Frames are
// handed out in page sized units by the Allocate() function and returned
// with Free().
//
// In addition to RAM the package maintains a second pool of frames, the
// fragmented pool. The fragmented pool sits at memorymap.FragmentedBase, well
// away from RAM, and is only used by unconstrained requests that cannot be
// satisfied from RAM. Blocks allocated from the fragmented pool have the
// Fragmented field set to true and the caller must arrange its own host
// storage for them.
//
// Frames at fixed physical addresses, for example the NV2A instance memory,
// are removed from the RAM pool with Reserve().
//
// All functions are safe for concurrent use.
package physical
