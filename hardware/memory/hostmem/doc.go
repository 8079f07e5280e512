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

// Package hostmem provides the host memory behind guest physical memory.
//
// Guest RAM is a single file, mapped into the host process several times.
// The primary view covers the whole file and is indexed by physical address.
// The contiguous and tiled views are further mappings of the same file at
// offset zero and so alias the primary view. A write through any one of the
// views is visible through all the others.
//
// On Linux the file is created with memfd_create() unless a path is given.
// On other platforms an unnamed file is created in the temporary directory
// and removed when the Backing is closed.
//
// Physical memory that is not part of RAM (fragmented allocations and ROM
// windows) is realised through special views. These are anonymous mappings
// keyed by their physical address.
package hostmem
