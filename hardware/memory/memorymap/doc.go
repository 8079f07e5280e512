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

// Package memorymap describes the guest address space of the console. It
// defines the address types used throughout the memory packages, the page
// size and the fixed layout of device windows and memory mirrors.
//
// The 32bit virtual address space is laid out as follows. Only the fixed
// regions are listed, everything else is free to be allocated:
//
//	00010000 -> 7ffeffff	user allocations (the xbe image is loaded at 00010000)
//	80000000 -> 83ffffff	contiguous memory (mirror of physical RAM)
//	f0000000 -> f3ffffff	tiled memory (another mirror of physical RAM)
//	fd000000 -> fdffffff	NV2A registers (PRAMIN at fd700000)
//	fe800000 -> fe87ffff	APU
//	fec00000 -> fec00fff	AC97
//	fed00000 -> fed00fff	USB0
//	fed08000 -> fed08fff	USB1
//	fef00000 -> fef00fff	NVNet
//	ff000000 -> ffffefff	BIOS
//	fffff000 -> ffffffff	MCPX boot ROM
//
// The Chihiro profile doubles physical RAM. The contiguous and tiled mirrors
// are extended to 128MiB and the MCPX boot ROM is replaced by the top page
// of the BIOS.
//
// Sub-page device windows (NVNet and MCPX) are rounded to whole pages. The
// region list returned by FixedRegions() and ChihiroRegions() is already page
// aligned.
package memorymap
