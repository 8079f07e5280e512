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

package vmm

import (
	"fmt"

	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
)

// VirtualMemoryArea is one contiguous range of the address space.
type VirtualMemoryArea struct {
	Base        memorymap.VAddr
	Size        uint64
	Type        VMAType
	Permissions Permissions

	// physical address of the first byte of the VMA. only meaningful if
	// HasBacking is true
	Backing    memorymap.PAddr
	HasBacking bool
}

// End returns the address one byte beyond the end of the VMA. The value for
// the last VMA in the address space does not fit in a VAddr.
func (v VirtualMemoryArea) End() uint64 {
	return uint64(v.Base) + v.Size
}

// Contains returns true if the address is covered by the VMA.
func (v VirtualMemoryArea) Contains(addr memorymap.VAddr) bool {
	return addr >= v.Base && uint64(addr) < v.End()
}

// CanBeMergedWith returns true if next immediately follows the VMA and the
// two VMAs can be joined into one without changing the meaning of any
// address.
func (v VirtualMemoryArea) CanBeMergedWith(next VirtualMemoryArea) bool {
	if v.End() != uint64(next.Base) {
		return false
	}
	if v.Type != next.Type || v.Permissions != next.Permissions {
		return false
	}
	if v.HasBacking != next.HasBacking {
		return false
	}
	if v.HasBacking && uint64(v.Backing)+v.Size != uint64(next.Backing) {
		return false
	}
	return true
}

// pages returns the first page number and the number of pages covered by
// the VMA.
func (v VirtualMemoryArea) pages() (uint32, uint32) {
	return memorymap.PageNumber(v.Base), uint32(v.Size >> memorymap.PageShift)
}

func (v VirtualMemoryArea) String() string {
	s := fmt.Sprintf("%08x -> %08x %s %s", uint32(v.Base), uint32(v.End()-1), v.Type, v.Permissions)
	if v.HasBacking {
		s = fmt.Sprintf("%s [%08x]", s, uint32(v.Backing))
	}
	return s
}
