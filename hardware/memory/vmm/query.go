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
	"github.com/jetsetilly/gopherbox/curated"
	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
)

// IsValidVirtualAddress returns true if the address is covered by a VMA that
// is not Free.
func (vmm *Manager) IsValidVirtualAddress(addr memorymap.VAddr) bool {
	vmm.rlock()
	defer vmm.runlock()
	return vmm.vmas.get(addr).Type != Free
}

// TranslateVAddrToPAddr returns the physical address for a virtual address.
// Device windows without backing translate to the same address. The address
// must be valid and the function will panic if it is not.
func (vmm *Manager) TranslateVAddrToPAddr(addr memorymap.VAddr) memorymap.PAddr {
	vmm.rlock()
	defer vmm.runlock()

	e := vmm.pages.entry(addr)
	if e.Valid() {
		return e.Frame() | memorymap.PAddr(addr&memorymap.PageMask)
	}

	if vmm.vmas.get(addr).Type == Free {
		panic(curated.Errorf(TranslateError, addr))
	}

	return memorymap.PAddr(addr)
}

// QueryVMA returns a copy of the VMA covering the address.
func (vmm *Manager) QueryVMA(addr memorymap.VAddr) VirtualMemoryArea {
	vmm.rlock()
	defer vmm.runlock()
	return *vmm.vmas.get(addr)
}

// VMAs returns a copy of every VMA in ascending address order.
func (vmm *Manager) VMAs() []VirtualMemoryArea {
	vmm.rlock()
	defer vmm.runlock()
	return vmm.vmas.snapshot()
}

// Allocations returns a copy of every allocation record in ascending address
// order. Fixed regions are included.
func (vmm *Manager) Allocations() []Allocation {
	vmm.rlock()
	defer vmm.runlock()

	r := make([]Allocation, 0, vmm.allocations.Len())
	vmm.allocations.Ascend(func(item *Allocation) bool {
		r = append(r, *item)
		return true
	})
	return r
}

// PageTableEntry returns the page table entry for the page containing the
// address.
func (vmm *Manager) PageTableEntry(addr memorymap.VAddr) PTE {
	vmm.rlock()
	defer vmm.runlock()
	return vmm.pages.entry(addr)
}

// GuestMemory returns the host memory behind the guest range addr to
// addr+size. The range must be inside a single VMA with physical backing.
// The returned slice aliases guest memory and is valid until the range is
// unmapped.
func (vmm *Manager) GuestMemory(addr memorymap.VAddr, size uint64) ([]byte, error) {
	vmm.rlock()
	defer vmm.runlock()

	if vmm.closed || vmm.host == nil {
		return nil, curated.Errorf(ClosedError)
	}

	v := vmm.vmas.get(addr)
	if v.Type == Free {
		return nil, curated.Errorf(GuestMemoryError, addr, size, "address is free")
	}
	if !v.HasBacking {
		return nil, curated.Errorf(GuestMemoryError, addr, size, "region has no backing")
	}
	if uint64(addr)+size > v.End() {
		return nil, curated.Errorf(GuestMemoryError, addr, size, "range crosses VMA boundary")
	}

	b, err := vmm.host.Slice(v.Backing+memorymap.PAddr(addr-v.Base), size)
	if err != nil {
		return nil, curated.Errorf(GuestMemoryError, addr, size, err)
	}

	return b, nil
}
