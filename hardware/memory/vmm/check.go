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

	"github.com/jetsetilly/gopherbox/curated"
	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
)

// CheckConsistency returns an error if the address space is not in a
// consistent state. It checks that:
//
//	the VMAs cover the entire address space without gaps or overlaps
//	no two adjacent VMAs could be merged
//	every page table entry matches the VMA covering it
//	every allocation record is covered by VMAs that are not Free
func (vmm *Manager) CheckConsistency() error {
	vmm.rlock()
	defer vmm.runlock()

	var err error
	var next uint64
	var prev *VirtualMemoryArea

	vmm.vmas.walk(func(v *VirtualMemoryArea) bool {
		if uint64(v.Base) != next {
			err = curated.Errorf(ConsistencyError, fmt.Sprintf("VMA at %v does not follow on from %#x", v.Base, next))
			return false
		}
		if v.Size == 0 || !memorymap.IsPageAligned(v.Size) {
			err = curated.Errorf(ConsistencyError, fmt.Sprintf("VMA at %v has invalid size %#x", v.Base, v.Size))
			return false
		}
		if prev != nil && prev.CanBeMergedWith(*v) {
			err = curated.Errorf(ConsistencyError, fmt.Sprintf("VMA at %v has not been merged with %v", v.Base, prev.Base))
			return false
		}
		if v.Type == Free && (v.HasBacking || v.Permissions != NoAccess) {
			err = curated.Errorf(ConsistencyError, fmt.Sprintf("free VMA at %v has backing or permissions", v.Base))
			return false
		}

		first, count := v.pages()
		for i := range count {
			exp := entryFor(v, uint64(i)<<memorymap.PageShift)
			if e := vmm.pages.entries[first+i]; e != exp {
				addr := memorymap.VAddr((first + i) << memorymap.PageShift)
				err = curated.Errorf(ConsistencyError, fmt.Sprintf("page table entry for %v is %v but should be %v", addr, e, exp))
				return false
			}
		}

		next = v.End()
		prev = v
		return true
	})
	if err != nil {
		return err
	}

	if next != memorymap.AddressSpaceSize {
		return curated.Errorf(ConsistencyError, fmt.Sprintf("VMAs end at %#x", next))
	}

	vmm.allocations.Ascend(func(rec *Allocation) bool {
		end := uint64(rec.Base) + rec.Size
		for a := uint64(rec.Base); a < end; {
			v := vmm.vmas.get(memorymap.VAddr(a))
			if v.Type == Free {
				err = curated.Errorf(ConsistencyError, fmt.Sprintf("allocation %v contains free address %v", rec, memorymap.VAddr(a)))
				return false
			}
			a = v.End()
		}
		return true
	})

	return err
}
