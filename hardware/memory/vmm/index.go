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
	"github.com/google/btree"

	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
)

// index is the ordered collection of VMAs covering the address space.
//
// VMAs are held by pointer and ordered by their base address. The pointer is
// the handle to a VMA and remains valid for as long as the VMA is in the
// index. The base address of a VMA in the index never changes. A split
// shrinks the VMA and inserts a new VMA for the upper part. A merge grows the
// lower VMA and removes the upper VMA.
type index struct {
	tree *btree.BTreeG[*VirtualMemoryArea]
}

func lessVMA(a, b *VirtualMemoryArea) bool {
	return a.Base < b.Base
}

// newIndex creates an index with a single Free VMA covering the entire
// address space.
func newIndex() *index {
	idx := &index{
		tree: btree.NewG(8, lessVMA),
	}
	idx.tree.ReplaceOrInsert(&VirtualMemoryArea{
		Base:        0,
		Size:        memorymap.AddressSpaceSize,
		Type:        Free,
		Permissions: NoAccess,
	})
	return idx
}

func pivot(addr memorymap.VAddr) *VirtualMemoryArea {
	return &VirtualMemoryArea{Base: addr}
}

// get returns the VMA covering the address.
func (idx *index) get(addr memorymap.VAddr) *VirtualMemoryArea {
	var v *VirtualMemoryArea
	idx.tree.DescendLessOrEqual(pivot(addr), func(item *VirtualMemoryArea) bool {
		v = item
		return false
	})
	if v == nil || !v.Contains(addr) {
		panic(indexError("no VMA covers address", addr))
	}
	return v
}

// prev returns the VMA immediately below v or nil if v is the first VMA.
func (idx *index) prev(v *VirtualMemoryArea) *VirtualMemoryArea {
	if v.Base == 0 {
		return nil
	}
	var p *VirtualMemoryArea
	idx.tree.DescendLessOrEqual(pivot(v.Base-1), func(item *VirtualMemoryArea) bool {
		p = item
		return false
	})
	return p
}

// next returns the VMA immediately above v or nil if v is the last VMA.
func (idx *index) next(v *VirtualMemoryArea) *VirtualMemoryArea {
	if v.End() >= memorymap.AddressSpaceSize {
		return nil
	}
	var n *VirtualMemoryArea
	idx.tree.AscendGreaterOrEqual(pivot(memorymap.VAddr(v.End())), func(item *VirtualMemoryArea) bool {
		n = item
		return false
	})
	return n
}

// split divides v at offset bytes from its base. v keeps the lower part and
// the new VMA for the upper part is returned.
func (idx *index) split(v *VirtualMemoryArea, offset uint64) *VirtualMemoryArea {
	if offset == 0 || offset >= v.Size || !memorymap.IsPageAligned(offset) {
		panic(indexError("split offset outside of VMA", *v))
	}

	upper := *v
	upper.Base = v.Base + memorymap.VAddr(offset)
	upper.Size = v.Size - offset
	if upper.HasBacking {
		upper.Backing = v.Backing + memorymap.PAddr(offset)
	}

	v.Size = offset
	idx.tree.ReplaceOrInsert(&upper)

	return &upper
}

// carve returns a VMA covering exactly the range base to base+size. The range
// must be inside a single Free VMA.
func (idx *index) carve(base memorymap.VAddr, size uint64) *VirtualMemoryArea {
	v := idx.get(base)
	if v.Type != Free || uint64(base)+size > v.End() {
		panic(carveError(base, size, *v))
	}

	if base > v.Base {
		v = idx.split(v, uint64(base-v.Base))
	}
	if v.Size > size {
		idx.split(v, size)
	}

	return v
}

// carveRange makes sure there are VMA boundaries at base and base+size and
// returns the VMAs between them, in order.
func (idx *index) carveRange(base memorymap.VAddr, size uint64) []*VirtualMemoryArea {
	end := uint64(base) + size

	if v := idx.get(base); v.Base != base {
		idx.split(v, uint64(base-v.Base))
	}
	if end < memorymap.AddressSpaceSize {
		if v := idx.get(memorymap.VAddr(end)); uint64(v.Base) != end {
			idx.split(v, end-uint64(v.Base))
		}
	}

	var r []*VirtualMemoryArea
	idx.tree.AscendGreaterOrEqual(pivot(base), func(item *VirtualMemoryArea) bool {
		if uint64(item.Base) >= end {
			return false
		}
		r = append(r, item)
		return true
	})

	return r
}

// merge joins v with its neighbours for as long as they are compatible. The
// returned VMA covers the original range of v and may begin below it.
func (idx *index) merge(v *VirtualMemoryArea) *VirtualMemoryArea {
	for {
		var merged bool

		if n := idx.next(v); n != nil && v.CanBeMergedWith(*n) {
			idx.tree.Delete(n)
			v.Size += n.Size
			merged = true
		}

		if p := idx.prev(v); p != nil && p.CanBeMergedWith(*v) {
			idx.tree.Delete(v)
			p.Size += v.Size
			v = p
			merged = true
		}

		if !merged {
			return v
		}
	}
}

// walk calls f for every VMA in ascending order until f returns false.
func (idx *index) walk(f func(v *VirtualMemoryArea) bool) {
	idx.tree.Ascend(func(item *VirtualMemoryArea) bool {
		return f(item)
	})
}

func (idx *index) len() int {
	return idx.tree.Len()
}

// snapshot returns a copy of every VMA in ascending order.
func (idx *index) snapshot() []VirtualMemoryArea {
	r := make([]VirtualMemoryArea, 0, idx.len())
	idx.walk(func(v *VirtualMemoryArea) bool {
		r = append(r, *v)
		return true
	})
	return r
}
