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
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jetsetilly/gopherbox/curated"
	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
	"github.com/jetsetilly/gopherbox/hardware/memory/physical"
	"github.com/jetsetilly/gopherbox/test"
)

func expectPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	f()
}

// splitting a VMA and merging the two halves gives the original VMA
func TestSplitMergeInverse(t *testing.T) {
	for _, orig := range []VirtualMemoryArea{
		{Base: 0x00100000, Size: 0x10000, Type: Allocated, Permissions: ReadWrite, Backing: 0x00200000, HasBacking: true},
		{Base: 0xfd000000, Size: 0x00700000, Type: IODeviceNV2A, Permissions: ReadWrite | NoCache},
	} {
		for _, offset := range []uint64{0x1000, 0x8000, orig.Size - 0x1000} {
			idx := newIndex()
			v := idx.carve(orig.Base, orig.Size)
			*v = orig

			upper := idx.split(v, offset)
			test.ExpectEquality(t, v.Size, offset)
			test.ExpectEquality(t, upper.Base, orig.Base+memorymap.VAddr(offset))
			test.ExpectEquality(t, upper.Size, orig.Size-offset)
			test.ExpectEquality(t, upper.HasBacking, orig.HasBacking)
			if orig.HasBacking {
				test.ExpectEquality(t, upper.Backing, orig.Backing+memorymap.PAddr(offset))
			}
			test.ExpectSuccess(t, v.CanBeMergedWith(*upper))

			merged := idx.merge(upper)
			if diff := cmp.Diff(orig, *merged); diff != "" {
				t.Errorf("split/merge at %#x (-want +got):\n%s", offset, diff)
			}
			test.ExpectEquality(t, idx.len(), 3)
		}
	}
}

func TestCanBeMergedWith(t *testing.T) {
	a := VirtualMemoryArea{Base: 0x1000, Size: 0x1000, Type: Allocated, Permissions: ReadWrite, Backing: 0x5000, HasBacking: true}

	b := a
	b.Base = 0x2000
	b.Backing = 0x6000
	test.ExpectSuccess(t, a.CanBeMergedWith(b))

	// not adjacent
	c := b
	c.Base = 0x3000
	test.ExpectFailure(t, a.CanBeMergedWith(c))

	// backing not contiguous
	c = b
	c.Backing = 0x8000
	test.ExpectFailure(t, a.CanBeMergedWith(c))

	// different permissions
	c = b
	c.Permissions = ReadOnly
	test.ExpectFailure(t, a.CanBeMergedWith(c))

	// different type
	c = b
	c.Type = Xbe
	test.ExpectFailure(t, a.CanBeMergedWith(c))

	// one with backing and one without
	c = b
	c.HasBacking = false
	test.ExpectFailure(t, a.CanBeMergedWith(c))

	// free VMAs merge
	f := VirtualMemoryArea{Base: 0, Size: 0x1000, Type: Free, Permissions: NoAccess}
	g := VirtualMemoryArea{Base: 0x1000, Size: 0x1000, Type: Free, Permissions: NoAccess}
	test.ExpectSuccess(t, f.CanBeMergedWith(g))
	test.ExpectFailure(t, g.CanBeMergedWith(f))
}

func TestCarve(t *testing.T) {
	idx := newIndex()

	v := idx.carve(0x00010000, 0x3000)
	test.ExpectEquality(t, v.Base, 0x00010000)
	test.ExpectEquality(t, v.Size, 0x3000)
	test.ExpectEquality(t, idx.len(), 3)

	// the free margins are still free and cover the address space
	test.ExpectEquality(t, idx.get(0).Size, 0x00010000)
	test.ExpectEquality(t, idx.get(0x00013000).End(), memorymap.AddressSpaceSize)

	// carving at the edge of a VMA does not make empty VMAs
	w := idx.carve(0, 0x1000)
	test.ExpectEquality(t, w.Base, 0)
	test.ExpectEquality(t, idx.len(), 4)
	test.ExpectEquality(t, idx.prev(w), (*VirtualMemoryArea)(nil))
	test.ExpectEquality(t, idx.next(w).Base, 0x1000)

	// carving a VMA that is not free will panic
	v.Type = Allocated
	expectPanic(t, func() { idx.carve(0x00011000, 0x1000) })

	// as will carving a range that is not wholly inside one free VMA
	expectPanic(t, func() { idx.carve(0x0000f000, 0x2000) })
}

func TestCarveRange(t *testing.T) {
	idx := newIndex()
	a := idx.carve(0x10000, 0x4000)
	a.Type = Allocated
	b := idx.carve(0x14000, 0x4000)
	b.Type = Xbe

	r := idx.carveRange(0x12000, 0x4000)
	test.DemandEquality(t, len(r), 2)
	test.ExpectEquality(t, r[0].Base, 0x12000)
	test.ExpectEquality(t, r[0].Size, 0x2000)
	test.ExpectEquality(t, r[0].Type, Allocated)
	test.ExpectEquality(t, r[1].Base, 0x14000)
	test.ExpectEquality(t, r[1].Size, 0x2000)
	test.ExpectEquality(t, r[1].Type, Xbe)

	// boundaries already exist
	n := idx.len()
	r = idx.carveRange(0x12000, 0x4000)
	test.ExpectEquality(t, len(r), 2)
	test.ExpectEquality(t, idx.len(), n)

	// the range at the very top of the address space
	r = idx.carveRange(0xfffff000, 0x1000)
	test.DemandEquality(t, len(r), 1)
	test.ExpectEquality(t, r[0].End(), memorymap.AddressSpaceSize)
}

func TestMergeBothSides(t *testing.T) {
	idx := newIndex()
	a := idx.carve(0x10000, 0x1000)
	b := idx.carve(0x11000, 0x1000)
	c := idx.carve(0x12000, 0x1000)
	for i, v := range []*VirtualMemoryArea{a, b, c} {
		v.Type = Allocated
		v.Permissions = ReadWrite
		v.Backing = memorymap.PAddr(i * 0x1000)
		v.HasBacking = true
	}

	test.ExpectEquality(t, idx.len(), 5)
	m := idx.merge(b)
	test.ExpectEquality(t, m, a)
	test.ExpectEquality(t, m.Size, 0x3000)
	test.ExpectEquality(t, idx.len(), 3)
}

func TestPageTableEntries(t *testing.T) {
	pt := newPageTable()
	v := &VirtualMemoryArea{Base: 0x10000, Size: 0x3000, Type: Allocated, Permissions: ExecuteReadWrite | Guard, Backing: 0x00400000, HasBacking: true}
	pt.updateForVMA(v)

	for i := range uint32(3) {
		e := pt.entry(0x10000 + memorymap.VAddr(i)<<memorymap.PageShift)
		test.ExpectEquality(t, e.Frame(), 0x00400000+memorymap.PAddr(i)<<memorymap.PageShift)
		test.ExpectEquality(t, e.Flags(), PTEValid|PTERead|PTEWrite|PTEExecute|PTEGuard)
		test.ExpectEquality(t, e, entryFor(v, uint64(i)<<memorymap.PageShift))
	}
	test.ExpectEquality(t, pt.entry(0x13000), PTEUnmapped)
	test.ExpectEquality(t, pt.entry(0x10000).String(), "00400000 rwxg---")

	v.HasBacking = false
	pt.updateForVMA(v)
	test.ExpectEquality(t, pt.entry(0x11000), PTEUnmapped)
	test.ExpectEquality(t, pt.entry(0x11000).String(), "unmapped")
}

// a page table entry that has not been updated with its VMA must be reported
// by the consistency check
func TestStalePageTable(t *testing.T) {
	m, err := Open(DefaultPreferences())
	test.DemandSuccess(t, err)
	defer m.Close()

	a := m.MapMemoryBlock(0x3000, physical.Lowest, physical.Highest, 0)
	test.DemandInequality(t, a, 0)
	test.DemandSuccess(t, m.CheckConsistency())

	n := memorymap.PageNumber(a) + 1
	mapped := m.pages.entries[n]
	test.DemandEquality(t, mapped.Valid(), true)

	m.UnmapRange(a)
	test.ExpectEquality(t, m.pages.entries[n], PTEUnmapped)
	test.DemandSuccess(t, m.CheckConsistency())

	// as if the unmap had not cleared one of the entries
	m.pages.entries[n] = mapped
	err = m.CheckConsistency()
	test.ExpectFailure(t, err)
	test.ExpectSuccess(t, curated.Is(err, ConsistencyError))

	m.pages.entries[n] = PTEUnmapped
	test.DemandSuccess(t, m.CheckConsistency())

	// flags in the page table that no longer match the VMA permissions
	b := m.MapMemoryBlock(0x2000, physical.Lowest, physical.Highest, 0)
	test.DemandInequality(t, b, 0)
	n = memorymap.PageNumber(b)
	m.pages.entries[n] &^= PTEWrite
	err = m.CheckConsistency()
	test.ExpectFailure(t, err)
	test.ExpectSuccess(t, curated.Is(err, ConsistencyError))
}
