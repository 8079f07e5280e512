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

package vmm_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jetsetilly/gopherbox/curated"
	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
	"github.com/jetsetilly/gopherbox/hardware/memory/physical"
	"github.com/jetsetilly/gopherbox/hardware/memory/vmm"
	"github.com/jetsetilly/gopherbox/test"
)

// open a manager with the preferences changed by the setup function
func open(t *testing.T, setup func(p *vmm.Preferences)) *vmm.Manager {
	t.Helper()

	p := vmm.DefaultPreferences()
	if setup != nil {
		setup(p)
	}

	m, err := vmm.Open(p)
	test.DemandSuccess(t, err)
	t.Cleanup(func() {
		test.ExpectSuccess(t, m.Close())
	})

	return m
}

func mapBlock(m *vmm.Manager, size uint64) memorymap.VAddr {
	return m.MapMemoryBlock(size, physical.Lowest, physical.Highest, 0)
}

func TestRetailLayout(t *testing.T) {
	m := open(t, nil)
	test.ExpectSuccess(t, m.CheckConsistency())
	test.ExpectEquality(t, m.Profile(), memorymap.Retail)

	vmas := m.VMAs()
	test.ExpectEquality(t, len(vmas), 21)

	for _, c := range []struct {
		addr memorymap.VAddr
		typ  vmm.VMAType
		base memorymap.VAddr
		size uint64
	}{
		{0x00000000, vmm.Free, 0x00000000, 0x80000000},
		{0x80001000, vmm.MemContiguous, 0x80000000, memorymap.XboxMemorySize},
		{0xf3ffffff, vmm.MemTiled, 0xf0000000, memorymap.XboxMemorySize},
		{0xfd000004, vmm.IODeviceNV2A, 0xfd000000, 0x00700000},
		{0xfd700000, vmm.MemNV2APRAMIN, 0xfd700000, 0x00100000},
		{0xfdffffff, vmm.IODeviceNV2A, 0xfd800000, 0x00800000},
		{0xfe800000, vmm.IODeviceAPU, 0xfe800000, 0x00080000},
		{0xfec00010, vmm.IODeviceAC97, 0xfec00000, 0x1000},
		{0xfed00000, vmm.IODeviceUSB0, 0xfed00000, 0x1000},
		{0xfed08000, vmm.IODeviceUSB1, 0xfed08000, 0x1000},
		{0xfef003ff, vmm.IODeviceNVNet, 0xfef00000, 0x1000},
		{0xff000000, vmm.DeviceBIOS, 0xff000000, 0x00fff000},
		{0xffffffff, vmm.DeviceMCPX, 0xfffff000, 0x1000},
	} {
		v := m.QueryVMA(c.addr)
		test.ExpectEquality(t, v.Type, c.typ, c.addr)
		test.ExpectEquality(t, v.Base, c.base, c.addr)
		test.ExpectEquality(t, v.Size, c.size, c.addr)
	}

	// the PRAMIN is backed by the top of retail RAM. device windows without
	// backing translate to the same address
	test.ExpectEquality(t, m.TranslateVAddrToPAddr(0xfd700010), memorymap.PAddr(0x03f00010))
	test.ExpectEquality(t, m.TranslateVAddrToPAddr(0xfd000004), memorymap.PAddr(0xfd000004))
	test.ExpectEquality(t, m.TranslateVAddrToPAddr(0x80001234), memorymap.PAddr(0x00001234))
	test.ExpectEquality(t, m.TranslateVAddrToPAddr(0xf1000000), memorymap.PAddr(0x01000000))
	test.ExpectEquality(t, m.TranslateVAddrToPAddr(0xff000100), memorymap.PAddr(0xff000100))

	test.ExpectEquality(t, m.PageTableEntry(0xfd000000), vmm.PTEUnmapped)
	test.ExpectEquality(t, m.PageTableEntry(0x00010000), vmm.PTEUnmapped)
	e := m.PageTableEntry(0xff000000)
	test.ExpectSuccess(t, e.Valid())
	test.ExpectEquality(t, e.Flags()&vmm.PTEAliased, vmm.PTEAliased)
	test.ExpectEquality(t, e.Flags()&vmm.PTEWrite, 0)
}

func TestChihiroLayout(t *testing.T) {
	m := open(t, func(p *vmm.Preferences) {
		test.DemandSuccess(t, p.Profile.Set("chihiro"))
	})
	test.ExpectSuccess(t, m.CheckConsistency())
	test.ExpectEquality(t, m.Profile(), memorymap.Chihiro)
	test.ExpectEquality(t, len(m.VMAs()), 20)

	// the extensions are merged with the retail regions
	v := m.QueryVMA(0x87ffffff)
	test.ExpectEquality(t, v.Type, vmm.MemContiguous)
	test.ExpectEquality(t, v.Base, memorymap.ContiguousMemoryBase)
	test.ExpectEquality(t, v.Size, memorymap.ChihiroMemorySize)

	v = m.QueryVMA(0xf7ffffff)
	test.ExpectEquality(t, v.Type, vmm.MemTiled)
	test.ExpectEquality(t, v.Size, memorymap.ChihiroMemorySize)

	v = m.QueryVMA(0xfffff000)
	test.ExpectEquality(t, v.Type, vmm.DeviceBIOS)
	test.ExpectEquality(t, v.Base, memorymap.BIOSBase)
	test.ExpectEquality(t, v.Size, memorymap.BIOSChihiroSize)

	// the PRAMIN does not move
	test.ExpectEquality(t, m.TranslateVAddrToPAddr(0xfd700000), memorymap.PAddr(0x03f00000))
	test.ExpectEquality(t, m.TranslateVAddrToPAddr(0x86000000), memorymap.PAddr(0x06000000))

	// the BIOS view covers the entire BIOS region
	b, err := m.GuestMemory(0xfffffff0, 0x10)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, len(b), 0x10)
	b, err = m.GuestMemory(0xffffeff0, 0x20)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, len(b), 0x20)

	// chihiro allocations can use the upper half of RAM
	test.ExpectEquality(t, m.VMStatistics().Physical.RAMSize, memorymap.ChihiroMemorySize)

	err = m.InitializeChihiro()
	test.ExpectSuccess(t, curated.Is(err, vmm.InitialisationError))
}

// InitializeChihiro() requires enough physical memory
func TestChihiroWithRetailMemory(t *testing.T) {
	m := open(t, nil)
	err := m.InitializeChihiro()
	test.ExpectSuccess(t, curated.Is(err, vmm.InitialisationError))
	test.ExpectEquality(t, m.Profile(), memorymap.Retail)
	test.ExpectSuccess(t, m.CheckConsistency())
}

func TestFreshLayoutValidity(t *testing.T) {
	m := open(t, nil)
	test.ExpectFailure(t, m.IsValidVirtualAddress(0))
	test.ExpectSuccess(t, m.IsValidVirtualAddress(memorymap.BIOSBase+0x100))
	test.ExpectSuccess(t, m.IsValidVirtualAddress(memorymap.ContiguousMemoryBase))
	test.ExpectFailure(t, m.IsValidVirtualAddress(memorymap.XbeImageBase))
}

func TestDistinctAllocations(t *testing.T) {
	m := open(t, nil)

	a := mapBlock(m, 0x1000)
	b := mapBlock(m, 0x1000)
	test.ExpectInequality(t, a, 0)
	test.ExpectInequality(t, b, 0)
	test.ExpectInequality(t, a, b)

	test.ExpectSuccess(t, memorymap.IsPageAligned(uint64(a)))
	test.ExpectSuccess(t, memorymap.IsPageAligned(uint64(b)))
	test.ExpectSuccess(t, a+0x1000 <= b || b+0x1000 <= a)

	test.ExpectEquality(t, a, memorymap.LowestUserAddress)
	test.ExpectEquality(t, b, memorymap.LowestUserAddress+0x1000)

	test.ExpectEquality(t, len(m.Allocations()), 2+len(memorymap.FixedRegions()))
	test.ExpectEquality(t, m.VMStatistics().Type(vmm.Allocated).Bytes, 0x2000)
	test.ExpectSuccess(t, m.CheckConsistency())
}

func TestReprotectSplit(t *testing.T) {
	m := open(t, nil)

	a := mapBlock(m, 0x2000)
	test.DemandInequality(t, a, 0)

	m.ReprotectVMARange(a, 0x1000, vmm.ReadOnly)
	test.ExpectSuccess(t, m.CheckConsistency())

	lo := m.QueryVMA(a)
	hi := m.QueryVMA(a + 0x1000)
	test.ExpectEquality(t, lo.Base, a)
	test.ExpectEquality(t, lo.Size, 0x1000)
	test.ExpectEquality(t, lo.Permissions, vmm.ReadOnly)
	test.ExpectEquality(t, hi.Base, a+0x1000)
	test.ExpectEquality(t, hi.Size, 0x1000)
	test.ExpectEquality(t, hi.Permissions, vmm.ReadWrite)
	test.ExpectEquality(t, uint64(lo.Base)+lo.Size, uint64(hi.Base))

	pa := m.TranslateVAddrToPAddr(a)
	test.ExpectEquality(t, m.TranslateVAddrToPAddr(a+0x1000), pa+0x1000)
	test.ExpectEquality(t, m.TranslateVAddrToPAddr(a+0x1fff), pa+0x1fff)

	test.ExpectEquality(t, m.PageTableEntry(a).Flags()&vmm.PTEWrite, 0)
	test.ExpectEquality(t, m.PageTableEntry(a+0x1000).Flags()&vmm.PTEWrite, vmm.PTEWrite)

	// changing the permissions back merges the VMAs again
	m.ReprotectVMARange(a, 0x1000, vmm.ReadWrite)
	test.ExpectEquality(t, m.QueryVMA(a).Size, 0x2000)
	test.ExpectSuccess(t, m.CheckConsistency())
}

func TestFreedRangeReused(t *testing.T) {
	m := open(t, nil)

	a := mapBlock(m, 0x3000)
	test.DemandInequality(t, a, 0)
	m.UnmapRange(a)
	b := mapBlock(m, 0x3000)
	test.ExpectEquality(t, b, a)
	test.ExpectSuccess(t, m.CheckConsistency())
}

func TestConstrainedFailureLeavesNoTrace(t *testing.T) {
	m := open(t, nil)

	before := m.VMAs()
	allocations := m.Allocations()
	inUse := m.VMStatistics().Physical.RAMInUse

	// the constraint is outside of physical RAM
	a := m.MapMemoryBlock(0x1000, 0x10000000, 0x1000ffff, 0)
	test.ExpectEquality(t, a, 0)

	// the constraint is inside RAM but smaller than the request
	a = m.MapMemoryBlock(0x4000, 0x00000000, 0x00002fff, 0)
	test.ExpectEquality(t, a, 0)

	if diff := cmp.Diff(before, m.VMAs()); diff != "" {
		t.Errorf("address space changed after failed allocation (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(allocations, m.Allocations()); diff != "" {
		t.Errorf("allocations changed after failed allocation (-want +got):\n%s", diff)
	}
	test.ExpectEquality(t, m.VMStatistics().Physical.RAMInUse, inUse)
	test.ExpectSuccess(t, m.CheckConsistency())
}

func TestConstrainedAllocation(t *testing.T) {
	m := open(t, nil)

	a := m.MapMemoryBlock(0x2000, 0x01000000, 0x01ffffff, 0)
	test.DemandInequality(t, a, 0)
	test.ExpectEquality(t, m.TranslateVAddrToPAddr(a), memorymap.PAddr(0x01000000))
	test.ExpectEquality(t, m.QueryVMA(a).Type, vmm.Allocated)
}

func TestExplicitAddress(t *testing.T) {
	m := open(t, nil)

	a := m.MapMemoryBlock(0x1000, physical.Lowest, physical.Highest, 0x00400000)
	test.ExpectEquality(t, a, 0x00400000)

	// not free
	test.ExpectEquality(t, m.MapMemoryBlock(0x1000, physical.Lowest, physical.Highest, 0x00400000), 0)
	test.ExpectEquality(t, m.MapMemoryBlock(0x2000, physical.Lowest, physical.Highest, 0x003ff000), 0)
	test.ExpectEquality(t, m.MapMemoryBlock(0x1000, physical.Lowest, physical.Highest, memorymap.BIOSBase), 0)

	// not aligned
	test.ExpectEquality(t, m.MapMemoryBlock(0x1000, physical.Lowest, physical.Highest, 0x00500010), 0)

	// zero size
	test.ExpectEquality(t, mapBlock(m, 0), 0)

	// size is rounded up to the page size
	b := m.MapMemoryBlock(0x10, physical.Lowest, physical.Highest, 0x00600000)
	test.ExpectEquality(t, b, 0x00600000)
	test.ExpectEquality(t, m.QueryVMA(b).Size, memorymap.PageSize)

	test.ExpectSuccess(t, m.CheckConsistency())
}

func TestXbeImage(t *testing.T) {
	m := open(t, nil)

	a := m.MapXbeImage(0x5000)
	test.ExpectEquality(t, a, memorymap.XbeImageBase)
	test.ExpectEquality(t, m.QueryVMA(a).Type, vmm.Xbe)

	// image is already present
	test.ExpectEquality(t, m.MapXbeImage(0x1000), 0)

	// allocations are placed after the image
	test.ExpectEquality(t, mapBlock(m, 0x1000), memorymap.XbeImageBase+0x5000)

	m.UnmapRange(a + 0x3000)
	test.ExpectFailure(t, m.IsValidVirtualAddress(a))
	test.ExpectSuccess(t, m.CheckConsistency())
}

// allocations that are merged into one VMA are still removed individually
func TestUnmapMergedAllocations(t *testing.T) {
	m := open(t, nil)

	a := mapBlock(m, 0x1000)
	b := mapBlock(m, 0x2000)
	c := mapBlock(m, 0x1000)

	// contiguous physical backing means that the allocations are one VMA
	v := m.QueryVMA(b)
	test.ExpectEquality(t, v.Base, a)
	test.ExpectEquality(t, v.Size, 0x4000)

	m.UnmapRange(b + 0x1000)
	test.ExpectSuccess(t, m.IsValidVirtualAddress(a))
	test.ExpectFailure(t, m.IsValidVirtualAddress(b))
	test.ExpectFailure(t, m.IsValidVirtualAddress(b+0x1000))
	test.ExpectSuccess(t, m.IsValidVirtualAddress(c))
	test.ExpectEquality(t, m.QueryVMA(a).Size, 0x1000)
	test.ExpectEquality(t, m.QueryVMA(b).Size, 0x2000)
	test.ExpectSuccess(t, m.CheckConsistency())
}

func TestUnmapFree(t *testing.T) {
	m := open(t, nil)
	before := m.VMAs()
	m.UnmapRange(0x00010000)
	m.UnmapRange(0x90000000)
	if diff := cmp.Diff(before, m.VMAs()); diff != "" {
		t.Errorf("unmap of free address changed address space (-want +got):\n%s", diff)
	}
}

// the fixed regions are allocations and can be removed.
func TestUnmapFixedRegion(t *testing.T) {
	m := open(t, nil)

	inUse := m.VMStatistics().Physical.RAMInUse
	m.UnmapRange(memorymap.NV2APRAMINBase + 0x1000)
	test.ExpectFailure(t, m.IsValidVirtualAddress(memorymap.NV2APRAMINBase))
	test.ExpectEquality(t, m.VMStatistics().Physical.RAMInUse, inUse-memorymap.NV2APRAMINSize)

	m.UnmapRange(memorymap.MCPXBase)
	test.ExpectFailure(t, m.IsValidVirtualAddress(memorymap.MCPXBase))
	test.ExpectSuccess(t, m.CheckConsistency())
}

func TestTranslateFree(t *testing.T) {
	m := open(t, nil)

	defer func() {
		r := recover()
		test.ExpectInequality(t, r, nil)
		if err, ok := r.(error); ok {
			test.ExpectSuccess(t, curated.Is(err, vmm.TranslateError))
		}
	}()

	m.TranslateVAddrToPAddr(0x00010000)
	t.Errorf("translation of free address did not panic")
}

func TestReprotectIdempotent(t *testing.T) {
	m := open(t, nil)

	a := mapBlock(m, 0x4000)
	test.DemandInequality(t, a, 0)
	m.ReprotectVMARange(a+0x1000, 0x1000, vmm.ExecuteRead)

	entries := func() []vmm.PTE {
		var e []vmm.PTE
		for p := a - 0x2000; p < a+0x6000; p += memorymap.PageSize {
			e = append(e, m.PageTableEntry(p))
		}
		return e
	}

	before := m.VMAs()
	pages := entries()

	m.ReprotectVMARange(a, 0x1000, vmm.ReadWrite)
	m.ReprotectVMARange(a+0x1000, 0x1000, vmm.ExecuteRead)
	m.ReprotectVMARange(a+0x2000, 0x2000, vmm.ReadWrite)

	if diff := cmp.Diff(before, m.VMAs()); diff != "" {
		t.Errorf("idempotent reprotect changed address space (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pages, entries()); diff != "" {
		t.Errorf("idempotent reprotect changed page table (-want +got):\n%s", diff)
	}
	test.ExpectSuccess(t, m.CheckConsistency())
}

// a reprotect that covers free memory leaves the free memory alone
func TestReprotectAcrossFree(t *testing.T) {
	m := open(t, nil)

	a := m.MapMemoryBlock(0x1000, physical.Lowest, physical.Highest, 0x00400000)
	test.DemandEquality(t, a, 0x00400000)

	m.ReprotectVMARange(0x003fe000, 0x4000, vmm.ReadOnly|vmm.NoCache)
	test.ExpectSuccess(t, m.CheckConsistency())

	v := m.QueryVMA(0x003fe000)
	test.ExpectEquality(t, v.Type, vmm.Free)
	test.ExpectEquality(t, v.Permissions, vmm.NoAccess)
	test.ExpectEquality(t, m.QueryVMA(a).Permissions, vmm.ReadOnly|vmm.NoCache)
	test.ExpectEquality(t, m.PageTableEntry(a).Flags()&vmm.PTENoCache, vmm.PTENoCache)

	// invalid permissions are ignored
	m.ReprotectVMARange(a, 0x1000, vmm.ReadOnly|vmm.ReadWrite)
	test.ExpectEquality(t, m.QueryVMA(a).Permissions, vmm.ReadOnly|vmm.NoCache)

	// no access keeps the frame
	m.ReprotectVMARange(a, 0x1000, vmm.NoAccess)
	e := m.PageTableEntry(a)
	test.ExpectSuccess(t, e.Valid())
	test.ExpectEquality(t, e.Flags(), vmm.PTEValid)
	test.ExpectSuccess(t, m.CheckConsistency())
}

// allocate then unmap restores the partition whichever address in the
// allocation is used and however the allocation has been split
func TestRoundTrip(t *testing.T) {
	m := open(t, nil)

	before := m.VMAs()
	allocations := m.Allocations()

	for _, size := range []uint64{0x1000, 0x1800, 0x10000, 0x123456} {
		a := mapBlock(m, size)
		test.DemandInequality(t, a, 0, size)

		m.ReprotectVMARange(a+0x1000, 0x1000, vmm.ReadOnly)
		m.UnmapRange(a + memorymap.VAddr(memorymap.PageAlign(size)) - 1)
		for p := uint64(0); p < memorymap.PageAlign(size); p += memorymap.PageSize {
			test.ExpectEquality(t, m.PageTableEntry(a+memorymap.VAddr(p)), vmm.PTEUnmapped)
		}

		if diff := cmp.Diff(before, m.VMAs()); diff != "" {
			t.Errorf("round trip of %#x bytes failed (-want +got):\n%s", size, diff)
		}
		if diff := cmp.Diff(allocations, m.Allocations()); diff != "" {
			t.Errorf("round trip of %#x bytes left allocations (-want +got):\n%s", size, diff)
		}
	}
}

func TestPlacement(t *testing.T) {
	// make two holes with the larger hole at the lower address
	holes := func(m *vmm.Manager) {
		a := mapBlock(m, 0x3000)
		_ = mapBlock(m, 0x1000)
		b := mapBlock(m, 0x1000)
		_ = mapBlock(m, 0x1000)
		m.UnmapRange(a)
		m.UnmapRange(b)
	}

	m := open(t, nil)
	holes(m)
	test.ExpectEquality(t, mapBlock(m, 0x1000), 0x00010000)

	m = open(t, func(p *vmm.Preferences) {
		test.DemandSuccess(t, p.Placement.Set("BESTFIT"))
	})
	holes(m)
	test.ExpectEquality(t, mapBlock(m, 0x1000), 0x00014000)
	test.ExpectSuccess(t, m.CheckConsistency())
}

func TestFragmented(t *testing.T) {
	m := open(t, nil)

	// exhaust RAM
	stats := m.VMStatistics()
	a := mapBlock(m, stats.Physical.RAMSize-stats.Physical.RAMInUse)
	test.DemandInequality(t, a, 0)
	test.ExpectEquality(t, m.QueryVMA(a).Type, vmm.Allocated)

	// a constrained request cannot use the fragmented pool
	test.ExpectEquality(t, m.MapMemoryBlock(0x1000, 0, 0x03ffffff, 0), 0)

	f := mapBlock(m, 0x2000)
	test.DemandInequality(t, f, 0)

	v := m.QueryVMA(f)
	test.ExpectEquality(t, v.Type, vmm.Fragmented)
	test.ExpectEquality(t, m.TranslateVAddrToPAddr(f), memorymap.FragmentedBase)
	test.ExpectEquality(t, m.PageTableEntry(f).Flags()&vmm.PTEAliased, vmm.PTEAliased)

	b, err := m.GuestMemory(f, 0x2000)
	test.ExpectSuccess(t, err)
	b[0x1fff] = 0x99
	b, err = m.GuestMemory(f+0x1000, 0x1000)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, b[0xfff], 0x99)

	test.ExpectEquality(t, m.VMStatistics().Physical.FragmentedInUse, 0x2000)
	test.ExpectEquality(t, m.VMStatistics().Type(vmm.Fragmented).Count, 1)

	m.UnmapRange(f)
	test.ExpectEquality(t, m.VMStatistics().Physical.FragmentedInUse, 0)
	_, err = m.GuestMemory(f, 0x1000)
	test.ExpectFailure(t, err)

	test.ExpectSuccess(t, m.CheckConsistency())
}

// writes through the contiguous and tiled mirrors are visible through the
// allocation backed by the same frames
func TestAliasing(t *testing.T) {
	m := open(t, nil)

	a := mapBlock(m, 0x1000)
	test.DemandInequality(t, a, 0)
	pa := m.TranslateVAddrToPAddr(a)

	c, err := m.GuestMemory(memorymap.ContiguousMemoryBase+memorymap.VAddr(pa), 0x10)
	test.DemandSuccess(t, err)
	copy(c, "hello")

	b, err := m.GuestMemory(a, 0x10)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, string(b[:5]), "hello")

	tl, err := m.GuestMemory(memorymap.TiledMemoryBase+memorymap.VAddr(pa), 0x10)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, string(tl[:5]), "hello")

	// ranges that cannot be served
	_, err = m.GuestMemory(a+0xff0, 0x20)
	test.ExpectSuccess(t, curated.Is(err, vmm.GuestMemoryError))
	_, err = m.GuestMemory(memorymap.NV2ABase, 0x10)
	test.ExpectSuccess(t, curated.Is(err, vmm.GuestMemoryError))
	_, err = m.GuestMemory(0x7fff0000, 0x10)
	test.ExpectSuccess(t, curated.Is(err, vmm.GuestMemoryError))
}

func TestStatistics(t *testing.T) {
	m := open(t, nil)
	_ = mapBlock(m, 0x3000)

	s := m.VMStatistics()
	test.ExpectEquality(t, s.VMAs, 23)
	test.ExpectEquality(t, s.Type(vmm.Free).Count, 10)
	test.ExpectEquality(t, s.Type(vmm.MemContiguous).Bytes, memorymap.XboxMemorySize)
	test.ExpectEquality(t, s.Type(vmm.IODeviceNV2A).Count, 2)
	test.ExpectEquality(t, s.Type(vmm.IODeviceNV2A).Bytes, 0x00f00000)
	test.ExpectEquality(t, s.Type(vmm.Allocated).Bytes, 0x3000)
	test.ExpectEquality(t, s.Physical.RAMInUse, 0x3000+memorymap.NV2APRAMINSize)

	var total uint64
	for _, ts := range s.Types {
		total += ts.Bytes
	}
	test.ExpectEquality(t, total, memorymap.AddressSpaceSize)

	// everything that is neither free nor the single allocation is fixed
	test.ExpectEquality(t, s.Fixed.Count, 12)
	test.ExpectEquality(t, s.Fixed.Bytes, total-s.Type(vmm.Free).Bytes-0x3000)

	w := &test.Writer{}
	w.Write([]byte(s.String()))
	test.ExpectSuccess(t, w.Contains("Allocated"))
	test.ExpectSuccess(t, w.Contains("23 VMAs"))
	test.ExpectSuccess(t, w.Contains("(fixed)"))
}

func TestClosed(t *testing.T) {
	m, err := vmm.Open(nil)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, m.Close())
	test.ExpectSuccess(t, m.Close())

	test.ExpectEquality(t, mapBlock(m, 0x1000), 0)
	_, err = m.GuestMemory(memorymap.ContiguousMemoryBase, 0x10)
	test.ExpectSuccess(t, curated.Is(err, vmm.ClosedError))
}
