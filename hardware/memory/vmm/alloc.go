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
	"github.com/jetsetilly/gopherbox/hardware/memory/physical"
	"github.com/jetsetilly/gopherbox/logger"
)

// Allocation is the record of a region created by the Manager. The VMAs of
// an allocation can be split by ReprotectVMARange() and merged with
// compatible neighbours but the record is unchanged until the allocation is
// removed.
type Allocation struct {
	Base memorymap.VAddr
	Size uint64
	Type VMAType

	// the physical range behind the allocation. zero sized if the region has
	// no backing
	Block physical.Block

	// the block was allocated from the physical memory provider and must be
	// freed
	Owned bool

	// the block was reserved with the physical memory provider and must be
	// released
	Reserved bool

	// the block is realised through a special host view
	View bool
}

func (a Allocation) String() string {
	s := fmt.Sprintf("%08x -> %08x %s", uint32(a.Base), uint32(uint64(a.Base)+a.Size-1), a.Type)
	if a.Block.Size > 0 {
		s = fmt.Sprintf("%s [%v]", s, a.Block)
	}
	return s
}

func (a Allocation) contains(addr memorymap.VAddr) bool {
	return addr >= a.Base && uint64(addr) < uint64(a.Base)+a.Size
}

func lessAllocation(a, b *Allocation) bool {
	return a.Base < b.Base
}

func (vmm *Manager) findAllocation(addr memorymap.VAddr) *Allocation {
	var rec *Allocation
	vmm.allocations.DescendLessOrEqual(&Allocation{Base: addr}, func(item *Allocation) bool {
		if item.contains(addr) {
			rec = item
		}
		return false
	})
	return rec
}

// fixedType returns the VMA type for a fixed area.
func fixedType(area memorymap.Area) VMAType {
	switch area {
	case memorymap.Contiguous:
		return MemContiguous
	case memorymap.Tiled:
		return MemTiled
	case memorymap.NV2A:
		return IODeviceNV2A
	case memorymap.NV2APRAMIN:
		return MemNV2APRAMIN
	case memorymap.APU:
		return IODeviceAPU
	case memorymap.AC97:
		return IODeviceAC97
	case memorymap.USB0:
		return IODeviceUSB0
	case memorymap.USB1:
		return IODeviceUSB1
	case memorymap.NVNet:
		return IODeviceNVNet
	case memorymap.BIOS:
		return DeviceBIOS
	case memorymap.MCPX:
		return DeviceMCPX
	}
	panic(fmt.Sprintf("vmm: no VMA type for area %s", area))
}

// fixedPermissions returns the permissions for a fixed area.
func fixedPermissions(area memorymap.Area) Permissions {
	switch {
	case area == memorymap.Contiguous:
		return ReadWrite
	case area == memorymap.Tiled:
		return ReadWrite | WriteCombine
	case area == memorymap.NV2APRAMIN || area.IsIO():
		return ReadWrite | NoCache
	case area.IsROM():
		return ExecuteRead
	}
	return NoAccess
}

// mapFixedRegion installs one of the regions from the memorymap package.
func (vmm *Manager) mapFixedRegion(r memorymap.Region) error {
	rec := &Allocation{
		Base: r.Base,
		Size: r.Size,
		Type: fixedType(r.Area),
	}
	if r.HasBacking {
		rec.Block = physical.Block{Addr: r.Backing, Size: r.Size}
	}

	switch {
	case r.Area == memorymap.NV2APRAMIN:
		err := vmm.phys.Reserve(r.Backing, r.Size)
		if err != nil {
			return err
		}
		rec.Reserved = true
	case r.Area.IsROM():
		err := vmm.host.MapSpecialView(r.Backing, r.Size)
		if err != nil {
			return curated.Errorf(ViewError, err)
		}
		rec.View = true
	}

	v := vmm.vmas.carve(r.Base, r.Size)
	v.Type = rec.Type
	v.Permissions = fixedPermissions(r.Area)
	v.Backing = r.Backing
	v.HasBacking = r.HasBacking
	vmm.pages.updateForVMA(v)
	vmm.vmas.merge(v)

	vmm.allocations.ReplaceOrInsert(rec)
	logger.Logf(vmm.prefs, "vmm", "fixed region %v", rec)

	return nil
}

// MapMemoryBlock allocates a region of at least size bytes. The size is
// rounded up to a whole number of pages. The physical backing of the region
// will be between low and high inclusive. If low and high are
// physical.Lowest and physical.Highest the backing may come from the
// fragmented pool, in which case the region is of type Fragmented.
//
// If addr is not zero then the region is placed at that address, which must
// be page aligned and free for the entire size. Otherwise the address is
// chosen according to the placement preference.
//
// Returns the base address of the new region or zero if the region could not
// be created. The address space is unchanged on failure.
func (vmm *Manager) MapMemoryBlock(size uint64, low memorymap.PAddr, high memorymap.PAddr, addr memorymap.VAddr) memorymap.VAddr {
	vmm.lock()
	defer vmm.unlock()

	base, err := vmm.mapMemoryBlock(size, low, high, addr, Allocated)
	if err != nil {
		logger.Log(logger.Allow, "vmm", err)
		return 0
	}

	return base
}

// MapXbeImage allocates the region for the executable image at
// memorymap.XbeImageBase. Returns zero if the region could not be created.
func (vmm *Manager) MapXbeImage(size uint64) memorymap.VAddr {
	vmm.lock()
	defer vmm.unlock()

	base, err := vmm.mapMemoryBlock(size, physical.Lowest, physical.Highest, memorymap.XbeImageBase, Xbe)
	if err != nil {
		logger.Log(logger.Allow, "vmm", err)
		return 0
	}

	return base
}

func (vmm *Manager) mapMemoryBlock(size uint64, low memorymap.PAddr, high memorymap.PAddr, addr memorymap.VAddr, typ VMAType) (memorymap.VAddr, error) {
	if vmm.closed {
		return 0, curated.Errorf(ClosedError)
	}
	if !vmm.initialised {
		return 0, curated.Errorf(PlacementError, size, addr, "manager not initialised")
	}

	size = memorymap.PageAlign(size)
	if size == 0 || size >= memorymap.AddressSpaceSize {
		return 0, curated.Errorf(PlacementError, size, addr, "invalid size")
	}

	var base memorymap.VAddr
	if addr != 0 {
		if !memorymap.IsPageAligned(uint64(addr)) {
			return 0, curated.Errorf(PlacementError, size, addr, "address is not page aligned")
		}
		v := vmm.vmas.get(addr)
		if v.Type != Free || uint64(addr)+size > v.End() {
			return 0, curated.Errorf(PlacementError, size, addr, "range is not free")
		}
		base = addr
	} else {
		var ok bool
		base, ok = vmm.findFree(size)
		if !ok {
			return 0, curated.Errorf(NoVirtualSpace, size)
		}
	}

	blk, err := vmm.phys.Allocate(size, low, high)
	if err != nil {
		return 0, curated.Errorf(BackingError, size, err)
	}

	rec := &Allocation{
		Base:  base,
		Size:  size,
		Type:  typ,
		Block: blk,
		Owned: true,
	}

	if blk.Fragmented {
		if typ == Allocated {
			rec.Type = Fragmented
		}

		err := vmm.host.MapSpecialView(blk.Addr, blk.Size)
		if err != nil {
			if ferr := vmm.phys.Free(blk); ferr != nil {
				logger.Log(logger.Allow, "vmm", ferr)
			}
			return 0, curated.Errorf(ViewError, err)
		}
		rec.View = true
	}

	v := vmm.vmas.carve(base, size)
	v.Type = rec.Type
	v.Permissions = ReadWrite
	v.Backing = blk.Addr
	v.HasBacking = true
	vmm.pages.updateForVMA(v)
	vmm.vmas.merge(v)

	vmm.allocations.ReplaceOrInsert(rec)
	logger.Logf(vmm.prefs, "vmm", "mapped %v", rec)

	return base, nil
}

// findFree returns the base of a free range of at least size bytes in the
// user part of the address space.
func (vmm *Manager) findFree(size uint64) (memorymap.VAddr, bool) {
	lo := uint64(memorymap.LowestUserAddress)
	hi := uint64(memorymap.HighestUserAddress) + 1
	policy := vmm.prefs.PlacementPolicy()

	var base uint64
	var bestSize uint64
	var found bool

	vmm.vmas.walk(func(v *VirtualMemoryArea) bool {
		if uint64(v.Base) >= hi {
			return false
		}
		if v.Type != Free {
			return true
		}

		start := max(uint64(v.Base), lo)
		end := min(v.End(), hi)
		if end <= start || end-start < size {
			return true
		}

		if policy == FirstFit {
			base = start
			found = true
			return false
		}

		if !found || end-start < bestSize {
			base = start
			bestSize = end - start
			found = true
		}
		return true
	})

	return memorymap.VAddr(base), found
}

// UnmapRange removes the allocation containing target. The whole of the
// allocation is removed, whatever the VMAs it is currently split into, and
// its physical backing is returned to the provider. Nothing happens if target
// is in a Free VMA.
func (vmm *Manager) UnmapRange(target memorymap.VAddr) {
	vmm.lock()
	defer vmm.unlock()

	if vmm.closed || !vmm.initialised {
		return
	}

	v := vmm.vmas.get(target)
	if v.Type == Free {
		logger.Logf(vmm.prefs, "vmm", "unmap of free address %v ignored", target)
		return
	}

	rec := vmm.findAllocation(target)
	if rec == nil {
		panic(indexError("no allocation record for VMA", *v))
	}

	vmm.unmapRegion(rec)
}

// unmapRegion removes every VMA in the range of the allocation and releases
// the resources held by the allocation.
func (vmm *Manager) unmapRegion(rec *Allocation) {
	end := uint64(rec.Base) + rec.Size

	vmm.vmas.carveRange(rec.Base, rec.Size)
	for a := uint64(rec.Base); a < end; {
		v := vmm.vmas.get(memorymap.VAddr(a))
		if v.Type != Free {
			v = vmm.unmap(v)
		}
		a = v.End()
	}

	if rec.Owned {
		if err := vmm.phys.Free(rec.Block); err != nil {
			logger.Log(logger.Allow, "vmm", err)
		}
	}
	if rec.Reserved {
		if err := vmm.phys.Release(rec.Block.Addr, rec.Block.Size); err != nil {
			logger.Log(logger.Allow, "vmm", err)
		}
	}
	if rec.View {
		if err := vmm.host.UnmapSpecialView(rec.Block.Addr); err != nil {
			logger.Log(logger.Allow, "vmm", err)
		}
	}

	vmm.allocations.Delete(rec)
	logger.Logf(vmm.prefs, "vmm", "unmapped %v", rec)
}

// unmap turns the VMA into a Free VMA and merges it with its neighbours.
// Returns the merged VMA.
func (vmm *Manager) unmap(v *VirtualMemoryArea) *VirtualMemoryArea {
	v.Type = Free
	v.Permissions = NoAccess
	v.Backing = 0
	v.HasBacking = false
	vmm.pages.updateForVMA(v)
	return vmm.vmas.merge(v)
}

// ReprotectVMARange changes the permissions of every VMA in the range target
// to target+size. The range is extended to whole pages. VMAs that straddle the
// edges of the range are split. Free VMAs in the range are unchanged.
func (vmm *Manager) ReprotectVMARange(target memorymap.VAddr, size uint64, perms Permissions) {
	vmm.lock()
	defer vmm.unlock()

	if vmm.closed || !vmm.initialised {
		return
	}

	if !perms.Valid() {
		logger.Logf(logger.Allow, "vmm", "reprotect with invalid permissions (%v)", perms)
		return
	}

	start := memorymap.PageAlignDown(target)
	end := min(memorymap.PageAlign(uint64(target)+size), memorymap.AddressSpaceSize)
	if end <= uint64(start) {
		return
	}

	vmm.vmas.carveRange(start, end-uint64(start))
	for a := uint64(start); a < end; {
		v := vmm.vmas.get(memorymap.VAddr(a))
		if v.Type != Free {
			v.Permissions = perms
			vmm.pages.updateForVMA(v)
		}
		a = v.End()
	}

	// the carve will have split VMAs at the edges and the new permissions
	// may match the neighbours
	for a := uint64(start); a < end; {
		v := vmm.vmas.merge(vmm.vmas.get(memorymap.VAddr(a)))
		a = v.End()
	}

	logger.Logf(vmm.prefs, "vmm", "reprotected %v to %08x as %v", start, end-1, perms)
}
