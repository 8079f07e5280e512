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
	"errors"
	"sync"

	"github.com/google/btree"

	"github.com/jetsetilly/gopherbox/assert"
	"github.com/jetsetilly/gopherbox/curated"
	"github.com/jetsetilly/gopherbox/hardware/memory/hostmem"
	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
	"github.com/jetsetilly/gopherbox/hardware/memory/physical"
	"github.com/jetsetilly/gopherbox/logger"
)

// PhysicalMemory is the provider of physical backing for allocations.
// Implemented by physical.Memory.
type PhysicalMemory interface {
	Allocate(size uint64, low memorymap.PAddr, high memorymap.PAddr) (physical.Block, error)
	Free(blk physical.Block) error
	Reserve(addr memorymap.PAddr, size uint64) error
	Release(addr memorymap.PAddr, size uint64) error
	Stats() physical.Stats
}

// HostBacking provides the host memory behind physical addresses.
// Implemented by hostmem.Backing.
type HostBacking interface {
	MapFixedViews(contiguousSize uint64, tiledSize uint64) error
	MapSpecialView(paddr memorymap.PAddr, size uint64) error
	UnmapSpecialView(paddr memorymap.PAddr) error
	Slice(paddr memorymap.PAddr, size uint64) ([]byte, error)
	Close() error
}

// Manager of the guest virtual address space.
type Manager struct {
	crit sync.RWMutex

	// non-nil if the AssertReentry preference was set when the manager was
	// created
	owner *assert.Owner

	prefs *Preferences
	phys  PhysicalMemory
	host  HostBacking

	vmas  *index
	pages *pageTable

	// allocations by base address
	allocations *btree.BTreeG[*Allocation]

	initialised bool
	chihiro     bool
	closed      bool
}

// NewManager is the preferred method of initialisation for the Manager type.
// The address space is a single Free VMA until Initialize() is called. If
// prefs is nil then DefaultPreferences() is used.
func NewManager(phys PhysicalMemory, prefs *Preferences) *Manager {
	if prefs == nil {
		prefs = DefaultPreferences()
	}

	vmm := &Manager{
		prefs:       prefs,
		phys:        phys,
		vmas:        newIndex(),
		pages:       newPageTable(),
		allocations: btree.NewG(8, lessAllocation),
	}

	if prefs.AssertReentry.Get().(bool) {
		vmm.owner = assert.NewOwner("vmm.Manager")
	}

	return vmm
}

// Open creates a Manager along with its physical memory and host backing and
// initialises it for the hardware profile in the preferences.
func Open(prefs *Preferences) (*Manager, error) {
	if prefs == nil {
		prefs = DefaultPreferences()
	}

	profile := prefs.HardwareProfile()
	phys := physical.NewMemory(profile.MemorySize(), prefs.FragmentedPoolSize())

	// the backing file is always large enough for the largest profile
	host, err := hostmem.Open(prefs.BackingFile.String(), memorymap.ChihiroMemorySize)
	if err != nil {
		return nil, curated.Errorf(InitialisationError, err)
	}

	vmm := NewManager(phys, prefs)

	err = vmm.Initialize(host)
	if err == nil && profile == memorymap.Chihiro {
		err = vmm.InitializeChihiro()
	}
	if err != nil {
		return nil, errors.Join(err, vmm.Close())
	}

	return vmm, nil
}

// lock for a mutating operation.
func (vmm *Manager) lock() {
	if vmm.owner != nil {
		vmm.owner.Check()
	}
	vmm.crit.Lock()
	if vmm.owner != nil {
		vmm.owner.Enter()
	}
}

func (vmm *Manager) unlock() {
	if vmm.owner != nil {
		vmm.owner.Leave()
	}
	vmm.crit.Unlock()
}

// rlock for a query.
func (vmm *Manager) rlock() {
	if vmm.owner != nil {
		vmm.owner.Check()
	}
	vmm.crit.RLock()
}

func (vmm *Manager) runlock() {
	vmm.crit.RUnlock()
}

// Initialize installs the fixed regions of the retail layout. The Manager
// takes ownership of the host backing, which is closed by Close().
//
// An error is returned if the host cannot provide the necessary views. The
// Manager should be closed in that case.
func (vmm *Manager) Initialize(host HostBacking) error {
	vmm.lock()
	defer vmm.unlock()

	if vmm.initialised {
		return curated.Errorf(InitialisationError, "already initialised")
	}
	if vmm.closed {
		return curated.Errorf(ClosedError)
	}

	vmm.host = host
	vmm.initialised = true

	err := vmm.host.MapFixedViews(memorymap.XboxMemorySize, memorymap.XboxMemorySize)
	if err != nil {
		return curated.Errorf(InitialisationError, err)
	}

	for _, r := range memorymap.FixedRegions() {
		err := vmm.mapFixedRegion(r)
		if err != nil {
			return curated.Errorf(InitialisationError, err)
		}
	}

	logger.Logf(logger.Allow, "vmm", "initialised with %d VMAs", vmm.vmas.len())

	return nil
}

// InitializeChihiro extends the retail layout for the Chihiro profile. It
// must be called once, after Initialize(). The physical memory provider must
// have enough RAM for the Chihiro profile.
func (vmm *Manager) InitializeChihiro() error {
	vmm.lock()
	defer vmm.unlock()

	if !vmm.initialised {
		return curated.Errorf(InitialisationError, "chihiro layout before initialisation")
	}
	if vmm.chihiro {
		return curated.Errorf(InitialisationError, "chihiro layout already installed")
	}
	if vmm.closed {
		return curated.Errorf(ClosedError)
	}

	if vmm.phys.Stats().RAMSize < memorymap.ChihiroMemorySize {
		return curated.Errorf(InitialisationError, "not enough physical memory for chihiro profile")
	}

	vmm.chihiro = true

	// the MCPX ROM is not present on chihiro hardware. the BIOS is one page
	// larger instead
	if rec := vmm.findAllocation(memorymap.MCPXBase); rec != nil && rec.Type == DeviceMCPX {
		vmm.unmapRegion(rec)
	}

	err := vmm.host.MapFixedViews(memorymap.ChihiroMemorySize, memorymap.ChihiroMemorySize)
	if err != nil {
		return curated.Errorf(InitialisationError, err)
	}

	for _, r := range memorymap.ChihiroRegions() {
		var err error
		if r.Area == memorymap.BIOS {
			err = vmm.extendBIOS(r)
		} else {
			err = vmm.mapFixedRegion(r)
		}
		if err != nil {
			return curated.Errorf(InitialisationError, err)
		}
	}

	logger.Logf(logger.Allow, "vmm", "chihiro layout installed with %d VMAs", vmm.vmas.len())

	return nil
}

// extendBIOS grows the BIOS region and its host view to include the region r.
// the contents of the BIOS view do not survive.
func (vmm *Manager) extendBIOS(r memorymap.Region) error {
	rec := vmm.findAllocation(memorymap.BIOSBase)
	if rec == nil || rec.Type != DeviceBIOS || uint64(rec.Base)+rec.Size != uint64(r.Base) {
		return curated.Errorf(ViewError, "BIOS region is not where it is expected")
	}

	err := vmm.host.UnmapSpecialView(rec.Block.Addr)
	if err != nil {
		return curated.Errorf(ViewError, err)
	}

	rec.Size += r.Size
	rec.Block.Size += r.Size

	err = vmm.host.MapSpecialView(rec.Block.Addr, rec.Block.Size)
	if err != nil {
		rec.View = false
		return curated.Errorf(ViewError, err)
	}

	v := vmm.vmas.carve(r.Base, r.Size)
	v.Type = DeviceBIOS
	v.Permissions = fixedPermissions(r.Area)
	v.Backing = r.Backing
	v.HasBacking = r.HasBacking
	vmm.pages.updateForVMA(v)
	vmm.vmas.merge(v)

	return nil
}

// Close releases the host backing. It is safe to call Close more than once.
func (vmm *Manager) Close() error {
	vmm.lock()
	defer vmm.unlock()

	if vmm.closed {
		return nil
	}
	vmm.closed = true

	if vmm.host == nil {
		return nil
	}

	err := vmm.host.Close()
	if err != nil {
		logger.Log(logger.Allow, "vmm", err)
		return curated.Errorf(ViewError, err)
	}

	return nil
}

// Profile returns the hardware profile of the current layout.
func (vmm *Manager) Profile() memorymap.Profile {
	vmm.rlock()
	defer vmm.runlock()
	if vmm.chihiro {
		return memorymap.Chihiro
	}
	return memorymap.Retail
}
