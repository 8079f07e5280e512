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

package physical

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/jetsetilly/gopherbox/curated"
	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
	"github.com/jetsetilly/gopherbox/logger"
)

// Sentinal errors returned by the physical package.
const (
	OutOfMemory   = "physical: out of memory (%#x bytes between %v and %v)"
	InvalidBlock  = "physical: invalid block (%v, %#x bytes)"
	DoubleFree    = "physical: block not allocated (%v, %#x bytes)"
	ReserveError  = "physical: cannot reserve (%v, %#x bytes): %s"
	ZeroSizeError = "physical: zero size request"
)

// Unconstrained values of the low and high arguments to Allocate(). A request
// with these values may be satisfied by the fragmented pool.
const (
	Lowest  = memorymap.PAddr(0)
	Highest = memorymap.PAddr(0xffffffff)
)

// Block is a run of physical frames.
type Block struct {
	Addr memorymap.PAddr
	Size uint64

	// block is from the fragmented pool rather than RAM
	Fragmented bool
}

func (b Block) String() string {
	if b.Fragmented {
		return fmt.Sprintf("%v (%#x bytes, fragmented)", b.Addr, b.Size)
	}
	return fmt.Sprintf("%v (%#x bytes)", b.Addr, b.Size)
}

// pool is one contiguous run of frames. the used bitset has one bit per
// frame.
type pool struct {
	base memorymap.PAddr
	size uint64
	used *bitset.BitSet
}

func newPool(base memorymap.PAddr, size uint64) pool {
	size = memorymap.PageAlign(size)
	return pool{
		base: base,
		size: size,
		used: bitset.New(uint(size >> memorymap.PageShift)),
	}
}

func (p pool) frames() uint {
	return uint(p.size >> memorymap.PageShift)
}

// frame returns the pool relative frame index for the address. the boolean
// is false if the address is outside of the pool.
func (p pool) frame(addr memorymap.PAddr) (uint, bool) {
	if addr < p.base || uint64(addr-p.base) >= p.size {
		return 0, false
	}
	return uint(uint64(addr-p.base) >> memorymap.PageShift), true
}

func (p pool) addr(frame uint) memorymap.PAddr {
	return p.base + memorymap.PAddr(frame<<memorymap.PageShift)
}

// firstFit looks for n clear frames beginning at or after first and ending at
// or before limit.
func (p pool) firstFit(first, limit, n uint) (uint, bool) {
	s := first
	for s+n <= limit {
		if p.used.Test(s) {
			c, ok := p.used.NextClear(s)
			if !ok {
				return 0, false
			}
			s = c
			continue
		}

		set, ok := p.used.NextSet(s)
		if !ok || set >= s+n {
			return s, true
		}
		s = set
	}
	return 0, false
}

// allSet returns true if every frame in the range is in use.
func (p pool) allSet(frame, n uint) bool {
	for i := frame; i < frame+n; i++ {
		if !p.used.Test(i) {
			return false
		}
	}
	return true
}

// anySet returns true if any frame in the range is in use.
func (p pool) anySet(frame, n uint) bool {
	set, ok := p.used.NextSet(frame)
	return ok && set < frame+n
}

func (p pool) mark(frame, n uint, used bool) {
	for i := frame; i < frame+n; i++ {
		p.used.SetTo(i, used)
	}
}

func (p pool) inUse() uint64 {
	return uint64(p.used.Count()) << memorymap.PageShift
}

// Memory is the physical memory provider.
type Memory struct {
	crit sync.Mutex

	ram        pool
	fragmented pool
}

// NewMemory is the preferred method of initialisation for the Memory type.
// Sizes are rounded up to the page size. A fragmentedPoolSize of zero
// disables the fragmented pool.
func NewMemory(ramSize uint64, fragmentedPoolSize uint64) *Memory {
	return &Memory{
		ram:        newPool(0, ramSize),
		fragmented: newPool(memorymap.FragmentedBase, fragmentedPoolSize),
	}
}

// Allocate a block of at least size bytes. The block will lie entirely
// within the range low to high inclusive. Unconstrained requests that cannot
// be met from RAM are met from the fragmented pool if possible.
//
// Returns an error matching the OutOfMemory pattern if the request cannot be
// satisfied.
func (mem *Memory) Allocate(size uint64, low memorymap.PAddr, high memorymap.PAddr) (Block, error) {
	mem.crit.Lock()
	defer mem.crit.Unlock()

	size = memorymap.PageAlign(size)
	if size == 0 {
		return Block{}, curated.Errorf(ZeroSizeError)
	}

	n := uint(size >> memorymap.PageShift)

	// constraint expressed as RAM frames. the first frame is rounded up and
	// the high address is inclusive
	first := uint(memorymap.PageAlign(uint64(low)) >> memorymap.PageShift)
	limit := uint((uint64(high) + 1) >> memorymap.PageShift)
	if limit > mem.ram.frames() {
		limit = mem.ram.frames()
	}

	if first < limit {
		if f, ok := mem.ram.firstFit(first, limit, n); ok {
			mem.ram.mark(f, n, true)
			return Block{Addr: mem.ram.addr(f), Size: size}, nil
		}
	}

	if low == Lowest && high == Highest {
		if f, ok := mem.fragmented.firstFit(0, mem.fragmented.frames(), n); ok {
			mem.fragmented.mark(f, n, true)
			logger.Logf(logger.Allow, "physical", "allocated %#x bytes from fragmented pool", size)
			return Block{Addr: mem.fragmented.addr(f), Size: size, Fragmented: true}, nil
		}
	}

	return Block{}, curated.Errorf(OutOfMemory, size, low, high)
}

// Reserve marks a fixed range of RAM as being in use. The range must not
// already be in use.
func (mem *Memory) Reserve(addr memorymap.PAddr, size uint64) error {
	mem.crit.Lock()
	defer mem.crit.Unlock()

	if !memorymap.IsPageAligned(uint64(addr)) || !memorymap.IsPageAligned(size) || size == 0 {
		return curated.Errorf(ReserveError, addr, size, "not page aligned")
	}

	f, ok := mem.ram.frame(addr)
	if !ok || uint64(addr)+size > mem.ram.size {
		return curated.Errorf(ReserveError, addr, size, "outside of RAM")
	}

	n := uint(size >> memorymap.PageShift)
	if mem.ram.anySet(f, n) {
		return curated.Errorf(ReserveError, addr, size, "already in use")
	}

	mem.ram.mark(f, n, true)

	return nil
}

// Release is the counterpart to Reserve().
func (mem *Memory) Release(addr memorymap.PAddr, size uint64) error {
	return mem.Free(Block{Addr: addr, Size: size})
}

// Free returns a block to the pool it was allocated from.
func (mem *Memory) Free(blk Block) error {
	mem.crit.Lock()
	defer mem.crit.Unlock()

	p := &mem.ram
	if blk.Fragmented {
		p = &mem.fragmented
	}

	f, ok := p.frame(blk.Addr)
	if !ok || blk.Size == 0 || !memorymap.IsPageAligned(blk.Size) || uint64(blk.Addr-p.base)+blk.Size > p.size {
		return curated.Errorf(InvalidBlock, blk.Addr, blk.Size)
	}

	n := uint(blk.Size >> memorymap.PageShift)
	if !p.allSet(f, n) {
		return curated.Errorf(DoubleFree, blk.Addr, blk.Size)
	}

	p.mark(f, n, false)

	return nil
}

// Stats is a snapshot of the state of the physical memory pools.
type Stats struct {
	RAMSize            uint64
	RAMInUse           uint64
	FragmentedPoolSize uint64
	FragmentedInUse    uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("ram %#x/%#x fragmented %#x/%#x", s.RAMInUse, s.RAMSize, s.FragmentedInUse, s.FragmentedPoolSize)
}

// Stats returns a snapshot of the pools.
func (mem *Memory) Stats() Stats {
	mem.crit.Lock()
	defer mem.crit.Unlock()
	return Stats{
		RAMSize:            mem.ram.size,
		RAMInUse:           mem.ram.inUse(),
		FragmentedPoolSize: mem.fragmented.size,
		FragmentedInUse:    mem.fragmented.inUse(),
	}
}
