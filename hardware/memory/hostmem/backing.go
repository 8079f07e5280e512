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

package hostmem

import (
	"errors"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/google/btree"

	"github.com/jetsetilly/gopherbox/curated"
	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
	"github.com/jetsetilly/gopherbox/logger"
)

// Sentinal errors returned by the hostmem package.
const (
	MappingError = "hostmem: %v"
	ViewError    = "hostmem: view (%v, %#x bytes): %s"
	SliceError   = "hostmem: no host memory for %v (%#x bytes)"
	ClosedError  = "hostmem: backing is closed"
)

// a special view is an anonymous mapping standing in for physical memory
// outside of RAM.
type specialView struct {
	paddr memorymap.PAddr
	view  mmap.MMap
}

func (v specialView) end() uint64 {
	return uint64(v.paddr) + uint64(len(v.view))
}

func lessView(a, b specialView) bool {
	return a.paddr < b.paddr
}

// Backing is the host storage for guest physical memory.
type Backing struct {
	crit sync.Mutex

	file *os.File

	// the file was created in the temporary directory and should be removed
	// on close
	temporary bool

	size uint64

	primary    mmap.MMap
	contiguous mmap.MMap
	tiled      mmap.MMap

	special *btree.BTreeG[specialView]

	closed bool
}

// Open creates the backing file and maps the primary view. If path is empty
// an anonymous file is used.
func Open(path string, size uint64) (*Backing, error) {
	size = memorymap.PageAlign(size)
	if size == 0 {
		return nil, curated.Errorf(MappingError, "zero sized backing")
	}

	var f *os.File
	var temporary bool
	var err error

	if path == "" {
		f, temporary, err = createAnonymous()
	} else {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	}
	if err != nil {
		return nil, curated.Errorf(MappingError, err)
	}

	err = f.Truncate(int64(size))
	if err != nil {
		return nil, curated.Errorf(MappingError, errors.Join(err, discard(f, temporary)))
	}

	primary, err := mmap.MapRegion(f, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		return nil, curated.Errorf(MappingError, errors.Join(err, discard(f, temporary)))
	}

	logger.Logf(logger.Allow, "hostmem", "backing file %s (%#x bytes)", f.Name(), size)

	return &Backing{
		file:      f,
		temporary: temporary,
		size:      size,
		primary:   primary,
		special:   btree.NewG(2, lessView),
	}, nil
}

// discard closes the file and removes it if it was temporary.
func discard(f *os.File, temporary bool) error {
	err := f.Close()
	if temporary {
		err = errors.Join(err, os.Remove(f.Name()))
	}
	return err
}

// Size returns the size of the backing file.
func (b *Backing) Size() uint64 {
	return b.size
}

// MapFixedViews maps the contiguous and tiled views. Both views begin at
// offset zero of the backing file. Any existing fixed views are unmapped and
// replaced, which allows the views to grow.
func (b *Backing) MapFixedViews(contiguousSize uint64, tiledSize uint64) error {
	b.crit.Lock()
	defer b.crit.Unlock()

	if b.closed {
		return curated.Errorf(ClosedError)
	}

	if contiguousSize > b.size || tiledSize > b.size {
		return curated.Errorf(MappingError, "fixed views are larger than the backing file")
	}

	err := b.unmapFixedViews()
	if err != nil {
		return curated.Errorf(MappingError, err)
	}

	b.contiguous, err = mmap.MapRegion(b.file, int(contiguousSize), mmap.RDWR, 0, 0)
	if err != nil {
		return curated.Errorf(MappingError, err)
	}

	b.tiled, err = mmap.MapRegion(b.file, int(tiledSize), mmap.RDWR, 0, 0)
	if err != nil {
		err = errors.Join(err, b.contiguous.Unmap())
		b.contiguous = nil
		return curated.Errorf(MappingError, err)
	}

	return nil
}

func (b *Backing) unmapFixedViews() error {
	var err error
	if b.contiguous != nil {
		err = errors.Join(err, b.contiguous.Unmap())
		b.contiguous = nil
	}
	if b.tiled != nil {
		err = errors.Join(err, b.tiled.Unmap())
		b.tiled = nil
	}
	return err
}

// MapSpecialView creates an anonymous mapping for the physical range. The
// range must not overlap RAM or another special view.
func (b *Backing) MapSpecialView(paddr memorymap.PAddr, size uint64) error {
	b.crit.Lock()
	defer b.crit.Unlock()

	if b.closed {
		return curated.Errorf(ClosedError)
	}

	size = memorymap.PageAlign(size)
	if size == 0 {
		return curated.Errorf(ViewError, paddr, size, "zero size")
	}

	end := uint64(paddr) + size
	if uint64(paddr) < b.size {
		return curated.Errorf(ViewError, paddr, size, "overlaps RAM")
	}

	// the nearest view below the end of the new view is the only candidate
	// for an overlap
	var overlap bool
	b.special.DescendLessOrEqual(specialView{paddr: memorymap.PAddr(end - 1)}, func(v specialView) bool {
		overlap = v.end() > uint64(paddr)
		return false
	})
	if overlap {
		return curated.Errorf(ViewError, paddr, size, "overlaps existing view")
	}

	view, err := mmap.MapRegion(nil, int(size), mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return curated.Errorf(ViewError, paddr, size, err)
	}

	b.special.ReplaceOrInsert(specialView{paddr: paddr, view: view})

	return nil
}

// UnmapSpecialView removes the special view beginning at paddr.
func (b *Backing) UnmapSpecialView(paddr memorymap.PAddr) error {
	b.crit.Lock()
	defer b.crit.Unlock()

	if b.closed {
		return curated.Errorf(ClosedError)
	}

	v, ok := b.special.Delete(specialView{paddr: paddr})
	if !ok {
		return curated.Errorf(ViewError, paddr, 0, "no such view")
	}

	err := v.view.Unmap()
	if err != nil {
		return curated.Errorf(ViewError, paddr, len(v.view), err)
	}

	return nil
}

// Slice returns the host memory behind the physical range. The range must be
// entirely inside RAM or entirely inside one special view.
func (b *Backing) Slice(paddr memorymap.PAddr, size uint64) ([]byte, error) {
	b.crit.Lock()
	defer b.crit.Unlock()

	if b.closed {
		return nil, curated.Errorf(ClosedError)
	}

	end := uint64(paddr) + size
	if end <= b.size {
		return b.primary[paddr:end:end], nil
	}

	var s []byte
	b.special.DescendLessOrEqual(specialView{paddr: paddr}, func(v specialView) bool {
		if end <= v.end() {
			o := uint64(paddr - v.paddr)
			s = v.view[o : o+size : o+size]
		}
		return false
	})
	if s == nil {
		return nil, curated.Errorf(SliceError, paddr, size)
	}

	return s, nil
}

// Primary returns the view of the entire backing file.
func (b *Backing) Primary() []byte {
	return b.primary
}

// Contiguous returns the contiguous view. Returns nil if MapFixedViews() has
// not been called.
func (b *Backing) Contiguous() []byte {
	return b.contiguous
}

// Tiled returns the tiled view. Returns nil if MapFixedViews() has not been
// called.
func (b *Backing) Tiled() []byte {
	return b.tiled
}

// Close unmaps all views and closes the backing file. It is safe to call
// Close more than once.
func (b *Backing) Close() error {
	b.crit.Lock()
	defer b.crit.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var err error

	b.special.Ascend(func(v specialView) bool {
		err = errors.Join(err, v.view.Unmap())
		return true
	})
	b.special.Clear(false)

	err = errors.Join(err, b.unmapFixedViews())

	err = errors.Join(err, b.primary.Flush(), b.primary.Unmap())
	b.primary = nil

	err = errors.Join(err, b.file.Sync(), discard(b.file, b.temporary))

	if err != nil {
		logger.Log(logger.Allow, "hostmem", err)
		return curated.Errorf(MappingError, err)
	}

	return nil
}
