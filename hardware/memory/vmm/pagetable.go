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
	"strings"

	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
)

// PTE is a single page table entry. The upper 20 bits are the physical frame
// and the lower 12 bits are the flags.
type PTE uint32

// List of PTE flags.
const (
	PTEValid PTE = 1 << iota
	PTERead
	PTEWrite
	PTEExecute
	PTEGuard
	PTENoCache
	PTEWriteCombine

	// the frame is realised through a host view other than the primary view
	PTEAliased
)

// PTEUnmapped is the entry for every page of a Free VMA and of device windows
// with no physical backing.
const PTEUnmapped PTE = 0

const pteFlagsMask = PTE(memorymap.PageMask)

// Frame returns the physical address of the page.
func (e PTE) Frame() memorymap.PAddr {
	return memorymap.PAddr(e &^ pteFlagsMask)
}

// Flags returns the flags part of the entry.
func (e PTE) Flags() PTE {
	return e & pteFlagsMask
}

// Valid returns true if the entry maps a physical frame.
func (e PTE) Valid() bool {
	return e&PTEValid == PTEValid
}

func (e PTE) String() string {
	if !e.Valid() {
		return "unmapped"
	}

	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("%08x ", uint32(e.Frame())))
	for _, f := range []struct {
		flag PTE
		c    byte
	}{
		{PTERead, 'r'},
		{PTEWrite, 'w'},
		{PTEExecute, 'x'},
		{PTEGuard, 'g'},
		{PTENoCache, 'n'},
		{PTEWriteCombine, 'c'},
		{PTEAliased, 'a'},
	} {
		if e&f.flag == f.flag {
			s.WriteByte(f.c)
		} else {
			s.WriteByte('-')
		}
	}
	return s.String()
}

// flagsFor returns the PTE flags for a VMA with backing.
func flagsFor(v *VirtualMemoryArea) PTE {
	f := PTEValid

	if v.Permissions.Readable() {
		f |= PTERead
	}
	if v.Permissions.Writable() {
		f |= PTEWrite
	}
	if v.Permissions.Executable() {
		f |= PTEExecute
	}
	if v.Permissions&Guard == Guard {
		f |= PTEGuard
	}
	if v.Permissions&NoCache == NoCache {
		f |= PTENoCache
	}
	if v.Permissions&WriteCombine == WriteCombine {
		f |= PTEWriteCombine
	}

	switch v.Type {
	case Fragmented, DeviceBIOS, DeviceMCPX:
		f |= PTEAliased
	}

	return f
}

// entryFor returns the page table entry for the page at offset bytes into the
// VMA.
func entryFor(v *VirtualMemoryArea, offset uint64) PTE {
	if !v.HasBacking {
		return PTEUnmapped
	}
	return PTE(uint64(v.Backing)+offset) | flagsFor(v)
}

// pageTable has one entry for every page in the address space.
type pageTable struct {
	entries []PTE
}

func newPageTable() *pageTable {
	return &pageTable{
		entries: make([]PTE, memorymap.PageCount),
	}
}

// updateForVMA rewrites the entries for every page covered by the VMA.
func (pt *pageTable) updateForVMA(v *VirtualMemoryArea) {
	first, count := v.pages()
	entries := pt.entries[first : uint64(first)+uint64(count)]

	if !v.HasBacking {
		clear(entries)
		return
	}

	flags := flagsFor(v)
	frame := uint64(v.Backing)
	for i := range entries {
		entries[i] = PTE(frame) | flags
		frame += memorymap.PageSize
	}
}

func (pt *pageTable) entry(addr memorymap.VAddr) PTE {
	return pt.entries[memorymap.PageNumber(addr)]
}
