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

package memorymap

import (
	"fmt"
	"strings"
)

// VAddr is a guest virtual address.
type VAddr uint32

// PAddr is a guest physical address.
type PAddr uint32

func (a VAddr) String() string {
	return fmt.Sprintf("%#08x", uint32(a))
}

func (a PAddr) String() string {
	return fmt.Sprintf("%#08x", uint32(a))
}

// Page geometry. Every region in the address space is page aligned.
const (
	PageShift = 12
	PageSize  = 1 << PageShift
	PageMask  = PageSize - 1

	// the number of pages in the 32bit address space
	PageCount = 1 << (32 - PageShift)

	// size of the whole 32bit address space in bytes. note that the value
	// does not fit in a uint32
	AddressSpaceSize uint64 = 1 << 32
)

// PageAlign rounds size up to the next page boundary.
func PageAlign(size uint64) uint64 {
	return (size + PageMask) &^ PageMask
}

// PageAlignDown rounds the address down to the start of its page.
func PageAlignDown(addr VAddr) VAddr {
	return addr &^ PageMask
}

// PageNumber returns the page index of the address.
func PageNumber(addr VAddr) uint32 {
	return uint32(addr) >> PageShift
}

// IsPageAligned returns true if the value is a multiple of the page size.
func IsPageAligned(v uint64) bool {
	return v&PageMask == 0
}

// Memory sizes for each hardware profile.
const (
	XboxMemorySize    uint64 = 0x04000000 // 64MiB
	ChihiroMemorySize uint64 = 0x08000000 // 128MiB
)

// Addresses of the user portion of the address space.
const (
	XbeImageBase       = VAddr(0x00010000)
	LowestUserAddress  = VAddr(0x00010000)
	HighestUserAddress = VAddr(0x7ffeffff)
)

// Base addresses of the fixed regions. Sizes are given in bytes.
const (
	ContiguousMemoryBase = VAddr(0x80000000)
	TiledMemoryBase      = VAddr(0xf0000000)

	NV2ABase       = VAddr(0xfd000000)
	NV2ASize       = uint64(0x01000000)
	NV2APRAMINBase = VAddr(0xfd700000)
	NV2APRAMINSize = uint64(0x00100000)

	APUBase   = VAddr(0xfe800000)
	APUSize   = uint64(0x00080000)
	AC97Base  = VAddr(0xfec00000)
	AC97Size  = uint64(PageSize)
	USB0Base  = VAddr(0xfed00000)
	USB0Size  = uint64(PageSize)
	USB1Base  = VAddr(0xfed08000)
	USB1Size  = uint64(PageSize)
	NVNetBase = VAddr(0xfef00000)
	NVNetSize = uint64(PageSize)

	BIOSBase        = VAddr(0xff000000)
	BIOSXboxSize    = uint64(0x00fff000)
	BIOSChihiroSize = uint64(0x01000000)
	MCPXBase        = VAddr(0xfffff000)
	MCPXSize        = uint64(PageSize)
)

// Physical addresses that are not part of RAM.
const (
	// the NV2A instance memory lives in the top megabyte of retail RAM
	PRAMINBacking = PAddr(XboxMemorySize - NV2APRAMINSize)

	// physical base of memory that the physical allocator hands out when RAM
	// is too fragmented to satisfy an unconstrained request. it is well away
	// from RAM and from the ROM addresses
	FragmentedBase = PAddr(0x10000000)
)

// Profile is the hardware variant being emulated.
type Profile int

// List of valid Profile values.
const (
	Retail Profile = iota
	Chihiro
)

func (p Profile) String() string {
	switch p {
	case Retail:
		return "RETAIL"
	case Chihiro:
		return "CHIHIRO"
	}
	return "undefined"
}

// ParseProfile converts a string to a Profile. The comparison is case
// insensitive.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RETAIL", "XBOX", "":
		return Retail, nil
	case "CHIHIRO":
		return Chihiro, nil
	}
	return Retail, fmt.Errorf("memorymap: unknown hardware profile (%s)", s)
}

// MemorySize returns the amount of physical RAM for the profile.
func (p Profile) MemorySize() uint64 {
	if p == Chihiro {
		return ChihiroMemorySize
	}
	return XboxMemorySize
}
