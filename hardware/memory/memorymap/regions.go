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

// Area represents the different fixed areas of the address space.
type Area int

// List of valid Area values.
const (
	Undefined Area = iota
	Contiguous
	Tiled
	NV2A
	NV2APRAMIN
	APU
	AC97
	USB0
	USB1
	NVNet
	BIOS
	MCPX
)

func (a Area) String() string {
	switch a {
	case Contiguous:
		return "Contiguous"
	case Tiled:
		return "Tiled"
	case NV2A:
		return "NV2A"
	case NV2APRAMIN:
		return "NV2A PRAMIN"
	case APU:
		return "APU"
	case AC97:
		return "AC97"
	case USB0:
		return "USB0"
	case USB1:
		return "USB1"
	case NVNet:
		return "NVNet"
	case BIOS:
		return "BIOS"
	case MCPX:
		return "MCPX"
	}
	return "undefined"
}

// IsROM returns true if the area is backed by ROM. ROM areas have physical
// addresses outside of RAM and are realised through their own host view.
func (a Area) IsROM() bool {
	return a == BIOS || a == MCPX
}

// IsIO returns true if the area is a device register window. IO areas have
// no physical backing.
func (a Area) IsIO() bool {
	switch a {
	case NV2A, APU, AC97, USB0, USB1, NVNet:
		return true
	}
	return false
}

// Region describes one fixed region of the address space.
type Region struct {
	Area Area
	Base VAddr
	Size uint64

	// physical address of the region. only meaningful if HasBacking is true
	Backing    PAddr
	HasBacking bool
}

// End returns the address one byte beyond the end of the region.
func (r Region) End() uint64 {
	return uint64(r.Base) + r.Size
}

func backed(area Area, base VAddr, size uint64, backing PAddr) Region {
	return Region{Area: area, Base: base, Size: size, Backing: backing, HasBacking: true}
}

func device(area Area, base VAddr, size uint64) Region {
	return Region{Area: area, Base: base, Size: size}
}

// FixedRegions returns the regions common to all hardware profiles, in
// ascending address order.
//
// The NV2A register window is split into two regions either side of the
// PRAMIN window.
func FixedRegions() []Region {
	return []Region{
		backed(Contiguous, ContiguousMemoryBase, XboxMemorySize, 0),
		backed(Tiled, TiledMemoryBase, XboxMemorySize, 0),
		device(NV2A, NV2ABase, uint64(NV2APRAMINBase-NV2ABase)),
		backed(NV2APRAMIN, NV2APRAMINBase, NV2APRAMINSize, PRAMINBacking),
		device(NV2A, NV2APRAMINBase+VAddr(NV2APRAMINSize), uint64(NV2ABase)+NV2ASize-(uint64(NV2APRAMINBase)+NV2APRAMINSize)),
		device(APU, APUBase, APUSize),
		device(AC97, AC97Base, AC97Size),
		device(USB0, USB0Base, USB0Size),
		device(USB1, USB1Base, USB1Size),
		device(NVNet, NVNetBase, NVNetSize),
		backed(BIOS, BIOSBase, BIOSXboxSize, PAddr(BIOSBase)),
		backed(MCPX, MCPXBase, MCPXSize, PAddr(MCPXBase)),
	}
}

// ChihiroRegions returns the additional regions for the Chihiro profile. The
// MCPX region from FixedRegions() must be removed before the BIOS extension
// is added.
func ChihiroRegions() []Region {
	ext := ChihiroMemorySize - XboxMemorySize
	return []Region{
		backed(Contiguous, ContiguousMemoryBase+VAddr(XboxMemorySize), ext, PAddr(XboxMemorySize)),
		backed(Tiled, TiledMemoryBase+VAddr(XboxMemorySize), ext, PAddr(XboxMemorySize)),
		backed(BIOS, BIOSBase+VAddr(BIOSXboxSize), BIOSChihiroSize-BIOSXboxSize, PAddr(BIOSBase)+PAddr(BIOSXboxSize)),
	}
}
