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
	"strconv"
	"strings"
)

// VMAType is the kind of memory covered by a VMA.
type VMAType int

// List of valid VMAType values.
const (
	// unmapped address space
	Free VMAType = iota

	// general purpose allocation
	Allocated

	// allocation with physical backing outside of RAM. realised through its
	// own host view
	Fragmented

	// the executable image loaded at memorymap.XbeImageBase
	Xbe

	// mirrors of physical RAM
	MemContiguous
	MemTiled

	// device windows
	IODeviceNV2A
	MemNV2APRAMIN
	IODeviceAPU
	IODeviceAC97
	IODeviceUSB0
	IODeviceUSB1
	IODeviceNVNet
	DeviceBIOS
	DeviceMCPX

	numVMATypes
)

func (t VMAType) String() string {
	switch t {
	case Free:
		return "Free"
	case Allocated:
		return "Allocated"
	case Fragmented:
		return "Fragmented"
	case Xbe:
		return "Xbe"
	case MemContiguous:
		return "Contiguous"
	case MemTiled:
		return "Tiled"
	case IODeviceNV2A:
		return "NV2A"
	case MemNV2APRAMIN:
		return "NV2A PRAMIN"
	case IODeviceAPU:
		return "APU"
	case IODeviceAC97:
		return "AC97"
	case IODeviceUSB0:
		return "USB0"
	case IODeviceUSB1:
		return "USB1"
	case IODeviceNVNet:
		return "NVNet"
	case DeviceBIOS:
		return "BIOS"
	case DeviceMCPX:
		return "MCPX"
	}
	return "undefined"
}

// IsFixed returns true if the type is one of the fixed regions installed by
// Initialize() and InitializeChihiro().
func (t VMAType) IsFixed() bool {
	return t >= MemContiguous && t < numVMATypes
}

// Permissions is the access rights of a VMA, using the same values as the
// page protection constants of the guest kernel. The value is one of the
// base protections, optionally combined with the Guard, NoCache and
// WriteCombine modifiers.
type Permissions uint32

// List of base protections.
const (
	NoAccess         Permissions = 0x01
	ReadOnly         Permissions = 0x02
	ReadWrite        Permissions = 0x04
	WriteCopy        Permissions = 0x08
	Execute          Permissions = 0x10
	ExecuteRead      Permissions = 0x20
	ExecuteReadWrite Permissions = 0x40
	ExecuteWriteCopy Permissions = 0x80
)

// List of modifiers.
const (
	Guard        Permissions = 0x100
	NoCache      Permissions = 0x200
	WriteCombine Permissions = 0x400
)

const (
	baseMask     Permissions = 0xff
	modifierMask Permissions = Guard | NoCache | WriteCombine
)

var permissionNames = []struct {
	p    Permissions
	name string
}{
	{NoAccess, "NOACCESS"},
	{ReadOnly, "READONLY"},
	{ReadWrite, "READWRITE"},
	{WriteCopy, "WRITECOPY"},
	{Execute, "EXECUTE"},
	{ExecuteRead, "EXECUTEREAD"},
	{ExecuteReadWrite, "EXECUTEREADWRITE"},
	{ExecuteWriteCopy, "EXECUTEWRITECOPY"},
	{Guard, "GUARD"},
	{NoCache, "NOCACHE"},
	{WriteCombine, "WRITECOMBINE"},
}

// Base returns the base protection without modifiers.
func (p Permissions) Base() Permissions {
	return p & baseMask
}

// Valid returns true if the value has exactly one base protection and no
// unknown bits.
func (p Permissions) Valid() bool {
	b := p.Base()
	if b == 0 || b&(b-1) != 0 {
		return false
	}
	return p&^(baseMask|modifierMask) == 0
}

// Readable returns true if memory with these permissions can be read.
func (p Permissions) Readable() bool {
	switch p.Base() {
	case ReadOnly, ReadWrite, WriteCopy, ExecuteRead, ExecuteReadWrite, ExecuteWriteCopy:
		return true
	}
	return false
}

// Writable returns true if memory with these permissions can be written.
func (p Permissions) Writable() bool {
	switch p.Base() {
	case ReadWrite, WriteCopy, ExecuteReadWrite, ExecuteWriteCopy:
		return true
	}
	return false
}

// Executable returns true if memory with these permissions can be executed.
func (p Permissions) Executable() bool {
	switch p.Base() {
	case Execute, ExecuteRead, ExecuteReadWrite, ExecuteWriteCopy:
		return true
	}
	return false
}

func (p Permissions) String() string {
	var s []string
	for _, n := range permissionNames {
		if p&n.p == n.p {
			s = append(s, n.name)
		}
	}
	if len(s) == 0 || p&^(baseMask|modifierMask) != 0 {
		return fmt.Sprintf("%#x", uint32(p))
	}
	return strings.Join(s, "|")
}

// ParsePermissions converts a string to a Permissions value. The string is
// either a number or a list of names separated by the | character. For
// example "READWRITE|NOCACHE". Names are case insensitive.
func ParsePermissions(s string) (Permissions, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		p := Permissions(n)
		if !p.Valid() {
			return 0, fmt.Errorf("vmm: invalid permissions (%s)", s)
		}
		return p, nil
	}

	var p Permissions
	for _, f := range strings.Split(s, "|") {
		f = strings.ToUpper(strings.TrimSpace(f))
		var ok bool
		for _, n := range permissionNames {
			if n.name == f {
				p |= n.p
				ok = true
				break
			}
		}
		if !ok {
			return 0, fmt.Errorf("vmm: unknown permission (%s)", f)
		}
	}

	if !p.Valid() {
		return 0, fmt.Errorf("vmm: invalid permissions (%s)", s)
	}

	return p, nil
}
