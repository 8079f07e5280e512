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
	"github.com/jetsetilly/gopherbox/curated"
	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
)

// Sentinal errors returned by the vmm package.
const (
	InitialisationError = "vmm: initialisation: %v"
	PlacementError      = "vmm: cannot place %#x bytes at %v: %s"
	NoVirtualSpace      = "vmm: no free virtual range for %#x bytes"
	BackingError        = "vmm: no physical backing for %#x bytes: %v"
	ViewError           = "vmm: host view: %v"
	ConsistencyError    = "vmm: inconsistent address space: %s"
	GuestMemoryError    = "vmm: no host memory for %v (%#x bytes): %s"
	ClosedError         = "vmm: manager is closed"
)

// Panic values. These indicate a broken index or a misuse of the address
// space and are not recoverable.
const (
	IndexError     = "vmm: index: %s (%v)"
	CarveError     = "vmm: cannot carve %#x bytes at %v from %v"
	TranslateError = "vmm: cannot translate free address %v"
)

func indexError(detail string, v any) error {
	return curated.Errorf(IndexError, detail, v)
}

func carveError(base memorymap.VAddr, size uint64, v VirtualMemoryArea) error {
	return curated.Errorf(CarveError, size, base, v)
}
