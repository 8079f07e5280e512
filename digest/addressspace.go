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

package digest

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"

	"github.com/jetsetilly/gopherbox/hardware/memory/vmm"
)

// AddressSpace fingerprints a sequence of VMA lists.
type AddressSpace struct {
	digest [sha1.Size]byte
	buffer []byte
	count  int
}

// NewAddressSpace is the preferred method of initialisation for the
// AddressSpace type.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{}
}

// Hash implements digest.Digest interface.
func (dig *AddressSpace) Hash() string {
	return fmt.Sprintf("%x", dig.digest)
}

// ResetDigest implements digest.Digest interface.
func (dig *AddressSpace) ResetDigest() {
	clear(dig.digest[:])
	dig.count = 0
}

// Count returns the number of states given to Update() since the last reset.
func (dig *AddressSpace) Count() int {
	return dig.count
}

// Update the digest with the next state of the address space.
func (dig *AddressSpace) Update(vmas []vmm.VirtualMemoryArea) {
	// chain fingerprints by placing the previous fingerprint at the head of
	// the buffer
	dig.buffer = append(dig.buffer[:0], dig.digest[:]...)

	for _, v := range vmas {
		dig.buffer = binary.LittleEndian.AppendUint32(dig.buffer, uint32(v.Base))
		dig.buffer = binary.LittleEndian.AppendUint64(dig.buffer, v.Size)
		dig.buffer = binary.LittleEndian.AppendUint16(dig.buffer, uint16(v.Type))
		dig.buffer = binary.LittleEndian.AppendUint32(dig.buffer, uint32(v.Permissions))
		if v.HasBacking {
			dig.buffer = append(dig.buffer, 1)
			dig.buffer = binary.LittleEndian.AppendUint32(dig.buffer, uint32(v.Backing))
		} else {
			dig.buffer = append(dig.buffer, 0)
		}
	}

	dig.digest = sha1.Sum(dig.buffer)
	dig.count++
}
