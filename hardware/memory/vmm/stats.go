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

	"github.com/jetsetilly/gopherbox/hardware/memory/physical"
	"github.com/jetsetilly/gopherbox/logger"
)

// TypeStatistics is the number of VMAs and the number of bytes for one
// VMAType.
type TypeStatistics struct {
	Count int
	Bytes uint64
}

// Statistics is a summary of the address space.
type Statistics struct {
	Types       [numVMATypes]TypeStatistics
	VMAs        int

	// totals for the fixed regions, whatever their type
	Fixed TypeStatistics

	Allocations int
	Physical    physical.Stats
}

// Type returns the statistics for one VMAType.
func (s Statistics) Type(t VMAType) TypeStatistics {
	if t < 0 || t >= numVMATypes {
		return TypeStatistics{}
	}
	return s.Types[t]
}

func (s Statistics) String() string {
	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("%-12s %5s %12s\n", "type", "vmas", "bytes"))
	for t := range numVMATypes {
		ts := s.Types[t]
		if ts.Count == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("%-12s %5d %#12x\n", t, ts.Count, ts.Bytes))
	}
	b.WriteString(fmt.Sprintf("%-12s %5d %#12x\n", "(fixed)", s.Fixed.Count, s.Fixed.Bytes))
	b.WriteString(fmt.Sprintf("%d VMAs, %d allocations\n", s.VMAs, s.Allocations))
	b.WriteString(fmt.Sprintf("physical: %s\n", s.Physical))
	return b.String()
}

// VMStatistics walks the address space and returns the number of VMAs and
// bytes for each VMAType. The statistics are also written to the log.
func (vmm *Manager) VMStatistics() Statistics {
	vmm.rlock()
	defer vmm.runlock()

	var s Statistics
	vmm.vmas.walk(func(v *VirtualMemoryArea) bool {
		s.Types[v.Type].Count++
		s.Types[v.Type].Bytes += v.Size
		if v.Type.IsFixed() {
			s.Fixed.Count++
			s.Fixed.Bytes += v.Size
		}
		s.VMAs++
		return true
	})
	s.Allocations = vmm.allocations.Len()
	s.Physical = vmm.phys.Stats()

	for t := range numVMATypes {
		if s.Types[t].Count > 0 {
			logger.Logf(logger.Allow, "vmm", "%s: %d VMAs, %#x bytes", t, s.Types[t].Count, s.Types[t].Bytes)
		}
	}
	logger.Log(logger.Allow, "vmm", s.Physical)

	return s
}
