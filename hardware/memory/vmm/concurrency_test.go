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

package vmm_test

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
	"github.com/jetsetilly/gopherbox/hardware/memory/physical"
	"github.com/jetsetilly/gopherbox/hardware/memory/vmm"
	"github.com/jetsetilly/gopherbox/test"
)

var protections = []vmm.Permissions{
	vmm.ReadOnly,
	vmm.ReadWrite,
	vmm.ExecuteRead,
	vmm.ExecuteReadWrite,
	vmm.NoAccess,
	vmm.ReadWrite | vmm.NoCache,
}

// run a random sequence of operations and check the address space after each
// one
func TestRandomOperations(t *testing.T) {
	m := open(t, nil)
	rnd := rand.New(rand.NewPCG(2600, 1977))

	var live []memorymap.VAddr

	for i := range 100 {
		switch op := rnd.IntN(3); {
		case op == 0 || len(live) == 0:
			size := uint64(rnd.IntN(16)+1) * memorymap.PageSize
			var a memorymap.VAddr
			if rnd.IntN(4) == 0 {
				a = m.MapMemoryBlock(size, 0x00800000, 0x00ffffff, 0)
			} else {
				a = mapBlock(m, size)
			}
			if a != 0 {
				live = append(live, a)
			}
		case op == 1:
			j := rnd.IntN(len(live))
			m.UnmapRange(live[j])
			live = append(live[:j], live[j+1:]...)
		default:
			a := live[rnd.IntN(len(live))]
			v := m.QueryVMA(a)
			m.ReprotectVMARange(a, uint64(rnd.IntN(int(v.Size))+1), protections[rnd.IntN(len(protections))])
		}

		test.DemandSuccess(t, m.CheckConsistency(), i)
	}

	// remove everything and the address space is as it was
	for _, a := range live {
		m.UnmapRange(a)
	}
	test.ExpectEquality(t, len(m.VMAs()), 21)
	test.ExpectEquality(t, m.VMStatistics().Physical.RAMInUse, memorymap.NV2APRAMINSize)
	test.ExpectSuccess(t, m.CheckConsistency())
}

// readers never see a partial update
func TestConcurrentReaders(t *testing.T) {
	m := open(t, func(p *vmm.Preferences) {
		test.DemandSuccess(t, p.AssertReentry.Set(true))
	})

	var done atomic.Bool
	var wg sync.WaitGroup
	var failures atomic.Int32

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !done.Load() {
				var total uint64
				for _, v := range m.VMAs() {
					total += v.Size
				}
				if total != memorymap.AddressSpaceSize {
					failures.Add(1)
				}

				// the fixed regions are always valid
				if !m.IsValidVirtualAddress(memorymap.BIOSBase) {
					failures.Add(1)
				}
				if m.TranslateVAddrToPAddr(memorymap.NV2APRAMINBase) != memorymap.PRAMINBacking {
					failures.Add(1)
				}
			}
		}()
	}

	var live []memorymap.VAddr
	for i := range 200 {
		if i%3 == 2 && len(live) > 0 {
			m.UnmapRange(live[0])
			live = live[1:]
		} else if a := m.MapMemoryBlock(memorymap.PageSize*uint64(i%5+1), physical.Lowest, physical.Highest, 0); a != 0 {
			live = append(live, a)
			m.ReprotectVMARange(a, memorymap.PageSize, vmm.ReadOnly)
		}
	}

	done.Store(true)
	wg.Wait()

	test.ExpectEquality(t, failures.Load(), 0)
	test.ExpectSuccess(t, m.CheckConsistency())
}
