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

package stress

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jetsetilly/gopherbox/curated"
	"github.com/jetsetilly/gopherbox/digest"
	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
	"github.com/jetsetilly/gopherbox/hardware/memory/physical"
	"github.com/jetsetilly/gopherbox/hardware/memory/vmm"
	"github.com/jetsetilly/gopherbox/logger"
)

// Sentinal errors returned by the stress package.
const (
	ReaderError  = "stress: reader %d: %s"
	WriterError  = "stress: after %d operations: %v"
	ResidueError = "stress: address space not restored: %s"
)

// Config for a stress run.
type Config struct {
	// the run ends when either limit is reached. a zero value means no limit
	// but at least one limit must be given
	Duration   time.Duration
	Operations int

	// number of goroutines querying the manager during the run
	Readers int

	// seed for the random number generator
	Seed uint64

	// largest allocation in pages
	MaxPages int

	// run the consistency check every CheckEvery operations. zero means the
	// check is only run at the end of the run
	CheckEvery int
}

// DefaultConfig returns a Config suitable for use from the command line.
func DefaultConfig() Config {
	return Config{
		Duration:   5 * time.Second,
		Readers:    4,
		Seed:       2600,
		MaxPages:   64,
		CheckEvery: 100,
	}
}

// Results of a stress run.
type Results struct {
	Operations int
	Maps       int
	Failed     int
	Unmaps     int
	Reprotects int
	Reads      int64
	Elapsed    time.Duration

	// fingerprint of the address space after every operation. runs with the
	// same seed and operation limit have the same digest
	Digest string
}

func (r Results) String() string {
	return fmt.Sprintf("%d operations (%d maps, %d failed, %d unmaps, %d reprotects) and %d reads in %v [%s]",
		r.Operations, r.Maps, r.Failed, r.Unmaps, r.Reprotects, r.Reads, r.Elapsed.Round(time.Millisecond), r.Digest)
}

var protections = []vmm.Permissions{
	vmm.ReadOnly,
	vmm.ReadWrite,
	vmm.ExecuteRead,
	vmm.ExecuteReadWrite,
	vmm.NoAccess,
	vmm.ReadWrite | vmm.NoCache,
	vmm.ReadWrite | vmm.Guard,
}

// Run a stress test against the manager. The manager is returned to the
// state it was in before the run unless an error is returned.
func Run(ctx context.Context, output io.Writer, mgr *vmm.Manager, cfg Config) (Results, error) {
	if cfg.Duration <= 0 && cfg.Operations <= 0 {
		return Results{}, fmt.Errorf("stress: no duration or operation limit")
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}

	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	// readers stop when the writer has finished
	writing, stopReaders := context.WithCancel(ctx)
	defer stopReaders()

	initial := len(mgr.VMAs())

	var res Results
	var reads atomic.Int64
	var live []memorymap.VAddr
	dig := digest.NewAddressSpace()

	start := time.Now()
	g, gctx := errgroup.WithContext(writing)

	g.Go(func() error {
		defer stopReaders()

		rnd := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed>>32|1))
		for cfg.Operations <= 0 || res.Operations < cfg.Operations {
			if gctx.Err() != nil {
				break
			}

			res.Operations++
			switch op := rnd.IntN(3); {
			case op == 0 || len(live) == 0:
				res.Maps++
				size := uint64(rnd.IntN(cfg.MaxPages)+1) * memorymap.PageSize
				a := mgr.MapMemoryBlock(size, physical.Lowest, physical.Highest, 0)
				if a == 0 {
					res.Failed++
				} else {
					live = append(live, a)
				}
			case op == 1:
				res.Unmaps++
				i := rnd.IntN(len(live))
				mgr.UnmapRange(live[i])
				live[i] = live[len(live)-1]
				live = live[:len(live)-1]
			default:
				res.Reprotects++
				a := live[rnd.IntN(len(live))]
				v := mgr.QueryVMA(a)
				size := uint64(rnd.IntN(int(v.Size>>memorymap.PageShift))+1) << memorymap.PageShift
				mgr.ReprotectVMARange(a, size, protections[rnd.IntN(len(protections))])
			}

			dig.Update(mgr.VMAs())

			if cfg.CheckEvery > 0 && res.Operations%cfg.CheckEvery == 0 {
				if err := mgr.CheckConsistency(); err != nil {
					return curated.Errorf(WriterError, res.Operations, err)
				}
			}
		}

		return nil
	})

	for i := range cfg.Readers {
		g.Go(func() error {
			rnd := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
			for gctx.Err() == nil {
				if s := read(mgr, rnd); s != "" {
					return curated.Errorf(ReaderError, i, s)
				}
				reads.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	res.Reads = reads.Load()
	res.Elapsed = time.Since(start)
	res.Digest = dig.Hash()
	if err != nil {
		return res, err
	}

	for _, a := range live {
		mgr.UnmapRange(a)
	}

	if err := mgr.CheckConsistency(); err != nil {
		return res, curated.Errorf(WriterError, res.Operations, err)
	}
	if n := len(mgr.VMAs()); n != initial {
		return res, curated.Errorf(ResidueError, fmt.Sprintf("%d VMAs before and %d VMAs after", initial, n))
	}

	logger.Logf(logger.Allow, "stress", "%v", res)
	io.WriteString(output, fmt.Sprintf("%v\n", res))

	return res, nil
}

// checks that are true for the result of any single call to the manager
func read(mgr *vmm.Manager, rnd *rand.Rand) string {
	switch rnd.IntN(3) {
	case 0:
		var next uint64
		for _, v := range mgr.VMAs() {
			if uint64(v.Base) != next {
				return fmt.Sprintf("gap or overlap at %v", v.Base)
			}
			next = v.End()
		}
		if next != memorymap.AddressSpaceSize {
			return fmt.Sprintf("VMAs end at %#x", next)
		}

	case 1:
		a := memorymap.VAddr(rnd.Uint32()) &^ memorymap.VAddr(memorymap.PageMask)
		if v := mgr.QueryVMA(a); !v.Contains(a) {
			return fmt.Sprintf("%v does not contain %v", v, a)
		}

	default:
		// fixed regions never change
		if !mgr.IsValidVirtualAddress(memorymap.ContiguousMemoryBase) {
			return "contiguous memory is not valid"
		}
		if p := mgr.TranslateVAddrToPAddr(memorymap.NV2APRAMINBase); p != memorymap.PRAMINBacking {
			return fmt.Sprintf("PRAMIN translates to %v", p)
		}
	}

	return ""
}
