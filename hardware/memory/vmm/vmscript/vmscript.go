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

package vmscript

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jetsetilly/gopherbox/curated"
	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
	"github.com/jetsetilly/gopherbox/hardware/memory/physical"
	"github.com/jetsetilly/gopherbox/hardware/memory/vmm"
)

// Sentinal errors returned by the vmscript package.
const (
	ParseError   = "vmscript: line %d: %s"
	CommandError = "vmscript: line %d: %v"
	LoadError    = "vmscript: %v"
)

// Line is a single command with its arguments.
type Line struct {
	Number  int
	Command string
	Args    []string
}

func (ln Line) String() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", ln.Command, strings.Join(ln.Args, " ")))
}

// Script is a list of normalised commands.
type Script struct {
	lines []Line
}

// Parse normalises the script into a list of commands. Empty lines and
// comments are removed.
func Parse(input string) (*Script, error) {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.ReplaceAll(input, "\r", "\n")

	scr := &Script{}

	for i, l := range strings.Split(input, "\n") {
		for _, c := range strings.Split(l, ";") {
			c = strings.TrimSpace(c)
			if c == "" || strings.HasPrefix(c, "#") {
				continue
			}

			f := strings.Fields(c)
			ln := Line{
				Number:  i + 1,
				Command: strings.ToUpper(f[0]),
				Args:    f[1:],
			}

			if err := ln.validate(); err != nil {
				return nil, err
			}

			scr.lines = append(scr.lines, ln)
		}
	}

	return scr, nil
}

// Load and parse the script in the named file.
func Load(filename string) (*Script, error) {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, curated.Errorf(LoadError, fmt.Sprintf("no such file: %s", filename))
		}
		return nil, curated.Errorf(LoadError, err)
	}
	defer f.Close()

	s, err := io.ReadAll(f)
	if err != nil {
		return nil, curated.Errorf(LoadError, err)
	}

	return Parse(string(s))
}

// Lines returns a copy of the commands in the script.
func (scr *Script) Lines() []Line {
	return append([]Line(nil), scr.lines...)
}

var argCounts = map[string][]int{
	"MAP":       {1, 3, 4},
	"XBE":       {1},
	"UNMAP":     {1},
	"PROTECT":   {3},
	"VALID":     {1},
	"TRANSLATE": {1},
	"VMAS":      {0},
	"STATS":     {0},
	"CHECK":     {0},
}

func (ln Line) validate() error {
	counts, ok := argCounts[ln.Command]
	if !ok {
		return curated.Errorf(ParseError, ln.Number, fmt.Sprintf("unknown command (%s)", ln.Command))
	}
	for _, c := range counts {
		if len(ln.Args) == c {
			return nil
		}
	}
	return curated.Errorf(ParseError, ln.Number, fmt.Sprintf("wrong number of arguments for %s", ln.Command))
}

// the state of a running script
type runner struct {
	mgr    *vmm.Manager
	output io.Writer

	// the result of the most recent MAP or XBE command
	last memorymap.VAddr
}

func (r *runner) printf(format string, args ...any) {
	io.WriteString(r.output, fmt.Sprintf(format, args...))
	io.WriteString(r.output, "\n")
}

func (r *runner) number(s string) (uint64, error) {
	if s == "$" {
		return uint64(r.last), nil
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number (%s)", s)
	}
	return n, nil
}

func (r *runner) address(s string) (memorymap.VAddr, error) {
	n, err := r.number(s)
	if err != nil {
		return 0, err
	}
	if n >= memorymap.AddressSpaceSize {
		return 0, fmt.Errorf("address out of range (%s)", s)
	}
	return memorymap.VAddr(n), nil
}

// Run every command in the script against the manager. Results are written
// to output.
func (scr *Script) Run(mgr *vmm.Manager, output io.Writer) error {
	r := &runner{
		mgr:    mgr,
		output: output,
	}

	for _, ln := range scr.lines {
		if err := r.run(ln); err != nil {
			return curated.Errorf(CommandError, ln.Number, err)
		}
	}

	return nil
}

func (r *runner) run(ln Line) error {
	switch ln.Command {
	case "MAP":
		size, err := r.number(ln.Args[0])
		if err != nil {
			return err
		}

		low := physical.Lowest
		high := physical.Highest
		var addr memorymap.VAddr

		if len(ln.Args) > 1 {
			l, err := r.number(ln.Args[1])
			if err != nil {
				return err
			}
			h, err := r.number(ln.Args[2])
			if err != nil {
				return err
			}
			if l > h || h >= memorymap.AddressSpaceSize {
				return fmt.Errorf("invalid physical range (%s to %s)", ln.Args[1], ln.Args[2])
			}
			low = memorymap.PAddr(l)
			high = memorymap.PAddr(h)
		}
		if len(ln.Args) > 3 {
			addr, err = r.address(ln.Args[3])
			if err != nil {
				return err
			}
		}

		r.last = r.mgr.MapMemoryBlock(size, low, high, addr)
		r.printf("MAP %#x -> %v", size, r.last)

	case "XBE":
		size, err := r.number(ln.Args[0])
		if err != nil {
			return err
		}
		r.last = r.mgr.MapXbeImage(size)
		r.printf("XBE %#x -> %v", size, r.last)

	case "UNMAP":
		addr, err := r.address(ln.Args[0])
		if err != nil {
			return err
		}
		r.mgr.UnmapRange(addr)
		r.printf("UNMAP %v", addr)

	case "PROTECT":
		addr, err := r.address(ln.Args[0])
		if err != nil {
			return err
		}
		size, err := r.number(ln.Args[1])
		if err != nil {
			return err
		}
		perms, err := vmm.ParsePermissions(ln.Args[2])
		if err != nil {
			return err
		}
		r.mgr.ReprotectVMARange(addr, size, perms)
		r.printf("PROTECT %v %#x %v", addr, size, perms)

	case "VALID":
		addr, err := r.address(ln.Args[0])
		if err != nil {
			return err
		}
		r.printf("VALID %v %v", addr, r.mgr.IsValidVirtualAddress(addr))

	case "TRANSLATE":
		addr, err := r.address(ln.Args[0])
		if err != nil {
			return err
		}

		// translation of a free address is a contract violation
		if !r.mgr.IsValidVirtualAddress(addr) {
			r.printf("TRANSLATE %v -> free", addr)
			break
		}
		r.printf("TRANSLATE %v -> %v", addr, r.mgr.TranslateVAddrToPAddr(addr))

	case "VMAS":
		for _, v := range r.mgr.VMAs() {
			r.printf("%v", v)
		}

	case "STATS":
		io.WriteString(r.output, r.mgr.VMStatistics().String())

	case "CHECK":
		if err := r.mgr.CheckConsistency(); err != nil {
			return err
		}
		r.printf("CHECK ok")
	}

	return nil
}
