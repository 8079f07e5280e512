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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/bradleyjkemp/memviz"

	"github.com/jetsetilly/gopherbox/digest"
	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
	"github.com/jetsetilly/gopherbox/hardware/memory/vmm"
	"github.com/jetsetilly/gopherbox/hardware/memory/vmm/vmscript"
	"github.com/jetsetilly/gopherbox/logger"
	"github.com/jetsetilly/gopherbox/modalflag"
	"github.com/jetsetilly/gopherbox/paths"
	"github.com/jetsetilly/gopherbox/prefs"
	"github.com/jetsetilly/gopherbox/statsview"
	"github.com/jetsetilly/gopherbox/stress"
	"github.com/jetsetilly/gopherbox/version"
)

func main() {
	// ctrl-c ends a STRESS run early but otherwise has the default behaviour
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	exitVal := launch(ctx, os.Stdout, os.Args[1:])
	stop()
	os.Exit(exitVal)
}

// launch is separate from main() so that the exit value can be returned after
// deferred functions have run.
func launch(ctx context.Context, output io.Writer, args []string) int {
	md := &modalflag.Modes{Output: output}
	md.NewArgs(args)
	md.AddSubModes("LAYOUT", "SCRIPT", "STRESS")
	md.AdditionalHelp(version.Banner())

	p, err := md.Parse()
	switch p {
	case modalflag.ParseHelp:
		return 0
	case modalflag.ParseError:
		io.WriteString(output, fmt.Sprintf("* error: %v\n", err))
		return 10
	}

	switch md.Mode() {
	case "LAYOUT":
		err = layout(md, output)
	case "SCRIPT":
		err = script(md, output)
	case "STRESS":
		err = stressTest(ctx, md, output)
	}

	if err != nil {
		io.WriteString(output, fmt.Sprintf("* error in %s mode: %v\n", md, err))
		return 20
	}

	return 0
}

// flags common to every mode
type common struct {
	profile   *string
	prefsFile *string
	override  *string
	log       *bool
	stats     *bool
}

func addCommon(md *modalflag.Modes) common {
	c := common{
		profile:   md.AddString("profile", "", "hardware profile: RETAIL, CHIHIRO"),
		prefsFile: md.AddString("prefsfile", "", "preferences file (default in resource directory)"),
		override:  md.AddString("prefs", "", "override preferences (eg. \"vmm.placement::bestfit; vmm.logmapping::true\")"),
		log:       md.AddBool("log", false, "echo log to stdout"),
	}
	if statsview.Available() {
		c.stats = md.AddBool("statsview", false, fmt.Sprintf("run stats server (%s)", statsview.Address))
	}
	return c
}

// open a manager with the preferences given by the common flags
func (c common) open(output io.Writer) (*vmm.Manager, func(), error) {
	if *c.log {
		logger.SetEcho(output)
	} else {
		logger.SetEcho(nil)
	}

	override := *c.override
	if *c.profile != "" {
		if _, err := memorymap.ParseProfile(*c.profile); err != nil {
			return nil, nil, err
		}
		override = fmt.Sprintf("vmm.profile::%s; %s", *c.profile, override)
	}

	prefs.PushCommandLineStack(override)
	p, err := vmm.NewPreferences(*c.prefsFile)
	if unused := prefs.PopCommandLineStack(); unused != "" {
		logger.Logf(logger.Allow, "gopherbox", "unused preferences: %s", unused)
	}
	if err != nil {
		return nil, nil, err
	}

	stopStats := func() {}
	if c.stats != nil && *c.stats {
		stopStats = statsview.Launch(output, "")
	}

	mgr, err := vmm.Open(p)
	if err != nil {
		stopStats()
		return nil, nil, err
	}

	return mgr, func() {
		if err := mgr.Close(); err != nil {
			logger.Log(logger.Allow, "gopherbox", err)
		}
		stopStats()
	}, nil
}

func layout(md *modalflag.Modes, output io.Writer) error {
	md.NewMode()
	c := addCommon(md)
	vmas := md.AddBool("vmas", true, "list every VMA")
	viz := md.AddString("memviz", "", "write graphviz representation of the VMA list to file (AUTO for a unique name)")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	if len(md.RemainingArgs()) > 0 {
		return fmt.Errorf("too many arguments for %s mode", md)
	}

	mgr, end, err := c.open(output)
	if err != nil {
		return err
	}
	defer end()

	io.WriteString(output, fmt.Sprintf("%s\n\n", version.Banner()))
	io.WriteString(output, memorymap.Summary(mgr.Profile()))
	io.WriteString(output, "\n")

	snapshot := mgr.VMAs()
	if *vmas {
		for _, v := range snapshot {
			io.WriteString(output, fmt.Sprintf("%v\n", v))
		}
		io.WriteString(output, "\n")
	}

	io.WriteString(output, mgr.VMStatistics().String())

	dig := digest.NewAddressSpace()
	dig.Update(snapshot)
	io.WriteString(output, fmt.Sprintf("digest: %s\n", dig.Hash()))

	if *viz != "" {
		if strings.ToUpper(*viz) == "AUTO" {
			*viz = fmt.Sprintf("%s.dot", paths.UniqueFilename("vmas", strings.ToLower(mgr.Profile().String())))
		}
		f, err := os.Create(*viz)
		if err != nil {
			return err
		}
		memviz.Map(f, &snapshot)
		if err := f.Close(); err != nil {
			return err
		}
		io.WriteString(output, fmt.Sprintf("VMA graph written to %s\n", *viz))
	}

	return nil
}

func script(md *modalflag.Modes, output io.Writer) error {
	md.NewMode()
	c := addCommon(md)

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	switch len(md.RemainingArgs()) {
	case 0:
		return fmt.Errorf("script file required for %s mode", md)
	case 1:
	default:
		return fmt.Errorf("too many arguments for %s mode", md)
	}

	// parse script before creating the manager so that errors are reported
	// quickly
	var scr *vmscript.Script
	if md.GetArg(0) == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		scr, err = vmscript.Parse(string(b))
		if err != nil {
			return err
		}
	} else {
		scr, err = vmscript.Load(md.GetArg(0))
		if err != nil {
			return err
		}
	}

	mgr, end, err := c.open(output)
	if err != nil {
		return err
	}
	defer end()

	return scr.Run(mgr, output)
}

func stressTest(ctx context.Context, md *modalflag.Modes, output io.Writer) error {
	md.NewMode()
	c := addCommon(md)

	cfg := stress.DefaultConfig()
	duration := md.AddDuration("duration", cfg.Duration, "run duration (0 for no limit)")
	operations := md.AddInt("ops", cfg.Operations, "number of operations (0 for no limit)")
	readers := md.AddInt("readers", cfg.Readers, "number of concurrent readers")
	seed := md.AddUint64("seed", cfg.Seed, "random seed")
	maxPages := md.AddInt("maxpages", cfg.MaxPages, "largest allocation in pages")
	checkEvery := md.AddInt("check", cfg.CheckEvery, "operations between consistency checks")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	if len(md.RemainingArgs()) > 0 {
		return fmt.Errorf("too many arguments for %s mode", md)
	}

	cfg.Duration = *duration
	cfg.Operations = *operations
	cfg.Readers = *readers
	cfg.Seed = *seed
	cfg.MaxPages = *maxPages
	cfg.CheckEvery = *checkEvery

	mgr, end, err := c.open(output)
	if err != nil {
		return err
	}
	defer end()

	io.WriteString(output, fmt.Sprintf("%s\n", version.Banner()))
	io.WriteString(output, fmt.Sprintf("stress: %s profile with %d readers\n", strings.ToLower(mgr.Profile().String()), cfg.Readers))

	_, err = stress.Run(ctx, output, mgr, cfg)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
