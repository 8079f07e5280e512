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

	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
	"github.com/jetsetilly/gopherbox/paths"
	"github.com/jetsetilly/gopherbox/prefs"
)

// Placement is the policy used to choose a virtual address for an allocation
// when one is not given.
type Placement int

// List of valid Placement values.
const (
	// the lowest free range that is large enough
	FirstFit Placement = iota

	// the smallest free range that is large enough. ties are broken by the
	// lowest address
	BestFit
)

func (p Placement) String() string {
	switch p {
	case FirstFit:
		return "FIRSTFIT"
	case BestFit:
		return "BESTFIT"
	}
	return "undefined"
}

// ParsePlacement converts a string to a Placement.
func ParsePlacement(s string) (Placement, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FIRSTFIT", "":
		return FirstFit, nil
	case "BESTFIT":
		return BestFit, nil
	}
	return FirstFit, fmt.Errorf("vmm: unknown placement policy (%s)", s)
}

// Preferences for the vmm package.
type Preferences struct {
	dsk *prefs.Disk

	// hardware profile. RETAIL or CHIHIRO
	Profile prefs.String

	// placement policy. FIRSTFIT or BESTFIT
	Placement prefs.String

	// size of the fragmented pool in megabytes
	FragmentedPool prefs.Int

	// path to the file backing guest RAM. the empty string means that an
	// anonymous file is used
	BackingFile prefs.String

	// panic if a goroutine re-enters the manager while holding the lock
	AssertReentry prefs.Bool

	// log every mapping change
	LogMapping prefs.Bool
}

func (p *Preferences) String() string {
	if p.dsk == nil {
		return ""
	}
	return p.dsk.String()
}

// DefaultPreferences returns preferences with default values that are not
// associated with a preferences file.
func DefaultPreferences() *Preferences {
	p := &Preferences{}
	p.setHooks()
	p.SetDefaults()
	return p
}

// NewPreferences is the preferred method of initialisation for the
// Preferences type. Values are loaded from the preferences file at path. An
// empty path means the preferences file in the resource directory.
func NewPreferences(path string) (*Preferences, error) {
	p := &Preferences{}
	p.setHooks()
	p.SetDefaults()

	if path == "" {
		var err error
		path, err = paths.ResourcePath("", prefs.DefaultPrefsFile)
		if err != nil {
			return nil, fmt.Errorf("vmm: %w", err)
		}
	}

	var err error
	p.dsk, err = prefs.NewDisk(path)
	if err != nil {
		return nil, fmt.Errorf("vmm: %w", err)
	}

	for _, e := range []struct {
		key string
		p   prefsValue
	}{
		{"vmm.profile", &p.Profile},
		{"vmm.placement", &p.Placement},
		{"vmm.fragmentedpool", &p.FragmentedPool},
		{"vmm.backingfile", &p.BackingFile},
		{"vmm.assertreentry", &p.AssertReentry},
		{"vmm.logmapping", &p.LogMapping},
	} {
		err = p.dsk.Add(e.key, e.p)
		if err != nil {
			return nil, fmt.Errorf("vmm: %w", err)
		}
	}

	err = p.dsk.Load(true)
	if err != nil {
		return nil, fmt.Errorf("vmm: %w", err)
	}

	return p, nil
}

// the subset of the prefs types used by Preferences
type prefsValue interface {
	fmt.Stringer
	Set(value prefs.Value) error
	Get() prefs.Value
	Reset() error
}

func (p *Preferences) setHooks() {
	p.Profile.SetHookPre(func(v prefs.Value) error {
		_, err := memorymap.ParseProfile(v.(string))
		return err
	})
	p.Placement.SetHookPre(func(v prefs.Value) error {
		_, err := ParsePlacement(v.(string))
		return err
	})
	p.FragmentedPool.SetHookPre(func(v prefs.Value) error {
		if v.(int) < 0 {
			return fmt.Errorf("vmm: fragmented pool size cannot be negative")
		}
		return nil
	})
}

// SetDefaults reverts all settings to default values.
func (p *Preferences) SetDefaults() {
	p.Profile.Set(memorymap.Retail.String())
	p.Placement.Set(FirstFit.String())
	p.FragmentedPool.Set(16)
	p.BackingFile.Set("")
	p.AssertReentry.Set(false)
	p.LogMapping.Set(false)
}

// Load preferences from disk.
func (p *Preferences) Load() error {
	if p.dsk == nil {
		return nil
	}
	return p.dsk.Load(false)
}

// Save current preferences to disk.
func (p *Preferences) Save() error {
	if p.dsk == nil {
		return nil
	}
	return p.dsk.Save()
}

// HardwareProfile returns the Profile preference as a memorymap.Profile.
func (p *Preferences) HardwareProfile() memorymap.Profile {
	profile, _ := memorymap.ParseProfile(p.Profile.String())
	return profile
}

// PlacementPolicy returns the Placement preference as a Placement.
func (p *Preferences) PlacementPolicy() Placement {
	placement, _ := ParsePlacement(p.Placement.String())
	return placement
}

// FragmentedPoolSize returns the size of the fragmented pool in bytes.
func (p *Preferences) FragmentedPoolSize() uint64 {
	return uint64(p.FragmentedPool.Get().(int)) << 20
}

// AllowLogging implements the logger.Permission interface. Mapping changes
// are only logged if the LogMapping preference is true.
func (p *Preferences) AllowLogging() bool {
	return p.LogMapping.Get().(bool)
}
