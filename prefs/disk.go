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

package prefs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
)

// WarningBoilerPlate is inserted at the beginning of a preferences file.
const WarningBoilerPlate = "*** do not edit this file by hand ***"

// DefaultPrefsFile is the default filename of the global preferences file.
const DefaultPrefsFile = "preferences"

// KeySep is the string used to separate the key from the value in the
// preferences file.
const KeySep = " :: "

// Disk represents preference values as stored on disk.
type Disk struct {
	crit    sync.Mutex
	path    string
	entries map[string]pref

	// keys that were set from the command line stack. these are not
	// overwritten by Load()
	overrides map[string]bool
}

// NewDisk is the preferred method of initialisation for the Disk type. The
// file is not accessed until Load() or Save() is called.
func NewDisk(path string) (*Disk, error) {
	if path == "" {
		return nil, fmt.Errorf("prefs: no path for preferences file")
	}
	return &Disk{
		path:      path,
		entries:   make(map[string]pref),
		overrides: make(map[string]bool),
	}, nil
}

// Path returns the path of the preferences file.
func (dsk *Disk) Path() string {
	return dsk.path
}

// Add preference value to list of values to store/load. If a value for the
// key is waiting on the command line stack then the value is set
// immediately.
func (dsk *Disk) Add(key string, p pref) error {
	dsk.crit.Lock()
	defer dsk.crit.Unlock()

	if strings.Contains(key, " ") || strings.Contains(key, "::") {
		return fmt.Errorf("prefs: illegal key (%s)", key)
	}

	if _, ok := dsk.entries[key]; ok {
		return fmt.Errorf("prefs: key already added (%s)", key)
	}

	dsk.entries[key] = p

	if ok, v := GetCommandLinePref(key); ok {
		if err := p.Set(v); err != nil {
			return fmt.Errorf("prefs: %s: %w", key, err)
		}
		dsk.overrides[key] = true
	}

	return nil
}

// Reset all added preferences to their zero value.
func (dsk *Disk) Reset() error {
	dsk.crit.Lock()
	defer dsk.crit.Unlock()

	for k, p := range dsk.entries {
		if err := p.Reset(); err != nil {
			return fmt.Errorf("prefs: %s: %w", k, err)
		}
	}
	return nil
}

// read the preferences file into a map. a missing file is not an error and
// results in an empty map.
func (dsk *Disk) read() (map[string]string, error) {
	data := make(map[string]string)

	f, err := os.Open(dsk.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return data, nil
		}
		return nil, fmt.Errorf("prefs: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	// first line must be the warning boilerplate
	if !scanner.Scan() {
		return data, scanner.Err()
	}
	if scanner.Text() != WarningBoilerPlate {
		return nil, fmt.Errorf("prefs: not a valid preferences file (%s)", dsk.path)
	}

	for scanner.Scan() {
		kv := strings.SplitN(scanner.Text(), KeySep, 2)
		if len(kv) != 2 {
			continue
		}
		data[strings.TrimSpace(kv[0])] = kv[1]
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("prefs: %w", err)
	}

	return data, nil
}

// Save current preference values to disk. Entries in the existing file that
// are unknown to this Disk instance are preserved.
func (dsk *Disk) Save() error {
	dsk.crit.Lock()
	defer dsk.crit.Unlock()

	data, err := dsk.read()
	if err != nil {
		return err
	}

	for k, p := range dsk.entries {
		data[k] = p.String()
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := strings.Builder{}
	s.WriteString(WarningBoilerPlate)
	s.WriteString("\n")
	for _, k := range keys {
		s.WriteString(fmt.Sprintf("%s%s%s\n", k, KeySep, data[k]))
	}

	if err := os.WriteFile(dsk.path, []byte(s.String()), 0o644); err != nil {
		return fmt.Errorf("prefs: %w", err)
	}

	return nil
}

// Load preference values from disk. Keys in the file that have not been added
// to the Disk instance are ignored. If limitErrors is true then conversion
// errors are ignored and the remaining values are still loaded.
func (dsk *Disk) Load(limitErrors bool) error {
	dsk.crit.Lock()
	defer dsk.crit.Unlock()

	data, err := dsk.read()
	if err != nil {
		return err
	}

	for k, v := range data {
		p, ok := dsk.entries[k]
		if !ok || dsk.overrides[k] {
			continue
		}
		if err := p.Set(v); err != nil && !limitErrors {
			return fmt.Errorf("prefs: %s: %w", k, err)
		}
	}

	return nil
}

// String returns the current value of every added preference, one per line,
// in the same format as the preferences file.
func (dsk *Disk) String() string {
	dsk.crit.Lock()
	defer dsk.crit.Unlock()

	keys := make([]string, 0, len(dsk.entries))
	for k := range dsk.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := strings.Builder{}
	for _, k := range keys {
		s.WriteString(fmt.Sprintf("%s%s%s\n", k, KeySep, dsk.entries[k].String()))
	}
	return s.String()
}
