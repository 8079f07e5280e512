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

// Package prefs facilitates the storage of preferences to disk. Preference
// values are typed (Bool, Int, String and Generic) and are registered with a
// Disk instance under a key:
//
//	dsk, err := prefs.NewDisk(paths.ResourcePath("", "preferences"))
//	if err != nil {
//		return err
//	}
//
//	var profile prefs.String
//	err = dsk.Add("vmm.profile", &profile)
//
// The preferences file is a simple list of "key :: value" lines, sorted by
// key. Keys that are in the preferences file but which have not been added
// to the Disk instance are preserved when the file is saved. This means that
// different parts of the program can maintain their own Disk instance for the
// same file.
//
// Values can also be specified on the command line as a "prefs string". The
// PushCommandLineStack() function parses a string of the form:
//
//	vmm.profile::chihiro; vmm.placement::bestfit
//
// Values in the most recently pushed group take precedence over values loaded
// from disk. A value is consumed when it is used so it will not affect a
// second Disk with the same key.
package prefs
