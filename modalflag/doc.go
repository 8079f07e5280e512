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

// Package modalflag is a wrapper for the flag package in the Go standard
// library. It handles program modes and sub-modes, each with their own set of
// flags.
//
// Arguments are given with NewArgs() and then parsed with Parse(), which
// takes no arguments. This allows the same argument list to be parsed in
// stages, one for each mode:
//
//	md := &modalflag.Modes{Output: os.Stdout}
//	md.NewArgs(os.Args[1:])
//	md.AddSubModes("LAYOUT", "SCRIPT", "STRESS")
//	p, err := md.Parse()
//
// The first argument after the flags is compared with the list of sub-modes.
// If it matches then that mode is selected and removed from the remaining
// arguments. Otherwise the first sub-mode in the list is the default. Mode
// comparisons are case insensitive and Mode() always returns the upper case
// name.
//
//	switch md.Mode() {
//	case "SCRIPT":
//		md.NewMode()
//		profile := md.AddString("profile", "RETAIL", "hardware profile")
//		p, err := md.Parse()
//		if err != nil || p != modalflag.ParseContinue {
//			return err
//		}
//		runScript(*profile, md.GetArg(0))
//	}
//
// Flags are added for the next call to Parse() with the Add functions. The
// returned pointer is updated by Parse(). AddFunc() calls a function for
// every occurrence of the flag and is useful for values that need parsing.
//
// Help is printed to the Output writer when the -help flag is given. In that
// case Parse() returns ParseHelp. The help includes the mode path, the flags
// and the list of sub-modes, along with anything given to AdditionalHelp().
package modalflag
