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

// Package vmscript runs line oriented scripts against a vmm.Manager. Each
// line is a single command, optionally followed by arguments separated by
// whitespace. Lines can also be separated with the ; character and comment
// lines begin with the # symbol. Commands are case insensitive.
//
//	MAP size [low high [addr]]
//	XBE size
//	UNMAP addr
//	PROTECT addr size perms
//	VALID addr
//	TRANSLATE addr
//	VMAS
//	STATS
//	CHECK
//
// Numbers are decimal or hexadecimal with the 0x prefix. In place of an
// address the $ symbol refers to the result of the most recent MAP or XBE
// command. Permissions are given as a number or with the names used by
// vmm.ParsePermissions().
//
// The results of each command are written to an io.Writer, one line per
// result. A failing CHECK command stops the script with an error.
package vmscript
