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

package modalflag

import (
	"fmt"
	"io"
	"strings"
)

// helpWriter collects the default output from the flag package so that it
// can be amended with mode information.
type helpWriter struct {
	buffer strings.Builder
}

// Write implements the io.Writer interface.
func (hw *helpWriter) Write(p []byte) (n int, err error) {
	return hw.buffer.Write(p)
}

func (hw *helpWriter) Help(output io.Writer, path string, subModes []string, additionalHelp string) {
	s := hw.buffer.String()
	usage, flags, _ := strings.Cut(s, "\n")

	if flags == "" && len(subModes) == 0 && additionalHelp == "" {
		if path == "" {
			io.WriteString(output, "No help available\n")
		} else {
			io.WriteString(output, fmt.Sprintf("No help available for %s mode\n", path))
		}
		return
	}

	if path == "" {
		io.WriteString(output, fmt.Sprintf("%s\n", usage))
	} else {
		io.WriteString(output, fmt.Sprintf("%s for %s mode\n", usage, path))
	}

	io.WriteString(output, flags)

	if len(subModes) > 0 {
		if flags != "" {
			io.WriteString(output, "\n")
		}
		io.WriteString(output, fmt.Sprintf("  available sub-modes: %s\n", strings.Join(subModes, ", ")))
		io.WriteString(output, fmt.Sprintf("    default: %s\n", subModes[0]))
	}

	if additionalHelp != "" {
		io.WriteString(output, "\n")
		io.WriteString(output, additionalHelp)
		io.WriteString(output, "\n")
	}
}
