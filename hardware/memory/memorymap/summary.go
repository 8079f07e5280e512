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

package memorymap

import (
	"fmt"
	"strings"
)

// Summary returns a single multiline string detailing all the fixed regions
// for the profile. Useful for reference.
func Summary(profile Profile) string {
	regions := FixedRegions()
	if profile == Chihiro {
		ext := ChihiroRegions()

		// the chihiro extensions follow on from the region of the same area
		// so we fold them in rather than list them separately
		folded := make([]Region, 0, len(regions))
		for _, r := range regions {
			if r.Area == MCPX {
				continue
			}
			for _, e := range ext {
				if e.Area == r.Area && uint64(e.Base) == r.End() {
					r.Size += e.Size
				}
			}
			folded = append(folded, r)
		}
		regions = folded
	}

	s := strings.Builder{}
	for _, r := range regions {
		s.WriteString(fmt.Sprintf("%08x -> %08x\t%s", uint32(r.Base), uint32(r.End()-1), r.Area))
		if r.HasBacking {
			s.WriteString(fmt.Sprintf(" [%08x]", uint32(r.Backing)))
		}
		s.WriteString("\n")
	}

	return s.String()
}
