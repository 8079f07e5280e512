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

//go:build !linux

package hostmem

import (
	"os"
)

// createAnonymous creates a file in the temporary directory. The file is
// removed when the Backing is closed.
func createAnonymous() (*os.File, bool, error) {
	f, err := os.CreateTemp("", "gopherbox-ram-*")
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}
