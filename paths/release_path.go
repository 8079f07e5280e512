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

//go:build release

package paths

import (
	"os"
	"path"
)

const gopherConfigDir = "gopherbox"

// the release version of getBasePath looks for and if necessary creates the
// gopherConfigDir (and child directories) in the User's configuration
// directory, which is dependent on the host OS (see os.UserConfigDir()
// documentation for details)
func getBasePath(subPth string) (string, error) {
	cnf, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	pth := path.Join(cnf, gopherConfigDir, subPth)

	if _, err := os.Stat(pth); err == nil {
		return pth, nil
	}

	if err := os.MkdirAll(pth, 0o700); err != nil {
		return "", err
	}

	return pth, nil
}
