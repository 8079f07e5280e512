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

// Package paths contains functions to prepare paths for Gopherbox resources.
//
// The ResourcePath() function modifies the supplied resource string such that
// it is prepended with the appropriate config directory.
//
// The default config directory is the ".gopherbox" directory in the current
// working directory. Compiling with the "release" build tag will instead put
// the directory in the user's configuration directory, as determined by
// os.UserConfigDir().
package paths

import (
	"path"
)

// ResourcePath returns the resource string (representing the resource to be
// loaded) prepended with OS/build specific paths.
//
// The subPath argument should not include a leading slash and the resource
// argument may be empty, in which case only the directory is returned. The
// directory is created if it does not exist.
func ResourcePath(subPth string, file string) (string, error) {
	basePath, err := getBasePath(subPth)
	if err != nil {
		return "", err
	}

	return path.Join(basePath, file), nil
}
