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

// Package statsview is an optional package that is only built when the
// statsview build tag is present. Without the tag the package is a stub and
// Available() returns false.
//
// It provides a local HTTP server offering runtime statistics, which is
// useful for watching heap growth and goroutine counts during the STRESS
// mode. The server is provided by "github.com/go-echarts/statsview".
//
// After launch, graphical statistics are viewable at:
//
//	localhost:12600/debug/statsview
//
// And standard Go pprof statistics are available at:
//
//	localhost:12600/debug/pprof/
package statsview
