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

package logger

// Permission implementations indicate whether the environment making a log
// request is allowed to create new log entries. Good for controlling when or if
// log entries are to be made
type Permission interface {
	AllowLogging() bool
}

type allow struct{}

func (_ allow) AllowLogging() bool {
	return true
}

// Allow indicates that the logging request should be allowed. A good default to
// use if a log entry should always be made.
var Allow Permission = allow{}

type deny struct{}

func (_ deny) AllowLogging() bool {
	return false
}

// Deny indicates that the logging request should be dropped. Useful as a way
// of silencing a component without changing the call sites.
var Deny Permission = deny{}

// Switch is a Permission that can be turned on and off at runtime. The zero
// value prohibits logging.
type Switch bool

// AllowLogging implements the Permission interface.
func (s *Switch) AllowLogging() bool {
	return s != nil && bool(*s)
}
