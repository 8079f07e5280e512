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

package test

import "strings"

// Writer captures output written to it. Output can be compared against an
// expected string with the Compare() function.
type Writer struct {
	buffer []byte
}

func (tw *Writer) Write(p []byte) (n int, err error) {
	tw.buffer = append(tw.buffer, p...)
	return len(p), nil
}

// Clear the contents of the buffer.
func (tw *Writer) Clear() {
	tw.buffer = tw.buffer[:0]
}

// Compare buffered output with predicted output.
func (tw *Writer) Compare(s string) bool {
	return s == string(tw.buffer)
}

// Contains returns true if the buffered output contains the substring.
func (tw *Writer) Contains(s string) bool {
	return strings.Contains(string(tw.buffer), s)
}

func (tw *Writer) String() string {
	return string(tw.buffer)
}
