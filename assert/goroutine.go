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

// Package assert contains debugging aids that should not be relied upon for
// the normal operation of the program.
package assert

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
)

// GetGoRoutineID returns an identify for a goroutine. it returns a result that
// is (a) different between goroutines and (b) consistent for a given
// goroutine. It is undoubtedly useful for but it should only ever be used for
// debugging or testing purposes.
func GetGoRoutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}

// Owner records which goroutine is inside a critical section. It is used to
// turn an accidental re-entry of a non-reentrant lock into a panic with a
// useful message, rather than a silent deadlock.
//
// The zero value is ready to use. Goroutine IDs start at one so zero means
// that there is no owner.
type Owner struct {
	label string
	id    atomic.Uint64
}

// NewOwner creates an Owner with a label that is used in the panic message.
func NewOwner(label string) *Owner {
	return &Owner{label: label}
}

// Check panics if the calling goroutine is the current owner. It should be
// called before acquiring the lock.
func (o *Owner) Check() {
	if o.id.Load() == GetGoRoutineID() {
		panic(fmt.Sprintf("assert: %s re-entered by goroutine %d", o.label, o.id.Load()))
	}
}

// Enter records the calling goroutine as the owner. It should be called as
// soon as the lock has been acquired.
func (o *Owner) Enter() {
	o.id.Store(GetGoRoutineID())
}

// Leave clears the owner. It should be called immediately before releasing
// the lock.
func (o *Owner) Leave() {
	o.id.Store(0)
}
