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

package curated_test

import (
	"errors"
	"io"
	"testing"

	"github.com/jetsetilly/gopherbox/curated"
	"github.com/jetsetilly/gopherbox/test"
)

const testError = "test error: %s"
const testErrorB = "test error B: %s"

func TestDuplicateErrors(t *testing.T) {
	e := curated.Errorf(testError, "foo")
	test.ExpectEquality(t, e.Error(), "test error: foo")

	// packing errors of the same type next to each other causes
	// one of them to be dropped
	f := curated.Errorf(testError, e)
	test.ExpectEquality(t, f.Error(), "test error: foo")
}

func TestIs(t *testing.T) {
	e := curated.Errorf(testError, "foo")
	test.ExpectSuccess(t, curated.IsAny(e))
	test.ExpectSuccess(t, curated.Is(e, testError))
	test.ExpectFailure(t, curated.Is(e, testErrorB))

	// Has() should fail because we haven't included testErrorB anywhere in the error
	test.ExpectFailure(t, curated.Has(e, testErrorB))

	// packing errors of the same type next to each other causes
	// one of them to be dropped
	f := curated.Errorf(testErrorB, e)
	test.ExpectFailure(t, curated.Is(f, testError))
	test.ExpectSuccess(t, curated.Is(f, testErrorB))
	test.ExpectSuccess(t, curated.Has(f, testError))
	test.ExpectSuccess(t, curated.Has(f, testErrorB))

	// IsAny should return false for plain errors
	test.ExpectFailure(t, curated.IsAny(io.EOF))
	test.ExpectFailure(t, curated.IsAny(nil))
}

func TestUnwrap(t *testing.T) {
	e := curated.Errorf("hostmem: %v", io.ErrUnexpectedEOF)
	test.ExpectSuccess(t, errors.Is(e, io.ErrUnexpectedEOF))
	test.ExpectFailure(t, errors.Is(e, io.EOF))

	// errors.Is() sees through more than one curated wrapper
	f := curated.Errorf("vmm: %v", curated.Errorf("vmm: initialise: %v", e))
	test.ExpectSuccess(t, errors.Is(f, io.ErrUnexpectedEOF))
	test.ExpectEquality(t, f.Error(), "vmm: initialise: hostmem: unexpected EOF")

	// plain values are not returned by Unwrap()
	g := curated.Errorf(testError, "foo")
	test.ExpectFailure(t, errors.Is(g, io.EOF))
}
