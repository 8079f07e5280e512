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

package curated

import (
	"fmt"
	"strings"
)

type curated struct {
	pattern string
	values  []any
}

// Errorf creates a new curated error. Note that unlike the function of the
// same name in the fmt package, the error is not formatted here. Formatting
// takes place in the Error() function.
func Errorf(pattern string, values ...any) error {
	return curated{
		pattern: pattern,
		values:  values,
	}
}

// Error implements the go language error interface. The error chain is
// normalised so that adjacent duplicate parts are removed.
func (er curated) Error() string {
	s := fmt.Sprintf(er.pattern, er.values...)

	// de-duplicate error message parts
	p := strings.Split(s, ": ")
	q := make([]string, 0, len(p))
	for i := range p {
		if len(q) > 0 && q[len(q)-1] == p[i] {
			continue
		}
		q = append(q, p[i])
	}

	return strings.Join(q, ": ")
}

// Unwrap returns any errors in the placeholder values. This allows the
// errors.Is() and errors.As() functions in the standard library to see
// through curated errors.
func (er curated) Unwrap() []error {
	var errs []error
	for _, v := range er.values {
		if e, ok := v.(error); ok {
			errs = append(errs, e)
		}
	}
	return errs
}

// IsAny checks if error is being curated by this package.
func IsAny(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(curated); ok {
		return true
	}

	return false
}

// Is checks if error has a specific head pattern.
func Is(err error, pattern string) bool {
	if err == nil {
		return false
	}

	if er, ok := err.(curated); ok {
		return er.pattern == pattern
	}

	return false
}

// Has checks if the pattern occurs somewhere in the error chain.
func Has(err error, pattern string) bool {
	if err == nil {
		return false
	}

	if !IsAny(err) {
		return false
	}

	if Is(err, pattern) {
		return true
	}

	for _, v := range err.(curated).values {
		if e, ok := v.(curated); ok {
			if Has(e, pattern) {
				return true
			}
		}
	}

	return false
}
