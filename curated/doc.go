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

// Package curated creates errors from a formatting pattern and a list of
// placeholder values. Formatting is deferred until Error() is called and the
// pattern is kept, so the pattern identifies the class of the error.
//
// Each package declares its patterns as exported constants and callers test
// for them with Is(). The vmm package for example:
//
//	const ConsistencyError = "vmm: inconsistent address space: %s"
//
//	err := mgr.CheckConsistency()
//	if curated.Is(err, vmm.ConsistencyError) {
//		...
//	}
//
// Is() only looks at the head of the chain. Has() searches the placeholder
// values for curated errors with the pattern:
//
//	e := curated.Errorf(physical.OutOfMemory, size, low, high)
//	f := curated.Errorf(vmm.BackingError, size, e)
//
//	curated.Is(f, physical.OutOfMemory)  // false
//	curated.Has(f, physical.OutOfMemory) // true
//
// IsAny() answers whether an error was created by Errorf() at all. Errors
// that are not curated are often the unexpected ones.
//
// Curated errors implement Unwrap() []error, returning every error among the
// placeholder values. The errors.Is() and errors.As() functions of the
// standard library can therefore find errors from the host (an *os.PathError
// from opening the backing file, context.Canceled from a stress run) through
// any number of curated wrappers.
//
//	err := curated.Errorf(hostmem.MappingError, os.ErrNotExist)
//	errors.Is(err, os.ErrNotExist) // true
//
// Error() normalises the message by removing adjacent duplicate parts, where
// the parts are separated by ": ". Wrapping an error in a pattern with the
// same prefix does not repeat the prefix:
//
//	e := curated.Errorf("vmm: %v", curated.Errorf("vmm: not initialised"))
//	e.Error() // "vmm: not initialised"
package curated
