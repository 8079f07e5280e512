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

// Package vmm manages the guest virtual address space.
//
// The 32bit address space is partitioned into virtual memory areas (VMAs).
// Every address is covered by exactly one VMA at all times. Unused parts of
// the address space are covered by VMAs of type Free. The partition is held
// in an ordered index and is changed with three basic operations: split, which
// divides one VMA into two; carve, which splits VMAs until a range has clean
// boundaries; and merge, which joins a VMA with compatible neighbours.
//
// Alongside the index is a page table with one entry for every page of the
// address space. The page table is rewritten for the affected range after
// every change to the index and is used for fast address translation.
//
// The Manager type drives the index and the page table. It allocates
// physical memory through the PhysicalMemory interface and realises
// physical memory outside RAM through the host views of the HostBacking
// interface. The physical and hostmem packages provide the implementations
// used by the Open() function.
//
// Allocations are made with MapMemoryBlock() and removed with UnmapRange().
// Permissions are changed with ReprotectVMARange(), which may split an
// allocation into several VMAs. The Manager keeps a record of each allocation
// so that UnmapRange() removes the whole of an allocation whichever of its
// addresses is given.
//
// All exported functions of the Manager are safe for concurrent use. Mutating
// functions are exclusive. Query functions can run concurrently with each
// other.
//
// Error handling follows three rules. Running out of virtual space or
// physical memory is normal and is indicated by the zero address being
// returned (the reason is logged). Failure of the host to provide memory is
// returned as an error from Initialize(), InitializeChihiro() and Close().
// Misuse of the address space (translating a Free address) and corruption of
// the index cause a panic.
package vmm
