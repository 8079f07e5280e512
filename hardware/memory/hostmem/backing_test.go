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

package hostmem_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetsetilly/gopherbox/curated"
	"github.com/jetsetilly/gopherbox/hardware/memory/hostmem"
	"github.com/jetsetilly/gopherbox/hardware/memory/memorymap"
)

const size = 1024 * 1024

func TestOpenAnonymous(t *testing.T) {
	b, err := hostmem.Open("", size)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, uint64(size), b.Size())
	assert.Len(t, b.Primary(), size)
	assert.Nil(t, b.Contiguous())
	assert.Nil(t, b.Tiled())
}

func TestOpenNamed(t *testing.T) {
	name := filepath.Join(t.TempDir(), "ram")

	b, err := hostmem.Open(name, size)
	require.NoError(t, err)

	copy(b.Primary()[100:], []byte("Hello, World!"))
	require.NoError(t, b.Close())

	// contents are flushed to the file on close
	fileInfo, err := os.Stat(name)
	require.NoError(t, err)
	assert.Equal(t, int64(size), fileInfo.Size())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello, World!"), data[100:113])
}

func TestAliasedViews(t *testing.T) {
	b, err := hostmem.Open("", size)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.MapFixedViews(size/2, size/2))
	assert.Len(t, b.Contiguous(), size/2)
	assert.Len(t, b.Tiled(), size/2)

	b.Contiguous()[0x1234] = 0xaa
	assert.Equal(t, byte(0xaa), b.Primary()[0x1234])
	assert.Equal(t, byte(0xaa), b.Tiled()[0x1234])

	b.Tiled()[0x10] = 0x55
	assert.Equal(t, byte(0x55), b.Contiguous()[0x10])

	s, err := b.Slice(0x1000, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, byte(0xaa), s[0x234])

	// views can grow and contents survive the remapping
	require.NoError(t, b.MapFixedViews(size, size))
	assert.Len(t, b.Contiguous(), size)
	assert.Equal(t, byte(0xaa), b.Tiled()[0x1234])

	// views cannot be larger than the file
	assert.Error(t, b.MapFixedViews(size*2, size))
}

func TestSpecialViews(t *testing.T) {
	b, err := hostmem.Open("", size)
	require.NoError(t, err)
	defer b.Close()

	const base = memorymap.FragmentedBase

	require.NoError(t, b.MapSpecialView(base, 0x2000))
	require.NoError(t, b.MapSpecialView(base+0x2000, 0x1000))

	// overlaps
	assert.Error(t, b.MapSpecialView(base+0x1000, 0x1000))
	assert.Error(t, b.MapSpecialView(base-0x1000, 0x2000))
	assert.Error(t, b.MapSpecialView(0, 0x1000))

	s, err := b.Slice(base+0x1000, 0x1000)
	require.NoError(t, err)
	s[0] = 0x42

	s, err = b.Slice(base, 0x2000)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), s[0x1000])

	// ranges that span two views are not served
	_, err = b.Slice(base+0x1000, 0x2000)
	assert.True(t, curated.Is(err, hostmem.SliceError))

	require.NoError(t, b.UnmapSpecialView(base))
	assert.Error(t, b.UnmapSpecialView(base))

	_, err = b.Slice(base, 0x1000)
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	b, err := hostmem.Open("", size)
	require.NoError(t, err)
	require.NoError(t, b.MapFixedViews(size, size))
	require.NoError(t, b.MapSpecialView(memorymap.FragmentedBase, 0x1000))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err = b.Slice(0, 0x1000)
	assert.True(t, curated.Is(err, hostmem.ClosedError))
	assert.True(t, curated.Is(b.MapSpecialView(memorymap.FragmentedBase, 0x1000), hostmem.ClosedError))
}
