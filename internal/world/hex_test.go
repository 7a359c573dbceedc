package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	regionA CellID = "872830828ffffff"
	regionB CellID = "872830829ffffff"
)

func TestResolution(t *testing.T) {
	res, err := Resolution("89283082803ffff")
	require.NoError(t, err)
	assert.Equal(t, 9, res)

	res, err = Resolution(regionA)
	require.NoError(t, err)
	assert.Equal(t, 7, res)
}

func TestValidateRejectsMalformedCells(t *testing.T) {
	for _, c := range []CellID{
		"",
		"not-a-cell",
		"0",
		"89283082807fff7", // used digit after resolution
		"88283082803ffff", // resolution 8 with a res-9 digit
		"8928308281fffff", // digit 7 inside resolution 9
		"8009fffffffffff" + "0",
	} {
		assert.ErrorIs(t, Validate(c), ErrInvalidCell, "cell %q", c)
	}
	assert.NoError(t, Validate("89283082803ffff"))
}

func TestParent(t *testing.T) {
	p, err := Parent("89283082803ffff", 7)
	require.NoError(t, err)
	assert.Equal(t, regionA, p)

	p, err = Parent("89283082803ffff", 8)
	require.NoError(t, err)
	assert.Equal(t, CellID("8828308281fffff"), p)

	p, err = Parent("89283082803ffff", 9)
	require.NoError(t, err)
	assert.Equal(t, CellID("89283082803ffff"), p)

	_, err = Parent(regionA, 9)
	assert.ErrorIs(t, err, ErrInvalidCell)
}

func TestChildren(t *testing.T) {
	cells, err := Children(regionA, 9)
	require.NoError(t, err)
	require.Len(t, cells, 49)
	assert.Equal(t, CellID("89283082803ffff"), cells[0])
	assert.Equal(t, CellID("892830828dbffff"), cells[48])

	seen := map[CellID]bool{}
	for _, c := range cells {
		require.NoError(t, Validate(c))
		p, err := Parent(c, 7)
		require.NoError(t, err)
		require.Equal(t, regionA, p)
		seen[c] = true
	}
	assert.Len(t, seen, 49)

	other, err := Children(regionB, 9)
	require.NoError(t, err)
	assert.Equal(t, CellID("89283082903ffff"), other[0])

	_, err = Children("89283082803ffff", 7)
	assert.ErrorIs(t, err, ErrInvalidCell)
}

func TestChildrenOfPentagonSkipDeletedAxis(t *testing.T) {
	pentagon := CellID("8009fffffffffff")
	require.NoError(t, Validate(pentagon))

	cells, err := Children(pentagon, 1)
	require.NoError(t, err)
	assert.Len(t, cells, 6)

	hexagon, err := Children("8029fffffffffff", 1)
	require.NoError(t, err)
	assert.Len(t, hexagon, 7)
}

func TestHexGridImplementsGeography(t *testing.T) {
	var geo Geography = HexGrid{}
	pools, err := RegionPools(geo, []CellID{regionA, regionB}, 9)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Len(t, pools[0], 49)
	assert.Len(t, pools[1], 49)
	assert.NotEqual(t, pools[0][0], pools[1][0])

	_, err = RegionPools(geo, []CellID{"bogus"}, 9)
	assert.ErrorIs(t, err, ErrInvalidCell)
}

func TestCentroidSeparatesSiblings(t *testing.T) {
	cells, err := Children(regionA, 9)
	require.NoError(t, err)

	type point struct{ x, y float64 }
	seen := map[point]bool{}
	for _, c := range cells {
		x, y, err := Centroid(c)
		require.NoError(t, err)
		seen[point{x, y}] = true
	}
	assert.Len(t, seen, len(cells))
}
