package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AllCellsEmpty(t *testing.T) {
	g, err := New(16)
	require.NoError(t, err)
	require.Len(t, g.Cells, 256)
	for i, c := range g.Cells {
		assert.False(t, c.Occupied, "cell %d", i)
		assert.Nil(t, c.Occupant, "cell %d", i)
	}
}

func TestNew_InvalidDimension(t *testing.T) {
	for _, n := range []int{0, -1, -16} {
		_, err := New(n)
		assert.ErrorIs(t, err, ErrInvalidDimension, "n=%d", n)
	}
}

func TestSetCell_Bounds(t *testing.T) {
	g, _ := New(4)
	for _, i := range []int{-1, 16, 100} {
		_, err := g.SetCell(i, Cell{Occupied: true})
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "index %d", i)
	}
	assert.Len(t, g.Cells, 16, "length never changes")
}

func TestSetCell_NormalizesUnoccupiedOccupant(t *testing.T) {
	g, _ := New(4)
	goblin := &Monster{ID: "goblin", Name: "Goblin"}

	stored, err := g.SetCell(3, Cell{Occupied: false, Occupant: goblin})
	require.NoError(t, err)
	assert.False(t, stored.Occupied)
	assert.Nil(t, stored.Occupant, "unoccupied cell must not carry an occupant")
}

func TestToggleOccupancy(t *testing.T) {
	g, _ := New(4)

	on, err := g.ToggleOccupancy(5)
	require.NoError(t, err)
	assert.True(t, on.Occupied)

	off, err := g.ToggleOccupancy(5)
	require.NoError(t, err)
	assert.False(t, off.Occupied)
	assert.Nil(t, off.Occupant)
}

func TestToggleOccupancy_OffClearsMonster(t *testing.T) {
	g, _ := New(4)
	_, err := g.PlaceMonster(10, Monster{ID: "goblin", Name: "Goblin"})
	require.NoError(t, err)

	off, err := g.ToggleOccupancy(10)
	require.NoError(t, err)
	assert.False(t, off.Occupied)
	assert.Nil(t, off.Occupant, "toggling off must clear the occupant")
}

func TestPlaceMonster_Overwrites(t *testing.T) {
	g, _ := New(4)
	_, err := g.PlaceMonster(2, Monster{ID: "goblin", Name: "Goblin"})
	require.NoError(t, err)

	cell, err := g.PlaceMonster(2, Monster{ID: "orc", Name: "Orc"})
	require.NoError(t, err)
	require.NotNil(t, cell.Occupant)
	assert.Equal(t, "orc", cell.Occupant.ID)
}

func TestSnapshot_IsIndependent(t *testing.T) {
	g, _ := New(4)
	_, _ = g.PlaceMonster(0, Monster{ID: "goblin", Name: "Goblin"})

	snap := g.Snapshot()
	_, _ = g.ToggleOccupancy(0)

	require.True(t, snap.Cells[0].Occupied, "snapshot must not see later mutations")
	require.NotNil(t, snap.Cells[0].Occupant)
	assert.Equal(t, "goblin", snap.Cells[0].Occupant.ID)
	assert.Nil(t, g.Cells[0].Occupant)
}
