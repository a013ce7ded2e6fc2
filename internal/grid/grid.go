package grid

import "errors"

var ErrInvalidDimension = errors.New("invalid grid dimension")
var ErrIndexOutOfRange = errors.New("cell index out of range")

// Monster is the value placed into a cell. It is a copy of whatever the
// catalog returned at placement time; the grid never resolves it again.
type Monster struct {
	ID       string `json:"id"`
	Name     string `json:"display_name"`
	ImageRef string `json:"image_ref,omitempty"`
}

type Cell struct {
	Occupied bool     `json:"occupied"`
	Occupant *Monster `json:"occupant,omitempty"`
}

// Grid is an N×N board stored row-major: index = row*Size + col.
// Invariant: len(Cells) == Size*Size, and an unoccupied cell never
// carries an occupant.
type Grid struct {
	Size  int    `json:"size"`
	Cells []Cell `json:"cells"`
}

func New(n int) (*Grid, error) {
	if n <= 0 {
		return nil, ErrInvalidDimension
	}
	return &Grid{Size: n, Cells: make([]Cell, n*n)}, nil
}

func (g *Grid) Len() int { return len(g.Cells) }

func (g *Grid) Cell(i int) (Cell, error) {
	if i < 0 || i >= len(g.Cells) {
		return Cell{}, ErrIndexOutOfRange
	}
	return g.Cells[i], nil
}

// SetCell replaces the cell at i. An unoccupied value with an occupant is
// normalized (occupant cleared), not rejected. Returns the cell as stored.
func (g *Grid) SetCell(i int, c Cell) (Cell, error) {
	if i < 0 || i >= len(g.Cells) {
		return Cell{}, ErrIndexOutOfRange
	}
	if !c.Occupied {
		c.Occupant = nil
	}
	g.Cells[i] = c
	return c, nil
}

// ToggleOccupancy flips the marker at i. Toggling off always clears the
// occupant; toggling on leaves an existing occupant in place.
func (g *Grid) ToggleOccupancy(i int) (Cell, error) {
	if i < 0 || i >= len(g.Cells) {
		return Cell{}, ErrIndexOutOfRange
	}
	c := g.Cells[i]
	c.Occupied = !c.Occupied
	if !c.Occupied {
		c.Occupant = nil
	}
	g.Cells[i] = c
	return c, nil
}

// PlaceMonster marks the cell occupied and overwrites any prior occupant.
func (g *Grid) PlaceMonster(i int, m Monster) (Cell, error) {
	if i < 0 || i >= len(g.Cells) {
		return Cell{}, ErrIndexOutOfRange
	}
	c := Cell{Occupied: true, Occupant: &m}
	g.Cells[i] = c
	return c, nil
}

// Snapshot returns a deep copy safe to hand across goroutines.
func (g *Grid) Snapshot() *Grid {
	cells := make([]Cell, len(g.Cells))
	for i, c := range g.Cells {
		if c.Occupant != nil {
			m := *c.Occupant
			c.Occupant = &m
		}
		cells[i] = c
	}
	return &Grid{Size: g.Size, Cells: cells}
}
