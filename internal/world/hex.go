// Package world provides the hexagonal cell hierarchy, the territory ledger,
// and the density field used to place runners' homes.
// Cells use the 64-bit hierarchical hex index layout (mode, resolution,
// base cell, then one 3-bit digit per resolution level).
package world

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Index layout constants.
const (
	MaxResolution = 15

	numBaseCells   = 122
	cellMode       = 1
	modeOffset     = 59
	resOffset      = 52
	baseCellOffset = 45
	digitWidth     = 3
	digitMask      = 7

	centerDigit = 0 // Child sharing its parent's center
	kAxisDigit  = 1 // Deleted subsequence under pentagons
	unusedDigit = 7 // Digits finer than the cell's resolution
)

// ErrInvalidCell is returned for malformed indexes and bad resolution requests.
var ErrInvalidCell = errors.New("invalid cell")

// CellID is a cell index in its canonical lower-case hex form, e.g. "89283082803ffff".
type CellID string

// HexCoord is an axial offset used to lay cells out on a plane.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
// Digit d (1–6) of a cell index maps to HexNeighborDirections[d-1].
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// pentagonBaseCells are the 12 base cells with five neighbors.
var pentagonBaseCells = map[int]bool{
	4: true, 14: true, 24: true, 38: true, 49: true, 58: true,
	63: true, 72: true, 83: true, 97: true, 107: true, 117: true,
}

type index uint64

func parseIndex(c CellID) (index, error) {
	v, err := strconv.ParseUint(string(c), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidCell, c)
	}
	h := index(v)
	if !h.valid() {
		return 0, fmt.Errorf("%w %q", ErrInvalidCell, c)
	}
	return h, nil
}

func (h index) cell() CellID {
	return CellID(strconv.FormatUint(uint64(h), 16))
}

func (h index) mode() int       { return int(h>>modeOffset) & 0xf }
func (h index) resolution() int { return int(h>>resOffset) & 0xf }
func (h index) baseCell() int   { return int(h>>baseCellOffset) & 0x7f }

func (h index) digit(res int) int {
	return int(h>>uint((MaxResolution-res)*digitWidth)) & digitMask
}

func (h index) withDigit(res, d int) index {
	shift := uint((MaxResolution - res) * digitWidth)
	return (h &^ (index(digitMask) << shift)) | index(d)<<shift
}

func (h index) withResolution(res int) index {
	return (h &^ (index(0xf) << resOffset)) | index(res)<<resOffset
}

// leadingZeros reports whether digits 1..upTo are all center digits.
func (h index) leadingZeros(upTo int) bool {
	for r := 1; r <= upTo; r++ {
		if h.digit(r) != centerDigit {
			return false
		}
	}
	return true
}

func (h index) valid() bool {
	if h>>63 != 0 || h.mode() != cellMode || (h>>56)&0x7 != 0 {
		return false
	}
	if h.baseCell() >= numBaseCells {
		return false
	}
	res := h.resolution()
	pentagon := pentagonBaseCells[h.baseCell()]
	for r := 1; r <= MaxResolution; r++ {
		d := h.digit(r)
		if r > res {
			if d != unusedDigit {
				return false
			}
			continue
		}
		if d == unusedDigit {
			return false
		}
		if pentagon && d == kAxisDigit && h.leadingZeros(r-1) {
			return false
		}
	}
	return true
}

// Validate returns ErrInvalidCell if c is not a well-formed cell index.
func Validate(c CellID) error {
	_, err := parseIndex(c)
	return err
}

// Resolution returns the resolution of c (0 = base cell, 15 = finest).
func Resolution(c CellID) (int, error) {
	h, err := parseIndex(c)
	if err != nil {
		return 0, err
	}
	return h.resolution(), nil
}

// Parent returns the ancestor of c at the coarser resolution res.
func Parent(c CellID, res int) (CellID, error) {
	h, err := parseIndex(c)
	if err != nil {
		return "", err
	}
	cur := h.resolution()
	if res < 0 || res > cur {
		return "", fmt.Errorf("%w: parent resolution %d of %s (resolution %d)", ErrInvalidCell, res, c, cur)
	}
	p := h.withResolution(res)
	for r := res + 1; r <= cur; r++ {
		p = p.withDigit(r, unusedDigit)
	}
	return p.cell(), nil
}

// Children enumerates the descendants of c at the finer resolution res,
// in ascending digit order.
func Children(c CellID, res int) ([]CellID, error) {
	h, err := parseIndex(c)
	if err != nil {
		return nil, err
	}
	cur := h.resolution()
	if res < cur || res > MaxResolution {
		return nil, fmt.Errorf("%w: child resolution %d of %s (resolution %d)", ErrInvalidCell, res, c, cur)
	}

	pentagon := pentagonBaseCells[h.baseCell()]
	level := []index{h.withResolution(res)}
	for r := cur + 1; r <= res; r++ {
		next := make([]index, 0, len(level)*7)
		for _, p := range level {
			for d := 0; d < 7; d++ {
				if pentagon && d == kAxisDigit && p.leadingZeros(r-1) {
					continue
				}
				next = append(next, p.withDigit(r, d))
			}
		}
		level = next
	}

	out := make([]CellID, len(level))
	for i, ch := range level {
		out[i] = ch.cell()
	}
	return out, nil
}

// Centroid returns a planar position for c, measured in cells of c's own
// resolution and relative to its base cell. Finer digits move the point by
// one cell; each coarser digit moves it √7 times further.
func Centroid(c CellID) (x, y float64, err error) {
	h, err := parseIndex(c)
	if err != nil {
		return 0, 0, err
	}
	var q, r float64
	scale := 1.0
	for level := h.resolution(); level >= 1; level-- {
		if d := h.digit(level); d != centerDigit {
			dir := HexNeighborDirections[d-1]
			q += float64(dir.Q) * scale
			r += float64(dir.R) * scale
		}
		scale *= math.Sqrt(7)
	}
	// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2
	return q + r*0.5, r * math.Sqrt(3) / 2, nil
}
