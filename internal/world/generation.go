// Home placement using layered simplex noise.
// Each cell gets a population weight from a noise field sampled at its
// planar centroid, so runners cluster in "neighbourhoods" instead of being
// spread uniformly over a region.
package world

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// densityFloor keeps every cell selectable, even in the emptiest noise trough.
const densityFloor = 0.05

// DensityField assigns a deterministic population weight to cells.
type DensityField struct {
	noise opensimplex.Noise
}

// NewDensityField creates the field for a seed.
func NewDensityField(seed int64) *DensityField {
	return &DensityField{noise: opensimplex.NewNormalized(seed)}
}

// Weight returns the weight of c in [densityFloor, 1]. Malformed cells weigh densityFloor.
func (f *DensityField) Weight(c CellID) float64 {
	x, y, err := Centroid(c)
	if err != nil {
		return densityFloor
	}
	w := octaveNoise(f.noise, x, y, 3, 0.35, 0.5)
	if w < densityFloor {
		return densityFloor
	}
	if w > 1 {
		return 1
	}
	return w
}

// PickWeighted chooses one cell with probability proportional to its weight.
// u must be a uniform draw in [0, 1). Returns "" for an empty pool.
func (f *DensityField) PickWeighted(cells []CellID, u float64) CellID {
	if len(cells) == 0 {
		return ""
	}
	total := 0.0
	weights := make([]float64, len(cells))
	for i, c := range cells {
		weights[i] = f.Weight(c)
		total += weights[i]
	}
	target := u * total
	for i, w := range weights {
		if target < w {
			return cells[i]
		}
		target -= w
	}
	return cells[len(cells)-1]
}

// octaveNoise sums multiple octaves of simplex noise for natural-looking variation.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
