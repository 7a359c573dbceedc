package world

// Geography answers hierarchy questions about cells. The season engine only
// uses it to build region pools and to validate home cells; ownership and
// flips never consult it.
type Geography interface {
	// Parent returns the ancestor of cell at the coarser resolution res.
	Parent(cell CellID, res int) (CellID, error)
	// Children enumerates the descendants of cell at the finer resolution res.
	Children(cell CellID, res int) ([]CellID, error)
}

// HexGrid is the Geography backed by the cell index arithmetic in hex.go.
type HexGrid struct{}

// Parent implements Geography.
func (HexGrid) Parent(cell CellID, res int) (CellID, error) {
	return Parent(cell, res)
}

// Children implements Geography.
func (HexGrid) Children(cell CellID, res int) ([]CellID, error) {
	return Children(cell, res)
}

// RegionPools enumerates the cells of each region at resolution res,
// keeping the region order. A region that yields no cells is an error.
func RegionPools(geo Geography, regions []CellID, res int) ([][]CellID, error) {
	pools := make([][]CellID, len(regions))
	for i, region := range regions {
		cells, err := geo.Children(region, res)
		if err != nil {
			return nil, err
		}
		if len(cells) == 0 {
			return nil, ErrInvalidCell
		}
		pools[i] = cells
	}
	return pools, nil
}
