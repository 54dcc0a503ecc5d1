// Package grid maps linear cell indexes onto a fixed-width grid.
package grid

// GetGridCoords returns the column and row of cell index in a grid cols
// cells wide.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// GetIndex is the inverse of GetGridCoords.
func GetIndex(x, y, cols int) int {
	return y*cols + x
}
