package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridLayout(t *testing.T) {
	l := GridLayout("", 3)
	require.NotNil(t, l)
	assert.Equal(t, "3x3", l.Name)
	require.Equal(t, 9, l.Layers())

	for i, g := range l.Geometries {
		assert.NoError(t, g.Validate(), "layer %d", i)
		assert.Equal(t, 120, g.Scale)
	}
	assert.Equal(t, Geometry{X: 240, Y: 120, Scale: 120}, l.Geometries[5])

	assert.Nil(t, GridLayout("none", 0))
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, []string{"1up_top_left+5", "1x1", "2x2", "3x3", "4x4"}, c.Names())

	grid := c.Group("grid")
	require.NotNil(t, grid)
	caps := make([]int, 0, len(grid.Layouts))
	for _, l := range grid.Layouts {
		caps = append(caps, l.Layers())
	}
	assert.Equal(t, []int{1, 4, 9, 16}, caps)

	floor := c.Layout("1up_top_left+5")
	require.NotNil(t, floor)
	assert.Equal(t, 0, floor.FloorIndex())
	for i, g := range floor.Geometries {
		assert.NoError(t, g.Validate(), "layer %d", i)
	}

	assert.Equal(t, "1x1", FindBest(c.Group("floor"), 1).Name)
	assert.Equal(t, "1up_top_left+5", FindBest(c.Group("floor"), 3).Name)
}
