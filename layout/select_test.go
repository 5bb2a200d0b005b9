package layout

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capacityGroup(capacities ...int) *Group {
	g := &Group{Name: "test"}
	for _, c := range capacities {
		l := &Layout{Name: fmt.Sprintf("cap%d", c), Geometries: make([]Geometry, c)}
		g.Layouts = append(g.Layouts, l)
	}
	return g
}

func TestFindBest_EmptyGroup(t *testing.T) {
	assert.Nil(t, FindBest(nil, 3))
	assert.Nil(t, FindBest(&Group{Name: "empty"}, 3))
}

func TestFindBest_SmallestFit(t *testing.T) {
	g := capacityGroup(1, 2, 4, 9)

	tests := []struct {
		count int
		want  int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 9},
		{9, 9},
		{10, 9}, // overflow keeps the largest layout
		{100, 9},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("count=%d", tt.count), func(t *testing.T) {
			l := FindBest(g, tt.count)
			require.NotNil(t, l)
			assert.Equal(t, tt.want, l.Layers())
		})
	}
}

// Every answer must be the minimum capacity >= n, or the maximum overall.
func TestFindBest_CapacityProperty(t *testing.T) {
	groups := []*Group{
		capacityGroup(1),
		capacityGroup(1, 4, 9, 16),
		capacityGroup(9, 1, 4),
		capacityGroup(2, 2, 6),
	}

	for gi, g := range groups {
		maxCap := 0
		for _, l := range g.Layouts {
			if l.Layers() > maxCap {
				maxCap = l.Layers()
			}
		}
		for n := 0; n <= 20; n++ {
			want := -1
			for _, l := range g.Layouts {
				if l.Layers() >= n && (want == -1 || l.Layers() < want) {
					want = l.Layers()
				}
			}
			if want == -1 {
				want = maxCap
			}
			got := FindBest(g, n)
			require.NotNil(t, got, "group %d count %d", gi, n)
			assert.Equal(t, want, got.Layers(), "group %d count %d", gi, n)
		}
	}
}

func TestFindBest_TiesKeepFirst(t *testing.T) {
	g := capacityGroup(2, 2)
	g.Layouts[1].Name = "second"
	assert.Equal(t, "cap2", FindBest(g, 2).Name)
}
