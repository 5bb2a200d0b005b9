package layout

import "fmt"

// GridLayout generates an n-by-n grid filling the canvas. Cells use the
// largest integer scale that fits, so a few pixels may remain at the
// right and bottom edges for sizes that do not divide ScaleMax.
func GridLayout(name string, n int) *Layout {
	if n < 1 {
		return nil
	}
	if name == "" {
		name = fmt.Sprintf("%dx%d", n, n)
	}
	scale := ScaleMax / n
	l := &Layout{Name: name, Geometries: make([]Geometry, 0, n*n)}
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			l.Geometries = append(l.Geometries, Geometry{
				X:     col * scale,
				Y:     row * scale,
				Scale: scale,
			})
		}
	}
	return l
}

// DefaultCatalog returns the built-in layouts used when no layout file is
// configured: square grids up to 4x4 in the "grid" group, and a floor
// layout with one large tile and five small ones in the "floor" group.
func DefaultCatalog() *Catalog {
	one := GridLayout("1x1", 1)
	one.Geometries[0].Role = RoleFloor

	grids := []*Layout{one, GridLayout("2x2", 2), GridLayout("3x3", 3), GridLayout("4x4", 4)}

	big := ScaleMax * 2 / 3
	small := ScaleMax / 3
	floor := &Layout{
		Name: "1up_top_left+5",
		Geometries: []Geometry{
			{X: 0, Y: 0, Scale: big, Zoom: true, Role: RoleFloor},
			{X: big, Y: 0, Scale: small, Zoom: true},
			{X: big, Y: small, Scale: small, Zoom: true},
			{X: 0, Y: big, Scale: small, Zoom: true},
			{X: small, Y: big, Scale: small, Zoom: true},
			{X: big, Y: big, Scale: small, Zoom: true},
		},
	}

	layouts := append(append([]*Layout(nil), grids...), floor)
	groups := []*Group{
		{Name: "grid", Layouts: grids},
		{Name: "floor", Layouts: []*Layout{one, floor}},
	}
	return NewCatalog(layouts, groups)
}
