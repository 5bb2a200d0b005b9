package layout

// FindBest returns the smallest layout in g with room for count
// participants. When no layout is large enough the largest one is returned
// and the excess participants go without a layer. A nil or empty group
// returns nil; callers keep their explicitly configured layout.
//
// Groups from a Catalog are sorted ascending, so the scan normally stops at
// the first fit; ties keep the earliest layout.
func FindBest(g *Group, count int) *Layout {
	if g == nil || len(g.Layouts) == 0 {
		return nil
	}

	var best, largest *Layout
	for _, l := range g.Layouts {
		if l == nil {
			continue
		}
		if l.Layers() >= count && (best == nil || l.Layers() < best.Layers()) {
			best = l
		}
		if largest == nil || l.Layers() > largest.Layers() {
			largest = l
		}
	}
	if best != nil {
		return best
	}
	return largest
}
