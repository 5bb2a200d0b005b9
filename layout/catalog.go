package layout

import (
	"sort"
)

// Catalog maps names to layouts and layout groups. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	layouts map[string]*Layout
	groups  map[string]*Group
}

// NewCatalog builds a catalog from already validated layouts and groups.
// Group members are re-sorted ascending by capacity; duplicate names keep
// the first occurrence.
func NewCatalog(layouts []*Layout, groups []*Group) *Catalog {
	c := &Catalog{
		layouts: make(map[string]*Layout, len(layouts)),
		groups:  make(map[string]*Group, len(groups)),
	}
	for _, l := range layouts {
		if l == nil || l.Name == "" {
			continue
		}
		if _, exists := c.layouts[l.Name]; !exists {
			c.layouts[l.Name] = l
		}
	}
	for _, g := range groups {
		if g == nil || g.Name == "" || len(g.Layouts) == 0 {
			continue
		}
		if _, exists := c.groups[g.Name]; exists {
			continue
		}
		sorted := &Group{Name: g.Name, Layouts: append([]*Layout(nil), g.Layouts...)}
		sortByCapacity(sorted.Layouts)
		c.groups[g.Name] = sorted
	}
	return c
}

// Layout returns the named layout or nil.
func (c *Catalog) Layout(name string) *Layout {
	if c == nil {
		return nil
	}
	return c.layouts[name]
}

// Group returns the named group or nil.
func (c *Catalog) Group(name string) *Group {
	if c == nil {
		return nil
	}
	return c.groups[name]
}

// Names returns the layout names in lexical order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.layouts))
	for name := range c.layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GroupNames returns the group names in lexical order.
func (c *Catalog) GroupNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.groups))
	for name := range c.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of layouts.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.layouts)
}

func sortByCapacity(layouts []*Layout) {
	sort.SliceStable(layouts, func(i, j int) bool {
		return layouts[i].Layers() < layouts[j].Layers()
	})
}
