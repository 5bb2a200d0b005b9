package layout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/opd-ai/toxmix/limits"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a layout file. Layout and layer entries
// are kept as raw nodes so one malformed entry does not reject the file.
type document struct {
	Layouts []yaml.Node `yaml:"layouts"`
	Groups  []yaml.Node `yaml:"groups"`
}

type layoutEntry struct {
	Name   string      `yaml:"name"`
	Image  string      `yaml:"image"`
	Layers []yaml.Node `yaml:"layers"`
}

// layerEntry uses pointers for the required coordinates so a missing value
// is distinguishable from zero.
type layerEntry struct {
	X             *int   `yaml:"x"`
	Y             *int   `yaml:"y"`
	Scale         *int   `yaml:"scale"`
	HScale        int    `yaml:"hscale"`
	Border        int    `yaml:"border"`
	Zoom          bool   `yaml:"zoom"`
	Overlap       bool   `yaml:"overlap"`
	Role          string `yaml:"role"`
	ReservationID string `yaml:"reservation_id"`
	AudioPosition string `yaml:"audio_position"`
}

type groupEntry struct {
	Name    string   `yaml:"name"`
	Layouts []string `yaml:"layouts"`
}

// Load reads a layout catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout file: %w", err)
	}
	catalog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// Parse decodes a layout catalog. Malformed layouts and groups are skipped
// with a warning; only a YAML syntax error fails the whole document. An
// empty document yields an empty catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode layouts: %w", err)
	}

	layouts := make([]*Layout, 0, len(doc.Layouts))
	byName := make(map[string]*Layout, len(doc.Layouts))
	for i := range doc.Layouts {
		l, err := decodeLayout(&doc.Layouts[i])
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Parse",
				"index":    i,
				"line":     doc.Layouts[i].Line,
				"error":    err.Error(),
			}).Warn("Skipping malformed layout")
			continue
		}
		if _, dup := byName[l.Name]; dup {
			logrus.WithFields(logrus.Fields{
				"function": "Parse",
				"layout":   l.Name,
			}).Warn("Skipping duplicate layout")
			continue
		}
		byName[l.Name] = l
		layouts = append(layouts, l)
	}

	groups := make([]*Group, 0, len(doc.Groups))
	for i := range doc.Groups {
		g, err := decodeGroup(&doc.Groups[i], byName)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Parse",
				"index":    i,
				"line":     doc.Groups[i].Line,
				"error":    err.Error(),
			}).Warn("Skipping malformed layout group")
			continue
		}
		groups = append(groups, g)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Parse",
		"layouts":  len(layouts),
		"groups":   len(groups),
	}).Info("Loaded layout catalog")

	return NewCatalog(layouts, groups), nil
}

func decodeLayout(node *yaml.Node) (*Layout, error) {
	var entry layoutEntry
	if err := node.Decode(&entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if entry.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidLayout)
	}
	if err := limits.ValidateLayerCount(len(entry.Layers)); err != nil {
		return nil, fmt.Errorf("%w: layout %q: %v", ErrInvalidLayout, entry.Name, err)
	}

	l := &Layout{
		Name:            entry.Name,
		BackgroundImage: entry.Image,
		Geometries:      make([]Geometry, 0, len(entry.Layers)),
	}
	for i := range entry.Layers {
		g, err := decodeLayer(&entry.Layers[i])
		if err != nil {
			return nil, fmt.Errorf("layout %q layer %d: %w", entry.Name, i, err)
		}
		l.Geometries = append(l.Geometries, g)
	}
	return l, nil
}

func decodeLayer(node *yaml.Node) (Geometry, error) {
	var entry layerEntry
	if err := node.Decode(&entry); err != nil {
		return Geometry{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if entry.X == nil || entry.Y == nil || entry.Scale == nil {
		return Geometry{}, fmt.Errorf("%w: x, y and scale are required", ErrInvalidGeometry)
	}

	role, err := ParseRole(entry.Role)
	if err != nil {
		return Geometry{}, err
	}

	g := Geometry{
		X:             *entry.X,
		Y:             *entry.Y,
		Scale:         *entry.Scale,
		HScale:        entry.HScale,
		Border:        entry.Border,
		Zoom:          entry.Zoom,
		Overlap:       entry.Overlap,
		Role:          role,
		ReservationID: entry.ReservationID,
		AudioPosition: entry.AudioPosition,
	}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

func decodeGroup(node *yaml.Node, byName map[string]*Layout) (*Group, error) {
	var entry groupEntry
	if err := node.Decode(&entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if entry.Name == "" {
		return nil, fmt.Errorf("%w: group missing name", ErrInvalidLayout)
	}

	g := &Group{Name: entry.Name}
	for _, name := range entry.Layouts {
		l, ok := byName[name]
		if !ok {
			logrus.WithFields(logrus.Fields{
				"function": "decodeGroup",
				"group":    entry.Name,
				"layout":   name,
			}).Warn("Group references unknown layout")
			continue
		}
		g.Layouts = append(g.Layouts, l)
	}
	if len(g.Layouts) == 0 {
		return nil, fmt.Errorf("%w: group %q has no usable layouts", ErrInvalidLayout, entry.Name)
	}
	return g, nil
}
