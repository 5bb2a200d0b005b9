// Package layout describes how a conference canvas is divided into layers.
//
// A Layout is a named list of layer geometries expressed in a normalized
// 0..ScaleMax coordinate space, so the same layout works for any canvas
// size. Layouts are grouped into capacity-ordered Groups from which
// FindBest picks the smallest layout that fits the current participant
// count.
//
// Catalogs are loaded from YAML:
//
//	layouts:
//	  - name: 2x2
//	    image: bg.png
//	    layers:
//	      - {x: 0, y: 0, scale: 180}
//	      - {x: 180, y: 0, scale: 180, zoom: true, role: floor}
//	groups:
//	  - name: grid
//	    layouts: [1x1, 2x2]
//
// Malformed entries are skipped with a warning rather than failing the
// load. DefaultCatalog provides built-in grids when no file is configured.
package layout
