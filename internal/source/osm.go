package source

import (
	"context"
	"math"
	"os"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/model"
	"github.com/sells-group/geoindex/internal/normalize"
)

// osmAddress is the addr:* subset of an element's tags.
type osmAddress struct {
	housenumber string
	street      string
	unit        string
	city        string
	state       string
	postcode    string
}

// addressWay is a way with an address, kept between the two passes.
type addressWay struct {
	id    osm.WayID
	addr  osmAddress
	nodes []osm.NodeID
}

// OSM streams address documents from an .osm.pbf extract. Nodes carrying
// addr:housenumber and addr:street are emitted during the node pass; ways with
// the same tags are emitted afterwards at their centroid. Relations are not
// read.
func OSM(ctx context.Context, path string, opts Options) Records {
	return func(yield func(model.Document, error) bool) {
		log := zap.L().With(zap.String("component", "source.osm"), zap.String("path", path))
		procs := max(opts.Procs, 1)

		var ways []addressWay
		need := make(map[osm.NodeID]struct{})
		_, err := scanPBF(ctx, path, procs, func(s *osmpbf.Scanner) {
			s.SkipNodes = true
			s.SkipRelations = true
		}, func(o osm.Object) bool {
			w, ok := o.(*osm.Way)
			if !ok {
				return true
			}
			addr, ok := addressFromTags(w.Tags)
			if !ok {
				return true
			}
			ids := w.Nodes.NodeIDs()
			for _, id := range ids {
				need[id] = struct{}{}
			}
			ways = append(ways, addressWay{id: w.ID, addr: addr, nodes: ids})
			return true
		})
		if err != nil {
			yield(model.Document{}, err)
			return
		}
		log.Info("way pass done", zap.Int("address_ways", len(ways)), zap.Int("referenced_nodes", len(need)))

		coords := make(map[osm.NodeID]geom.Coord, len(need))
		more, err := scanPBF(ctx, path, procs, func(s *osmpbf.Scanner) {
			s.SkipWays = true
			s.SkipRelations = true
		}, func(o osm.Object) bool {
			n, ok := o.(*osm.Node)
			if !ok {
				return true
			}
			if _, ok := need[n.ID]; ok {
				coords[n.ID] = geom.Coord{n.Lon, n.Lat}
			}
			addr, ok := addressFromTags(n.Tags)
			if !ok {
				return true
			}
			doc, ok := nodeDocument(n, addr, opts.DefaultState)
			if !ok {
				opts.Stats.skipped()
				return true
			}
			opts.Stats.emitted()
			return yield(doc, nil)
		})
		if err != nil {
			yield(model.Document{}, err)
			return
		}
		if !more {
			return
		}

		for _, w := range ways {
			doc, ok := wayDocument(w, coords, opts.DefaultState)
			if !ok {
				opts.Stats.skipped()
				log.Debug("skipping way without geometry", zap.Int64("way", int64(w.id)))
				continue
			}
			opts.Stats.emitted()
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// scanPBF runs one pass over the file. It returns false when fn stopped the
// pass early.
func scanPBF(ctx context.Context, path string, procs int, configure func(*osmpbf.Scanner), fn func(osm.Object) bool) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, eris.Wrapf(err, "osm: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	scanner := osmpbf.New(ctx, f, procs)
	defer scanner.Close() //nolint:errcheck
	configure(scanner)

	for scanner.Scan() {
		if !fn(scanner.Object()) {
			return false, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, eris.Wrapf(err, "osm: scan %s", path)
	}
	return true, nil
}

func addressFromTags(tags osm.Tags) (osmAddress, bool) {
	a := osmAddress{
		housenumber: strings.TrimSpace(tags.Find("addr:housenumber")),
		street:      strings.TrimSpace(tags.Find("addr:street")),
		unit:        strings.TrimSpace(tags.Find("addr:unit")),
		city:        strings.TrimSpace(tags.Find("addr:city")),
		state:       strings.TrimSpace(tags.Find("addr:state")),
		postcode:    strings.TrimSpace(tags.Find("addr:postcode")),
	}
	if a.city == "" {
		a.city = strings.TrimSpace(tags.Find("addr:place"))
	}
	return a, a.housenumber != "" && a.street != ""
}

func (a osmAddress) document(lat, lon float64, defaultState string) (model.Document, bool) {
	line := strings.Join(nonEmpty(a.housenumber, a.street, a.unit), " ")
	state := firstState(a.state, defaultState, normalize.StateForPostcode(a.postcode))
	doc := model.NewDocument(line, a.city, state, a.postcode, lat, lon, model.SourceOSM)
	if doc.Validate() != nil {
		return model.Document{}, false
	}
	return doc, true
}

func nodeDocument(n *osm.Node, addr osmAddress, defaultState string) (model.Document, bool) {
	if n.Lat == 0 && n.Lon == 0 {
		return model.Document{}, false
	}
	return addr.document(n.Lat, n.Lon, defaultState)
}

func wayDocument(w addressWay, coords map[osm.NodeID]geom.Coord, defaultState string) (model.Document, bool) {
	c, ok := wayCentroid(w.nodes, coords)
	if !ok {
		return model.Document{}, false
	}
	return w.addr.document(c[1], c[0], defaultState)
}

// wayCentroid returns the (lon, lat) centroid of a way: the area centroid
// for closed ways, the length-weighted centroid otherwise, and the mean of
// the vertices when neither is defined.
func wayCentroid(ids []osm.NodeID, coords map[osm.NodeID]geom.Coord) (geom.Coord, bool) {
	pts := make([]geom.Coord, 0, len(ids))
	for _, id := range ids {
		if c, ok := coords[id]; ok {
			pts = append(pts, c)
		}
	}
	if len(pts) == 0 {
		return nil, false
	}

	var g geom.T
	closed := len(pts) == len(ids) && len(ids) >= 4 && ids[0] == ids[len(ids)-1]
	switch {
	case closed:
		g = geom.NewPolygonFlat(geom.XY, flatCoords(pts), []int{2 * len(pts)})
	case len(pts) >= 2:
		g = geom.NewLineStringFlat(geom.XY, flatCoords(pts))
	default:
		return pts[0], true
	}

	c, err := xy.Centroid(g)
	if err != nil || len(c) < 2 || math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return meanCoord(pts), true
	}
	return geom.Coord{c[0], c[1]}, true
}

// flatCoords converts a slice of Coord to flat coordinate pairs for go-geom.
func flatCoords(coords []geom.Coord) []float64 {
	flat := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		flat = append(flat, c[0], c[1])
	}
	return flat
}

func meanCoord(pts []geom.Coord) geom.Coord {
	var x, y float64
	for _, p := range pts {
		x += p[0]
		y += p[1]
	}
	n := float64(len(pts))
	return geom.Coord{x / n, y / n}
}
