package spatialindex

import (
	"math"

	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

type Rtree struct {
	tr     *rtree.RTreeG[SegmentEntry]
	radius float64
	count  int
}

// SegmentEntry is a route segment as stored in a leaf.
type SegmentEntry struct {
	index int
	from  geo.Coordinate
	to    geo.Coordinate
}

func (se SegmentEntry) GetIndex() int {
	return se.index
}

func newSegmentEntry(index int, from, to geo.Coordinate) SegmentEntry {
	return SegmentEntry{
		index: index,
		from:  from,
		to:    to,
	}
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[SegmentEntry]
	return &Rtree{
		tr: &tr,
	}
}

// Build indexes every segment of route. Each leaf covers the segment's great-circle arc
// grown by boundingBoxRadius (in km) on every side. Longitudes are unwrapped so a leaf
// crossing the antimeridian stays contiguous; such a leaf is also stored shifted by 360
// degrees so queries in [-180, 180] still reach it.
func (rt *Rtree) Build(route *da.Route, boundingBoxRadius float64, log *zap.Logger) {
	rt.radius = boundingBoxRadius
	rt.count = route.Len()

	for i := 0; i < route.Len(); i++ {
		seg := route.Segment(i)
		b := geo.RouteBounds([]geo.Coordinate{seg.From(), seg.To()}, 0)

		minLon, maxLon := b.MinLon, b.MaxLon
		if maxLon < minLon {
			maxLon += 360
		}

		lowerLat, lowerLon := geo.GetDestinationPoint(b.MinLat, b.MinLon, 225, boundingBoxRadius)
		upperLat, upperLon := geo.GetDestinationPoint(b.MaxLat, b.MaxLon, 45, boundingBoxRadius)
		lowerLon, upperLon = unwrapBelow(lowerLon, minLon), unwrapAbove(upperLon, maxLon)

		lo := [2]float64{lowerLon, math.Min(lowerLat, b.MinLat)}
		hi := [2]float64{upperLon, math.Max(upperLat, b.MaxLat)}
		entry := newSegmentEntry(i, seg.From(), seg.To())

		rt.tr.Insert(lo, hi, entry)
		if lo[0] < -180 {
			rt.tr.Insert([2]float64{lo[0] + 360, lo[1]}, [2]float64{hi[0] + 360, hi[1]}, entry)
		}
		if hi[0] > 180 {
			rt.tr.Insert([2]float64{lo[0] - 360, lo[1]}, [2]float64{hi[0] - 360, hi[1]}, entry)
		}
	}

	log.Debug("segment index built", zap.Int("segments", rt.count), zap.Float64("radius_km", boundingBoxRadius))
}

const lonEpsilon = 1e-9

// unwrapBelow shifts lon by whole turns until it is not east of ref.
func unwrapBelow(lon, ref float64) float64 {
	for lon > ref+lonEpsilon {
		lon -= 360
	}
	return lon
}

// unwrapAbove shifts lon by whole turns until it is not west of ref.
func unwrapAbove(lon, ref float64) float64 {
	for lon < ref-lonEpsilon {
		lon += 360
	}
	return lon
}

// BuildSegmentIndex returns an index over route with leaves padded by radiusKm.
func BuildSegmentIndex(route *da.Route, radiusKm float64, log *zap.Logger) *Rtree {
	rt := NewRtree()
	rt.Build(route, radiusKm, log)
	return rt
}

func (rt *Rtree) Len() int {
	return rt.count
}

// SearchWithinRadius search for all segments within radius (in km) from the query point
func (rt *Rtree) SearchWithinRadius(q geo.Coordinate, radius float64) []SegmentEntry {
	lowerLat, lowerLon := geo.GetDestinationPoint(q.Lat, q.Lon, 225, radius)
	upperLat, upperLon := geo.GetDestinationPoint(q.Lat, q.Lon, 45, radius)
	lowerLon, upperLon = unwrapBelow(lowerLon, q.Lon), unwrapAbove(upperLon, q.Lon)

	seen := make(map[int]struct{}, 4)
	results := make([]SegmentEntry, 0, 4)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, data SegmentEntry) bool {
			if _, ok := seen[data.index]; ok {
				return true
			}
			seen[data.index] = struct{}{}
			results = append(results, data)
			return true
		})
	return results
}

// NearestSegment returns the index of the segment closest to pos among those whose leaf
// contains pos, and the perpendicular distance to it in meters. ok is false when pos is
// farther than the build radius from every segment.
func (rt *Rtree) NearestSegment(pos geo.Coordinate) (index int, distance float64, ok bool) {
	index, distance = -1, math.Inf(1)
	rt.tr.Search([2]float64{pos.Lon, pos.Lat}, [2]float64{pos.Lon, pos.Lat},
		func(min, max [2]float64, data SegmentEntry) bool {
			d := geo.PointLinePerpendicularDistance(data.from, data.to, pos)
			if d < distance || (d == distance && data.index < index) {
				index, distance = data.index, d
			}
			return true
		})
	if index < 0 || distance > rt.radius*1000 {
		return -1, 0, false
	}
	return index, distance, true
}
