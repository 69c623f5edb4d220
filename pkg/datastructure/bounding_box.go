package datastructure

import (
	"github.com/lintang-b-s/drivesim/pkg/geo"
	"golang.org/x/exp/rand"
)

type BoundingBox struct {
	minLat, minLon float64
	maxLat, maxLon float64
}

func NewBoundingBox(minLat, minLon, maxLat, maxLon float64) *BoundingBox {
	return &BoundingBox{minLat: minLat,
		minLon: minLon,
		maxLat: maxLat,
		maxLon: maxLon}
}

func (b *BoundingBox) GetMinLat() float64 {
	return b.minLat
}

func (b *BoundingBox) GetMinLon() float64 {
	return b.minLon
}

func (b *BoundingBox) GetMaxLat() float64 {
	return b.maxLat
}

func (b *BoundingBox) GetMaxLon() float64 {
	return b.maxLon
}

func (b *BoundingBox) Contains(c geo.Coordinate) bool {
	return c.Lat >= b.minLat && c.Lat <= b.maxLat && c.Lon >= b.minLon && c.Lon <= b.maxLon
}

// RandomCoordinate draws a uniformly distributed lat/lon pair inside the box.
func (b *BoundingBox) RandomCoordinate(rd *rand.Rand) geo.Coordinate {
	lat := b.minLat + rd.Float64()*(b.maxLat-b.minLat)
	lon := b.minLon + rd.Float64()*(b.maxLon-b.minLon)
	return geo.NewCoordinate(lat, lon)
}
