package controllers

import (
	"time"

	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/geo"
	"github.com/lintang-b-s/drivesim/pkg/http/usecases"
)

type coordinateRequest struct {
	Lat *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lon *float64 `json:"lon" validate:"required,min=-180,max=180"`
}

func (c *coordinateRequest) toCoordinate() *geo.Coordinate {
	if c == nil {
		return nil
	}
	coord := geo.NewCoordinate(*c.Lat, *c.Lon)
	return &coord
}

type newJourneyRequest struct {
	Origin      *coordinateRequest `json:"origin" validate:"omitempty"`
	Destination *coordinateRequest `json:"destination" validate:"omitempty"`
}

type streamRequest struct {
	Codec string `json:"codec" validate:"required,oneof=json msgpack"`
}

type coordinateResponse struct {
	Lat float64 `json:"lat" msgpack:"lat"`
	Lon float64 `json:"lon" msgpack:"lon"`
}

func newCoordinateResponse(c geo.Coordinate) coordinateResponse {
	return coordinateResponse{Lat: c.Lat, Lon: c.Lon}
}

type segmentResponse struct {
	From       coordinateResponse `json:"from"`
	To         coordinateResponse `json:"to"`
	SpeedLimit float64            `json:"speed_limit"`
	Bearing    float64            `json:"bearing"`
	Distance   float64            `json:"distance"`
}

type journeyResponse struct {
	ID          string             `json:"id"`
	Origin      coordinateResponse `json:"origin"`
	Destination coordinateResponse `json:"destination"`
	Distance    float64            `json:"distance"`
	Path        string             `json:"path"`
	Bounds      geo.Bounds         `json:"bounds"`
	Segments    []segmentResponse  `json:"segments"`
	CreatedAt   time.Time          `json:"created_at"`
}

func NewJourneyResponse(j *usecases.Journey) journeyResponse {
	segments := make([]segmentResponse, 0, j.Route.Len())
	for _, s := range j.Route.Segments() {
		segments = append(segments, newSegmentResponse(s))
	}
	return journeyResponse{
		ID:          j.ID,
		Origin:      newCoordinateResponse(j.Origin),
		Destination: newCoordinateResponse(j.Destination),
		Distance:    j.Route.TotalDistance(),
		Path:        j.Polyline,
		Bounds:      j.Bounds,
		Segments:    segments,
		CreatedAt:   j.CreatedAt,
	}
}

func newSegmentResponse(s da.RoadSegment) segmentResponse {
	return segmentResponse{
		From:       newCoordinateResponse(s.From()),
		To:         newCoordinateResponse(s.To()),
		SpeedLimit: s.SpeedLimit(),
		Bearing:    s.Bearing(),
		Distance:   s.Distance(),
	}
}

type stateResponse struct {
	JourneyID           string             `json:"journey_id" msgpack:"journey_id"`
	Position            coordinateResponse `json:"position" msgpack:"position"`
	Speed               float64            `json:"speed" msgpack:"speed"`
	Bearing             float64            `json:"bearing" msgpack:"bearing"`
	ActiveSegmentIndex  int                `json:"active_segment_index" msgpack:"active_segment_index"`
	SegmentCount        int                `json:"segment_count" msgpack:"segment_count"`
	IsDriving           bool               `json:"is_driving" msgpack:"is_driving"`
	Phase               string             `json:"phase" msgpack:"phase"`
	NavigationAvailable bool               `json:"navigation_available" msgpack:"navigation_available"`
	Tick                uint64             `json:"tick" msgpack:"tick"`
	RemainingDistance   float64            `json:"remaining_distance" msgpack:"remaining_distance"`
	RemainingTime       float64            `json:"remaining_time" msgpack:"remaining_time"`
	NearestSegment      int                `json:"nearest_segment" msgpack:"nearest_segment"`
	Deviation           float64            `json:"deviation" msgpack:"deviation"`
	OffRoute            bool               `json:"off_route" msgpack:"off_route"`
}

func NewStateResponse(s usecases.JourneyState) stateResponse {
	return stateResponse{
		JourneyID:           s.JourneyID,
		Position:            newCoordinateResponse(s.Position),
		Speed:               s.Speed,
		Bearing:             s.Bearing,
		ActiveSegmentIndex:  s.ActiveSegmentIndex,
		SegmentCount:        s.SegmentCount,
		IsDriving:           s.IsDriving,
		Phase:               s.Phase.String(),
		NavigationAvailable: s.NavigationAvailable,
		Tick:                s.Tick,
		RemainingDistance:   s.RemainingDistance,
		RemainingTime:       s.RemainingTime,
		NearestSegment:      s.NearestSegment,
		Deviation:           s.Deviation,
		OffRoute:            s.OffRoute,
	}
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
