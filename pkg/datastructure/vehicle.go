package datastructure

import (
	"fmt"

	"github.com/lintang-b-s/drivesim/pkg/geo"
)

type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseDriving
	PhaseCompleted
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDriving:
		return "driving"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// VehicleState is an immutable snapshot of the vehicle published by the driving engine.
// Speed is in km/h, bearing in degrees clockwise from north, distances in km and
// RemainingTime in minutes.
type VehicleState struct {
	Position            geo.Coordinate `json:"position" msgpack:"position"`
	Speed               float64        `json:"speed" msgpack:"speed"`
	Bearing             float64        `json:"bearing" msgpack:"bearing"`
	ActiveSegmentIndex  int            `json:"active_segment_index" msgpack:"active_segment_index"`
	SegmentCount        int            `json:"segment_count" msgpack:"segment_count"`
	IsDriving           bool           `json:"is_driving" msgpack:"is_driving"`
	Phase               Phase          `json:"phase" msgpack:"phase"`
	NavigationAvailable bool           `json:"navigation_available" msgpack:"navigation_available"`
	Tick                uint64         `json:"tick" msgpack:"tick"`
	SegmentTraveled     float64        `json:"segment_traveled" msgpack:"segment_traveled"`
	RemainingDistance   float64        `json:"remaining_distance" msgpack:"remaining_distance"`
	RemainingTime       float64        `json:"remaining_time" msgpack:"remaining_time"`
}

type CorrectionSample struct {
	SpeedDelta   float64
	BearingDelta float64
}
