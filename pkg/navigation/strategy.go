package navigation

import (
	"fmt"
	"strings"

	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/geo"
)

type Strategy uint8

const (
	// StrategyIndexLookup reads the speed limit and bearing stored on the bound route.
	StrategyIndexLookup Strategy = iota
	// StrategyDirectLookup reads the road itself through the sign reader and IMU.
	StrategyDirectLookup
)

func (s Strategy) String() string {
	switch s {
	case StrategyIndexLookup:
		return "index"
	case StrategyDirectLookup:
		return "direct"
	}
	return "unknown"
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "index", "":
		return StrategyIndexLookup, nil
	case "direct", "facade":
		return StrategyDirectLookup, nil
	}
	return 0, fmt.Errorf("unknown navigation strategy %q", s)
}

type corrector interface {
	corrections(road da.RoadSegment, currentSpeed, currentBearing float64) da.CorrectionSample
}

type indexLookup struct{}

func (indexLookup) corrections(road da.RoadSegment, currentSpeed, currentBearing float64) da.CorrectionSample {
	return da.CorrectionSample{
		SpeedDelta:   road.SpeedLimit() - currentSpeed,
		BearingDelta: road.Bearing() - currentBearing,
	}
}

// SignReader reads the posted speed limit of the road the vehicle is on.
type SignReader struct{}

func (SignReader) GetSpeedForCurrentRoad(road da.RoadSegment) float64 {
	return road.SpeedLimit()
}

// InertialMeasurementUnit measures the heading the road geometry asks for.
type InertialMeasurementUnit struct{}

func (InertialMeasurementUnit) GetTargetHeading(road da.RoadSegment) float64 {
	return geo.Bearing(road.From(), road.To())
}

type DriftCorrectionFacade struct {
	imu        InertialMeasurementUnit
	signReader SignReader
}

func NewDriftCorrectionFacade(imu InertialMeasurementUnit, signReader SignReader) *DriftCorrectionFacade {
	return &DriftCorrectionFacade{
		imu:        imu,
		signReader: signReader,
	}
}

func (f *DriftCorrectionFacade) corrections(road da.RoadSegment, currentSpeed, currentBearing float64) da.CorrectionSample {
	speedLimit := f.signReader.GetSpeedForCurrentRoad(road)
	targetBearing := f.imu.GetTargetHeading(road)

	return da.CorrectionSample{
		SpeedDelta:   speedLimit - currentSpeed,
		BearingDelta: targetBearing - currentBearing,
	}
}

func newCorrector(s Strategy) corrector {
	if s == StrategyDirectLookup {
		return NewDriftCorrectionFacade(InertialMeasurementUnit{}, SignReader{})
	}
	return indexLookup{}
}
