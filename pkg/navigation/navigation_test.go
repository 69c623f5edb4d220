package navigation

import (
	"errors"
	"testing"

	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

type stubSource struct {
	route *da.Route
	err   error
	calls int
}

func (s *stubSource) Generate(start, destination geo.Coordinate) (*da.Route, error) {
	s.calls++
	return s.route, s.err
}

func milesRoute() *da.Route {
	a := geo.NewCoordinate(0, 0)
	b := geo.NewCoordinate(1, 1)
	c := geo.NewCoordinate(2, 2)
	return da.NewRoute([]da.RoadSegment{
		da.NewRoadSegment(a, b, 50, da.UnitMiles),
		da.NewRoadSegment(b, c, 30, da.UnitMiles),
	}, da.UnitMiles)
}

func TestNavigatorUnbound(t *testing.T) {
	n := NewNavigator(&stubSource{}, StrategyIndexLookup, zap.NewNop())

	assert.Nil(t, n.Route())
	assert.Zero(t, n.GetSpeedCorrection(0, 42))
	assert.Zero(t, n.GetBearingCorrection(3, 42))
	assert.Zero(t, n.GetDistance(7))

	sample, ok := n.PollCorrection(0, 10, 10)
	assert.True(t, ok)
	assert.Equal(t, da.CorrectionSample{}, sample)
}

func TestNavigatorNavigateNormalizesOnce(t *testing.T) {
	raw := milesRoute()
	src := &stubSource{route: raw}
	n := NewNavigator(src, StrategyIndexLookup, zap.NewNop())

	route, err := n.Navigate(geo.NewCoordinate(0, 0), geo.NewCoordinate(2, 2))
	require.NoError(t, err)
	require.Equal(t, da.UnitKilometers, route.Unit())
	assert.Same(t, route, n.Route())

	for i := 0; i < raw.Len(); i++ {
		assert.InDelta(t, raw.Segment(i).Distance()*geo.MilesToKmRate, n.GetDistance(i), 1e-9)
		assert.InDelta(t, raw.Segment(i).SpeedLimit()*geo.MilesToKmRate, n.GetSpeedCorrection(i, 0), 1e-9)
	}

	// binding the already converted route must not scale it again
	again := n.Bind(route)
	assert.Same(t, route, again)
	assert.InDelta(t, raw.Segment(0).Distance()*geo.MilesToKmRate, n.GetDistance(0), 1e-9)
}

func TestNavigatorNavigateFailure(t *testing.T) {
	testCases := []struct {
		name string
		src  *stubSource
	}{
		{name: "source error", src: &stubSource{err: errors.Join(ErrRouteNotFound, errors.New("no path"))}},
		{name: "nil route", src: &stubSource{}},
		{name: "empty route", src: &stubSource{route: da.NewRoute(nil, da.UnitKilometers)}},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNavigator(tt.src, StrategyIndexLookup, zap.NewNop())
			route, err := n.Navigate(geo.NewCoordinate(0, 0), geo.NewCoordinate(1, 1))
			assert.Nil(t, route)
			assert.ErrorIs(t, err, ErrRouteNotFound)
			assert.Nil(t, n.Route())
		})
	}
}

func TestStrategiesAgree(t *testing.T) {
	for _, strategy := range []Strategy{StrategyIndexLookup, StrategyDirectLookup} {
		t.Run(strategy.String(), func(t *testing.T) {
			n := NewNavigator(&stubSource{}, strategy, zap.NewNop())
			route := n.Bind(milesRoute())

			seg := route.Segment(1)
			assert.InDelta(t, seg.SpeedLimit()-20, n.GetSpeedCorrection(1, 20), 1e-9)
			assert.InDelta(t, seg.Bearing()-10, n.GetBearingCorrection(1, 10), 1e-9)

			sample, ok := n.PollCorrection(1, 20, 10)
			require.True(t, ok)
			assert.InDelta(t, seg.SpeedLimit()-20, sample.SpeedDelta, 1e-9)
			assert.InDelta(t, seg.Bearing()-10, sample.BearingDelta, 1e-9)
		})
	}
}

func TestNavigatorIndexOutOfRangePanics(t *testing.T) {
	n := NewNavigator(&stubSource{}, StrategyIndexLookup, zap.NewNop())
	n.Bind(milesRoute())

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrSegmentIndexOutOfRange)
	}()
	n.GetDistance(2)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("direct")
	require.NoError(t, err)
	assert.Equal(t, StrategyDirectLookup, s)

	s, err = ParseStrategy("INDEX")
	require.NoError(t, err)
	assert.Equal(t, StrategyIndexLookup, s)

	_, err = ParseStrategy("psychic")
	assert.Error(t, err)
}

func unavailableRuns(served []bool) []int {
	var runs []int
	run := 0
	for _, ok := range served {
		if !ok {
			run++
			continue
		}
		if run > 0 {
			runs = append(runs, run)
			run = 0
		}
	}
	if run > 0 {
		runs = append(runs, run)
	}
	return runs
}

func TestAvailabilityIsSticky(t *testing.T) {
	const (
		ticks  = 1000
		chance = 5
	)
	a := NewAvailability(rand.New(rand.NewSource(2024)), chance)

	served := make([]bool, ticks)
	down := 0
	for i := range served {
		served[i] = a.Step()
		if !served[i] {
			down++
		}
	}
	runs := unavailableRuns(served)
	require.NotEmpty(t, runs)

	total, ones, longRuns := 0, 0, 0
	for _, r := range runs {
		total += r
		if r == 1 {
			ones++
		}
		if r >= 5 {
			longRuns++
		}
	}
	mean := float64(total) / float64(len(runs))

	// geometric with recovery probability 1/5: mean 5, P(len=1)=0.2, P(len>=5)=0.8^4
	assert.InDelta(t, 5.0, mean, 1.5)
	assert.Less(t, float64(ones)/float64(len(runs)), 0.4)
	assert.InDelta(t, 0.41, float64(longRuns)/float64(len(runs)), 0.17)
	// symmetric failure/recovery rates spend about half the time unavailable
	assert.InDelta(t, 0.5, float64(down)/ticks, 0.15)

	// an independent per-tick coin flip with the same failure rate would average 1.25
	assert.Greater(t, mean, 2.5)
}

func TestAvailabilityReset(t *testing.T) {
	a := NewAvailability(rand.New(rand.NewSource(1)), 5)
	for a.Available() {
		a.Step()
	}
	a.Reset()
	assert.True(t, a.Available())
	assert.True(t, a.Step())
}

func TestIntermittentPollCorrection(t *testing.T) {
	n := NewNavigator(&stubSource{}, StrategyIndexLookup, zap.NewNop())
	n.Bind(milesRoute())
	in := NewIntermittent(n, rand.New(rand.NewSource(9)), 5, zap.NewNop())

	sawOutage := false
	for i := 0; i < 200; i++ {
		wasAvailable := in.Available()
		sample, ok := in.PollCorrection(0, 0, 0)
		assert.Equal(t, wasAvailable, ok)
		if !ok {
			sawOutage = true
			assert.Equal(t, da.CorrectionSample{}, sample)
		} else {
			assert.InDelta(t, n.Route().Segment(0).SpeedLimit(), sample.SpeedDelta, 1e-9)
		}
	}
	assert.True(t, sawOutage)

	in.ResetLink()
	assert.True(t, in.Available())
	// the wrapped provider's contract is still reachable
	assert.InDelta(t, n.GetDistance(1), in.GetDistance(1), 1e-12)
}
