package navigation

import (
	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// Availability is the sticky two-state link model. Each check fails with probability
// 1/chance. While available a failed check drops the link; while unavailable the link
// comes back only when the same check fails, so both states persist for geometric runs.
type Availability struct {
	rd        *rand.Rand
	chance    int
	available bool
}

func NewAvailability(rd *rand.Rand, chance int) *Availability {
	return &Availability{
		rd:        rd,
		chance:    max(chance, 1),
		available: true,
	}
}

func (a *Availability) Available() bool {
	return a.available
}

func (a *Availability) check() bool {
	return a.rd.Intn(a.chance) != a.chance-1
}

// Step reports whether navigation serves this tick, then re-rolls availability for the
// next one.
func (a *Availability) Step() bool {
	if a.available {
		a.available = a.check()
		return true
	}
	a.available = !a.check()
	return false
}

func (a *Availability) Reset() {
	a.available = true
}

// Intermittent wraps a provider whose corrections are subject to outages.
type Intermittent struct {
	Provider
	availability *Availability
	log          *zap.Logger
}

func NewIntermittent(p Provider, rd *rand.Rand, chance int, log *zap.Logger) *Intermittent {
	return &Intermittent{
		Provider:     p,
		availability: NewAvailability(rd, chance),
		log:          log,
	}
}

func (i *Intermittent) Available() bool {
	return i.availability.Available()
}

func (i *Intermittent) PollCorrection(segmentIndex int, currentSpeed, currentBearing float64) (da.CorrectionSample, bool) {
	if !i.availability.Step() {
		i.log.Debug("navigation currently unavailable, you're on your own", zap.Int("segment", segmentIndex))
		return da.CorrectionSample{}, false
	}
	return i.Provider.PollCorrection(segmentIndex, currentSpeed, currentBearing)
}

func (i *Intermittent) ResetLink() {
	i.availability.Reset()
	i.Provider.ResetLink()
}
