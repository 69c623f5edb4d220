package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/geo"
	http_server "github.com/lintang-b-s/drivesim/pkg/http/server"
	"github.com/lintang-b-s/drivesim/pkg/http/usecases"
	"github.com/lintang-b-s/drivesim/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeJourneyService struct {
	journey     *usecases.Journey
	origin      *geo.Coordinate
	destination *geo.Coordinate
	driving     bool
	stopped     int
	panicOnGet  bool
}

func (f *fakeJourneyService) NewJourney(origin, destination *geo.Coordinate) (*usecases.Journey, error) {
	if origin != nil && origin.Lat == 0 && origin.Lon == 0 {
		return nil, util.WrapErrorf(da.ErrRouteNotFound, util.ErrNotFound, "no route")
	}
	f.origin, f.destination = origin, destination
	route := da.NewRoute([]da.RoadSegment{
		da.NewRoadSegment(geo.NewCoordinate(1, 1), geo.NewCoordinate(2, 2), 50, da.UnitKilometers),
	}, da.UnitKilometers)
	f.journey = &usecases.Journey{
		ID:          "j-1",
		Origin:      route.Start(),
		Destination: route.Destination(),
		Route:       route,
		Polyline:    geo.PolylineFromCoords(route.Coordinates()),
		Bounds:      geo.RouteBounds(route.Coordinates(), 0.05),
		CreatedAt:   time.Unix(0, 0).UTC(),
	}
	return f.journey, nil
}

func (f *fakeJourneyService) Start(ctx context.Context) (bool, error) {
	if f.journey == nil {
		return false, util.WrapErrorf(nil, util.ErrNotFound, "no journey")
	}
	if f.driving {
		return false, nil
	}
	f.driving = true
	return true, nil
}

func (f *fakeJourneyService) Stop() {
	f.driving = false
	f.stopped++
}

func (f *fakeJourneyService) State() usecases.JourneyState {
	return usecases.JourneyState{
		VehicleState: da.VehicleState{
			Position:  geo.NewCoordinate(1, 1),
			IsDriving: f.driving,
			Phase:     da.PhaseIdle,
		},
		JourneyID:      "j-1",
		NearestSegment: 0,
	}
}

func (f *fakeJourneyService) Journey(id string) (*usecases.Journey, error) {
	if f.panicOnGet {
		panic("boom")
	}
	if f.journey == nil || f.journey.ID != id {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "journey %s not found", id)
	}
	return f.journey, nil
}

func (f *fakeJourneyService) Current() (*usecases.Journey, error) {
	if f.journey == nil {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "no journey yet")
	}
	return f.journey, nil
}

func newTestHandler(svc *fakeJourneyService, cfg http_server.Config) http.Handler {
	api := NewAPI(zap.NewNop())
	return api.Handler(cfg, zap.NewNop(), svc)
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestJourneyRoutes(t *testing.T) {
	svc := &fakeJourneyService{}
	h := newTestHandler(svc, http_server.Config{})

	rec := do(h, http.MethodGet, "/api/journey", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body, "error")

	rec = do(h, http.MethodPost, "/api/journeys", `{"origin":{"lat":10,"lon":20},"destination":{"lat":11,"lon":21}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/journeys/j-1", rec.Header().Get("Location"))
	require.NotNil(t, svc.origin)
	assert.Equal(t, geo.NewCoordinate(10, 20), *svc.origin)
	assert.Equal(t, geo.NewCoordinate(11, 21), *svc.destination)

	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "j-1", data["id"])
	assert.Len(t, data["segments"], 1)
	assert.NotEmpty(t, data["path"])

	rec = do(h, http.MethodGet, "/api/journeys/j-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(h, http.MethodGet, "/api/journeys/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(h, http.MethodGet, "/api/journey", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewJourneyRandomEndpoints(t *testing.T) {
	svc := &fakeJourneyService{}
	h := newTestHandler(svc, http_server.Config{})

	rec := do(h, http.MethodPost, "/api/journeys", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Nil(t, svc.origin)
	assert.Nil(t, svc.destination)
}

func TestNewJourneyBadRequests(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want int
	}{
		{name: "latitude out of range", body: `{"origin":{"lat":91,"lon":0}}`, want: http.StatusBadRequest},
		{name: "missing longitude", body: `{"destination":{"lat":1}}`, want: http.StatusBadRequest},
		{name: "malformed json", body: `{"origin":`, want: http.StatusBadRequest},
		{name: "unknown field", body: `{"speed":3}`, want: http.StatusBadRequest},
		{name: "no route", body: `{"origin":{"lat":0,"lon":0}}`, want: http.StatusNotFound},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeJourneyService{}, http_server.Config{})
			rec := do(h, http.MethodPost, "/api/journeys", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			var resp struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusText(tt.want), resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestDriveRoutes(t *testing.T) {
	svc := &fakeJourneyService{}
	h := newTestHandler(svc, http_server.Config{})

	rec := do(h, http.MethodPost, "/api/drive/start", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := svc.NewJourney(nil, nil)
	require.NoError(t, err)

	rec = do(h, http.MethodPost, "/api/drive/start", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["data"].(map[string]any)["started"])

	rec = do(h, http.MethodPost, "/api/drive/start", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["data"].(map[string]any)["started"])

	rec = do(h, http.MethodGet, "/api/state", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	state := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, true, state["is_driving"])
	assert.Equal(t, "idle", state["phase"])
	assert.Equal(t, "j-1", state["journey_id"])

	rec = do(h, http.MethodPost, "/api/drive/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.stopped)
	assert.Equal(t, false, decodeBody(t, rec)["data"].(map[string]any)["is_driving"])
}

func TestMiddleware(t *testing.T) {
	t.Run("heartbeat", func(t *testing.T) {
		h := newTestHandler(&fakeJourneyService{}, http_server.Config{})
		rec := do(h, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ".", rec.Body.String())
	})

	t.Run("json enforced", func(t *testing.T) {
		h := newTestHandler(&fakeJourneyService{}, http_server.Config{})
		r := httptest.NewRequest(http.MethodPost, "/api/journeys", bytes.NewBufferString("origin=1"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("panic recovered", func(t *testing.T) {
		svc := &fakeJourneyService{panicOnGet: true}
		h := newTestHandler(svc, http_server.Config{})
		rec := do(h, http.MethodGet, "/api/journeys/x", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "close", rec.Header().Get("Connection"))
	})

	t.Run("rate limited", func(t *testing.T) {
		h := newTestHandler(&fakeJourneyService{}, http_server.Config{UseRateLimit: true, RateLimit: 0.001, RateBurst: 2})
		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			codes = append(codes, do(h, http.MethodGet, "/api/state", "").Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})

	t.Run("real ip", func(t *testing.T) {
		var got string
		h := RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { got = r.RemoteAddr }))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		h.ServeHTTP(httptest.NewRecorder(), r)
		assert.Equal(t, "203.0.113.7", got)

		r = httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Real-IP", "198.51.100.2")
		h.ServeHTTP(httptest.NewRecorder(), r)
		assert.Equal(t, "198.51.100.2", got)
	})
}
