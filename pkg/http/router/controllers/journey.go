package controllers

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	helper "github.com/lintang-b-s/drivesim/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

type journeyAPI struct {
	journeyService JourneyService
	log            *zap.Logger
}

func New(journeyService JourneyService, log *zap.Logger) *journeyAPI {
	return &journeyAPI{
		journeyService: journeyService,
		log:            log,
	}
}

func (api *journeyAPI) Routes(group *helper.RouteGroup) {
	group.POST("/journeys", api.newJourney)
	group.GET("/journeys/:id", api.journey)
	group.GET("/journey", api.currentJourney)
	group.POST("/drive/start", api.startDriving)
	group.POST("/drive/stop", api.stopDriving)
	group.GET("/state", api.state)
}

// newJourney godoc
//
//	@Summary		create a journey
//	@Description	stop the vehicle and bind a freshly generated route. origin and destination are random when omitted.
//	@Tags			journeys
//	@Accept			application/json
//	@Produce		application/json
//	@Param			body	body		newJourneyRequest	false	"journey endpoints"
//	@Success		201		{object}	journeyResponse
//	@Failure		400		{object}	errorResponse
//	@Failure		404		{object}	errorResponse
//	@Failure		500		{object}	errorResponse
//	@Router			/journeys [post]
func (api *journeyAPI) newJourney(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request newJourneyRequest
	if err := api.readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateStruct(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	journey, err := api.journeyService.NewJourney(request.Origin.toCoordinate(), request.Destination.toCoordinate())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/api/journeys/"+journey.ID)

	if err := api.writeJSON(w, http.StatusCreated, envelope{"data": NewJourneyResponse(journey)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

// journey godoc
//
//	@Summary	get a journey from the history
//	@Tags		journeys
//	@Produce	application/json
//	@Param		id	path		string	true	"journey id"
//	@Success	200	{object}	journeyResponse
//	@Failure	404	{object}	errorResponse
//	@Router		/journeys/{id} [get]
func (api *journeyAPI) journey(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id := p.ByName("id")
	if id == "" {
		api.BadRequestResponse(w, r, errors.New("journey id is required"))
		return
	}

	journey, err := api.journeyService.Journey(id)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewJourneyResponse(journey)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// currentJourney godoc
//
//	@Summary	get the journey bound to the vehicle
//	@Tags		journeys
//	@Produce	application/json
//	@Success	200	{object}	journeyResponse
//	@Failure	404	{object}	errorResponse
//	@Router		/journey [get]
func (api *journeyAPI) currentJourney(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	journey, err := api.journeyService.Current()
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewJourneyResponse(journey)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// startDriving godoc
//
//	@Summary	drive the current journey
//	@Tags		drive
//	@Produce	application/json
//	@Success	202	{object}	map[string]bool
//	@Failure	404	{object}	errorResponse
//	@Router		/drive/start [post]
func (api *journeyAPI) startDriving(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	started, err := api.journeyService.Start(r.Context())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	status := http.StatusAccepted
	if !started {
		status = http.StatusOK
	}
	if err := api.writeJSON(w, status, envelope{"data": map[string]bool{"started": started}}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// stopDriving godoc
//
//	@Summary	stop the vehicle and reset it to the start of the route
//	@Tags		drive
//	@Produce	application/json
//	@Success	200	{object}	stateResponse
//	@Router		/drive/stop [post]
func (api *journeyAPI) stopDriving(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	api.journeyService.Stop()

	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewStateResponse(api.journeyService.State())}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// state godoc
//
//	@Summary	latest vehicle snapshot
//	@Tags		drive
//	@Produce	application/json
//	@Success	200	{object}	stateResponse
//	@Router		/state [get]
func (api *journeyAPI) state(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewStateResponse(api.journeyService.State())}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}
