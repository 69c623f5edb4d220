package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/lintang-b-s/drivesim/pkg/util"
	"go.uber.org/zap"
)

type envelope map[string]any

const maxBodyBytes = 1 << 20

func (api *journeyAPI) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// readJSON decodes a single JSON object from the body. An empty body leaves dst untouched.
func (api *journeyAPI) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		}
		return fmt.Errorf("body contains badly-formed JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

// ErrorResponse writes {"error": {"code", "message"}} with status.
func ErrorResponse(w http.ResponseWriter, status int, message string) {
	var resp errorResponse
	resp.Error.Code = http.StatusText(status)
	resp.Error.Message = message

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (api *journeyAPI) BadRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, http.StatusBadRequest, err.Error())
}

func (api *journeyAPI) NotFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, http.StatusNotFound, err.Error())
}

func (api *journeyAPI) ServerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.log.Error("server error", zap.Error(err), zap.String("method", r.Method), zap.String("path", r.URL.Path))
	ErrorResponse(w, http.StatusInternalServerError, util.MessageInternalServerError)
}

// getStatusCode maps a coded service error to its HTTP response.
func (api *journeyAPI) getStatusCode(w http.ResponseWriter, r *http.Request, err error) {
	var ierr *util.Error
	if !errors.As(err, &ierr) {
		api.ServerErrorResponse(w, r, err)
		return
	}

	switch ierr.Code() {
	case util.ErrBadParamInput:
		api.BadRequestResponse(w, r, err)
	case util.ErrNotFound:
		api.NotFoundResponse(w, r, err)
	case util.ErrConflict:
		ErrorResponse(w, http.StatusConflict, err.Error())
	default:
		api.ServerErrorResponse(w, r, err)
	}
}
