package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/pairs-server/internal/games"
	"github.com/vancomm/pairs-server/internal/pairs"
)

func SendJSON(w http.ResponseWriter, v any) (int, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	w.Header().Set("Content-Type", "application/json")
	return w.Write(payload)
}

func sendJSONOrLog(w http.ResponseWriter, logger logrus.FieldLogger, v any) {
	_, err := SendJSON(w, v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		logger.WithError(err).WithField("response", v).Error("unable to send response")
	}
}

func wrapError(err error) map[string]string {
	return map[string]string{
		"error": err.Error(),
	}
}

func sendError(w http.ResponseWriter, logger logrus.FieldLogger, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := SendJSON(w, wrapError(err)); err != nil {
		logger.WithError(err).Error("unable to send error")
	}
}

// statusFor maps domain errors to HTTP statuses. Anything unknown is a
// server error.
func statusFor(err error) int {
	var cmdErr *games.CommandError
	switch {
	case errors.Is(err, games.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, games.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, games.ErrInvalidTile),
		errors.Is(err, games.ErrUnknownDifficulty),
		errors.Is(err, pairs.ErrInvalidDimension),
		errors.Is(err, pairs.ErrAlphabetExhausted),
		errors.As(err, &cmdErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleError replies with the status matching err. Server errors are
// logged and their details are not sent.
func handleError(w http.ResponseWriter, logger logrus.FieldLogger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("request failed")
		w.WriteHeader(status)
		return
	}
	sendError(w, logger, status, err)
}
