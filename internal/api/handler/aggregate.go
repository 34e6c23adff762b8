// Package handler provides HTTP handlers for the AirWatch backend.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/api/models"
	"github.com/breatheroute/airwatch/internal/api/response"
	"github.com/breatheroute/airwatch/internal/geo"
)

// Aggregator builds the aggregate payload for a coordinate.
type Aggregator interface {
	Aggregate(ctx context.Context, coord geo.Coordinate) *aggregate.Payload
}

// AggregateHandler serves the combined air quality and weather payload.
type AggregateHandler struct {
	aggregator Aggregator
}

// NewAggregateHandler creates a new AggregateHandler.
func NewAggregateHandler(aggregator Aggregator) *AggregateHandler {
	return &AggregateHandler{aggregator: aggregator}
}

// GetAggregate handles GET /api/aggregate?lat=&lon=. A missing parameter
// falls back to the default coordinate; a malformed one is a 400.
func (h *AggregateHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	coord, err := coordinateFromQuery(r)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, h.aggregator.Aggregate(r.Context(), coord))
}

func coordinateFromQuery(r *http.Request) (geo.Coordinate, error) {
	q := r.URL.Query()
	latText := strings.TrimSpace(q.Get("lat"))
	lonText := strings.TrimSpace(q.Get("lon"))

	if latText == "" {
		latText = formatDegrees(geo.Default.Lat)
	}
	if lonText == "" {
		lonText = formatDegrees(geo.Default.Lon)
	}
	return geo.ParseCoordinate(latText, lonText)
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *geo.ValidationError
	if errors.As(err, &verr) {
		response.BadRequest(w, r, verr.Error(), []models.FieldError{
			{Field: verr.Field, Message: verr.Reason, Code: "invalid_coordinate"},
		})
		return
	}
	response.BadRequest(w, r, err.Error(), nil)
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
