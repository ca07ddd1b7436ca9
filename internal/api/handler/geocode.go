package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aircast/aircast/internal/airquality"
	"github.com/aircast/aircast/internal/api/models"
	"github.com/aircast/aircast/internal/api/response"
)

// GeocodeHandler resolves place names to coordinates.
type GeocodeHandler struct {
	geocoder airquality.Geocoder
	logger   zerolog.Logger
}

// NewGeocodeHandler creates a new GeocodeHandler.
func NewGeocodeHandler(geocoder airquality.Geocoder, logger zerolog.Logger) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder, logger: logger}
}

// Search handles GET /v1/geocode?q=&limit= - place name lookup.
func (h *GeocodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.GeocodeQuery{
		Q:     strings.TrimSpace(q.Get("q")),
		Limit: 1,
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			fieldErrors := []models.FieldError{{Field: "limit", Message: "must be an integer", Code: "INVALID_NUMBER"}}
			response.BadRequest(w, r, "invalid query: limit", fieldErrors)
			return
		}
		query.Limit = limit
	}
	if err := validate.Struct(query); err != nil {
		fieldErrors := toFieldErrors(err)
		response.BadRequest(w, r, "invalid query: "+fieldNames(fieldErrors), fieldErrors)
		return
	}

	places, err := h.geocoder.Geocode(r.Context(), query.Q, query.Limit)
	if err != nil {
		if errors.Is(err, airquality.ErrNotConfigured) {
			h.logger.Error().Err(err).Msg("geocoder not configured")
			response.InternalError(w, r, "geocoding provider is not configured")
			return
		}
		h.logger.Warn().Err(err).Str("query", query.Q).Msg("geocoding failed")
		response.BadGateway(w, r, "failed to geocode query")
		return
	}
	if len(places) == 0 {
		response.NotFound(w, r, "no place matches the query")
		return
	}

	list := models.PlaceList{Query: query.Q, Items: make([]models.Place, 0, len(places))}
	for _, p := range places {
		list.Items = append(list.Items, models.Place{
			Name:    p.Name,
			State:   p.State,
			Country: p.Country,
			Lat:     p.Lat,
			Lon:     p.Lon,
		})
	}
	response.JSON(w, r, http.StatusOK, list)
}
