package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aircast/aircast/internal/airquality"
	"github.com/aircast/aircast/internal/api/handler"
	"github.com/aircast/aircast/internal/api/models"
)

type fakeGeocoder struct {
	places    []airquality.Place
	err       error
	gotQuery  string
	gotLimit  int
	callCount int
}

func (g *fakeGeocoder) Geocode(_ context.Context, query string, limit int) ([]airquality.Place, error) {
	g.callCount++
	g.gotQuery = query
	g.gotLimit = limit
	return g.places, g.err
}

func TestGeocodeHandler_Search(t *testing.T) {
	geocoder := &fakeGeocoder{places: []airquality.Place{
		{Name: "London", State: "England", Country: "GB", Lat: 51.5073, Lon: -0.1276},
	}}
	h := handler.NewGeocodeHandler(geocoder, zerolog.Nop())

	rec := serve(h.Search, "/v1/geocode?q=London")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "London", geocoder.gotQuery)
	assert.Equal(t, 1, geocoder.gotLimit, "limit defaults to 1")

	var body models.PlaceList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "London", body.Query)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "GB", body.Items[0].Country)
	assert.Equal(t, "England", body.Items[0].State)
	assert.InDelta(t, 51.5073, body.Items[0].Lat, 1e-9)
}

func TestGeocodeHandler_PassesLimit(t *testing.T) {
	geocoder := &fakeGeocoder{places: []airquality.Place{{Name: "Springfield"}}}
	h := handler.NewGeocodeHandler(geocoder, zerolog.Nop())

	rec := serve(h.Search, "/v1/geocode?q=Springfield&limit=5")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, geocoder.gotLimit)
}

func TestGeocodeHandler_Validation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		field  string
	}{
		{name: "missing query", target: "/v1/geocode", field: "q"},
		{name: "blank query", target: "/v1/geocode?q=%20%20", field: "q"},
		{name: "limit too high", target: "/v1/geocode?q=Paris&limit=6", field: "limit"},
		{name: "limit zero", target: "/v1/geocode?q=Paris&limit=0", field: "limit"},
		{name: "limit not a number", target: "/v1/geocode?q=Paris&limit=x", field: "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geocoder := &fakeGeocoder{}
			h := handler.NewGeocodeHandler(geocoder, zerolog.Nop())

			rec := serve(h.Search, tt.target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			p := decodeProblem(t, rec)
			require.Len(t, p.Errors, 1)
			assert.Equal(t, tt.field, p.Errors[0].Field)
			assert.Zero(t, geocoder.callCount)
		})
	}
}

func TestGeocodeHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		geocoder *fakeGeocoder
		status   int
	}{
		{name: "no match", geocoder: &fakeGeocoder{}, status: http.StatusNotFound},
		{name: "not configured", geocoder: &fakeGeocoder{err: airquality.ErrNotConfigured}, status: http.StatusInternalServerError},
		{name: "upstream failure", geocoder: &fakeGeocoder{err: fmt.Errorf("%w: timeout", airquality.ErrProviderUnavailable)}, status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewGeocodeHandler(tt.geocoder, zerolog.Nop())

			rec := serve(h.Search, "/v1/geocode?q=Atlantis")

			assert.Equal(t, tt.status, rec.Code)
			decodeProblem(t, rec)
		})
	}
}
