package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/store"
)

func TestStoreSettings(t *testing.T) {
	e := newTestEnv(t)
	e.store.settings = &store.Settings{
		SupplierID:   testSupplier,
		IsOpen:       true,
		OpeningTime:  "08:00",
		ClosingTime:  "18:30",
		TotalRatings: 9,
		RatingCount:  2,
		UpdatedAt:    testNow,
	}

	rec := e.do(http.MethodGet, "/api/store/settings", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decodeBody(t, rec)["storeSettings"].(map[string]any)
	assert.Equal(t, true, st["isOpen"])
	assert.Equal(t, "Until 18:30", st["statusMessage"])
	assert.Equal(t, 4.5, st["rating"])
	assert.Equal(t, float64(2), st["ratingCount"])
}

func TestUpdateStoreSettings_BlankTimesIgnored(t *testing.T) {
	e := newTestEnv(t)
	e.store.settings = &store.Settings{OpeningTime: store.DefaultOpeningTime, ClosingTime: store.DefaultClosingTime}

	rec := e.do(http.MethodPut, "/api/store/settings", `{"isOpen":false,"openingTime":"","closingTime":"22:00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p := e.store.patch
	require.NotNil(t, p)
	require.NotNil(t, p.IsOpen)
	assert.False(t, *p.IsOpen)
	assert.Nil(t, p.OpeningTime)
	require.NotNil(t, p.ClosingTime)
	assert.Equal(t, "22:00", *p.ClosingTime)
	assert.Equal(t, "Store settings updated successfully", decodeBody(t, rec)["message"])
}

func TestRateStore(t *testing.T) {
	e := newTestEnv(t)
	e.store.settings = &store.Settings{TotalRatings: 14, RatingCount: 3}

	rec := e.do(http.MethodPost, "/api/store/rating", `{"rating":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, e.store.rated)

	st := decodeBody(t, rec)["storeSettings"].(map[string]any)
	assert.Equal(t, "4.7", st["rating"])
	assert.Equal(t, float64(3), st["ratingCount"])
}

func TestRateStore_Invalid(t *testing.T) {
	e := newTestEnv(t)
	e.store.err = apperr.Validationf("Please provide a valid rating between %d and %d", store.MinRating, store.MaxRating)

	rec := e.do(http.MethodPost, "/api/store/rating", `{"rating":9}`)
	requireError(t, rec, http.StatusBadRequest, "Please provide a valid rating between 1 and 5")
}
