package handler

import (
	"net/http"
	"time"

	"github.com/xenking/instasupply/internal/domain/store"
)

type storeSettingsRequest struct {
	IsOpen      *bool   `json:"isOpen"`
	OpeningTime *string `json:"openingTime"`
	ClosingTime *string `json:"closingTime"`
}

type storeRatingRequest struct {
	Rating int `json:"rating"`
}

type storeSettingsResponse struct {
	IsOpen        bool      `json:"isOpen"`
	OpeningTime   string    `json:"openingTime"`
	ClosingTime   string    `json:"closingTime"`
	StatusMessage string    `json:"statusMessage"`
	Rating        float64   `json:"rating"`
	TotalRatings  int64     `json:"totalRatings"`
	RatingCount   int64     `json:"ratingCount"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type storeSettingsEnvelope struct {
	Success       bool                  `json:"success"`
	Message       string                `json:"message,omitempty"`
	StoreSettings storeSettingsResponse `json:"storeSettings"`
}

type storeRating struct {
	Rating      string `json:"rating"`
	RatingCount int64  `json:"ratingCount"`
}

type storeRatingEnvelope struct {
	Success       bool        `json:"success"`
	Message       string      `json:"message"`
	StoreSettings storeRating `json:"storeSettings"`
}

func domainToStoreSettings(s *store.Settings) storeSettingsResponse {
	return storeSettingsResponse{
		IsOpen:        s.IsOpen,
		OpeningTime:   s.OpeningTime,
		ClosingTime:   s.ClosingTime,
		StatusMessage: s.StatusMessage(),
		Rating:        s.Rating().InexactFloat64(),
		TotalRatings:  s.TotalRatings,
		RatingCount:   s.RatingCount,
		UpdatedAt:     s.UpdatedAt,
	}
}

// GetStoreSettings returns the storefront settings, creating the defaults on
// first access.
func (h *Handler) GetStoreSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Settings(r.Context(), supplierID(r))
	if err != nil {
		handleError(w, r, err, "Failed to fetch store settings. Please try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, storeSettingsEnvelope{Success: true, StoreSettings: domainToStoreSettings(st)})
}

// UpdateStoreSettings changes the open flag and opening hours.
func (h *Handler) UpdateStoreSettings(w http.ResponseWriter, r *http.Request) {
	var req storeSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	st, err := h.store.UpdateSettings(r.Context(), supplierID(r), store.Patch{
		IsOpen:      req.IsOpen,
		OpeningTime: blankToNil(req.OpeningTime),
		ClosingTime: blankToNil(req.ClosingTime),
	})
	if err != nil {
		handleError(w, r, err, "Failed to update store settings. Please try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, storeSettingsEnvelope{
		Success:       true,
		Message:       "Store settings updated successfully",
		StoreSettings: domainToStoreSettings(st),
	})
}

// RateStore records one rating of the supplier's store.
func (h *Handler) RateStore(w http.ResponseWriter, r *http.Request) {
	var req storeRatingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	st, err := h.store.Rate(r.Context(), supplierID(r), req.Rating)
	if err != nil {
		handleError(w, r, err, "Failed to update rating. Please try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, storeRatingEnvelope{
		Success: true,
		Message: "Rating updated successfully",
		StoreSettings: storeRating{
			Rating:      st.Rating().StringFixed(1),
			RatingCount: st.RatingCount,
		},
	})
}

// blankToNil treats an empty string like an absent field.
func blankToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
