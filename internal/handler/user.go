package handler

import (
	"net/http"
	"time"

	"github.com/xenking/instasupply/internal/domain/auth"
	"github.com/xenking/instasupply/internal/domain/profile"
)

type profileRequest struct {
	Name             *string                  `json:"name"`
	Phone            *string                  `json:"phone"`
	BusinessInfo     *auth.BusinessInfo       `json:"businessInfo"`
	Address          *auth.Address            `json:"address"`
	BusinessHours    map[string]auth.DayHours `json:"businessHours"`
	DeliverySettings *auth.DeliverySettings   `json:"deliverySettings"`
	Website          *string                  `json:"website"`
	AboutUs          *string                  `json:"aboutUs"`
	Specialties      []string                 `json:"specialties"`
}

type deliveryResponse struct {
	DeliveryRadius        float64 `json:"deliveryRadius"`
	DeliveryFee           float64 `json:"deliveryFee"`
	FreeDeliveryThreshold float64 `json:"freeDeliveryThreshold"`
	DeliveryTime          string  `json:"deliveryTime"`
}

type accountResponse struct {
	userResponse
	BusinessInfo     auth.BusinessInfo        `json:"businessInfo"`
	Address          auth.Address             `json:"address"`
	BusinessHours    map[string]auth.DayHours `json:"businessHours"`
	DeliverySettings deliveryResponse         `json:"deliverySettings"`
	Website          string                   `json:"website"`
	AboutUs          string                   `json:"aboutUs"`
	Specialties      []string                 `json:"specialties"`
	IsVerified       bool                     `json:"isVerified"`
	CreatedAt        time.Time                `json:"createdAt"`
	UpdatedAt        time.Time                `json:"updatedAt"`
}

type accountEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	User    accountResponse `json:"user"`
}

type contactInfo struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
}

type profileMetrics struct {
	Rating        float64   `json:"rating"`
	RatingCount   int64     `json:"ratingCount"`
	TotalSupplied int       `json:"totalSupplied"`
	JoinDate      time.Time `json:"joinDate"`
}

type profileInfo struct {
	Name             string                   `json:"name"`
	ProfileImage     string                   `json:"profileImage"`
	BusinessInfo     auth.BusinessInfo        `json:"businessInfo"`
	BusinessType     string                   `json:"businessType"`
	ContactInfo      contactInfo              `json:"contactInfo"`
	Address          auth.Address             `json:"address"`
	BusinessHours    map[string]auth.DayHours `json:"businessHours"`
	DeliverySettings deliveryResponse         `json:"deliverySettings"`
	AboutUs          string                   `json:"aboutUs"`
	Specialties      []string                 `json:"specialties"`
	Badges           []string                 `json:"badges"`
	Metrics          profileMetrics           `json:"metrics"`
}

type profileInfoResponse struct {
	Success bool        `json:"success"`
	Profile profileInfo `json:"profile"`
}

func domainToDelivery(d auth.DeliverySettings) deliveryResponse {
	return deliveryResponse{
		DeliveryRadius:        d.RadiusKM.InexactFloat64(),
		DeliveryFee:           d.Fee.InexactFloat64(),
		FreeDeliveryThreshold: d.FreeDeliveryThreshold.InexactFloat64(),
		DeliveryTime:          d.DeliveryTime,
	}
}

func nonNilHours(h map[string]auth.DayHours) map[string]auth.DayHours {
	if h == nil {
		return map[string]auth.DayHours{}
	}
	return h
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (h *Handler) domainToAccount(s *auth.Supplier) accountResponse {
	p := s.Profile
	return accountResponse{
		userResponse: userResponse{
			ID:           s.ID,
			Name:         s.Name,
			Email:        s.Email,
			Phone:        s.Phone,
			ProfileImage: h.imageURL(s.ProfileImage),
		},
		BusinessInfo:     p.BusinessInfo,
		Address:          p.Address,
		BusinessHours:    nonNilHours(p.BusinessHours),
		DeliverySettings: domainToDelivery(p.Delivery),
		Website:          p.Website,
		AboutUs:          p.AboutUs,
		Specialties:      nonNilStrings(p.Specialties),
		IsVerified:       s.Verified(),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// Me returns the signed-in supplier account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	s, err := h.profiles.Me(r.Context(), supplierID(r))
	if err != nil {
		handleError(w, r, err, "Failed to fetch user information. Please try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, accountEnvelope{Success: true, User: h.domainToAccount(s)})
}

// UpdateProfile changes the account name, phone and business profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	s, err := h.profiles.Update(r.Context(), supplierID(r), profile.Input{
		Name:          req.Name,
		Phone:         req.Phone,
		BusinessInfo:  req.BusinessInfo,
		Address:       req.Address,
		BusinessHours: req.BusinessHours,
		Delivery:      req.DeliverySettings,
		Website:       req.Website,
		AboutUs:       req.AboutUs,
		Specialties:   req.Specialties,
	})
	if err != nil {
		handleError(w, r, err, "Failed to update profile. Please check your information and try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, accountEnvelope{
		Success: true,
		Message: "Profile updated successfully",
		User:    h.domainToAccount(s),
	})
}

// ProfileInfo returns the public business profile with derived metrics.
func (h *Handler) ProfileInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.profiles.Info(r.Context(), supplierID(r))
	if err != nil {
		handleError(w, r, err, "Failed to fetch profile information. Please try again.")
		return
	}
	s := info.Supplier
	p := s.Profile
	writeJSON(w, r, http.StatusOK, profileInfoResponse{
		Success: true,
		Profile: profileInfo{
			Name:         s.Name,
			ProfileImage: h.imageURL(s.ProfileImage),
			BusinessInfo: p.BusinessInfo,
			BusinessType: p.BusinessInfo.BusinessType,
			ContactInfo: contactInfo{
				Email:   s.Email,
				Phone:   s.Phone,
				Website: p.Website,
			},
			Address:          p.Address,
			BusinessHours:    nonNilHours(p.BusinessHours),
			DeliverySettings: domainToDelivery(p.Delivery),
			AboutUs:          p.AboutUs,
			Specialties:      nonNilStrings(p.Specialties),
			Badges:           info.Badges,
			Metrics: profileMetrics{
				Rating:        info.Metrics.Rating.InexactFloat64(),
				RatingCount:   info.Metrics.RatingCount,
				TotalSupplied: info.Metrics.TotalSupplied,
				JoinDate:      info.Metrics.JoinDate,
			},
		},
	})
}
