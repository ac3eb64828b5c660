package auth

import (
	"time"

	"github.com/shopspring/decimal"
)

// Weekdays are the keys of BusinessHours.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// BusinessInfo is the legal identity of a supplier's business.
type BusinessInfo struct {
	RegistrationNumber string     `json:"registrationNumber,omitempty"`
	TaxID              string     `json:"taxId,omitempty"`
	BusinessType       string     `json:"businessType,omitempty"`
	EstablishedDate    *time.Time `json:"establishedDate,omitempty"`
	FullBusinessName   string     `json:"fullBusinessName,omitempty"`
}

// Address is a postal address.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// DayHours are the opening hours of one weekday.
type DayHours struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	IsOpen bool   `json:"isOpen"`
}

// DeliverySettings describe how the supplier delivers.
type DeliverySettings struct {
	RadiusKM              decimal.Decimal `json:"deliveryRadius"`
	Fee                   decimal.Decimal `json:"deliveryFee"`
	FreeDeliveryThreshold decimal.Decimal `json:"freeDeliveryThreshold"`
	DeliveryTime          string          `json:"deliveryTime,omitempty"`
}

// Profile is the public business profile of a supplier. It is stored as one
// document next to the account.
type Profile struct {
	BusinessInfo  BusinessInfo        `json:"businessInfo"`
	Website       string              `json:"website,omitempty"`
	AboutUs       string              `json:"aboutUs,omitempty"`
	Specialties   []string            `json:"specialties,omitempty"`
	Address       Address             `json:"address"`
	BusinessHours map[string]DayHours `json:"businessHours,omitempty"`
	Delivery      DeliverySettings    `json:"deliverySettings"`
}

// ProfileUpdate replaces the profile and optionally the name and phone of a
// supplier. Nil pointers keep the current value.
type ProfileUpdate struct {
	Name      *string
	Phone     *string
	Profile   Profile
	UpdatedAt time.Time
}
