package models

import "time"

// Profile holds the optional booking details attached to a user. It shares
// the user's internal id and cannot exist without the user record. Every
// field is independently optional; whether a field is required for booking
// is a downstream concern.
type Profile struct {
	UserID               int64      `json:"-"`
	Phone                *string    `json:"phone,omitempty"`
	DateOfBirth          *time.Time `json:"dateOfBirth,omitempty"`
	DrivingLicenseNumber *string    `json:"drivingLicenseNumber,omitempty"`
	PassportNumber       *string    `json:"passportNumber,omitempty"`
	PreferredLanguage    *string    `json:"preferredLanguage,omitempty"`
	CountryOfResidence   *string    `json:"countryOfResidence,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// ProfilePatch carries the fields supplied in a profile submission. Nil
// fields are left untouched by the upsert; GivenName and FamilyName apply to
// the user record's display fields rather than the profile row.
type ProfilePatch struct {
	GivenName            *string
	FamilyName           *string
	Phone                *string
	DateOfBirth          *time.Time
	DrivingLicenseNumber *string
	PassportNumber       *string
	PreferredLanguage    *string
	CountryOfResidence   *string
}
