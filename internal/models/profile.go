// internal/models/profile.go
package models

import "time"

// Role is the stored authorization role of a profile.
type Role string

const (
	RoleUser     Role = "user"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleReviewer || r == RoleAdmin
}

// UserProfile is keyed by the identity provider's user id.
type UserProfile struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Role     Role    `json:"role"`

	ProfileDetails

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProfileDetails struct {
	DateOfBirth     *string `json:"date_of_birth,omitempty"`
	Gender          *string `json:"gender,omitempty"`
	Nationality     *string `json:"nationality,omitempty"`
	Address         *string `json:"address,omitempty"`
	City            *string `json:"city,omitempty"`
	PostalCode      *string `json:"postal_code,omitempty"`
	LinkedInProfile *string `json:"linkedin_profile,omitempty"`
	Website         *string `json:"website,omitempty"`
}
