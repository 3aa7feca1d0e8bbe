package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleBroker Role = "broker"
)

// Identity is the signed-in back-office user.
type Identity struct {
	Subject    string    `json:"subject"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	Role       Role      `json:"role"`
	SignedInAt time.Time `json:"signedInAt"`
}

// Session binds an identity to an opaque bearer id.
type Session struct {
	ID           string    `json:"id"`
	Identity     Identity  `json:"identity"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// DashboardSection is a navigation entry of the back-office.
type DashboardSection string

const (
	SectionOverview DashboardSection = "overview"
	SectionCRM      DashboardSection = "crm"
	SectionClients  DashboardSection = "clients"
	SectionFinance  DashboardSection = "finance"
)

var sectionRoles = map[DashboardSection][]Role{
	SectionOverview: {RoleAdmin, RoleBroker},
	SectionCRM:      {RoleAdmin, RoleBroker},
	SectionClients:  {RoleAdmin, RoleBroker},
	SectionFinance:  {RoleAdmin},
}

// SectionsFor lists the sections a role may open, in menu order.
func SectionsFor(role Role) []DashboardSection {
	var out []DashboardSection
	for _, s := range []DashboardSection{SectionOverview, SectionCRM, SectionClients, SectionFinance} {
		for _, r := range sectionRoles[s] {
			if r == role {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
