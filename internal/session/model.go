package session

import "time"

// Role is the closed set of principal roles the platform knows about.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch role := Role(s); role {
	case RolePatient, RoleDoctor, RoleAdmin:
		return role, true
	default:
		return "", false
	}
}

// Session is the authenticated state of one principal. It lives entirely in
// the credential cookie: every touch and refresh re-encodes and re-issues
// it, there is no server-side copy. LastActivityAt drives idle expiry;
// LastRefreshAt gates the refresh cadence independently of it.
type Session struct {
	SubjectID      string
	Role           Role
	IssuedAt       time.Time
	LastActivityAt time.Time
	LastRefreshAt  time.Time
}
