package models

import "time"

// Role defines what a connected party may do in the classroom.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// Session binds a live connection to a display name and role.
type Session struct {
	ConnectionID string    `json:"connection_id"`
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	JoinedAt     time.Time `json:"joined_at"`
}

// IsModerator reports whether the session may create polls and kick participants.
func (s *Session) IsModerator() bool {
	return s != nil && s.Role == RoleTeacher
}
