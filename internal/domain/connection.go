package domain

import "time"

// Connection records a live authenticated connection. Owned by the
// connection registry; at most one entry exists per ConnectionID. A user
// may hold several concurrent connections (multiple tabs or devices).
type Connection struct {
	ConnectionID string
	UserID       int
	Username     string
	Role         Role
	ConnectedAt  time.Time
}

// PersonalRoom returns the room label targeting this connection's user.
func (c Connection) PersonalRoom() string {
	return UserRoom(c.UserID)
}

// RoleRoom returns the single role room this connection belongs to.
func (c Connection) RoleRoom() string {
	return RoleRoomFor(c.Role)
}
