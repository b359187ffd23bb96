package domain

import "strconv"

// Rooms are derived labels, never stored: membership is always computed
// from registry state at send time.

// UserRoom returns the personal room label for a user id.
func UserRoom(userID int) string {
	return "user_" + strconv.Itoa(userID)
}

// RoleRoomFor returns the role room label for a role.
func RoleRoomFor(role Role) string {
	return "role_" + string(role)
}
