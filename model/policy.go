package model

// Authorization rules for reservations. Handlers call these on every
// protected route; client-side checks only mirror them.

func CanViewReservation(actor User, r Reservation) bool {
	return actor.UserID == r.UserID || actor.Role.CanModerate()
}

// CanEditReservation covers the plain update path and delete.
func CanEditReservation(actor User, r Reservation) bool {
	return actor.UserID == r.UserID || actor.Role.IsAdmin()
}

func CanViewUser(actor User, userID uint) bool {
	return actor.UserID == userID || actor.Role.IsAdmin()
}
