package client

import (
	"sync/atomic"
	"time"

	"tablebook/model"
)

// Session is the authenticated state returned by Login. It is passed to
// every call explicitly and may be shared between goroutines. Logout or the
// first 401 from the server invalidates it for good.
type Session struct {
	creds   atomic.Pointer[credentials]
	user    atomic.Pointer[model.User]
	invalid atomic.Bool
}

type credentials struct {
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(creds credentials, user model.User) *Session {
	s := &Session{}
	s.creds.Store(&creds)
	s.setUser(user)
	return s
}

func (s *Session) User() model.User {
	if u := s.user.Load(); u != nil {
		return *u
	}
	return model.User{}
}

func (s *Session) setUser(u model.User) {
	s.user.Store(&u)
}

func (s *Session) Role() model.Role {
	return s.User().Role
}

// ExpiresAt is when the current access token stops being accepted.
func (s *Session) ExpiresAt() time.Time {
	return s.tokens().expiresAt
}

func (s *Session) tokens() credentials {
	if c := s.creds.Load(); c != nil {
		return *c
	}
	return credentials{}
}

func (s *Session) Valid() bool {
	return s != nil && !s.invalid.Load()
}

func (s *Session) invalidate() {
	if s != nil {
		s.invalid.Store(true)
	}
}

type Screen string

const (
	ScreenHome              Screen = "home"
	ScreenMakeReservation   Screen = "make_reservation"
	ScreenReservations      Screen = "reservations"
	ScreenEditReservation   Screen = "edit_reservation"
	ScreenProfile           Screen = "profile"
	ScreenAdminDashboard    Screen = "admin_dashboard"
	ScreenEditUser          Screen = "edit_user"
	ScreenSubadminDashboard Screen = "subadmin_dashboard"
)

// CanOpen reports whether navigation to screen should be offered. It is a
// convenience only; the server checks every request on its own.
func (s *Session) CanOpen(screen Screen) bool {
	if !s.Valid() {
		return false
	}
	role := s.Role()
	switch screen {
	case ScreenAdminDashboard, ScreenEditUser:
		return role.IsAdmin()
	case ScreenSubadminDashboard:
		return role.CanModerate()
	case ScreenHome, ScreenMakeReservation, ScreenReservations, ScreenEditReservation, ScreenProfile:
		return true
	}
	return false
}

// CanModerate reports whether confirm and decline should be offered for r.
// Status is read the way the server parses it, so an empty or differently
// cased pending status still counts.
func (s *Session) CanModerate(r model.Reservation) bool {
	if !s.Valid() || !s.Role().CanModerate() {
		return false
	}
	status, err := model.ParseStatus(string(r.Status))
	return err == nil && status == model.StatusPending
}
