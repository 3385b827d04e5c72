package model

import (
	"strings"
	"time"

	"go.uber.org/multierr"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
)

// ParseStatus maps any casing of a known status onto the canonical
// lowercase value. An empty status is treated as pending.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st == "" {
		return StatusPending, nil
	}
	switch st {
	case StatusPending, StatusConfirmed, StatusDeclined:
		return st, nil
	}
	return "", ErrUnknownStatus
}

type Action string

const (
	ActionConfirm Action = "confirm"
	ActionDecline Action = "decline"
)

// Target returns the status an action moves a pending reservation to.
func (a Action) Target() (Status, error) {
	switch a {
	case ActionConfirm:
		return StatusConfirmed, nil
	case ActionDecline:
		return StatusDeclined, nil
	}
	return "", ErrUnknownAction
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Reservation struct {
	ReservationID  uint      `json:"reservation_id" gorm:"primaryKey"`
	UserID         uint      `json:"user_id" gorm:"not null;index;uniqueIndex:idx_reservation_idempotency"`
	RestaurantID   uint      `json:"restaurant_id" gorm:"not null;index"`
	Date           string    `json:"date" gorm:"size:10;not null"`
	Time           string    `json:"time" gorm:"size:5;not null"`
	PeopleCount    int       `json:"people_count" gorm:"not null"`
	Status         Status    `json:"status" gorm:"size:16;not null;default:pending;index"`
	Version        uint      `json:"version" gorm:"not null;default:1"`
	IdempotencyKey *string   `json:"-" gorm:"size:64;uniqueIndex:idx_reservation_idempotency"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Transition applies a moderation action. Only pending reservations move;
// confirmed and declined are final.
func (r *Reservation) Transition(a Action) error {
	to, err := a.Target()
	if err != nil {
		return err
	}
	current, err := ParseStatus(string(r.Status))
	if err != nil {
		return err
	}
	if current != StatusPending {
		return ErrInvalidTransition
	}
	r.Status = to
	return nil
}

// ReservationInput is the body of a create request.
type ReservationInput struct {
	RestaurantID uint   `json:"restaurant_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	PeopleCount  int    `json:"people_count"`
}

// Validate normalizes Date and Time in place. Missing fields are reported
// alone; format problems are combined so the caller sees all of them.
func (in *ReservationInput) Validate() error {
	if in.RestaurantID == 0 || strings.TrimSpace(in.Date) == "" ||
		strings.TrimSpace(in.Time) == "" || in.PeopleCount == 0 {
		return ErrMissingFields
	}
	var err error
	in.Date, in.Time, err = validateSlot(in.Date, in.Time, in.PeopleCount)
	return err
}

// ReservationUpdate is the body of both the owner and the admin update
// paths. Version, when set, must match the stored row.
type ReservationUpdate struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	PeopleCount int    `json:"people_count"`
	Version     *uint  `json:"version,omitempty"`
}

func (in *ReservationUpdate) Validate() error {
	if strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.Time) == "" || in.PeopleCount == 0 {
		return ErrMissingFields
	}
	var err error
	in.Date, in.Time, err = validateSlot(in.Date, in.Time, in.PeopleCount)
	return err
}

func validateSlot(date, clock string, people int) (string, string, error) {
	var errs error
	d, err := NormalizeDate(date)
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	t, err := NormalizeTime(clock)
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	if people <= 0 {
		errs = multierr.Append(errs, ErrInvalidPeopleCount)
	}
	return d, t, errs
}

// NormalizeDate accepts a plain calendar date or an RFC 3339 timestamp and
// returns YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d.Format(DateLayout), nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.Format(DateLayout), nil
	}
	return "", ErrInvalidDate
}

// NormalizeTime accepts HH:MM or HH:MM:SS and returns HH:MM.
func NormalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout), nil
		}
	}
	return "", ErrInvalidTime
}
