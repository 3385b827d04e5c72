package model

import "errors"

var (
	ErrUnknownRole       = errors.New("unknown role")
	ErrUnknownStatus     = errors.New("unknown reservation status")
	ErrUnknownAction     = errors.New("unknown reservation action")
	ErrInvalidTransition = errors.New("reservation is not pending")

	ErrMissingFields      = errors.New("restaurant_id, date, time and people_count are required")
	ErrInvalidPeopleCount = errors.New("people_count must be a positive integer")
	ErrInvalidDate        = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidTime        = errors.New("time must be formatted as HH:MM (24h)")
)
