package client

import (
	"errors"
	"strconv"
	"strings"

	"tablebook/model"
)

var (
	ErrIncompleteForm     = errors.New("Please fill in all fields")
	ErrInvalidPeopleCount = errors.New("Please enter a valid number of people")
)

// ReservationForm holds booking input exactly as typed by the user.
type ReservationForm struct {
	RestaurantID string
	Date         string
	Time         string
	PeopleCount  string
}

func (f ReservationForm) Validate() error {
	_, err := f.input()
	return err
}

func (f ReservationForm) input() (model.ReservationInput, error) {
	if blank(f.RestaurantID) || blank(f.Date) || blank(f.Time) || blank(f.PeopleCount) {
		return model.ReservationInput{}, ErrIncompleteForm
	}
	restaurantID, err := strconv.ParseUint(strings.TrimSpace(f.RestaurantID), 10, 32)
	if err != nil || restaurantID == 0 {
		return model.ReservationInput{}, ErrIncompleteForm
	}
	people, err := parsePeople(f.PeopleCount)
	if err != nil {
		return model.ReservationInput{}, err
	}
	return model.ReservationInput{
		RestaurantID: uint(restaurantID),
		Date:         strings.TrimSpace(f.Date),
		Time:         strings.TrimSpace(f.Time),
		PeopleCount:  people,
	}, nil
}

// update ignores RestaurantID; a reservation cannot move between restaurants.
func (f ReservationForm) update(version uint) (model.ReservationUpdate, error) {
	if blank(f.Date) || blank(f.Time) || blank(f.PeopleCount) {
		return model.ReservationUpdate{}, ErrIncompleteForm
	}
	people, err := parsePeople(f.PeopleCount)
	if err != nil {
		return model.ReservationUpdate{}, err
	}
	u := model.ReservationUpdate{
		Date:        strings.TrimSpace(f.Date),
		Time:        strings.TrimSpace(f.Time),
		PeopleCount: people,
	}
	if version > 0 {
		u.Version = &version
	}
	return u, nil
}

func parsePeople(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, ErrInvalidPeopleCount
	}
	return n, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
