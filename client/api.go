package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"tablebook/model"
)

const idempotencyHeader = "Idempotency-Key"

// Login exchanges credentials for a new Session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	if blank(email) || blank(password) {
		return nil, ErrIncompleteForm
	}
	body, err := c.do(ctx, nil, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		tokenResponse
		User model.User `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode login response")
	}
	creds, err := resp.credentials()
	if err != nil {
		return nil, err
	}
	return newSession(creds, resp.User), nil
}

// Refresh trades the session's refresh token for a new token pair. A
// rejected refresh token ends the session like any other 401.
func (c *Client) Refresh(ctx context.Context, sess *Session) error {
	if !sess.Valid() {
		return ErrSessionInvalid
	}
	body, err := c.do(ctx, sess, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refresh_token": sess.tokens().refreshToken,
	}, nil)
	if err != nil {
		return err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return errors.Wrap(err, "decode refresh response")
	}
	creds, err := resp.credentials()
	if err != nil {
		return err
	}
	sess.creds.Store(&creds)
	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (r tokenResponse) credentials() (credentials, error) {
	if r.AccessToken == "" {
		return credentials{}, errors.New("auth response has no token")
	}
	return credentials{
		accessToken:  r.AccessToken,
		refreshToken: r.RefreshToken,
		expiresAt:    time.Now().Add(time.Duration(r.ExpiresIn) * time.Second),
	}, nil
}

// Logout ends sess locally; the server keeps no session state.
func (c *Client) Logout(sess *Session) {
	sess.invalidate()
}

func (c *Client) Register(ctx context.Context, name, email, password string) (model.User, error) {
	if blank(name) || blank(email) || blank(password) {
		return model.User{}, ErrIncompleteForm
	}
	var user model.User
	err := c.call(ctx, nil, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &user)
	return user, err
}

type ProfileChanges struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

func (c *Client) Profile(ctx context.Context, sess *Session) (model.User, error) {
	var user model.User
	err := c.call(ctx, sess, http.MethodGet, "/api/users/profile", nil, &user)
	return user, err
}

func (c *Client) UpdateProfile(ctx context.Context, sess *Session, changes ProfileChanges) (model.User, error) {
	var user model.User
	if err := c.call(ctx, sess, http.MethodPut, "/api/users/profile", changes, &user); err != nil {
		return model.User{}, err
	}
	sess.setUser(user)
	return user, nil
}

func (c *Client) ListRestaurants(ctx context.Context, sess *Session) ([]model.Restaurant, error) {
	var restaurants []model.Restaurant
	err := c.call(ctx, sess, http.MethodGet, "/api/restaurants", nil, &restaurants)
	return restaurants, err
}

// ListReservations returns the caller's own reservations.
func (c *Client) ListReservations(ctx context.Context, sess *Session) ([]model.Reservation, error) {
	var reservations []model.Reservation
	err := c.call(ctx, sess, http.MethodGet, "/api/reservations", nil, &reservations)
	return reservations, err
}

// ListAllReservations is the staff view; status may be empty for no filter.
func (c *Client) ListAllReservations(ctx context.Context, sess *Session, status model.Status) ([]model.Reservation, error) {
	path := "/api/reservations/all"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}
	var reservations []model.Reservation
	err := c.call(ctx, sess, http.MethodGet, path, nil, &reservations)
	return reservations, err
}

func (c *Client) GetReservation(ctx context.Context, sess *Session, id uint) (model.Reservation, error) {
	var r model.Reservation
	err := c.call(ctx, sess, http.MethodGet, reservationPath(id), nil, &r)
	return r, err
}

// CreateReservation validates form locally and sends nothing when it is
// invalid. An empty key gets a fresh one, so pass the same key when
// resubmitting after an ambiguous failure.
func (c *Client) CreateReservation(ctx context.Context, sess *Session, form ReservationForm, key string) (model.Reservation, error) {
	in, err := form.input()
	if err != nil {
		return model.Reservation{}, err
	}
	if key == "" {
		key = uuid.NewString()
	}
	body, err := c.do(ctx, sess, http.MethodPost, "/api/reservations", in, http.Header{idempotencyHeader: {key}})
	if err != nil {
		return model.Reservation{}, err
	}
	var r model.Reservation
	err = decodeData(body, &r)
	return r, err
}

// UpdateReservation edits date, time and party size. A non-zero version
// makes the server reject the edit if someone else changed it first.
func (c *Client) UpdateReservation(ctx context.Context, sess *Session, id uint, form ReservationForm, version uint) (model.Reservation, error) {
	return c.updateReservation(ctx, sess, reservationPath(id), form, version)
}

func (c *Client) AdminUpdateReservation(ctx context.Context, sess *Session, id uint, form ReservationForm, version uint) (model.Reservation, error) {
	return c.updateReservation(ctx, sess, "/api/reservations/admin/"+strconv.FormatUint(uint64(id), 10), form, version)
}

func (c *Client) updateReservation(ctx context.Context, sess *Session, path string, form ReservationForm, version uint) (model.Reservation, error) {
	in, err := form.update(version)
	if err != nil {
		return model.Reservation{}, err
	}
	var r model.Reservation
	err = c.call(ctx, sess, http.MethodPut, path, in, &r)
	return r, err
}

func (c *Client) DeleteReservation(ctx context.Context, sess *Session, id uint) error {
	return c.call(ctx, sess, http.MethodDelete, reservationPath(id), nil, nil)
}

func (c *Client) ConfirmReservation(ctx context.Context, sess *Session, id uint) (model.Reservation, error) {
	var r model.Reservation
	err := c.call(ctx, sess, http.MethodPatch, reservationPath(id)+"/confirm", nil, &r)
	return r, err
}

func (c *Client) DeclineReservation(ctx context.Context, sess *Session, id uint) (model.Reservation, error) {
	var r model.Reservation
	err := c.call(ctx, sess, http.MethodPatch, reservationPath(id)+"/decline", nil, &r)
	return r, err
}

func (c *Client) ListUsers(ctx context.Context, sess *Session) ([]model.User, error) {
	var users []model.User
	err := c.call(ctx, sess, http.MethodGet, "/api/users", nil, &users)
	return users, err
}

type UserChanges struct {
	Name  string     `json:"name,omitempty"`
	Email string     `json:"email,omitempty"`
	Role  model.Role `json:"role,omitempty"`
}

func (c *Client) UpdateUser(ctx context.Context, sess *Session, id uint, changes UserChanges) (model.User, error) {
	var user model.User
	err := c.call(ctx, sess, http.MethodPut, userPath(id), changes, &user)
	return user, err
}

func (c *Client) DeleteUser(ctx context.Context, sess *Session, id uint) error {
	return c.call(ctx, sess, http.MethodDelete, userPath(id), nil, nil)
}

func reservationPath(id uint) string {
	return "/api/reservations/" + strconv.FormatUint(uint64(id), 10)
}

func userPath(id uint) string {
	return "/api/users/" + strconv.FormatUint(uint64(id), 10)
}
