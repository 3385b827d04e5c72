package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablebook/client"
	"tablebook/model"
	"tablebook/testutil"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestCanOpen(t *testing.T) {
	b := newBackend(t)
	sessions := map[model.Role]*client.Session{}
	for _, role := range []model.Role{model.RoleUser, model.RoleSubadmin, model.RoleAdmin} {
		sessions[role] = b.login(t, testutil.CreateUser(t, b.db, string(role), role))
	}

	tests := []struct {
		screen client.Screen
		want   map[model.Role]bool
	}{
		{client.ScreenHome, map[model.Role]bool{model.RoleUser: true, model.RoleSubadmin: true, model.RoleAdmin: true}},
		{client.ScreenMakeReservation, map[model.Role]bool{model.RoleUser: true, model.RoleSubadmin: true, model.RoleAdmin: true}},
		{client.ScreenAdminDashboard, map[model.Role]bool{model.RoleAdmin: true}},
		{client.ScreenEditUser, map[model.Role]bool{model.RoleAdmin: true}},
		{client.ScreenSubadminDashboard, map[model.Role]bool{model.RoleSubadmin: true, model.RoleAdmin: true}},
		{client.Screen("settings"), map[model.Role]bool{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.screen), func(t *testing.T) {
			for role, sess := range sessions {
				assert.Equal(t, tt.want[role], sess.CanOpen(tt.screen), role)
			}
		})
	}

	var none *client.Session
	assert.False(t, none.CanOpen(client.ScreenHome))
}

func TestReservationFormValidate(t *testing.T) {
	tests := []struct {
		name string
		form client.ReservationForm
		want error
	}{
		{"complete", client.ReservationForm{RestaurantID: "3", Date: "2025-06-01", Time: "18:30", PeopleCount: " 4 "}, nil},
		{"all blank", client.ReservationForm{}, client.ErrIncompleteForm},
		{"whitespace time", client.ReservationForm{RestaurantID: "3", Date: "2025-06-01", Time: "  ", PeopleCount: "4"}, client.ErrIncompleteForm},
		{"no restaurant picked", client.ReservationForm{RestaurantID: "0", Date: "2025-06-01", Time: "18:30", PeopleCount: "4"}, client.ErrIncompleteForm},
		{"decimal people", client.ReservationForm{RestaurantID: "3", Date: "2025-06-01", Time: "18:30", PeopleCount: "2.5"}, client.ErrInvalidPeopleCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, "Please fill in all fields", client.ErrIncompleteForm.Error())
	assert.Equal(t, "Please enter a valid number of people", client.ErrInvalidPeopleCount.Error())
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Failed to fetch restaurants"}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.Options{
		Logger:           testutil.Logger(),
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Register(ctx, "a", "a@example.com", "pw")
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Failed to fetch restaurants", apiErr.Message)
	}
	_, err := c.Register(ctx, "a", "a@example.com", "pw")
	assert.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, int64(2), hits.Load())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"error":"Email is already registered"}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.Options{Logger: testutil.Logger(), FailureThreshold: 2})
	for i := 0; i < 5; i++ {
		_, err := c.Register(context.Background(), "a", "a@example.com", "pw")
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusConflict, apiErr.Status)
	}
	assert.Equal(t, int64(5), hits.Load())
}
