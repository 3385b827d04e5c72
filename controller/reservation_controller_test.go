package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablebook/controller"
	"tablebook/events"
	"tablebook/events/mocks"
	"tablebook/model"
	"tablebook/testutil"
)

func createWithKey(t *testing.T, a api, token, key string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/reservations", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if key != "" {
		req.Header.Set(controller.IdempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateReservationValidation(t *testing.T) {
	a := newAPI(t, nil)
	alice := testutil.CreateUser(t, a.db, "alice", model.RoleUser)
	place := testutil.CreateRestaurant(t, a.db, "X")
	token := testutil.Token(t, a.tokens, alice)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing date", map[string]any{"restaurant_id": place.RestaurantID, "time": "18:30", "people_count": 2}, http.StatusBadRequest},
		{"zero people", map[string]any{"restaurant_id": place.RestaurantID, "date": "2025-06-01", "time": "18:30", "people_count": 0}, http.StatusBadRequest},
		{"negative people", map[string]any{"restaurant_id": place.RestaurantID, "date": "2025-06-01", "time": "18:30", "people_count": -3}, http.StatusBadRequest},
		{"non-numeric people", map[string]any{"restaurant_id": place.RestaurantID, "date": "2025-06-01", "time": "18:30", "people_count": "four"}, http.StatusBadRequest},
		{"bad time", map[string]any{"restaurant_id": place.RestaurantID, "date": "2025-06-01", "time": "6pm", "people_count": 2}, http.StatusBadRequest},
		{"unknown restaurant", map[string]any{"restaurant_id": 999, "date": "2025-06-01", "time": "18:30", "people_count": 2}, http.StatusNotFound},
		{"ignores status in body", map[string]any{"restaurant_id": place.RestaurantID, "date": "2025-06-01", "time": "18:30", "people_count": 2, "status": "confirmed"}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.Do(t, a.router, http.MethodPost, "/api/reservations", token, tt.body)
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusCreated {
				assert.Equal(t, model.StatusPending, testutil.Decode[model.Reservation](t, rec).Data.Status)
			}
		})
	}
}

func TestCreateReservationIdempotency(t *testing.T) {
	a := newAPI(t, nil)
	alice := testutil.CreateUser(t, a.db, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, a.db, "bob", model.RoleUser)
	place := testutil.CreateRestaurant(t, a.db, "X")
	body := map[string]any{"restaurant_id": place.RestaurantID, "date": "2025-06-01", "time": "18:30", "people_count": 4}

	first := createWithKey(t, a, testutil.Token(t, a.tokens, alice), "key-1", body)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := createWithKey(t, a, testutil.Token(t, a.tokens, alice), "key-1", body)
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	assert.Equal(t,
		testutil.Decode[model.Reservation](t, first).Data.ReservationID,
		testutil.Decode[model.Reservation](t, second).Data.ReservationID)

	other := createWithKey(t, a, testutil.Token(t, a.tokens, bob), "key-1", body)
	require.Equal(t, http.StatusCreated, other.Code)

	noKey := createWithKey(t, a, testutil.Token(t, a.tokens, alice), "", body)
	require.Equal(t, http.StatusCreated, noKey.Code)

	var count int64
	require.NoError(t, a.db.Model(&model.Reservation{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestUpdateReservationOwnership(t *testing.T) {
	a := newAPI(t, nil)
	alice := testutil.CreateUser(t, a.db, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, a.db, "bob", model.RoleUser)
	admin := testutil.CreateUser(t, a.db, "admin", model.RoleAdmin)
	place := testutil.CreateRestaurant(t, a.db, "X")
	r := testutil.CreateReservation(t, a.db, alice, place, model.StatusConfirmed)
	path := "/api/reservations/" + itoa(r.ReservationID)
	edit := map[string]any{"date": "2025-06-02", "time": "20:15:00", "people_count": 6}

	rec := testutil.Do(t, a.router, http.MethodPut, path, testutil.Token(t, a.tokens, bob), edit)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.Do(t, a.router, http.MethodGet, path, testutil.Token(t, a.tokens, bob), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.Do(t, a.router, http.MethodPut, path, testutil.Token(t, a.tokens, alice), edit)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := testutil.Decode[model.Reservation](t, rec).Data
	assert.Equal(t, "2025-06-02", got.Date)
	assert.Equal(t, "20:15", got.Time)
	assert.Equal(t, 6, got.PeopleCount)
	assert.Equal(t, model.StatusConfirmed, got.Status, "edits keep status")
	assert.Equal(t, uint(2), got.Version)

	rec = testutil.Do(t, a.router, http.MethodPut, path, testutil.Token(t, a.tokens, admin), map[string]any{
		"date": "2025-06-03", "time": "12:00", "people_count": 2,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.Do(t, a.router, http.MethodPut, path, testutil.Token(t, a.tokens, alice), map[string]any{
		"date": "2025-06-03", "time": "12:00", "people_count": -1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminUpdateOptimisticConcurrency(t *testing.T) {
	a := newAPI(t, nil)
	alice := testutil.CreateUser(t, a.db, "alice", model.RoleUser)
	admin := testutil.CreateUser(t, a.db, "admin", model.RoleAdmin)
	place := testutil.CreateRestaurant(t, a.db, "X")
	r := testutil.CreateReservation(t, a.db, alice, place, model.StatusPending)
	path := "/api/reservations/admin/" + itoa(r.ReservationID)
	token := testutil.Token(t, a.tokens, admin)

	rec := testutil.Do(t, a.router, http.MethodPut, path, token, map[string]any{
		"date": "2025-06-05", "time": "19:00", "people_count": 3, "version": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uint(2), testutil.Decode[model.Reservation](t, rec).Data.Version)

	rec = testutil.Do(t, a.router, http.MethodPut, path, token, map[string]any{
		"date": "2025-06-06", "time": "19:00", "people_count": 3, "version": 1,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var stored model.Reservation
	require.NoError(t, a.db.First(&stored, r.ReservationID).Error)
	assert.Equal(t, "2025-06-05", stored.Date)

	rec = testutil.Do(t, a.router, http.MethodPut, "/api/reservations/admin/999", token, map[string]any{
		"date": "2025-06-06", "time": "19:00", "people_count": 3,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteReservation(t *testing.T) {
	a := newAPI(t, nil)
	alice := testutil.CreateUser(t, a.db, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, a.db, "bob", model.RoleUser)
	admin := testutil.CreateUser(t, a.db, "admin", model.RoleAdmin)
	place := testutil.CreateRestaurant(t, a.db, "X")
	own := testutil.CreateReservation(t, a.db, alice, place, model.StatusPending)
	other := testutil.CreateReservation(t, a.db, bob, place, model.StatusPending)

	rec := testutil.Do(t, a.router, http.MethodDelete, "/api/reservations/"+itoa(other.ReservationID), testutil.Token(t, a.tokens, alice), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.Do(t, a.router, http.MethodDelete, "/api/reservations/"+itoa(own.ReservationID), testutil.Token(t, a.tokens, alice), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.Do(t, a.router, http.MethodDelete, "/api/reservations/"+itoa(other.ReservationID), testutil.Token(t, a.tokens, admin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.Do(t, a.router, http.MethodDelete, "/api/reservations/"+itoa(other.ReservationID), testutil.Token(t, a.tokens, admin), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = testutil.Do(t, a.router, http.MethodDelete, "/api/reservations/abc", testutil.Token(t, a.tokens, admin), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAllStatusFilter(t *testing.T) {
	a := newAPI(t, nil)
	alice := testutil.CreateUser(t, a.db, "alice", model.RoleUser)
	sub := testutil.CreateUser(t, a.db, "sub", model.RoleSubadmin)
	place := testutil.CreateRestaurant(t, a.db, "X")
	testutil.CreateReservation(t, a.db, alice, place, model.StatusPending)
	confirmed := testutil.CreateReservation(t, a.db, alice, place, model.StatusConfirmed)
	token := testutil.Token(t, a.tokens, sub)

	rec := testutil.Do(t, a.router, http.MethodGet, "/api/reservations/all?status=Confirmed", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := testutil.Decode[[]model.Reservation](t, rec).Data
	require.Len(t, got, 1)
	assert.Equal(t, confirmed.ReservationID, got[0].ReservationID)

	rec = testutil.Do(t, a.router, http.MethodGet, "/api/reservations/all?status=cancelled", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLifecycleEventsPublished(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	a := newAPI(t, publisher)
	alice := testutil.CreateUser(t, a.db, "alice", model.RoleUser)
	sub := testutil.CreateUser(t, a.db, "sub", model.RoleSubadmin)
	place := testutil.CreateRestaurant(t, a.db, "X")

	var seen []events.Event
	record := func(_ context.Context, ev events.Event) error {
		seen = append(seen, ev)
		return nil
	}
	gomock.InOrder(
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(record),
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev events.Event) error {
			seen = append(seen, ev)
			return errors.New("broker down")
		}),
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(record),
	)

	rec := testutil.Do(t, a.router, http.MethodPost, "/api/reservations", testutil.Token(t, a.tokens, alice), map[string]any{
		"restaurant_id": place.RestaurantID, "date": "2025-06-01", "time": "18:30", "people_count": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := testutil.Decode[model.Reservation](t, rec).Data.ReservationID

	rec = testutil.Do(t, a.router, http.MethodPatch, "/api/reservations/"+itoa(id)+"/decline", testutil.Token(t, a.tokens, sub), nil)
	require.Equal(t, http.StatusOK, rec.Code, "publish failures must not fail the request")

	rec = testutil.Do(t, a.router, http.MethodDelete, "/api/reservations/"+itoa(id), testutil.Token(t, a.tokens, alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, seen, 3)
	assert.Equal(t, events.ReservationCreated, seen[0].Type)
	assert.Equal(t, model.StatusPending, seen[0].Status)
	assert.Equal(t, events.ReservationDeclined, seen[1].Type)
	assert.Equal(t, model.StatusDeclined, seen[1].Status)
	assert.Equal(t, sub.UserID, seen[1].ActorID)
	assert.Equal(t, events.ReservationDeleted, seen[2].Type)
	for _, ev := range seen {
		assert.Equal(t, id, ev.ReservationID)
	}
}
