package controller_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tablebook/model"
	"tablebook/testutil"
)

func TestExportReservations(t *testing.T) {
	a := newAPI(t, nil)
	alice := testutil.CreateUser(t, a.db, "alice", model.RoleUser)
	sub := testutil.CreateUser(t, a.db, "sub", model.RoleSubadmin)
	place := testutil.CreateRestaurant(t, a.db, "X")
	r := testutil.CreateReservation(t, a.db, alice, place, model.StatusConfirmed)

	rec := testutil.Do(t, a.router, http.MethodGet, "/api/reservations/export", testutil.Token(t, a.tokens, alice), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.Do(t, a.router, http.MethodGet, "/api/reservations/export", testutil.Token(t, a.tokens, sub), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	xl, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows("Reservations")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Reservation ID", rows[0][0])
	got := rows[1]
	assert.Equal(t, itoa(r.ReservationID), got[0])
	assert.Equal(t, "alice", got[2])
	assert.Equal(t, "alice@example.com", got[3])
	assert.Equal(t, "X", got[5])
	assert.Equal(t, "2025-06-01", got[6])
	assert.Equal(t, "18:30", got[7])
	assert.Equal(t, "4", got[8])
	assert.Equal(t, "confirmed", got[9])
}
