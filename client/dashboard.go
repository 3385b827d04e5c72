package client

import (
	"context"

	"golang.org/x/sync/errgroup"

	"tablebook/model"
)

type Dashboard struct {
	Users        []model.User
	Reservations []model.Reservation
}

// AdminDashboard fetches users and all reservations concurrently. If either
// request fails the whole load fails and nothing partial is returned.
func (c *Client) AdminDashboard(ctx context.Context, sess *Session) (Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := c.ListUsers(ctx, sess)
		d.Users = users
		return err
	})
	g.Go(func() error {
		reservations, err := c.ListAllReservations(ctx, sess, "")
		d.Reservations = reservations
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
