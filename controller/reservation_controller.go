package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tablebook/events"
	"tablebook/model"
	"tablebook/utils"
)

const (
	IdempotencyHeader    = "Idempotency-Key"
	maxIdempotencyKeyLen = 64
)

type ReservationController struct {
	db        *gorm.DB
	publisher events.Publisher
	logger    *slog.Logger
}

func NewReservationController(db *gorm.DB, publisher events.Publisher, logger *slog.Logger) *ReservationController {
	return &ReservationController{db: db, publisher: publisher, logger: logger}
}

func (rc *ReservationController) ListOwn(c *gin.Context) {
	actor, _ := utils.CurrentUser(c)

	var reservations []model.Reservation
	err := rc.db.WithContext(c.Request.Context()).
		Where("user_id = ?", actor.UserID).
		Order("date, time, reservation_id").
		Find(&reservations).Error
	if err != nil {
		internalError(c, rc.logger, "Failed to fetch reservations", err)
		return
	}
	utils.RespondData(c, http.StatusOK, "", reservations)
}

// ListAll accepts an optional status filter in any casing.
func (rc *ReservationController) ListAll(c *gin.Context) {
	q := rc.db.WithContext(c.Request.Context()).Order("date, time, reservation_id")
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Status must be one of pending, confirmed, declined")
			return
		}
		q = q.Where("status = ?", status)
	}

	var reservations []model.Reservation
	if err := q.Find(&reservations).Error; err != nil {
		internalError(c, rc.logger, "Failed to fetch reservations", err)
		return
	}
	utils.RespondData(c, http.StatusOK, "", reservations)
}

func (rc *ReservationController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	r, ok := rc.load(c, id)
	if !ok {
		return
	}
	actor, _ := utils.CurrentUser(c)
	if !model.CanViewReservation(actor, r) {
		utils.RespondError(c, http.StatusForbidden, "You don't have permission to view this reservation")
		return
	}
	utils.RespondData(c, http.StatusOK, "", r)
}

// Create always starts a reservation as pending. A repeated Idempotency-Key
// from the same user returns the reservation created the first time.
func (rc *ReservationController) Create(c *gin.Context) {
	actor, _ := utils.CurrentUser(c)

	var in model.ReservationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var key *string
	if k := strings.TrimSpace(c.GetHeader(IdempotencyHeader)); k != "" {
		if len(k) > maxIdempotencyKeyLen {
			utils.RespondError(c, http.StatusBadRequest, "Idempotency-Key is too long")
			return
		}
		key = &k
		if existing, found, err := rc.findByKey(c, actor.UserID, k); err != nil {
			internalError(c, rc.logger, "Failed to create reservation", err)
			return
		} else if found {
			utils.RespondData(c, http.StatusOK, "Reservation already created", existing)
			return
		}
	}

	db := rc.db.WithContext(c.Request.Context())
	var restaurant model.Restaurant
	if err := db.First(&restaurant, in.RestaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Restaurant not found")
			return
		}
		internalError(c, rc.logger, "Failed to create reservation", err)
		return
	}

	r := model.Reservation{
		UserID:         actor.UserID,
		RestaurantID:   restaurant.RestaurantID,
		Date:           in.Date,
		Time:           in.Time,
		PeopleCount:    in.PeopleCount,
		Status:         model.StatusPending,
		Version:        1,
		IdempotencyKey: key,
	}
	if err := db.Create(&r).Error; err != nil {
		// A concurrent request with the same key may have won the insert.
		if key != nil {
			if existing, found, lookupErr := rc.findByKey(c, actor.UserID, *key); lookupErr == nil && found {
				utils.RespondData(c, http.StatusOK, "Reservation already created", existing)
				return
			}
		}
		internalError(c, rc.logger, "Failed to create reservation", err)
		return
	}

	rc.publish(c, events.ReservationCreated, r, actor.UserID)
	utils.RespondData(c, http.StatusCreated, "Reservation created successfully", r)
}

// Update is the owner path: the owner or an admin may change date, time and
// people_count. Status is never touched here.
func (rc *ReservationController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	r, ok := rc.load(c, id)
	if !ok {
		return
	}
	actor, _ := utils.CurrentUser(c)
	if !model.CanEditReservation(actor, r) {
		utils.RespondError(c, http.StatusForbidden, "You don't have permission to update this reservation")
		return
	}
	rc.applyUpdate(c, r, actor)
}

// AdminUpdate edits the same fields as Update; the route restricts it to
// admins.
func (rc *ReservationController) AdminUpdate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	r, ok := rc.load(c, id)
	if !ok {
		return
	}
	actor, _ := utils.CurrentUser(c)
	rc.applyUpdate(c, r, actor)
}

func (rc *ReservationController) Confirm(c *gin.Context) {
	rc.transition(c, model.ActionConfirm, events.ReservationConfirmed)
}

func (rc *ReservationController) Decline(c *gin.Context) {
	rc.transition(c, model.ActionDecline, events.ReservationDeclined)
}

func (rc *ReservationController) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	r, ok := rc.load(c, id)
	if !ok {
		return
	}
	actor, _ := utils.CurrentUser(c)
	if !model.CanEditReservation(actor, r) {
		utils.RespondError(c, http.StatusForbidden, "You don't have permission to delete this reservation")
		return
	}

	res := rc.db.WithContext(c.Request.Context()).Delete(&model.Reservation{}, id)
	if res.Error != nil {
		internalError(c, rc.logger, "Failed to delete reservation", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, "Reservation not found")
		return
	}

	rc.publish(c, events.ReservationDeleted, r, actor.UserID)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Reservation deleted"})
}

func (rc *ReservationController) applyUpdate(c *gin.Context, r model.Reservation, actor model.User) {
	var in model.ReservationUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	q := rc.db.WithContext(c.Request.Context()).
		Model(&model.Reservation{}).
		Where("reservation_id = ?", r.ReservationID)
	if in.Version != nil {
		q = q.Where("version = ?", *in.Version)
	}
	res := q.Updates(map[string]any{
		"date":         in.Date,
		"time":         in.Time,
		"people_count": in.PeopleCount,
		"version":      gorm.Expr("version + 1"),
	})
	if res.Error != nil {
		internalError(c, rc.logger, "Failed to update reservation", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		if in.Version != nil {
			utils.RespondError(c, http.StatusConflict, "Reservation was modified by someone else, reload and try again")
			return
		}
		utils.RespondError(c, http.StatusNotFound, "Reservation not found")
		return
	}

	updated, ok := rc.load(c, r.ReservationID)
	if !ok {
		return
	}
	rc.publish(c, events.ReservationUpdated, updated, actor.UserID)
	utils.RespondData(c, http.StatusOK, "Reservation updated successfully", updated)
}

// transition only moves rows that are still pending in the store, so two
// moderators racing on one reservation cannot both succeed.
func (rc *ReservationController) transition(c *gin.Context, action model.Action, evType events.Type) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	r, ok := rc.load(c, id)
	if !ok {
		return
	}
	if err := r.Transition(action); err != nil {
		utils.RespondError(c, http.StatusConflict, "Only pending reservations can be "+pastTense(action))
		return
	}

	res := rc.db.WithContext(c.Request.Context()).
		Model(&model.Reservation{}).
		Where("reservation_id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]any{
			"status":  r.Status,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		internalError(c, rc.logger, "Failed to update reservation status", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusConflict, "Only pending reservations can be "+pastTense(action))
		return
	}

	updated, ok := rc.load(c, id)
	if !ok {
		return
	}
	actor, _ := utils.CurrentUser(c)
	rc.logger.Info("reservation status changed",
		slog.String("request_id", utils.GetRequestID(c)),
		slog.Uint64("reservation_id", uint64(id)),
		slog.String("status", string(updated.Status)),
		slog.Uint64("actor_id", uint64(actor.UserID)),
	)
	rc.publish(c, evType, updated, actor.UserID)
	utils.RespondData(c, http.StatusOK, "Reservation "+pastTense(action), updated)
}

func (rc *ReservationController) load(c *gin.Context, id uint) (model.Reservation, bool) {
	var r model.Reservation
	if err := rc.db.WithContext(c.Request.Context()).First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Reservation not found")
		} else {
			internalError(c, rc.logger, "Failed to fetch reservation", err)
		}
		return model.Reservation{}, false
	}
	return r, true
}

func (rc *ReservationController) findByKey(c *gin.Context, userID uint, key string) (model.Reservation, bool, error) {
	var r model.Reservation
	err := rc.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Reservation{}, false, nil
	}
	if err != nil {
		return model.Reservation{}, false, err
	}
	return r, true, nil
}

// publish never fails the request; the change is already committed.
func (rc *ReservationController) publish(c *gin.Context, typ events.Type, r model.Reservation, actorID uint) {
	ev := events.NewReservationEvent(typ, r, actorID)
	if err := rc.publisher.Publish(c.Request.Context(), ev); err != nil {
		rc.logger.Warn("publish reservation event failed",
			slog.String("request_id", utils.GetRequestID(c)),
			slog.String("type", string(typ)),
			slog.String("reservation_id", strconv.FormatUint(uint64(r.ReservationID), 10)),
			slog.Any("error", err),
		)
	}
}

func pastTense(a model.Action) string {
	switch a {
	case model.ActionConfirm:
		return "confirmed"
	case model.ActionDecline:
		return "declined"
	}
	return string(a) + "ed"
}
