package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"tablebook/model"
)

const (
	exportSheet      = "Reservations"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportTimeLayout = "2006-01-02 15:04"
)

var exportHeader = []any{
	"Reservation ID", "User ID", "User", "Email", "Restaurant ID", "Restaurant",
	"Date", "Time", "People", "Status", "Created",
}

type exportRow struct {
	ReservationID  uint
	UserID         uint
	UserName       string
	UserEmail      string
	RestaurantID   uint
	RestaurantName string
	Date           string
	Time           string
	PeopleCount    int
	Status         model.Status
	CreatedAt      time.Time
}

// Export streams every reservation as an xlsx workbook for staff.
func (rc *ReservationController) Export(c *gin.Context) {
	var rows []exportRow
	err := rc.db.WithContext(c.Request.Context()).
		Table("reservations").
		Select(`reservations.reservation_id, reservations.user_id, users.name AS user_name,
			users.email AS user_email, reservations.restaurant_id, restaurants.name AS restaurant_name,
			reservations.date, reservations.time, reservations.people_count, reservations.status,
			reservations.created_at`).
		Joins("LEFT JOIN users ON users.user_id = reservations.user_id").
		Joins("LEFT JOIN restaurants ON restaurants.restaurant_id = reservations.restaurant_id").
		Order("reservations.date, reservations.time, reservations.reservation_id").
		Scan(&rows).Error
	if err != nil {
		internalError(c, rc.logger, "Failed to fetch reservations", err)
		return
	}

	xl := excelize.NewFile()
	defer xl.Close()

	if err := xl.SetSheetName(xl.GetSheetName(0), exportSheet); err != nil {
		internalError(c, rc.logger, "Failed to build export", err)
		return
	}
	if err := xl.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		internalError(c, rc.logger, "Failed to build export", err)
		return
	}
	for i, r := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			internalError(c, rc.logger, "Failed to build export", err)
			return
		}
		values := []any{
			r.ReservationID, r.UserID, r.UserName, r.UserEmail, r.RestaurantID, r.RestaurantName,
			r.Date, r.Time, r.PeopleCount, string(r.Status), r.CreatedAt.UTC().Format(exportTimeLayout),
		}
		if err := xl.SetSheetRow(exportSheet, cellName, &values); err != nil {
			internalError(c, rc.logger, "Failed to build export", err)
			return
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		internalError(c, rc.logger, "Failed to build export", err)
		return
	}

	filename := fmt.Sprintf("reservations-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
