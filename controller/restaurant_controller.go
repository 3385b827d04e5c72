package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"tablebook/model"
	"tablebook/utils"
)

const maxImportSize = 5 << 20

type RestaurantController struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRestaurantController(db *gorm.DB, logger *slog.Logger) *RestaurantController {
	return &RestaurantController{db: db, logger: logger}
}

type restaurantRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
}

func (rc *RestaurantController) List(c *gin.Context) {
	var restaurants []model.Restaurant
	if err := rc.db.WithContext(c.Request.Context()).Order("restaurant_id").Find(&restaurants).Error; err != nil {
		internalError(c, rc.logger, "Failed to fetch restaurants", err)
		return
	}
	utils.RespondData(c, http.StatusOK, "", restaurants)
}

func (rc *RestaurantController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	restaurant, ok := rc.load(c, rc.db, id)
	if !ok {
		return
	}
	utils.RespondData(c, http.StatusOK, "", restaurant)
}

func (rc *RestaurantController) Create(c *gin.Context) {
	var req restaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		utils.RespondError(c, http.StatusBadRequest, "Restaurant name is required")
		return
	}

	restaurant := model.Restaurant{
		Name:        strings.TrimSpace(req.Name),
		Address:     req.Address,
		Phone:       req.Phone,
		Description: req.Description,
	}
	if err := rc.db.WithContext(c.Request.Context()).Create(&restaurant).Error; err != nil {
		internalError(c, rc.logger, "Failed to create restaurant", err)
		return
	}
	utils.RespondData(c, http.StatusCreated, "Restaurant added successfully", restaurant)
}

func (rc *RestaurantController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req restaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	restaurant, ok := rc.load(c, rc.db, id)
	if !ok {
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		restaurant.Name = name
	}
	if req.Address != "" {
		restaurant.Address = req.Address
	}
	if req.Phone != "" {
		restaurant.Phone = req.Phone
	}
	if req.Description != "" {
		restaurant.Description = req.Description
	}

	if err := rc.db.WithContext(c.Request.Context()).Save(&restaurant).Error; err != nil {
		internalError(c, rc.logger, "Failed to update restaurant", err)
		return
	}
	utils.RespondData(c, http.StatusOK, "Restaurant updated successfully", restaurant)
}

// Delete refuses while any reservation still points at the restaurant.
func (rc *RestaurantController) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	errInUse := errors.New("restaurant has reservations")
	err := rc.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var restaurant model.Restaurant
		if err := tx.First(&restaurant, id).Error; err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&model.Reservation{}).Where("restaurant_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return errInUse
		}
		return tx.Delete(&restaurant).Error
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Restaurant deleted"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.RespondError(c, http.StatusNotFound, "Restaurant not found")
	case errors.Is(err, errInUse):
		utils.RespondError(c, http.StatusConflict, "Restaurant still has reservations")
	default:
		internalError(c, rc.logger, "Failed to delete restaurant", err)
	}
}

// Import reads restaurants from the first sheet of an uploaded xlsx file.
// Row 1 is a header; columns are name, address, phone, description. Rows
// without a name are skipped and reported back.
func (rc *RestaurantController) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Excel file is required")
		return
	}
	if fileHeader.Size > maxImportSize {
		utils.RespondError(c, http.StatusBadRequest, "Excel file exceeds 5MB limit")
		return
	}
	if ext := strings.ToLower(filepath.Ext(fileHeader.Filename)); ext != ".xlsx" {
		utils.RespondError(c, http.StatusBadRequest, "Invalid file type, only XLSX allowed")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		internalError(c, rc.logger, "Unable to open Excel file", err)
		return
	}
	defer file.Close()

	xl, err := excelize.OpenReader(file)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Failed to parse Excel file")
		return
	}
	defer xl.Close()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		utils.RespondError(c, http.StatusBadRequest, "Excel file has no sheets")
		return
	}
	rows, err := xl.GetRows(sheets[0])
	if err != nil || len(rows) < 2 {
		utils.RespondError(c, http.StatusBadRequest, "Excel must have at least one row of data")
		return
	}

	var restaurants []model.Restaurant
	var skipped []string
	for i, row := range rows[1:] {
		rowNum := i + 2
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			skipped = append(skipped, fmt.Sprintf("row %d: missing name", rowNum))
			continue
		}
		restaurants = append(restaurants, model.Restaurant{
			Name:        strings.TrimSpace(row[0]),
			Address:     cell(row, 1),
			Phone:       cell(row, 2),
			Description: cell(row, 3),
		})
	}

	if len(restaurants) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No valid rows found", "skipped": skipped})
		return
	}

	if err := rc.db.WithContext(c.Request.Context()).Create(&restaurants).Error; err != nil {
		internalError(c, rc.logger, "Failed to insert restaurants", err)
		return
	}

	rc.logger.Info("restaurants imported",
		slog.String("request_id", utils.GetRequestID(c)),
		slog.Int("count", len(restaurants)),
		slog.Int("skipped", len(skipped)),
	)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Bulk restaurant import successful",
		"count":   len(restaurants),
		"skipped": skipped,
	})
}

func (rc *RestaurantController) load(c *gin.Context, db *gorm.DB, id uint) (model.Restaurant, bool) {
	var restaurant model.Restaurant
	if err := db.WithContext(c.Request.Context()).First(&restaurant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Restaurant not found")
		} else {
			internalError(c, rc.logger, "Failed to fetch restaurant", err)
		}
		return model.Restaurant{}, false
	}
	return restaurant, true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}
