package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tablebook/model"
	"tablebook/utils"
)

type Handler struct {
	db     *gorm.DB
	tokens *utils.TokenManager
	logger *slog.Logger
	cost   int
}

func NewHandler(db *gorm.DB, tokens *utils.TokenManager, logger *slog.Logger, bcryptCost int) *Handler {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Handler{
		db:     db,
		tokens: tokens,
		logger: logger,
		cost:   bcryptCost,
	}
}

func (h *Handler) Login(c *gin.Context) {
	type Request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	var user model.User
	err := h.db.WithContext(c.Request.Context()).
		Where("email = ?", model.NormalizeEmail(req.Email)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid login credentials")
			return
		}
		h.logger.Error("login lookup failed", slog.String("request_id", utils.GetRequestID(c)), slog.Any("error", err))
		utils.RespondError(c, http.StatusInternalServerError, "Failed to log in")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "Invalid login credentials")
		return
	}

	access, refresh, err := h.tokens.GenerateTokens(user.Role, user.UserID)
	if err != nil {
		h.logger.Error("token generation failed", slog.String("request_id", utils.GetRequestID(c)), slog.Any("error", err))
		utils.RespondError(c, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"expires_in":    int(h.tokens.AccessTTL().Seconds()),
		"user":          user,
	})
}

// Register always creates a plain user; any role in the body is ignored.
func (h *Handler) Register(c *gin.Context) {
	type Request struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	db := h.db.WithContext(c.Request.Context())
	email := model.NormalizeEmail(req.Email)

	var existing int64
	if err := db.Model(&model.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		h.logger.Error("register lookup failed", slog.String("request_id", utils.GetRequestID(c)), slog.Any("error", err))
		utils.RespondError(c, http.StatusInternalServerError, "Failed to register")
		return
	}
	if existing > 0 {
		utils.RespondError(c, http.StatusConflict, "Email is already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := model.User{
		Name:     req.Name,
		Email:    email,
		Role:     model.RoleUser,
		Password: string(hash),
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.RespondError(c, http.StatusConflict, "Email is already registered")
			return
		}
		h.logger.Error("register failed", slog.String("request_id", utils.GetRequestID(c)), slog.Any("error", err))
		utils.RespondError(c, http.StatusInternalServerError, "Failed to register")
		return
	}

	utils.RespondData(c, http.StatusCreated, "Account created", user)
}

func (h *Handler) Refresh(c *gin.Context) {
	type Request struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "Refresh token is required")
		return
	}

	access, refresh, err := h.tokens.RefreshTokens(req.RefreshToken)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"expires_in":    int(h.tokens.AccessTTL().Seconds()),
	})
}
