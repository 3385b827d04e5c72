package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tablebook/model"
	"tablebook/utils"
)

type UserController struct {
	db     *gorm.DB
	logger *slog.Logger
	cost   int
}

func NewUserController(db *gorm.DB, logger *slog.Logger, bcryptCost int) *UserController {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserController{db: db, logger: logger, cost: bcryptCost}
}

type userChanges struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (uc *UserController) List(c *gin.Context) {
	var users []model.User
	if err := uc.db.WithContext(c.Request.Context()).Order("user_id").Find(&users).Error; err != nil {
		internalError(c, uc.logger, "Failed to fetch users", err)
		return
	}
	utils.RespondData(c, http.StatusOK, "", users)
}

func (uc *UserController) GetProfile(c *gin.Context) {
	user, _ := utils.CurrentUser(c)
	utils.RespondData(c, http.StatusOK, "", user)
}

// UpdateProfile edits the caller's own name, email and password. Empty
// fields are left unchanged and role cannot be set here.
func (uc *UserController) UpdateProfile(c *gin.Context) {
	user, _ := utils.CurrentUser(c)

	var req userChanges
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Role != "" {
		role, err := model.ParseRole(req.Role)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Role must be one of user, subadmin, admin")
			return
		}
		if role != user.Role {
			utils.RespondError(c, http.StatusForbidden, "Role cannot be changed from the profile")
			return
		}
	}

	uc.save(c, user, req)
}

func (uc *UserController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, _ := utils.CurrentUser(c)
	if !model.CanViewUser(actor, id) {
		utils.RespondError(c, http.StatusForbidden, "You don't have permission to view this user")
		return
	}

	target, ok := uc.load(c, id)
	if !ok {
		return
	}
	utils.RespondData(c, http.StatusOK, "", target)
}

// Update serves both self edits and admin user management. Only an admin
// may change a role.
func (uc *UserController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, _ := utils.CurrentUser(c)
	if !model.CanViewUser(actor, id) {
		utils.RespondError(c, http.StatusForbidden, "You don't have permission to update this user")
		return
	}

	var req userChanges
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	target, ok := uc.load(c, id)
	if !ok {
		return
	}

	if req.Role != "" {
		role, err := model.ParseRole(req.Role)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Role must be one of user, subadmin, admin")
			return
		}
		if role != target.Role && !actor.Role.IsAdmin() {
			utils.RespondError(c, http.StatusForbidden, "Only an admin can change roles")
			return
		}
		target.Role = role
	}

	uc.save(c, target, req)
}

func (uc *UserController) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, _ := utils.CurrentUser(c)
	if actor.UserID == id {
		utils.RespondError(c, http.StatusConflict, "You cannot delete your own account")
		return
	}

	var removed int64
	err := uc.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		res := tx.Where("user_id = ?", id).Delete(&model.Reservation{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Delete(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "User not found")
			return
		}
		internalError(c, uc.logger, "Failed to delete user", err)
		return
	}

	uc.logger.Info("user deleted",
		slog.String("request_id", utils.GetRequestID(c)),
		slog.Uint64("user_id", uint64(id)),
		slog.Int64("reservations_removed", removed),
	)
	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"message":              "User deleted",
		"reservations_removed": removed,
	})
}

func (uc *UserController) load(c *gin.Context, id uint) (model.User, bool) {
	var user model.User
	if err := uc.db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "User not found")
		} else {
			internalError(c, uc.logger, "Failed to fetch user", err)
		}
		return model.User{}, false
	}
	return user, true
}

func (uc *UserController) save(c *gin.Context, user model.User, req userChanges) {
	db := uc.db.WithContext(c.Request.Context())

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if req.Email != "" {
		email := model.NormalizeEmail(req.Email)
		if email != user.Email {
			var taken int64
			if err := db.Model(&model.User{}).Where("email = ? AND user_id <> ?", email, user.UserID).Count(&taken).Error; err != nil {
				internalError(c, uc.logger, "Failed to update user", err)
				return
			}
			if taken > 0 {
				utils.RespondError(c, http.StatusConflict, "Email is already registered")
				return
			}
			user.Email = email
		}
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), uc.cost)
		if err != nil {
			internalError(c, uc.logger, "Failed to hash password", err)
			return
		}
		user.Password = string(hash)
	}

	if err := db.Save(&user).Error; err != nil {
		// another account took the email between the check and the write
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.RespondError(c, http.StatusConflict, "Email is already registered")
			return
		}
		internalError(c, uc.logger, "Failed to update user", err)
		return
	}
	utils.RespondData(c, http.StatusOK, "User updated successfully", user)
}
