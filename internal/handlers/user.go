package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/hash"
	"github.com/modavia/marketplace/internal/logging"
	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
	"github.com/modavia/marketplace/internal/mykafka"
	"github.com/modavia/marketplace/internal/util"
)

type UserHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Uploader Uploader
}

func (h *UserHandler) GetMe(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": p.User})
}

// UpdateMe applies the allow-listed profile fields. Email, role, password
// and active status have their own flows and are silently ignored here.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_update_me")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Phone     string `json:"phone"`
		Gender    string `json:"gender"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user := p.User
	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Gender != "" {
		user.Gender = req.Gender
	}

	if err := h.DB.Save(user).Error; err != nil {
		l.Error("user_update_me_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("user_update_me_success", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// DeleteMe deactivates the account instead of erasing the row; orders and
// reviews keep their author.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_delete_me")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	if err := h.DB.Model(p.User).Update("active", false).Error; err != nil {
		l.Error("user_delete_me_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(p.UserID), map[string]any{
		"type":   "user_deactivated",
		"userID": p.UserID,
	})

	l.Info("user_delete_me_success", "userID", p.UserID)
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) UploadAvatar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_upload_avatar")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	if h.Uploader == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "image uploads are not configured")
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "avatar file is required")
	}

	url, err := h.Uploader.UploadImage(ctx, file, "avatars")
	if err != nil {
		l.Error("user_upload_avatar_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to upload image")
	}

	if err := h.DB.Model(p.User).Update("avatar", url).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	p.User.Avatar = url

	l.Info("user_upload_avatar_success", "userID", p.UserID)
	return c.JSON(http.StatusOK, echo.Map{"user": p.User})
}

// Admin user management below. All routes are behind RequireRoles(admin).

func (h *UserHandler) AdminCreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_user_create")

	var req struct {
		Email     string      `json:"email"`
		Password  string      `json:"password"`
		FirstName string      `json:"first_name"`
		LastName  string      `json:"last_name"`
		Role      models.Role `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if !req.Role.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := models.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hashed,
		Role:         req.Role,
		Active:       true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		l.Warn("admin_user_create_failed", "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, "a user with this email already exists")
	}

	l.Info("admin_user_create_success", "userID", user.ID)
	return c.JSON(http.StatusCreated, echo.Map{"user": user})
}

func (h *UserHandler) AdminListUsers(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.User{})
	if v := c.QueryParam("role"); v != "" {
		q = q.Where("role = ?", v)
	}
	if v := c.QueryParam("active"); v != "" {
		q = q.Where("active = ?", v == "true")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var users []models.User
	if err := q.Order("id ASC").Offset(from).Limit(limit).Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"users":   users,
		"results": len(users),
		"total":   total,
		"page":    page,
	})
}

func (h *UserHandler) AdminGetUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// AdminUpdateUser can change role and active status in addition to the
// profile fields a user can edit themselves.
func (h *UserHandler) AdminUpdateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_user_update")

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var req struct {
		FirstName string       `json:"first_name"`
		LastName  string       `json:"last_name"`
		Phone     string       `json:"phone"`
		Role      *models.Role `json:"role"`
		Active    *bool        `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := h.DB.Save(&user).Error; err != nil {
		l.Error("admin_user_update_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("admin_user_update_success", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// AdminDeleteUser removes the row outright, unlike DeleteMe.
func (h *UserHandler) AdminDeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_user_delete")

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	res := h.DB.Delete(&models.User{}, id)
	if res.Error != nil {
		l.Error("admin_user_delete_failed", "status", 500, "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(id), map[string]any{
		"type":   "user_deleted",
		"userID": id,
	})

	l.Info("admin_user_delete_success", "userID", id)
	return c.NoContent(http.StatusNoContent)
}
