package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/hash"
	"github.com/modavia/marketplace/internal/logging"
	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
	"github.com/modavia/marketplace/internal/mykafka"
)

const (
	tokenTTL      = 24 * time.Hour
	resetTokenTTL = 10 * time.Minute
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Producer  *mykafka.Producer
	Mailer    Mailer
}

type registerRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Role            string `json:"role"`

	// seller-only brand bundle
	BrandName        string `json:"brand_name"`
	BrandDescription string `json:"brand_description"`
	BrandStyle       string `json:"brand_style"`
	BrandLogo        string `json:"brand_logo"`
	PrimaryColor     string `json:"primary_color"`
	Street           string `json:"street"`
	City             string `json:"city"`
	State            string `json:"state"`
	PostalCode       string `json:"postal_code"`
	Country          string `json:"country"`
	Phone            string `json:"phone"`
	Website          string `json:"website"`
	TaxID            string `json:"tax_id"`
}

// profileView is the role-shaped subset returned after register/login; the
// password hash never leaves the handler.
func profileView(user *models.User, brand *models.Brand) echo.Map {
	view := echo.Map{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"email":      user.Email,
		"role":       user.Role,
	}
	if user.Avatar != "" {
		view["avatar"] = user.Avatar
	}
	if user.Role == models.RoleSeller && brand != nil {
		view["brand"] = brand
	}
	return view
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	if req.FirstName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "first name is required")
	}
	if req.LastName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "last name is required")
	}
	if req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "password is required")
	}
	if req.Password != req.PasswordConfirm {
		return echo.NewHTTPError(http.StatusBadRequest, "password and password confirmation do not match")
	}

	role := models.Role(req.Role)
	if req.Role == "" {
		role = models.RoleUser
	}
	if !role.Valid() || role == models.RoleAdmin {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	if role == models.RoleSeller &&
		(req.BrandName == "" || req.BrandDescription == "" || req.BrandStyle == "" ||
			req.BrandLogo == "" || req.PrimaryColor == "" || req.Street == "" ||
			req.City == "" || req.State == "" || req.PostalCode == "" ||
			req.Country == "" || req.Phone == "" || req.Website == "" || req.TaxID == "") {
		return echo.NewHTTPError(http.StatusBadRequest, "brand details are required for seller registration")
	}

	var existing models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	} else {
		l.Warn("register_failed", "status", 409, "reason", "user_exists")
		return echo.NewHTTPError(http.StatusConflict, "user already exists")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := models.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: pwHash,
		Role:         role,
		Active:       true,
	}
	var brand *models.Brand

	// User and brand are created in one transaction so a failed brand
	// insert never leaves an orphaned seller account.
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if role != models.RoleSeller {
			return nil
		}
		b := models.Brand{
			Name:         req.BrandName,
			Description:  req.BrandDescription,
			Style:        req.BrandStyle,
			Logo:         req.BrandLogo,
			PrimaryColor: req.PrimaryColor,
			Street:       req.Street,
			City:         req.City,
			State:        req.State,
			PostalCode:   req.PostalCode,
			Country:      req.Country,
			Phone:        req.Phone,
			Website:      req.Website,
			TaxID:        req.TaxID,
		}
		b.UserID = user.ID
		if err := tx.Create(&b).Error; err != nil {
			return err
		}
		user.BrandID = &b.ID
		if err := tx.Model(&user).Update("brand_id", b.ID).Error; err != nil {
			return err
		}
		brand = &b
		return nil
	})
	if txErr != nil {
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	token, err := auth.SignToken(user.ID, user.Role, h.JWTSecret, tokenTTL)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create token")
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(user.ID), map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
		"role":   user.Role,
	})

	l.Info("register_success", "status", 201, "userID", user.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"token": token,
		"user":  profileView(&user, brand),
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "please provide email and password")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect email or password")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect email or password")
	}

	token, err := auth.SignToken(user.ID, user.Role, h.JWTSecret, tokenTTL)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create token")
	}

	var brand *models.Brand
	if user.Role == models.RoleSeller && user.BrandID != nil {
		var b models.Brand
		if err := h.DB.First(&b, *user.BrandID).Error; err == nil {
			brand = &b
		}
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(user.ID), map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("login_success", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  profileView(&user, brand),
	})
}

// UpdatePassword re-verifies the current password before accepting the new
// one.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "current and new password are required")
	}

	if !hash.CheckPassword(p.User.PasswordHash, req.CurrentPassword) {
		return echo.NewHTTPError(http.StatusUnauthorized, "current password is incorrect")
	}

	pwHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := h.DB.Model(p.User).Update("password_hash", pwHash).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// ForgotPassword stores only the hash of the reset token; the raw token goes
// out by mail and is never persisted.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_forgot_password")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	// The response is identical whether or not the account exists.
	accepted := func() error {
		return c.JSON(http.StatusOK, echo.Map{"message": "if the account exists, a reset token has been sent"})
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return accepted()
	}

	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		l.Error("forgot_password_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	token := hex.EncodeToString(raw)
	expiry := time.Now().Add(resetTokenTTL)

	updates := map[string]any{
		"reset_token_hash":   sha256Hex(token),
		"reset_token_expiry": expiry,
	}
	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		l.Error("forgot_password_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if h.Mailer != nil {
		if err := h.Mailer.SendPasswordReset(user.Email, token); err != nil {
			l.Error("forgot_password_failed", "status", 500, "reason", "mail_error", "error", err)
			h.DB.Model(&user).Updates(map[string]any{
				"reset_token_hash":   "",
				"reset_token_expiry": nil,
			})
			return echo.NewHTTPError(http.StatusInternalServerError, "there was an error sending the email")
		}
	}

	l.Info("forgot_password_token_issued", "userID", user.ID)
	return accepted()
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token and password are required")
	}

	var user models.User
	err := h.DB.Where("reset_token_hash = ? AND reset_token_expiry > ?", sha256Hex(req.Token), time.Now()).
		First(&user).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "token is invalid or has expired")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	updates := map[string]any{
		"password_hash":      pwHash,
		"reset_token_hash":   "",
		"reset_token_expiry": nil,
	}
	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password has been reset"})
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
