package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/logging"
	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
)

// DiscountHandler manages promo codes. Admins manage the pool; any logged-in
// user can apply a code against their cart total.
type DiscountHandler struct {
	DB *gorm.DB
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (h *DiscountHandler) ListDiscounts(c echo.Context) error {
	var discounts []models.Discount
	if err := h.DB.Order("id ASC").Find(&discounts).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"discounts": discounts,
		"results":   len(discounts),
	})
}

func (h *DiscountHandler) CreateDiscount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "discount_create")

	var req struct {
		Code        string    `json:"code"`
		Description string    `json:"description"`
		Percentage  float64   `json:"percentage"`
		Amount      float64   `json:"amount"`
		StartDate   time.Time `json:"start_date"`
		EndDate     time.Time `json:"end_date"`
		MaxUses     int       `json:"max_uses"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.Code = normalizeCode(req.Code)
	if req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	if req.Percentage <= 0 && req.Amount <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "a percentage or a fixed amount is required")
	}
	if req.Percentage > 0 && req.Amount > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "set either a percentage or a fixed amount, not both")
	}
	if !req.EndDate.After(req.StartDate) {
		return echo.NewHTTPError(http.StatusBadRequest, "end date must be after start date")
	}
	if req.MaxUses <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "max uses must be greater than zero")
	}

	discount := models.Discount{
		Code:        req.Code,
		Description: req.Description,
		Percentage:  req.Percentage,
		Amount:      req.Amount,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		MaxUses:     req.MaxUses,
		Active:      true,
	}
	if err := h.DB.Create(&discount).Error; err != nil {
		l.Warn("discount_create_failed", "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, "a discount with this code already exists")
	}

	l.Info("discount_create_success", "discountID", discount.ID, "code", discount.Code)
	return c.JSON(http.StatusCreated, echo.Map{"discount": discount})
}

func (h *DiscountHandler) UpdateDiscount(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var discount models.Discount
	if err := h.DB.First(&discount, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "discount not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var req struct {
		Description string     `json:"description"`
		EndDate     *time.Time `json:"end_date"`
		MaxUses     *int       `json:"max_uses"`
		Active      *bool      `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.Description != "" {
		discount.Description = req.Description
	}
	if req.EndDate != nil {
		if !req.EndDate.After(discount.StartDate) {
			return echo.NewHTTPError(http.StatusBadRequest, "end date must be after start date")
		}
		discount.EndDate = *req.EndDate
	}
	if req.MaxUses != nil {
		if *req.MaxUses <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "max uses must be greater than zero")
		}
		discount.MaxUses = *req.MaxUses
	}
	if req.Active != nil {
		discount.Active = *req.Active
	}

	if err := h.DB.Save(&discount).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"discount": discount})
}

func (h *DiscountHandler) DeleteDiscount(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	res := h.DB.Delete(&models.Discount{}, id)
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "discount not found")
	}

	return c.NoContent(http.StatusNoContent)
}

// ApplyDiscount validates a code against the caller's cart and reports the
// discounted total. The use counter is consumed with a guarded update so two
// concurrent applies cannot exceed max uses.
func (h *DiscountHandler) ApplyDiscount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "discount_apply")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.Code = normalizeCode(req.Code)
	if req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}

	var result echo.Map

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var discount models.Discount
		if err := tx.Where("code = ?", req.Code).First(&discount).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "discount code not found")
			}
			return err
		}

		now := time.Now()
		switch {
		case !discount.Active:
			return echo.NewHTTPError(http.StatusBadRequest, "this discount is no longer active")
		case now.Before(discount.StartDate):
			return echo.NewHTTPError(http.StatusBadRequest, "this discount is not active yet")
		case now.After(discount.EndDate):
			return echo.NewHTTPError(http.StatusBadRequest, "this discount has expired")
		case discount.CurrentUses >= discount.MaxUses:
			return echo.NewHTTPError(http.StatusBadRequest, "this discount has reached its usage limit")
		}

		var cart models.Cart
		if err := tx.Where("user_id = ?", p.UserID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusBadRequest, "your cart is empty")
			}
			return err
		}
		if cart.TotalPrice <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "your cart is empty")
		}

		var reduction float64
		if discount.Percentage > 0 {
			reduction = cart.TotalPrice * discount.Percentage / 100
		} else {
			reduction = discount.Amount
		}
		reduction = models.RoundCents(reduction)
		if reduction > cart.TotalPrice {
			reduction = cart.TotalPrice
		}

		// The WHERE guard keeps a concurrent apply from pushing the
		// counter past max_uses between the check above and this write.
		res := tx.Model(&models.Discount{}).
			Where("id = ? AND current_uses < max_uses", discount.ID).
			Update("current_uses", gorm.Expr("current_uses + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "this discount has reached its usage limit")
		}

		result = echo.Map{
			"code":             discount.Code,
			"cart_total":       cart.TotalPrice,
			"discount":         reduction,
			"discounted_total": models.RoundCents(cart.TotalPrice - reduction),
		}
		return nil
	})

	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			l.Warn("discount_apply_failed", "status", he.Code, "code", req.Code)
			return he
		}
		l.Error("discount_apply_failed", "status", 500, "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("discount_apply_success", "code", req.Code)
	return c.JSON(http.StatusOK, result)
}
