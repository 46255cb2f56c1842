package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/logging"
	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
)

// PaymentCardHandler stores card records for checkout selection. The CVV is
// accepted on create but never serialized back to the client.
type PaymentCardHandler struct {
	DB *gorm.DB
}

func (h *PaymentCardHandler) ListCards(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var cards []models.PaymentCard
	if err := h.DB.Where("user_id = ?", p.UserID).Order("id ASC").Find(&cards).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"cards":   cards,
		"results": len(cards),
	})
}

func (h *PaymentCardHandler) GetCard(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var card models.PaymentCard
	if err := h.DB.Where("id = ? AND user_id = ?", id, p.UserID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "payment method not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"card": card})
}

func (h *PaymentCardHandler) CreateCard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "card_create")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req struct {
		CardHolderName string `json:"card_holder_name"`
		CardNumber     string `json:"card_number"`
		ExpirationDate string `json:"expiration_date"`
		CVV            string `json:"cvv"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	switch {
	case req.CardHolderName == "":
		return echo.NewHTTPError(http.StatusBadRequest, "card holder name is required")
	case req.CardNumber == "":
		return echo.NewHTTPError(http.StatusBadRequest, "card number is required")
	case req.ExpirationDate == "":
		return echo.NewHTTPError(http.StatusBadRequest, "expiration date is required")
	case req.CVV == "":
		return echo.NewHTTPError(http.StatusBadRequest, "cvv is required")
	}

	card := models.PaymentCard{
		CardHolderName: req.CardHolderName,
		CardNumber:     req.CardNumber,
		ExpirationDate: req.ExpirationDate,
		CVV:            req.CVV,
		UserID:         p.UserID,
	}
	if err := h.DB.Create(&card).Error; err != nil {
		l.Warn("card_create_failed", "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, "this card is already registered")
	}

	l.Info("card_create_success", "cardID", card.ID)
	return c.JSON(http.StatusCreated, echo.Map{"card": card})
}

func (h *PaymentCardHandler) DeleteCard(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, p.UserID).Delete(&models.PaymentCard{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "payment method not found")
	}

	return c.NoContent(http.StatusNoContent)
}
