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

// AddressHandler manages the caller's shipping addresses. Every operation
// is scoped to the authenticated user; there is no cross-user access.
type AddressHandler struct {
	DB *gorm.DB
}

type addressRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Country       string `json:"country"`
	City          string `json:"city"`
	State         string `json:"state"`
	StreetAddress string `json:"street_address"`
	ZipCode       string `json:"zip_code"`
}

func (r *addressRequest) validate() error {
	switch {
	case r.FirstName == "":
		return echo.NewHTTPError(http.StatusBadRequest, "first name is required")
	case r.LastName == "":
		return echo.NewHTTPError(http.StatusBadRequest, "last name is required")
	case r.Phone == "":
		return echo.NewHTTPError(http.StatusBadRequest, "phone is required")
	case r.Country == "":
		return echo.NewHTTPError(http.StatusBadRequest, "country is required")
	case r.City == "":
		return echo.NewHTTPError(http.StatusBadRequest, "city is required")
	case r.State == "":
		return echo.NewHTTPError(http.StatusBadRequest, "state is required")
	case r.StreetAddress == "":
		return echo.NewHTTPError(http.StatusBadRequest, "street address is required")
	case r.ZipCode == "":
		return echo.NewHTTPError(http.StatusBadRequest, "zip code is required")
	}
	return nil
}

func (h *AddressHandler) ListAddresses(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var addresses []models.Address
	if err := h.DB.Where("user_id = ?", p.UserID).Order("id ASC").Find(&addresses).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"addresses": addresses,
		"results":   len(addresses),
	})
}

func (h *AddressHandler) loadOwned(c echo.Context, p auth.Principal) (*models.Address, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	var address models.Address
	if err := h.DB.Where("id = ? AND user_id = ?", id, p.UserID).First(&address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "address not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return &address, nil
}

func (h *AddressHandler) GetAddress(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	address, err := h.loadOwned(c, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"address": address})
}

func (h *AddressHandler) CreateAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address_create")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	address := models.Address{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Email:         req.Email,
		Country:       req.Country,
		City:          req.City,
		State:         req.State,
		StreetAddress: req.StreetAddress,
		ZipCode:       req.ZipCode,
		UserID:        p.UserID,
	}
	if err := h.DB.Create(&address).Error; err != nil {
		l.Error("address_create_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("address_create_success", "addressID", address.ID)
	return c.JSON(http.StatusCreated, echo.Map{"address": address})
}

func (h *AddressHandler) UpdateAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address_update")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	address, err := h.loadOwned(c, p)
	if err != nil {
		return err
	}

	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.FirstName != "" {
		address.FirstName = req.FirstName
	}
	if req.LastName != "" {
		address.LastName = req.LastName
	}
	if req.Phone != "" {
		address.Phone = req.Phone
	}
	if req.Email != "" {
		address.Email = req.Email
	}
	if req.Country != "" {
		address.Country = req.Country
	}
	if req.City != "" {
		address.City = req.City
	}
	if req.State != "" {
		address.State = req.State
	}
	if req.StreetAddress != "" {
		address.StreetAddress = req.StreetAddress
	}
	if req.ZipCode != "" {
		address.ZipCode = req.ZipCode
	}

	if err := h.DB.Save(address).Error; err != nil {
		l.Error("address_update_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("address_update_success", "addressID", address.ID)
	return c.JSON(http.StatusOK, echo.Map{"address": address})
}

func (h *AddressHandler) DeleteAddress(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, p.UserID).Delete(&models.Address{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "address not found")
	}

	return c.NoContent(http.StatusNoContent)
}
