package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/logging"
	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
	"github.com/modavia/marketplace/internal/util"
)

type BrandHandler struct {
	DB       *gorm.DB
	Uploader Uploader
}

func (h *BrandHandler) ListBrands(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Brand{}).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var brands []models.Brand
	if err := h.DB.Order("id ASC").Offset(from).Limit(limit).Find(&brands).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"brands":  brands,
		"results": len(brands),
		"total":   total,
		"page":    page,
	})
}

func (h *BrandHandler) GetBrand(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var brand models.Brand
	if err := h.DB.First(&brand, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "brand not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"brand": brand})
}

func (h *BrandHandler) myBrand(p auth.Principal) (*models.Brand, error) {
	if p.User.BrandID == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "seller or brand not found")
	}
	var brand models.Brand
	if err := h.DB.First(&brand, *p.User.BrandID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "seller or brand not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return &brand, nil
}

func (h *BrandHandler) GetMyBrand(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	brand, err := h.myBrand(p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"brand": brand})
}

func (h *BrandHandler) UpdateMyBrand(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "brand_update")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	brand, err := h.myBrand(p)
	if err != nil {
		return err
	}

	var req struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		Style        string `json:"style"`
		PrimaryColor string `json:"primary_color"`
		Street       string `json:"street"`
		City         string `json:"city"`
		State        string `json:"state"`
		PostalCode   string `json:"postal_code"`
		Country      string `json:"country"`
		Phone        string `json:"phone"`
		Website      string `json:"website"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.Name != "" {
		brand.Name = req.Name
	}
	if req.Description != "" {
		brand.Description = req.Description
	}
	if req.Style != "" {
		brand.Style = req.Style
	}
	if req.PrimaryColor != "" {
		brand.PrimaryColor = req.PrimaryColor
	}
	if req.Street != "" {
		brand.Street = req.Street
	}
	if req.City != "" {
		brand.City = req.City
	}
	if req.State != "" {
		brand.State = req.State
	}
	if req.PostalCode != "" {
		brand.PostalCode = req.PostalCode
	}
	if req.Country != "" {
		brand.Country = req.Country
	}
	if req.Phone != "" {
		brand.Phone = req.Phone
	}
	if req.Website != "" {
		brand.Website = req.Website
	}

	if err := h.DB.Save(brand).Error; err != nil {
		l.Error("brand_update_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("brand_update_success", "brandID", brand.ID)
	return c.JSON(http.StatusOK, echo.Map{"brand": brand})
}

func (h *BrandHandler) UploadLogo(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "brand_upload_logo")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	brand, err := h.myBrand(p)
	if err != nil {
		return err
	}
	if h.Uploader == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "image uploads are not configured")
	}

	file, err := c.FormFile("logo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "logo file is required")
	}

	url, err := h.Uploader.UploadImage(ctx, file, "brands")
	if err != nil {
		l.Error("brand_upload_logo_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to upload image")
	}

	if err := h.DB.Model(brand).Update("logo", url).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	brand.Logo = url

	l.Info("brand_upload_logo_success", "brandID", brand.ID)
	return c.JSON(http.StatusOK, echo.Map{"brand": brand})
}
