package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/logging"
	"github.com/modavia/marketplace/internal/models"
)

// CategoryHandler: reads are public, writes are admin-only (enforced in the
// router).
type CategoryHandler struct {
	DB *gorm.DB
}

func (h *CategoryHandler) ListCategories(c echo.Context) error {
	q := h.DB.Model(&models.Category{})
	if c.QueryParam("featured") == "true" {
		q = q.Where("featured = ?", true)
	}
	if c.QueryParam("all") != "true" {
		q = q.Where("active = ?", true)
	}

	var categories []models.Category
	if err := q.Order("name ASC").Find(&categories).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"categories": categories,
		"results":    len(categories),
	})
}

func (h *CategoryHandler) GetCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"category": category})
}

func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category_create")

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Gender      string `json:"gender"`
		Featured    bool   `json:"featured"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if req.Gender == "" {
		req.Gender = "neutral"
	}

	category := models.Category{
		Name:        req.Name,
		Description: req.Description,
		Gender:      req.Gender,
		Featured:    req.Featured,
		Active:      true,
	}
	if err := h.DB.Create(&category).Error; err != nil {
		l.Warn("category_create_failed", "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, "a category with this name already exists")
	}

	l.Info("category_create_success", "categoryID", category.ID)
	return c.JSON(http.StatusCreated, echo.Map{"category": category})
}

func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Gender      string `json:"gender"`
		Featured    *bool  `json:"featured"`
		Active      *bool  `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.Name != "" {
		category.Name = req.Name
	}
	if req.Description != "" {
		category.Description = req.Description
	}
	if req.Gender != "" {
		category.Gender = req.Gender
	}
	if req.Featured != nil {
		category.Featured = *req.Featured
	}
	if req.Active != nil {
		category.Active = *req.Active
	}

	if err := h.DB.Save(&category).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"category": category})
}

// DeleteCategory refuses while catalog items still reference the category.
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category_delete")

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var count int64
	if err := h.DB.Model(&models.Item{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if count > 0 {
		l.Warn("category_delete_refused", "status", 400, "categoryID", id, "items", count)
		return echo.NewHTTPError(http.StatusBadRequest, "cannot delete a category that still has items")
	}

	res := h.DB.Delete(&models.Category{}, id)
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "category not found")
	}

	l.Info("category_delete_success", "categoryID", id)
	return c.NoContent(http.StatusNoContent)
}
