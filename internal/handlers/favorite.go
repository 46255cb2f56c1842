package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
)

// FavoriteHandler keeps per-user wishlists on the user_favorites join table.
// Adding the same item twice is a no-op, not an error.
type FavoriteHandler struct {
	DB *gorm.DB
}

func (h *FavoriteHandler) favorites(p auth.Principal) *gorm.Association {
	return h.DB.Model(p.User).Association("Favorites")
}

func (h *FavoriteHandler) ListFavorites(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var items []models.Item
	if err := h.favorites(p).Find(&items); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":   items,
		"results": len(items),
	})
}

// GetFavorite returns one wishlist entry, or 404 when the item is not in the
// caller's favorites (even if it exists in the catalog).
func (h *FavoriteHandler) GetFavorite(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	itemID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var items []models.Item
	if err := h.favorites(p).Find(&items, itemID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if len(items) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "item is not in your favorites")
	}

	return c.JSON(http.StatusOK, echo.Map{"item": items[0]})
}

func (h *FavoriteHandler) AddFavorite(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	itemID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var item models.Item
	if err := h.DB.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.favorites(p).Append(&item); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "item added to favorites"})
}

func (h *FavoriteHandler) RemoveFavorite(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	itemID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.favorites(p).Delete(&models.Item{ID: itemID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *FavoriteHandler) ClearFavorites(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	if err := h.favorites(p).Clear(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.NoContent(http.StatusNoContent)
}
