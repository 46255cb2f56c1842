package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/cache"
	"github.com/modavia/marketplace/internal/logging"
	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
	"github.com/modavia/marketplace/internal/mykafka"
	"github.com/modavia/marketplace/internal/util"
)

const itemCacheTTL = 30 * time.Minute

type ItemHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Cache    *cache.Cache
	Uploader Uploader
}

func itemCacheKey(id uint) string {
	return fmt.Sprintf("item:%d", id)
}

type itemRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Sizes       []string `json:"sizes"`
	Colors      []string `json:"colors"`
	Gender      string   `json:"gender"`
	Images      []string `json:"images"`
	CategoryID  *uint    `json:"category_id"`
}

// GetItems is the public catalog listing with optional filters and paging.
// Size and color filters match against the serialized variant arrays.
func (h *ItemHandler) GetItems(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Item{})
	if v := c.QueryParam("category"); v != "" {
		q = q.Where("category_id = ?", v)
	}
	if v := c.QueryParam("brand"); v != "" {
		q = q.Where("brand_id = ?", v)
	}
	if v := c.QueryParam("gender"); v != "" {
		q = q.Where("gender = ?", v)
	}
	if v := c.QueryParam("color"); v != "" {
		q = q.Where("colors LIKE ?", "%\""+v+"\"%")
	}
	if v := c.QueryParam("item_size"); v != "" {
		q = q.Where("sizes LIKE ?", "%\""+v+"\"%")
	}
	if v := c.QueryParam("min_price"); v != "" {
		q = q.Where("price >= ?", v)
	}
	if v := c.QueryParam("max_price"); v != "" {
		q = q.Where("price <= ?", v)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var items []models.Item
	if err := q.Order("id ASC").Offset(from).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":   items,
		"results": len(items),
		"total":   total,
		"page":    page,
	})
}

func (h *ItemHandler) GetItem(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var item models.Item
	if found, _ := h.Cache.GetJSON(ctx, itemCacheKey(id), &item); found {
		return c.JSON(http.StatusOK, echo.Map{"item": item})
	}

	if err := h.DB.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.Cache.SetJSON(ctx, itemCacheKey(id), item, itemCacheTTL); err != nil {
		logging.FromContext(ctx).Warn("item_cache_set_failed", "itemID", id, "error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"item": item})
}

func (h *ItemHandler) CreateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "item_create")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	if p.User.BrandID == nil {
		return echo.NewHTTPError(http.StatusNotFound, "seller or brand not found")
	}

	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if req.Description == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "description is required")
	}
	if req.Price <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be greater than zero")
	}

	item := models.Item{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Sizes:       req.Sizes,
		Colors:      req.Colors,
		Gender:      req.Gender,
		Images:      req.Images,
		CategoryID:  req.CategoryID,
		SellerID:    p.UserID,
		BrandID:     *p.User.BrandID,
	}
	if err := h.DB.Create(&item).Error; err != nil {
		l.Error("item_create_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, "product_events", fmt.Sprint(item.ID), map[string]any{
		"type":    "item_created",
		"itemID":  item.ID,
		"brandID": item.BrandID,
		"name":    item.Name,
	})

	l.Info("item_create_success", "itemID", item.ID)
	return c.JSON(http.StatusCreated, echo.Map{"item": item})
}

// loadOwnedItem fetches an item and checks the caller created it. Admins
// bypass the ownership check.
func (h *ItemHandler) loadOwnedItem(c echo.Context, p auth.Principal) (*models.Item, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}

	var item models.Item
	if err := h.DB.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if item.SellerID != p.UserID && p.Role != models.RoleAdmin {
		return nil, echo.NewHTTPError(http.StatusForbidden, "you can only modify your own items")
	}
	return &item, nil
}

func (h *ItemHandler) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "item_update")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	item, err := h.loadOwnedItem(c, p)
	if err != nil {
		return err
	}

	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name != "" {
		item.Name = req.Name
	}
	if req.Description != "" {
		item.Description = req.Description
	}
	if req.Price > 0 {
		item.Price = req.Price
	}
	if req.Sizes != nil {
		item.Sizes = req.Sizes
	}
	if req.Colors != nil {
		item.Colors = req.Colors
	}
	if req.Gender != "" {
		item.Gender = req.Gender
	}
	if req.Images != nil {
		item.Images = req.Images
	}
	if req.CategoryID != nil {
		item.CategoryID = req.CategoryID
	}

	if err := h.DB.Save(item).Error; err != nil {
		l.Error("item_update_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.Cache.Del(ctx, itemCacheKey(item.ID)); err != nil {
		l.Warn("item_cache_del_failed", "itemID", item.ID, "error", err)
	}

	publish(c, h.Producer, "product_events", fmt.Sprint(item.ID), map[string]any{
		"type":   "item_updated",
		"itemID": item.ID,
	})

	l.Info("item_update_success", "itemID", item.ID)
	return c.JSON(http.StatusOK, echo.Map{"item": item})
}

func (h *ItemHandler) DeleteItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "item_delete")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	item, err := h.loadOwnedItem(c, p)
	if err != nil {
		return err
	}

	if err := h.DB.Delete(item).Error; err != nil {
		l.Error("item_delete_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.Cache.Del(ctx, itemCacheKey(item.ID)); err != nil {
		l.Warn("item_cache_del_failed", "itemID", item.ID, "error", err)
	}

	publish(c, h.Producer, "product_events", fmt.Sprint(item.ID), map[string]any{
		"type":   "item_deleted",
		"itemID": item.ID,
	})

	l.Info("item_delete_success", "itemID", item.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "item deleted"})
}

// SellerItems lists the caller's own catalog, ignoring public filters.
func (h *ItemHandler) SellerItems(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var items []models.Item
	if err := h.DB.Where("seller_id = ?", p.UserID).Order("id ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":   items,
		"results": len(items),
	})
}

// UploadItemImage stores the file and appends its URL to the item's images.
func (h *ItemHandler) UploadItemImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "item_upload_image")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	item, err := h.loadOwnedItem(c, p)
	if err != nil {
		return err
	}

	if h.Uploader == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "image uploads are not configured")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image file is required")
	}

	url, err := h.Uploader.UploadImage(ctx, file, "items")
	if err != nil {
		l.Error("item_upload_image_failed", "status", 500, "itemID", item.ID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to upload image")
	}

	item.Images = append(item.Images, url)
	if err := h.DB.Save(item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := h.Cache.Del(ctx, itemCacheKey(item.ID)); err != nil {
		l.Warn("item_cache_del_failed", "itemID", item.ID, "error", err)
	}

	l.Info("item_upload_image_success", "itemID", item.ID, "url", url)
	return c.JSON(http.StatusOK, echo.Map{"item": item})
}
