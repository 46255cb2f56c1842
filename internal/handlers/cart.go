package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
	"github.com/modavia/marketplace/internal/mykafka"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

// loadCart returns the user's cart with its lines, creating an empty cart on
// first use so callers never see a missing one.
func (h *CartHandler) loadCart(userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := h.DB.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: userID}
		if err := h.DB.Create(&cart).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	if err := h.DB.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&cart.Items).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// reloads the lines and saves the cart so the BeforeSave hook recomputes the
// total after every mutation
func (h *CartHandler) saveCart(cart *models.Cart) error {
	if err := h.DB.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&cart.Items).Error; err != nil {
		return err
	}
	return h.DB.Omit("Items").Save(cart).Error
}

type cartLineView struct {
	models.CartLine
	ItemName  string `json:"item_name"`
	BrandName string `json:"brand_name"`
}

func (h *CartHandler) cartView(cart *models.Cart) echo.Map {
	itemIDs := make([]uint, 0, len(cart.Items))
	brandIDs := make([]uint, 0, len(cart.Items))
	for _, line := range cart.Items {
		itemIDs = append(itemIDs, line.ItemID)
		brandIDs = append(brandIDs, line.BrandID)
	}

	itemNames := map[uint]string{}
	if len(itemIDs) > 0 {
		var items []models.Item
		h.DB.Where("id IN ?", itemIDs).Find(&items)
		for _, it := range items {
			itemNames[it.ID] = it.Name
		}
	}
	brandNames := map[uint]string{}
	if len(brandIDs) > 0 {
		var brands []models.Brand
		h.DB.Where("id IN ?", brandIDs).Find(&brands)
		for _, b := range brands {
			brandNames[b.ID] = b.Name
		}
	}

	views := make([]cartLineView, 0, len(cart.Items))
	for _, line := range cart.Items {
		views = append(views, cartLineView{
			CartLine:  line,
			ItemName:  itemNames[line.ItemID],
			BrandName: brandNames[line.BrandID],
		})
	}

	return echo.Map{
		"id":          cart.ID,
		"user_id":     cart.UserID,
		"items":       views,
		"total_price": cart.TotalPrice,
	}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	cart, err := h.loadCart(p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, h.cartView(cart))
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req struct {
		ItemID   uint   `json:"item_id"`
		Quantity int    `json:"quantity"`
		Size     string `json:"size"`
		Color    string `json:"color"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var item models.Item
	if err := h.DB.First(&item, req.ItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// unspecified variants fall back to the item's first size/color
	if req.Size == "" && len(item.Sizes) > 0 {
		req.Size = item.Sizes[0]
	}
	if req.Color == "" && len(item.Colors) > 0 {
		req.Color = item.Colors[0]
	}

	cart, err := h.loadCart(p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	merged := false
	for i := range cart.Items {
		line := &cart.Items[i]
		if line.ItemID == req.ItemID && line.Size == req.Size && line.Color == req.Color {
			line.Quantity += req.Quantity
			if err := h.DB.Save(line).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
			}
			merged = true
			break
		}
	}
	if !merged {
		img := ""
		if len(item.Images) > 0 {
			img = item.Images[0]
		}
		line := models.CartLine{
			CartID:   cart.ID,
			ItemID:   item.ID,
			BrandID:  item.BrandID,
			Quantity: req.Quantity,
			Price:    item.Price, // snapshot of the catalog price at add time
			Size:     req.Size,
			Color:    req.Color,
			Img:      img,
		}
		if err := h.DB.Create(&line).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	if err := h.saveCart(cart); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, "cart_events", fmt.Sprint(p.UserID), map[string]any{
		"type":     "cart_item_added",
		"userID":   p.UserID,
		"itemID":   req.ItemID,
		"quantity": req.Quantity,
		"size":     req.Size,
		"color":    req.Color,
	})

	return c.JSON(http.StatusOK, h.cartView(cart))
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req struct {
		ItemID    uint   `json:"item_id"`
		Direction string `json:"direction"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Direction != "inc" && req.Direction != "dec" {
		return echo.NewHTTPError(http.StatusBadRequest, "direction must be inc or dec")
	}

	cart, err := h.loadCart(p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var line *models.CartLine
	for i := range cart.Items {
		if cart.Items[i].ItemID == req.ItemID {
			line = &cart.Items[i]
			break
		}
	}
	if line == nil {
		return echo.NewHTTPError(http.StatusNotFound, "item not found in the cart")
	}

	// Quantity moves by exactly 1 and is deliberately not floored at zero;
	// empty lines stay in place until product decides otherwise.
	if req.Direction == "inc" {
		line.Quantity++
	} else {
		line.Quantity--
	}
	if err := h.DB.Save(line).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.saveCart(cart); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, "cart_events", fmt.Sprint(p.UserID), map[string]any{
		"type":      "cart_quantity_updated",
		"userID":    p.UserID,
		"itemID":    req.ItemID,
		"direction": req.Direction,
	})

	return c.JSON(http.StatusOK, h.cartView(cart))
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	itemID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	cart, err := h.loadCart(p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	res := h.DB.Where("cart_id = ? AND item_id = ?", cart.ID, itemID).Delete(&models.CartLine{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "item not found in the cart")
	}

	if err := h.saveCart(cart); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, "cart_events", fmt.Sprint(p.UserID), map[string]any{
		"type":   "cart_item_removed",
		"userID": p.UserID,
		"itemID": itemID,
	})

	return c.JSON(http.StatusOK, h.cartView(cart))
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	cart, err := h.loadCart(p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.DB.Where("cart_id = ?", cart.ID).Delete(&models.CartLine{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := h.saveCart(cart); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, "cart_events", fmt.Sprint(p.UserID), map[string]any{
		"type":   "cart_cleared",
		"userID": p.UserID,
	})

	return c.JSON(http.StatusOK, h.cartView(cart))
}
