package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/logging"
	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
	"github.com/modavia/marketplace/internal/mykafka"
)

const (
	shippingRate = 0.05
	taxRate      = 0.07
	deliveryLead = 3 * 24 * time.Hour
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

// CreateOrder snapshots the cart into an immutable order and clears the cart;
// both writes share one transaction.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_create")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req struct {
		AddressID uint `json:"address_id"`
		PaymentID uint `json:"payment_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.AddressID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "address id is required")
	}
	if req.PaymentID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "payment id is required")
	}

	var order models.Order

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("user_id = ?", p.UserID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusBadRequest, "your cart is empty")
			}
			return err
		}
		if err := tx.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&cart.Items).Error; err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "your cart is empty")
		}

		var address models.Address
		if err := tx.First(&address, req.AddressID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "address not found")
			}
			return err
		}
		var card models.PaymentCard
		if err := tx.First(&card, req.PaymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "payment method not found")
			}
			return err
		}

		var subTotal float64
		lines := make([]models.OrderLine, 0, len(cart.Items))
		for _, line := range cart.Items {
			subTotal += line.Price * float64(line.Quantity)
			lines = append(lines, models.OrderLine{
				ItemID:   line.ItemID,
				BrandID:  line.BrandID,
				Quantity: line.Quantity,
				Price:    line.Price,
				Size:     line.Size,
				Color:    line.Color,
			})
		}
		subTotal = models.RoundCents(subTotal)
		shipping := models.RoundCents(subTotal * shippingRate)
		tax := models.RoundCents(subTotal * taxRate)

		order = models.Order{
			UserID:        p.UserID,
			Items:         lines,
			Shipping:      shipping,
			Tax:           tax,
			SubTotal:      subTotal,
			TotalPrice:    models.RoundCents(subTotal + shipping + tax),
			Status:        models.OrderPending,
			AddressID:     address.ID,
			PaymentCardID: card.ID,
			EstimatedDate: time.Now().Add(deliveryLead),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		// checkout post-condition: an empty cart
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartLine{}).Error; err != nil {
			return err
		}
		cart.Items = nil
		return tx.Omit("Items").Save(&cart).Error
	})

	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			l.Warn("order_create_failed", "status", he.Code, "error", txErr)
			return he
		}
		l.Error("order_create_failed", "status", 500, "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, "order_events", fmt.Sprint(p.UserID), map[string]any{
		"type":    "order_created",
		"userID":  p.UserID,
		"orderID": order.ID,
		"total":   order.TotalPrice,
	})

	l.Info("order_create_success", "orderID", order.ID, "total", order.TotalPrice)
	return c.JSON(http.StatusCreated, echo.Map{"order": order})
}

func (h *OrderHandler) GetMyOrders(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var orders []models.Order
	if err := h.DB.Preload("Items").Where("user_id = ?", p.UserID).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if len(orders) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no orders found")
	}

	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var order models.Order
	if err := h.DB.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no order found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if order.UserID != p.UserID && p.Role != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "you do not have permission to view this order")
	}

	return c.JSON(http.StatusOK, echo.Map{"order": order})
}

// sellerBrand resolves the caller's brand id or fails with 404 the way the
// seller endpoints report it.
func (h *OrderHandler) sellerBrand(p auth.Principal) (uint, error) {
	if p.User.BrandID == nil {
		return 0, echo.NewHTTPError(http.StatusNotFound, "seller or brand not found")
	}
	return *p.User.BrandID, nil
}

// GetSellerOrders returns cross-customer orders containing the seller's
// lines, with each order's items filtered down to that brand.
func (h *OrderHandler) GetSellerOrders(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	brandID, err := h.sellerBrand(p)
	if err != nil {
		return err
	}

	var orders []models.Order
	err = h.DB.
		Preload("Items", "brand_id = ?", brandID).
		Joins("JOIN order_lines ON order_lines.order_id = orders.id").
		Where("order_lines.brand_id = ?", brandID).
		Distinct("orders.*").
		Find(&orders).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if len(orders) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no orders found for your brand")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"results": len(orders),
		"orders":  orders,
	})
}

// UpdateSellerOrder mutates the order-wide status after checking the order
// carries at least one line of the caller's brand. Status stays order-wide
// even for multi-seller orders.
func (h *OrderHandler) UpdateSellerOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_seller_update")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req struct {
		OrderID uint   `json:"order_id"`
		Status  string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.OrderID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "order id is required")
	}
	status := models.OrderStatus(req.Status)
	if !status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "valid status is required (pending, shipped, delivered, or cancelled)")
	}

	brandID, err := h.sellerBrand(p)
	if err != nil {
		return err
	}

	var order models.Order
	if err := h.DB.Preload("Items").First(&order, req.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	hasBrandLine := false
	for _, line := range order.Items {
		if line.BrandID == brandID {
			hasBrandLine = true
			break
		}
	}
	if !hasBrandLine {
		l.Warn("order_seller_update_denied", "status", 403, "orderID", order.ID, "brandID", brandID)
		return echo.NewHTTPError(http.StatusForbidden, "this order does not contain items from your brand")
	}

	if err := h.DB.Model(&order).Update("status", status).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, "order_events", fmt.Sprint(order.UserID), map[string]any{
		"type":    "order_status_updated",
		"orderID": order.ID,
		"status":  status,
		"brandID": brandID,
	})

	l.Info("order_seller_update_success", "orderID", order.ID, "new_status", status)
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("order status updated to %s", status),
		"order":   order,
	})
}
