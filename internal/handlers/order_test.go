package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modavia/marketplace/internal/models"
)

func checkoutFixtures(t *testing.T, env *testEnv, userID uint) (addressID, cardID uint) {
	t.Helper()

	address := models.Address{
		FirstName: "Test", LastName: "User", Phone: "555-0100",
		Country: "NO", City: "Bergen", State: "Vestland",
		StreetAddress: "1 Main St", ZipCode: "5003", UserID: userID,
	}
	require.NoError(t, env.DB.Create(&address).Error)

	card := models.PaymentCard{
		CardHolderName: "Test User", CardNumber: "4111111111111111",
		ExpirationDate: "12/30", CVV: "123", UserID: userID,
	}
	require.NoError(t, env.DB.Create(&card).Error)

	return address.ID, card.ID
}

func TestCreateOrderTotals(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.createUser("seller@example.com", models.RoleSeller)
	item := env.createItem(seller.ID, *seller.BrandID, "Hoodie", 15)
	buyer, token := env.createUser("buyer@example.com", models.RoleUser)
	addressID, cardID := checkoutFixtures(t, env, buyer.ID)

	add := map[string]any{"item_id": item.ID, "quantity": 3}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", add, token)
	require.NoError(t, env.call(env.Cart.AddToCart, c))

	body := map[string]any{"address_id": addressID, "payment_id": cardID}
	rec, c2 := env.doJSONRequest(http.MethodPost, "/api/v1/orders", body, token)
	require.NoError(t, env.call(env.Order.CreateOrder, c2))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 45.0, resp.Order.SubTotal)
	require.Equal(t, 2.25, resp.Order.Shipping)
	require.Equal(t, 3.15, resp.Order.Tax)
	require.Equal(t, 50.40, resp.Order.TotalPrice)
	require.Equal(t, models.OrderPending, resp.Order.Status)
	require.WithinDuration(t, time.Now().Add(72*time.Hour), resp.Order.EstimatedDate, time.Minute)

	var lines []models.OrderLine
	require.NoError(t, env.DB.Where("order_id = ?", resp.Order.ID).Find(&lines).Error)
	require.Len(t, lines, 1)
	require.Equal(t, 3, lines[0].Quantity)
	require.Equal(t, 15.0, lines[0].Price)

	// checkout empties the cart
	var cartLines int64
	require.NoError(t, env.DB.Model(&models.CartLine{}).Count(&cartLines).Error)
	require.Zero(t, cartLines)

	var cart models.Cart
	require.NoError(t, env.DB.Where("user_id = ?", buyer.ID).First(&cart).Error)
	require.Equal(t, 0.0, cart.TotalPrice)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	buyer, token := env.createUser("buyer@example.com", models.RoleUser)
	addressID, cardID := checkoutFixtures(t, env, buyer.ID)

	body := map[string]any{"address_id": addressID, "payment_id": cardID}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", body, token)
	requireHTTPError(t, env.call(env.Order.CreateOrder, c), http.StatusBadRequest)

	var orders int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&orders).Error)
	require.Zero(t, orders)
}

func TestCreateOrderMissingAddress(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.createUser("seller@example.com", models.RoleSeller)
	item := env.createItem(seller.ID, *seller.BrandID, "Hoodie", 15)
	buyer, token := env.createUser("buyer@example.com", models.RoleUser)
	_, cardID := checkoutFixtures(t, env, buyer.ID)

	add := map[string]any{"item_id": item.ID}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", add, token)
	require.NoError(t, env.call(env.Cart.AddToCart, c))

	body := map[string]any{"address_id": 999, "payment_id": cardID}
	_, c2 := env.doJSONRequest(http.MethodPost, "/api/v1/orders", body, token)
	requireHTTPError(t, env.call(env.Order.CreateOrder, c2), http.StatusNotFound)

	// the cart survives a failed checkout
	var cartLines int64
	require.NoError(t, env.DB.Model(&models.CartLine{}).Count(&cartLines).Error)
	require.Equal(t, int64(1), cartLines)
}

func TestGetMyOrdersEmpty(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser("buyer@example.com", models.RoleUser)

	_, c := env.doJSONRequest(http.MethodGet, "/api/v1/orders", nil, token)
	requireHTTPError(t, env.call(env.Order.GetMyOrders, c), http.StatusNotFound)
}

func placeOrder(t *testing.T, env *testEnv, token string, buyerID, itemID uint) models.Order {
	t.Helper()

	add := map[string]any{"item_id": itemID, "quantity": 1}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", add, token)
	require.NoError(t, env.call(env.Cart.AddToCart, c))

	addressID, cardID := checkoutFixtures(t, env, buyerID)

	body := map[string]any{"address_id": addressID, "payment_id": cardID}
	rec, c2 := env.doJSONRequest(http.MethodPost, "/api/v1/orders", body, token)
	require.NoError(t, env.call(env.Order.CreateOrder, c2))

	var resp struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Order
}

func TestGetOrderPermissions(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.createUser("seller@example.com", models.RoleSeller)
	item := env.createItem(seller.ID, *seller.BrandID, "Hoodie", 15)
	buyer, buyerToken := env.createUser("buyer@example.com", models.RoleUser)
	order := placeOrder(t, env, buyerToken, buyer.ID, item.ID)

	// the owner can read it
	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/orders/1", nil, buyerToken)
	c.SetParamNames("id")
	c.SetParamValues(itoa(order.ID))
	require.NoError(t, env.call(env.Order.GetOrder, c))
	require.Equal(t, http.StatusOK, rec.Code)

	// another customer cannot
	_, otherToken := env.createUser("other@example.com", models.RoleUser)
	_, c2 := env.doJSONRequest(http.MethodGet, "/api/v1/orders/1", nil, otherToken)
	c2.SetParamNames("id")
	c2.SetParamValues(itoa(order.ID))
	requireHTTPError(t, env.call(env.Order.GetOrder, c2), http.StatusForbidden)

	// an admin can
	_, adminToken := env.createUser("admin@example.com", models.RoleAdmin)
	rec3, c3 := env.doJSONRequest(http.MethodGet, "/api/v1/orders/1", nil, adminToken)
	c3.SetParamNames("id")
	c3.SetParamValues(itoa(order.ID))
	require.NoError(t, env.call(env.Order.GetOrder, c3))
	require.Equal(t, http.StatusOK, rec3.Code)
}

func TestSellerOrderScope(t *testing.T) {
	env := newTestEnv(t)
	sellerA, tokenA := env.createUser("a@example.com", models.RoleSeller)
	sellerB, tokenB := env.createUser("b@example.com", models.RoleSeller)
	itemA := env.createItem(sellerA.ID, *sellerA.BrandID, "Hoodie", 15)
	itemB := env.createItem(sellerB.ID, *sellerB.BrandID, "Cap", 10)
	buyer, buyerToken := env.createUser("buyer@example.com", models.RoleUser)
	addressID, cardID := checkoutFixtures(t, env, buyer.ID)

	for _, item := range []*models.Item{itemA, itemB} {
		add := map[string]any{"item_id": item.ID, "quantity": 1}
		_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", add, buyerToken)
		require.NoError(t, env.call(env.Cart.AddToCart, c))
	}
	body := map[string]any{"address_id": addressID, "payment_id": cardID}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", body, buyerToken)
	require.NoError(t, env.call(env.Order.CreateOrder, c))

	// seller A sees the order with only their brand's line
	rec, cA := env.doJSONRequest(http.MethodGet, "/api/v1/seller/orders", nil, tokenA)
	require.NoError(t, env.call(env.Order.GetSellerOrders, cA))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Orders []models.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 1)
	require.Len(t, resp.Orders[0].Items, 1)
	require.Equal(t, *sellerA.BrandID, resp.Orders[0].Items[0].BrandID)

	// seller B updates the shared order's status
	update := map[string]any{"order_id": resp.Orders[0].ID, "status": "shipped"}
	recU, cU := env.doJSONRequest(http.MethodPatch, "/api/v1/seller/orders", update, tokenB)
	require.NoError(t, env.call(env.Order.UpdateSellerOrder, cU))
	require.Equal(t, http.StatusOK, recU.Code)

	var order models.Order
	require.NoError(t, env.DB.First(&order, resp.Orders[0].ID).Error)
	require.Equal(t, models.OrderShipped, order.Status)
}

func TestSellerOrderUpdateRejections(t *testing.T) {
	env := newTestEnv(t)
	sellerA, _ := env.createUser("a@example.com", models.RoleSeller)
	_, tokenB := env.createUser("b@example.com", models.RoleSeller)
	item := env.createItem(sellerA.ID, *sellerA.BrandID, "Hoodie", 15)
	buyer, buyerToken := env.createUser("buyer@example.com", models.RoleUser)
	order := placeOrder(t, env, buyerToken, buyer.ID, item.ID)

	// a seller with no line in the order is refused
	update := map[string]any{"order_id": order.ID, "status": "shipped"}
	_, c := env.doJSONRequest(http.MethodPatch, "/api/v1/seller/orders", update, tokenB)
	requireHTTPError(t, env.call(env.Order.UpdateSellerOrder, c), http.StatusForbidden)

	// an unknown status is refused before any lookup
	bad := map[string]any{"order_id": order.ID, "status": "teleported"}
	_, tokenA := env.createUser("a2@example.com", models.RoleSeller)
	_, c2 := env.doJSONRequest(http.MethodPatch, "/api/v1/seller/orders", bad, tokenA)
	requireHTTPError(t, env.call(env.Order.UpdateSellerOrder, c2), http.StatusBadRequest)

	var reloaded models.Order
	require.NoError(t, env.DB.First(&reloaded, order.ID).Error)
	require.Equal(t, models.OrderPending, reloaded.Status)
}
