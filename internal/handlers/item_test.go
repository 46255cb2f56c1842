package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modavia/marketplace/internal/models"
)

func TestCreateItemRequiresBrand(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser("user@example.com", models.RoleUser)

	payload := map[string]any{"name": "Hoodie", "description": "warm", "price": 20}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/seller/items", payload, token)
	requireHTTPError(t, env.call(env.Item.CreateItem, c), http.StatusNotFound)
}

func TestCreateItemAssignsSellerAndBrand(t *testing.T) {
	env := newTestEnv(t)
	seller, token := env.createUser("seller@example.com", models.RoleSeller)

	payload := map[string]any{
		"name":        "Hoodie",
		"description": "warm",
		"price":       20,
		"sizes":       []string{"S", "M"},
		"colors":      []string{"black"},
	}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/seller/items", payload, token)
	require.NoError(t, env.call(env.Item.CreateItem, c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var item models.Item
	require.NoError(t, env.DB.First(&item).Error)
	require.Equal(t, seller.ID, item.SellerID)
	require.Equal(t, *seller.BrandID, item.BrandID)
	require.Equal(t, []string{"S", "M"}, item.Sizes)
}

func TestCreateItemValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser("seller@example.com", models.RoleSeller)

	for _, payload := range []map[string]any{
		{"description": "warm", "price": 20},
		{"name": "Hoodie", "price": 20},
		{"name": "Hoodie", "description": "warm"},
		{"name": "Hoodie", "description": "warm", "price": -5},
	} {
		_, c := env.doJSONRequest(http.MethodPost, "/api/v1/seller/items", payload, token)
		requireHTTPError(t, env.call(env.Item.CreateItem, c), http.StatusBadRequest)
	}
}

func TestUpdateItemOwnership(t *testing.T) {
	env := newTestEnv(t)
	sellerA, _ := env.createUser("a@example.com", models.RoleSeller)
	_, tokenB := env.createUser("b@example.com", models.RoleSeller)
	item := env.createItem(sellerA.ID, *sellerA.BrandID, "Hoodie", 20)

	payload := map[string]any{"price": 25}
	_, c := env.doJSONRequest(http.MethodPatch, "/api/v1/seller/items/1", payload, tokenB)
	c.SetParamNames("id")
	c.SetParamValues(itoa(item.ID))
	requireHTTPError(t, env.call(env.Item.UpdateItem, c), http.StatusForbidden)

	// an admin may edit anyone's item
	_, adminToken := env.createUser("admin@example.com", models.RoleAdmin)
	rec, c2 := env.doJSONRequest(http.MethodPatch, "/api/v1/seller/items/1", payload, adminToken)
	c2.SetParamNames("id")
	c2.SetParamValues(itoa(item.ID))
	require.NoError(t, env.call(env.Item.UpdateItem, c2))
	require.Equal(t, http.StatusOK, rec.Code)

	var reloaded models.Item
	require.NoError(t, env.DB.First(&reloaded, item.ID).Error)
	require.Equal(t, 25.0, reloaded.Price)
}

func TestDeleteItemOwnership(t *testing.T) {
	env := newTestEnv(t)
	seller, token := env.createUser("seller@example.com", models.RoleSeller)
	item := env.createItem(seller.ID, *seller.BrandID, "Hoodie", 20)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/seller/items/1", nil, token)
	c.SetParamNames("id")
	c.SetParamValues(itoa(item.ID))
	require.NoError(t, env.call(env.Item.DeleteItem, c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.Item{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestGetItemsFilters(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.createUser("seller@example.com", models.RoleSeller)

	cheap := env.createItem(seller.ID, *seller.BrandID, "Socks", 5)
	require.NoError(t, env.DB.Model(cheap).Update("gender", "male").Error)
	env.createItem(seller.ID, *seller.BrandID, "Jacket", 90)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/items?max_price=10", nil, "")
	require.NoError(t, env.Item.GetItems(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items   []models.Item `json:"items"`
		Results int           `json:"results"`
		Total   int64         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Results)
	require.Equal(t, int64(1), resp.Total)
	require.Equal(t, "Socks", resp.Items[0].Name)

	rec2, c2 := env.doJSONRequest(http.MethodGet, "/api/v1/items?gender=male", nil, "")
	require.NoError(t, env.Item.GetItems(c2))
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Results)

	rec3, c3 := env.doJSONRequest(http.MethodGet, "/api/v1/items?item_size=M", nil, "")
	require.NoError(t, env.Item.GetItems(c3))
	require.NoError(t, json.Unmarshal(rec3.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Results)
}

func TestGetItemsPagination(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.createUser("seller@example.com", models.RoleSeller)
	for i := 0; i < 15; i++ {
		env.createItem(seller.ID, *seller.BrandID, "Item", 10)
	}

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/items?page=2&size=10", nil, "")
	require.NoError(t, env.Item.GetItems(c))

	var resp struct {
		Results int   `json:"results"`
		Total   int64 `json:"total"`
		Page    int   `json:"page"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 5, resp.Results)
	require.Equal(t, int64(15), resp.Total)
	require.Equal(t, 2, resp.Page)
}

func TestGetItemNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodGet, "/api/v1/items/42", nil, "")
	c.SetParamNames("id")
	c.SetParamValues("42")
	requireHTTPError(t, env.Item.GetItem(c), http.StatusNotFound)

	_, c2 := env.doJSONRequest(http.MethodGet, "/api/v1/items/abc", nil, "")
	c2.SetParamNames("id")
	c2.SetParamValues("abc")
	requireHTTPError(t, env.Item.GetItem(c2), http.StatusBadRequest)
}

func TestSellerItemsListsOwnOnly(t *testing.T) {
	env := newTestEnv(t)
	sellerA, tokenA := env.createUser("a@example.com", models.RoleSeller)
	sellerB, _ := env.createUser("b@example.com", models.RoleSeller)
	env.createItem(sellerA.ID, *sellerA.BrandID, "Hoodie", 20)
	env.createItem(sellerB.ID, *sellerB.BrandID, "Cap", 10)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/seller/items", nil, tokenA)
	require.NoError(t, env.call(env.Item.SellerItems, c))

	var resp struct {
		Items []models.Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, "Hoodie", resp.Items[0].Name)
}
