package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modavia/marketplace/internal/models"
)

func seedDiscount(t *testing.T, env *testEnv, code string, mutate func(*models.Discount)) *models.Discount {
	t.Helper()

	d := models.Discount{
		Code:      code,
		Amount:    10,
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
		MaxUses:   5,
		Active:    true,
	}
	if mutate != nil {
		mutate(&d)
	}
	require.NoError(t, env.DB.Create(&d).Error)
	return &d
}

func cartWorth(t *testing.T, env *testEnv, token string, itemID uint, qty int) {
	t.Helper()
	add := map[string]any{"item_id": itemID, "quantity": qty}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", add, token)
	require.NoError(t, env.call(env.Cart.AddToCart, c))
}

func TestApplyPercentageDiscount(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.createUser("seller@example.com", models.RoleSeller)
	item := env.createItem(seller.ID, *seller.BrandID, "Hoodie", 50)
	_, token := env.createUser("buyer@example.com", models.RoleUser)
	cartWorth(t, env, token, item.ID, 2)

	seedDiscount(t, env, "SAVE10", func(d *models.Discount) {
		d.Amount = 0
		d.Percentage = 10
	})

	payload := map[string]any{"code": "save10"} // codes are case-insensitive
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/discounts/apply", payload, token)
	require.NoError(t, env.call(env.Discount.ApplyDiscount, c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CartTotal       float64 `json:"cart_total"`
		Discount        float64 `json:"discount"`
		DiscountedTotal float64 `json:"discounted_total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 100.0, resp.CartTotal)
	require.Equal(t, 10.0, resp.Discount)
	require.Equal(t, 90.0, resp.DiscountedTotal)

	var d models.Discount
	require.NoError(t, env.DB.Where("code = ?", "SAVE10").First(&d).Error)
	require.Equal(t, 1, d.CurrentUses)
}

func TestApplyFixedDiscountNeverGoesNegative(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.createUser("seller@example.com", models.RoleSeller)
	item := env.createItem(seller.ID, *seller.BrandID, "Socks", 5)
	_, token := env.createUser("buyer@example.com", models.RoleUser)
	cartWorth(t, env, token, item.ID, 1)

	seedDiscount(t, env, "BIGOFF", func(d *models.Discount) {
		d.Amount = 100
	})

	payload := map[string]any{"code": "BIGOFF"}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/discounts/apply", payload, token)
	require.NoError(t, env.call(env.Discount.ApplyDiscount, c))

	var resp struct {
		DiscountedTotal float64 `json:"discounted_total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 0.0, resp.DiscountedTotal)
}

func TestApplyDiscountRejections(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.createUser("seller@example.com", models.RoleSeller)
	item := env.createItem(seller.ID, *seller.BrandID, "Hoodie", 50)
	_, token := env.createUser("buyer@example.com", models.RoleUser)
	cartWorth(t, env, token, item.ID, 1)

	seedDiscount(t, env, "EXPIRED", func(d *models.Discount) {
		d.StartDate = time.Now().Add(-2 * time.Hour)
		d.EndDate = time.Now().Add(-time.Hour)
	})
	seedDiscount(t, env, "INACTIVE", func(d *models.Discount) { d.Active = false })
	seedDiscount(t, env, "USEDUP", func(d *models.Discount) { d.CurrentUses = d.MaxUses })
	seedDiscount(t, env, "NOTYET", func(d *models.Discount) {
		d.StartDate = time.Now().Add(time.Hour)
		d.EndDate = time.Now().Add(2 * time.Hour)
	})

	// The inactive flag must survive the insert as a stored false.
	var inactive models.Discount
	require.NoError(t, env.DB.Where("code = ?", "INACTIVE").First(&inactive).Error)
	require.False(t, inactive.Active)

	for _, code := range []string{"EXPIRED", "INACTIVE", "USEDUP", "NOTYET"} {
		payload := map[string]any{"code": code}
		_, c := env.doJSONRequest(http.MethodPost, "/api/v1/discounts/apply", payload, token)
		requireHTTPError(t, env.call(env.Discount.ApplyDiscount, c), http.StatusBadRequest)
	}

	payload := map[string]any{"code": "NOSUCH"}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/discounts/apply", payload, token)
	requireHTTPError(t, env.call(env.Discount.ApplyDiscount, c), http.StatusNotFound)
}

func TestApplyDiscountCounterStopsAtMax(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.createUser("seller@example.com", models.RoleSeller)
	item := env.createItem(seller.ID, *seller.BrandID, "Hoodie", 50)
	_, token := env.createUser("buyer@example.com", models.RoleUser)
	cartWorth(t, env, token, item.ID, 1)

	seedDiscount(t, env, "LASTONE", func(d *models.Discount) { d.MaxUses = 1 })

	payload := map[string]any{"code": "LASTONE"}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/discounts/apply", payload, token)
	require.NoError(t, env.call(env.Discount.ApplyDiscount, c))

	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/discounts/apply", payload, token)
	requireHTTPError(t, env.call(env.Discount.ApplyDiscount, c), http.StatusBadRequest)

	var d models.Discount
	require.NoError(t, env.DB.Where("code = ?", "LASTONE").First(&d).Error)
	require.Equal(t, 1, d.CurrentUses)
}

func TestCreateDiscountValidation(t *testing.T) {
	env := newTestEnv(t)
	start := time.Now().Format(time.RFC3339)
	end := time.Now().Add(time.Hour).Format(time.RFC3339)

	for _, payload := range []map[string]any{
		{"percentage": 10, "start_date": start, "end_date": end, "max_uses": 5},                             // no code
		{"code": "X", "start_date": start, "end_date": end, "max_uses": 5},                                  // no value
		{"code": "X", "percentage": 10, "amount": 5, "start_date": start, "end_date": end, "max_uses": 5},   // both values
		{"code": "X", "percentage": 10, "start_date": end, "end_date": start, "max_uses": 5},                // inverted dates
		{"code": "X", "percentage": 10, "start_date": start, "end_date": end},                               // no max uses
	} {
		_, c := env.doJSONRequest(http.MethodPost, "/api/v1/admin/discounts", payload, "")
		requireHTTPError(t, env.Discount.CreateDiscount(c), http.StatusBadRequest)
	}

	good := map[string]any{"code": "ok20", "percentage": 20, "start_date": start, "end_date": end, "max_uses": 5}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/admin/discounts", good, "")
	require.NoError(t, env.Discount.CreateDiscount(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var d models.Discount
	require.NoError(t, env.DB.First(&d).Error)
	require.Equal(t, "OK20", d.Code) // stored normalized
}
