package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/config"
	"github.com/modavia/marketplace/internal/hash"
	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
	"github.com/modavia/marketplace/internal/mykafka"
)

type testEnv struct {
	T     *testing.T
	E     *echo.Echo
	DB    *gorm.DB
	Guard *auth.Guard

	Auth      *AuthHandler
	User      *UserHandler
	Cart      *CartHandler
	Order     *OrderHandler
	Item      *ItemHandler
	Review    *ReviewHandler
	Favorite  *FavoriteHandler
	Category  *CategoryHandler
	Discount  *DiscountHandler
	Complaint *ComplaintHandler

	JWTSecret []byte
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))

	secret := []byte("test-secret")
	prod := &mykafka.Producer{}

	env := &testEnv{
		T:         t,
		E:         echo.New(),
		DB:        db,
		Guard:     &auth.Guard{DB: db, JWTSecret: secret},
		JWTSecret: secret,
	}
	env.Auth = &AuthHandler{DB: db, JWTSecret: secret, Producer: prod}
	env.User = &UserHandler{DB: db, Producer: prod}
	env.Cart = &CartHandler{DB: db, Producer: prod}
	env.Order = &OrderHandler{DB: db, Producer: prod}
	env.Item = &ItemHandler{DB: db, Producer: prod}
	env.Review = &ReviewHandler{DB: db}
	env.Favorite = &FavoriteHandler{DB: db}
	env.Category = &CategoryHandler{DB: db}
	env.Discount = &DiscountHandler{DB: db}
	env.Complaint = &ComplaintHandler{DB: db}

	return env
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}, token string) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

// call runs a handler behind the login middleware, the way it is routed.
func (env *testEnv) call(h echo.HandlerFunc, c echo.Context) error {
	return env.Guard.RequireLogin(h)(c)
}

func (env *testEnv) createUser(email string, role models.Role) (*models.User, string) {
	env.T.Helper()

	pwHash, err := hash.HashPassword("password123")
	require.NoError(env.T, err)

	user := models.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: pwHash,
		Role:         role,
		Active:       true,
	}
	require.NoError(env.T, env.DB.Create(&user).Error)

	if role == models.RoleSeller {
		brand := models.Brand{
			Name:        fmt.Sprintf("brand-%d", user.ID),
			Description: "test brand",
			Logo:        "logo.png",
			Phone:       "555-0100",
			TaxID:       "TAX-1",
			UserID:      user.ID,
		}
		require.NoError(env.T, env.DB.Create(&brand).Error)
		require.NoError(env.T, env.DB.Model(&user).Update("brand_id", brand.ID).Error)
		user.BrandID = &brand.ID
	}

	token, err := auth.SignToken(user.ID, user.Role, env.JWTSecret, tokenTTL)
	require.NoError(env.T, err)
	return &user, token
}

func (env *testEnv) createItem(sellerID, brandID uint, name string, price float64) *models.Item {
	env.T.Helper()

	item := models.Item{
		Name:        name,
		Description: "test item",
		Price:       price,
		Sizes:       []string{"S", "M", "L"},
		Colors:      []string{"black", "white"},
		Images:      []string{"img1.jpg"},
		SellerID:    sellerID,
		BrandID:     brandID,
	}
	require.NoError(env.T, env.DB.Create(&item).Error)
	return &item
}

func itoa(v uint) string {
	return fmt.Sprint(v)
}

func requireHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, code, he.Code)
}
