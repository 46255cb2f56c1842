package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/handlers"
	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
)

type Deps struct {
	DB               *gorm.DB
	Guard            *auth.Guard
	AuthHandler      *handlers.AuthHandler
	UserHandler      *handlers.UserHandler
	BrandHandler     *handlers.BrandHandler
	ItemHandler      *handlers.ItemHandler
	CartHandler      *handlers.CartHandler
	OrderHandler     *handlers.OrderHandler
	AddressHandler   *handlers.AddressHandler
	CardHandler      *handlers.PaymentCardHandler
	ReviewHandler    *handlers.ReviewHandler
	FavoriteHandler  *handlers.FavoriteHandler
	CategoryHandler  *handlers.CategoryHandler
	DiscountHandler  *handlers.DiscountHandler
	ComplaintHandler *handlers.ComplaintHandler
	SearchHandler    *handlers.SearchHandler
}

// ErrorHandler renders every failure as {"status": ..., "message": ...},
// including echo's own 404/405 responses.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"status": code, "message": message})
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	sellerOnly := auth.RequireRoles(models.RoleSeller, models.RoleAdmin)
	adminOnly := auth.RequireRoles(models.RoleAdmin)

	// auth and account
	v1.POST("/auth/register", d.AuthHandler.Register)
	v1.POST("/auth/login", d.AuthHandler.Login)
	v1.POST("/auth/forgot-password", d.AuthHandler.ForgotPassword)
	v1.PATCH("/auth/reset-password", d.AuthHandler.ResetPassword)
	v1.PATCH("/auth/update-password", d.AuthHandler.UpdatePassword, d.Guard.RequireLogin)

	me := v1.Group("/me", d.Guard.RequireLogin)
	me.GET("", d.UserHandler.GetMe)
	me.PATCH("", d.UserHandler.UpdateMe)
	me.DELETE("", d.UserHandler.DeleteMe)
	me.POST("/avatar", d.UserHandler.UploadAvatar)

	// public catalog
	v1.GET("/items", d.ItemHandler.GetItems)
	v1.GET("/items/:id", d.ItemHandler.GetItem)
	v1.GET("/items/:id/reviews", d.ReviewHandler.ListItemReviews)
	v1.GET("/search", d.SearchHandler.Handler)
	v1.GET("/brands", d.BrandHandler.ListBrands)
	v1.GET("/brands/:id", d.BrandHandler.GetBrand)
	v1.GET("/categories", d.CategoryHandler.ListCategories)
	v1.GET("/categories/:id", d.CategoryHandler.GetCategory)

	// reviews and favorites
	v1.POST("/items/:id/reviews", d.ReviewHandler.CreateReview, d.Guard.RequireLogin)
	reviews := v1.Group("/reviews", d.Guard.RequireLogin)
	reviews.PATCH("/:id", d.ReviewHandler.UpdateReview)
	reviews.DELETE("/:id", d.ReviewHandler.DeleteReview)

	favorites := v1.Group("/favorites", d.Guard.RequireLogin)
	favorites.GET("", d.FavoriteHandler.ListFavorites)
	favorites.GET("/:id", d.FavoriteHandler.GetFavorite)
	favorites.POST("/:id", d.FavoriteHandler.AddFavorite)
	favorites.DELETE("/:id", d.FavoriteHandler.RemoveFavorite)
	favorites.DELETE("", d.FavoriteHandler.ClearFavorites)

	// cart and checkout
	cart := v1.Group("/cart", d.Guard.RequireLogin)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PATCH("/quantity", d.CartHandler.UpdateQuantity)
	cart.DELETE("/:id", d.CartHandler.RemoveFromCart)
	cart.DELETE("", d.CartHandler.ClearCart)

	orders := v1.Group("/orders", d.Guard.RequireLogin)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.GetMyOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)

	addresses := v1.Group("/addresses", d.Guard.RequireLogin)
	addresses.GET("", d.AddressHandler.ListAddresses)
	addresses.POST("", d.AddressHandler.CreateAddress)
	addresses.GET("/:id", d.AddressHandler.GetAddress)
	addresses.PATCH("/:id", d.AddressHandler.UpdateAddress)
	addresses.DELETE("/:id", d.AddressHandler.DeleteAddress)

	cards := v1.Group("/payment-cards", d.Guard.RequireLogin)
	cards.GET("", d.CardHandler.ListCards)
	cards.POST("", d.CardHandler.CreateCard)
	cards.GET("/:id", d.CardHandler.GetCard)
	cards.DELETE("/:id", d.CardHandler.DeleteCard)

	v1.POST("/discounts/apply", d.DiscountHandler.ApplyDiscount, d.Guard.RequireLogin)

	// complaints: submission is public, management is not
	v1.POST("/complaints", d.ComplaintHandler.SubmitComplaint, d.Guard.OptionalLogin)

	// seller surface
	seller := v1.Group("/seller", d.Guard.RequireLogin, sellerOnly)
	seller.GET("/brand", d.BrandHandler.GetMyBrand)
	seller.PATCH("/brand", d.BrandHandler.UpdateMyBrand)
	seller.POST("/brand/logo", d.BrandHandler.UploadLogo)
	seller.GET("/items", d.ItemHandler.SellerItems)
	seller.POST("/items", d.ItemHandler.CreateItem)
	seller.PATCH("/items/:id", d.ItemHandler.UpdateItem)
	seller.DELETE("/items/:id", d.ItemHandler.DeleteItem)
	seller.POST("/items/:id/images", d.ItemHandler.UploadItemImage)
	seller.GET("/orders", d.OrderHandler.GetSellerOrders)
	seller.PATCH("/orders", d.OrderHandler.UpdateSellerOrder)

	// admin surface
	admin := v1.Group("/admin", d.Guard.RequireLogin, adminOnly)
	admin.POST("/users", d.UserHandler.AdminCreateUser)
	admin.GET("/users", d.UserHandler.AdminListUsers)
	admin.GET("/users/:id", d.UserHandler.AdminGetUser)
	admin.PATCH("/users/:id", d.UserHandler.AdminUpdateUser)
	admin.DELETE("/users/:id", d.UserHandler.AdminDeleteUser)
	admin.POST("/categories", d.CategoryHandler.CreateCategory)
	admin.PATCH("/categories/:id", d.CategoryHandler.UpdateCategory)
	admin.DELETE("/categories/:id", d.CategoryHandler.DeleteCategory)
	admin.GET("/discounts", d.DiscountHandler.ListDiscounts)
	admin.POST("/discounts", d.DiscountHandler.CreateDiscount)
	admin.PATCH("/discounts/:id", d.DiscountHandler.UpdateDiscount)
	admin.DELETE("/discounts/:id", d.DiscountHandler.DeleteDiscount)
	admin.GET("/complaints", d.ComplaintHandler.ListComplaints)
	admin.PATCH("/complaints/:id", d.ComplaintHandler.UpdateComplaintStatus)
}
