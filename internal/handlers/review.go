package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/logging"
	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
)

type ReviewHandler struct {
	DB *gorm.DB
}

type reviewView struct {
	models.Review
	ReviewerName string `json:"reviewer_name"`
}

// ListItemReviews is public and returns the reviews with reviewer names plus
// the average rating.
func (h *ReviewHandler) ListItemReviews(c echo.Context) error {
	itemID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var reviews []models.Review
	if err := h.DB.Where("item_id = ?", itemID).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	userIDs := make([]uint, 0, len(reviews))
	for _, r := range reviews {
		userIDs = append(userIDs, r.UserID)
	}
	names := map[uint]string{}
	if len(userIDs) > 0 {
		var users []models.User
		h.DB.Where("id IN ?", userIDs).Find(&users)
		for _, u := range users {
			names[u.ID] = u.FirstName + " " + u.LastName
		}
	}

	var avg float64
	views := make([]reviewView, 0, len(reviews))
	var sum int
	for _, r := range reviews {
		sum += r.Rating
		views = append(views, reviewView{Review: r, ReviewerName: names[r.UserID]})
	}
	if len(reviews) > 0 {
		avg = models.RoundCents(float64(sum) / float64(len(reviews)))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"reviews":        views,
		"results":        len(views),
		"average_rating": avg,
	})
}

// CreateReview adds one review per user per item; a second attempt is a 409.
func (h *ReviewHandler) CreateReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review_create")

	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	itemID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}
	if req.Comment == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "comment is required")
	}

	var item models.Item
	if err := h.DB.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var existing models.Review
	err = h.DB.Where("user_id = ? AND item_id = ?", p.UserID, itemID).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "you have already reviewed this item")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	review := models.Review{
		UserID:  p.UserID,
		ItemID:  itemID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		l.Error("review_create_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("review_create_success", "reviewID", review.ID, "itemID", itemID)
	return c.JSON(http.StatusCreated, echo.Map{"review": review})
}

func (h *ReviewHandler) loadOwned(c echo.Context, p auth.Principal) (*models.Review, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	var review models.Review
	if err := h.DB.First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "review not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if review.UserID != p.UserID && p.Role != models.RoleAdmin {
		return nil, echo.NewHTTPError(http.StatusForbidden, "you can only modify your own reviews")
	}
	return &review, nil
}

func (h *ReviewHandler) UpdateReview(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	review, err := h.loadOwned(c, p)
	if err != nil {
		return err
	}

	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Rating != 0 {
		if req.Rating < 1 || req.Rating > 5 {
			return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
		}
		review.Rating = req.Rating
	}
	if req.Comment != "" {
		review.Comment = req.Comment
	}

	if err := h.DB.Save(review).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"review": review})
}

func (h *ReviewHandler) DeleteReview(c echo.Context) error {
	p, err := auth.PrincipalFrom(c)
	if err != nil {
		return err
	}
	review, err := h.loadOwned(c, p)
	if err != nil {
		return err
	}

	if err := h.DB.Delete(review).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.NoContent(http.StatusNoContent)
}
