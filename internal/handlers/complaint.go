package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/logging"
	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
	"github.com/modavia/marketplace/internal/util"
)

type ComplaintHandler struct {
	DB *gorm.DB
}

// SubmitComplaint is public. When the request carries a valid session the
// complaint is linked to the account, otherwise it stays anonymous.
func (h *ComplaintHandler) SubmitComplaint(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "complaint_submit")

	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	switch {
	case req.Name == "":
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	case req.Email == "":
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	case req.Subject == "":
		return echo.NewHTTPError(http.StatusBadRequest, "subject is required")
	case req.Message == "":
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	complaint := models.Complaint{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
		Status:  models.ComplaintPending,
	}
	if p, err := auth.PrincipalFrom(c); err == nil {
		complaint.UserID = &p.UserID
	}

	if err := h.DB.Create(&complaint).Error; err != nil {
		l.Error("complaint_submit_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("complaint_submit_success", "complaintID", complaint.ID)
	return c.JSON(http.StatusCreated, echo.Map{"complaint": complaint})
}

func (h *ComplaintHandler) ListComplaints(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Complaint{})
	if v := c.QueryParam("status"); v != "" {
		q = q.Where("status = ?", v)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var complaints []models.Complaint
	if err := q.Order("created_at DESC").Offset(from).Limit(limit).Find(&complaints).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"complaints": complaints,
		"results":    len(complaints),
		"total":      total,
		"page":       page,
	})
}

func (h *ComplaintHandler) UpdateComplaintStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "complaint_update")

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	status := models.ComplaintStatus(req.Status)
	if !status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "valid status is required (pending, in-progress, resolved, or rejected)")
	}

	var complaint models.Complaint
	if err := h.DB.First(&complaint, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "complaint not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.DB.Model(&complaint).Update("status", status).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("complaint_update_success", "complaintID", complaint.ID, "new_status", status)
	return c.JSON(http.StatusOK, echo.Map{"complaint": complaint})
}
