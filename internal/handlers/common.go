package handlers

import (
	"context"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/modavia/marketplace/internal/mykafka"
)

// Uploader hands resized images to the object store and returns the durable
// URL. Satisfied by storage.S3Client; nil disables uploads.
type Uploader interface {
	UploadImage(ctx context.Context, file *multipart.FileHeader, folder string) (string, error)
}

// Mailer is the external mail collaborator for the password-reset flow.
type Mailer interface {
	SendPasswordReset(to, token string) error
}

func publish(c echo.Context, p *mykafka.Producer, topic, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(400, "invalid id")
	}
	return uint(id), nil
}
