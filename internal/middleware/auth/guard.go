package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/modavia/marketplace/internal/models"
)

const principalKey = "principal"

// Principal is the authenticated caller, resolved from the token subject on
// every request. Handlers receive it through PrincipalFrom instead of
// reading raw claims.
type Principal struct {
	UserID uint
	Role   models.Role
	User   *models.User
}

type Guard struct {
	DB        *gorm.DB
	JWTSecret []byte
}

// RequireLogin verifies the bearer token and re-fetches the user, so a
// deleted account is rejected even while its token is still valid.
func (g *Guard) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return echo.NewHTTPError(http.StatusUnauthorized, "you are not logged in")
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "you are not logged in")
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return g.JWTSecret, nil
		})
		if err != nil || !token.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
		}
		subRaw, ok := claims["sub"].(float64)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
		}

		var user models.User
		if err := g.DB.First(&user, uint(subRaw)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "the user belonging to this token no longer exists")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		c.Set(principalKey, Principal{UserID: user.ID, Role: user.Role, User: &user})
		return next(c)
	}
}

// OptionalLogin resolves a principal when a usable token is present and
// stays silent otherwise. Used on public routes that link the caller's
// account when there is one.
func (g *Guard) OptionalLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return next(c)
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return g.JWTSecret, nil
		})
		if err != nil || !token.Valid {
			return next(c)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return next(c)
		}
		subRaw, ok := claims["sub"].(float64)
		if !ok {
			return next(c)
		}

		var user models.User
		if err := g.DB.First(&user, uint(subRaw)).Error; err != nil {
			return next(c)
		}

		c.Set(principalKey, Principal{UserID: user.ID, Role: user.Role, User: &user})
		return next(c)
	}
}

// RequireRoles allows only the given roles through; run it after RequireLogin.
func RequireRoles(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := PrincipalFrom(c)
			if err != nil {
				return err
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "you do not have permission to perform this action")
		}
	}
}

func PrincipalFrom(c echo.Context) (Principal, error) {
	p, ok := c.Get(principalKey).(Principal)
	if !ok {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "you are not logged in")
	}
	return p, nil
}

// SignToken issues the HS256 access token embedding the user id and role.
func SignToken(userID uint, role models.Role, secret []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"exp":  time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}
