package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/models"
)

func TestGetMe(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser("me@example.com", models.RoleUser)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/me", nil, token)
	require.NoError(t, env.call(env.User.GetMe, c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, user.Email, resp.User.Email)
	require.NotContains(t, rec.Body.String(), "password_hash")
}

func TestUpdateMeIgnoresProtectedFields(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser("me@example.com", models.RoleUser)

	payload := map[string]any{
		"first_name": "Renamed",
		"email":      "hijack@example.com",
		"role":       "admin",
	}
	rec, c := env.doJSONRequest(http.MethodPatch, "/api/v1/me", payload, token)
	require.NoError(t, env.call(env.User.UpdateMe, c))
	require.Equal(t, http.StatusOK, rec.Code)

	var reloaded models.User
	require.NoError(t, env.DB.First(&reloaded, user.ID).Error)
	require.Equal(t, "Renamed", reloaded.FirstName)
	require.Equal(t, "me@example.com", reloaded.Email)
	require.Equal(t, models.RoleUser, reloaded.Role)
}

func TestDeleteMeDeactivates(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser("me@example.com", models.RoleUser)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/me", nil, token)
	require.NoError(t, env.call(env.User.DeleteMe, c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	// the row stays, flagged inactive
	var reloaded models.User
	require.NoError(t, env.DB.First(&reloaded, user.ID).Error)
	require.False(t, reloaded.Active)
}

func TestAdminListUsersFilters(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("one@example.com", models.RoleUser)
	env.createUser("two@example.com", models.RoleSeller)
	inactive, _ := env.createUser("three@example.com", models.RoleUser)
	require.NoError(t, env.DB.Model(inactive).Update("active", false).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/admin/users?role=seller", nil, "")
	require.NoError(t, env.User.AdminListUsers(c))

	var resp struct {
		Users []models.User `json:"users"`
		Total int64         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.Total)
	require.Equal(t, "two@example.com", resp.Users[0].Email)

	rec2, c2 := env.doJSONRequest(http.MethodGet, "/api/v1/admin/users?active=false", nil, "")
	require.NoError(t, env.User.AdminListUsers(c2))
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.Total)
	require.Equal(t, "three@example.com", resp.Users[0].Email)
}

func TestAdminUpdateUserRole(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.createUser("promote@example.com", models.RoleUser)

	payload := map[string]any{"role": "admin", "active": false}
	rec, c := env.doJSONRequest(http.MethodPatch, "/api/v1/admin/users/1", payload, "")
	c.SetParamNames("id")
	c.SetParamValues(itoa(user.ID))
	require.NoError(t, env.User.AdminUpdateUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var reloaded models.User
	require.NoError(t, env.DB.First(&reloaded, user.ID).Error)
	require.Equal(t, models.RoleAdmin, reloaded.Role)
	require.False(t, reloaded.Active)

	bad := map[string]any{"role": "superuser"}
	_, c2 := env.doJSONRequest(http.MethodPatch, "/api/v1/admin/users/1", bad, "")
	c2.SetParamNames("id")
	c2.SetParamValues(itoa(user.ID))
	requireHTTPError(t, env.User.AdminUpdateUser(c2), http.StatusBadRequest)
}

func TestAdminDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.createUser("victim@example.com", models.RoleUser)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/users/1", nil, "")
	c.SetParamNames("id")
	c.SetParamValues(itoa(user.ID))
	require.NoError(t, env.User.AdminDeleteUser(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, c2 := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/users/1", nil, "")
	c2.SetParamNames("id")
	c2.SetParamValues(itoa(user.ID))
	requireHTTPError(t, env.User.AdminDeleteUser(c2), http.StatusNotFound)
}

func TestRoleGuard(t *testing.T) {
	env := newTestEnv(t)
	_, userToken := env.createUser("user@example.com", models.RoleUser)
	_, adminToken := env.createUser("admin@example.com", models.RoleAdmin)

	handler := env.Guard.RequireLogin(auth.RequireRoles(models.RoleAdmin)(env.User.AdminListUsers))

	_, c := env.doJSONRequest(http.MethodGet, "/api/v1/admin/users", nil, userToken)
	requireHTTPError(t, handler(c), http.StatusForbidden)

	_, c2 := env.doJSONRequest(http.MethodGet, "/api/v1/admin/users", nil, "")
	requireHTTPError(t, handler(c2), http.StatusUnauthorized)

	rec, c3 := env.doJSONRequest(http.MethodGet, "/api/v1/admin/users", nil, adminToken)
	require.NoError(t, handler(c3))
	require.Equal(t, http.StatusOK, rec.Code)
}
