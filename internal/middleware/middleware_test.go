package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/config"
	"github.com/nagaralert/alerthub/internal/identity"
	"github.com/nagaralert/alerthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var profileQuery = `SELECT \* FROM "profiles" WHERE id = \$1`

func staffApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	db, mock := testutil.NewMockDB(t)
	cfg := &config.Config{JWTSecret: testSecret}

	app := fiber.New()
	app.Get("/admin", JWTProtected(cfg), StaffRequired(db), func(c *fiber.Ctx) error {
		p, ok := identity.Profile(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(string(p.Role))
	})
	return app, mock
}

func authedRequest(t *testing.T, path string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+testutil.AccessToken(t, testSecret, userID))
	return req
}

func TestStaffRequired(t *testing.T) {
	tests := []struct {
		name       string
		rows       *sqlmock.Rows
		wantStatus int
	}{
		{"admin allowed", sqlmock.NewRows([]string{"id", "role"}).AddRow(uuid.NewString(), "admin"), fiber.StatusOK},
		{"moderator allowed", sqlmock.NewRows([]string{"id", "role"}).AddRow(uuid.NewString(), "moderator"), fiber.StatusOK},
		{"citizen denied", sqlmock.NewRows([]string{"id", "role"}).AddRow(uuid.NewString(), "citizen"), fiber.StatusForbidden},
		{"missing profile denied", sqlmock.NewRows([]string{"id", "role"}), fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, mock := staffApp(t)
			mock.ExpectQuery(profileQuery).WillReturnRows(tt.rows)

			resp, err := app.Test(authedRequest(t, "/admin", uuid.New()), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStaffRequiredRefetchesEveryRequest(t *testing.T) {
	app, mock := staffApp(t)
	userID := uuid.New()

	mock.ExpectQuery(profileQuery).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(userID.String(), "admin"))
	mock.ExpectQuery(profileQuery).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(userID.String(), "citizen"))

	first, err := app.Test(authedRequest(t, "/admin", userID), -1)
	require.NoError(t, err)
	second, err := app.Test(authedRequest(t, "/admin", userID), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, first.StatusCode)
	assert.Equal(t, fiber.StatusForbidden, second.StatusCode, "demotion takes effect on the next request")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJWTProtectedRejectsMissingAndForgedTokens(t *testing.T) {
	app, _ := staffApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.AccessToken(t, "other-secret", uuid.New()))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestOptionalJWT(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	app := fiber.New()
	app.Get("/feed", OptionalJWT(cfg), func(c *fiber.Ctx) error {
		if id := identity.OptionalUserID(c); id != nil {
			return c.SendString(id.String())
		}
		return c.SendString("anonymous")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/feed", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	userID := uuid.New()
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/feed?access_token="+testutil.AccessToken(t, testSecret, userID), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedTokenSources(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	app := fiber.New()
	app.Get("/me", JWTProtected(cfg), func(c *fiber.Ctx) error {
		id, err := identity.UserID(c)
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(id.String())
	})

	userID := uuid.New()
	token := testutil.AccessToken(t, testSecret, userID)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{"bearer header", "/me", "Bearer " + token, fiber.StatusOK},
		{"query parameter", "/me?access_token=" + token, "", fiber.StatusOK},
		{"header without scheme", "/me", token, fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == fiber.StatusOK {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, userID.String(), string(body))
			}
		})
	}
}

func TestOptionalJWTAcceptsBearerHeader(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	app := fiber.New()
	app.Get("/feed", OptionalJWT(cfg), func(c *fiber.Ctx) error {
		if id := identity.OptionalUserID(c); id != nil {
			return c.SendString(id.String())
		}
		return c.SendString("anonymous")
	})

	userID := uuid.New()
	resp, err := app.Test(authedRequest(t, "/feed", userID), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), string(body))
}
