package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealcredit/internal/db"
	"github.com/terraincognita07/mealcredit/internal/i18n"
	"github.com/terraincognita07/mealcredit/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	testSecretKey     = "test-secret-key-for-mealcredit-handlers"
	testPassword      = "StrongPass1"
	testUserAgent     = "Mozilla/5.0 (Linux; Android 14) MealCreditTest/1.0"
	testScanRateLimit = 10
)

type testApp struct {
	app      *fiber.App
	database *gorm.DB
	now      time.Time
}

// newTestApp runs the full route table against a temp sqlite database with
// a clock the test can move.
func newTestApp(t *testing.T, now time.Time) *testApp {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "mealcredit-api-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	i18nManager, err := i18n.NewEmbeddedManager(i18n.LangEN)
	if err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	fixture := &testApp{database: database, now: now}
	handler, err := NewHandler(Config{
		Database:      database,
		SecretKey:     testSecretKey,
		Location:      time.UTC,
		I18n:          i18nManager,
		ScanRateLimit: testScanRateLimit,
		Clock:         func() time.Time { return fixture.now },
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}

	app := fiber.New()
	app.Use(handler.LanguageMiddleware)
	RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	fixture.app = app
	return fixture
}

func (fixture *testApp) seedUser(t *testing.T, user models.User) models.User {
	t.Helper()

	if user.Email != "" && user.PasswordHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		user.PasswordHash = string(hash)
	}
	if user.Role == "" {
		user.Role = models.RoleStaff
	}
	user.CreatedAt = fixture.now
	user.UpdatedAt = fixture.now
	if err := fixture.database.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (fixture *testApp) seedAdmin(t *testing.T) models.User {
	t.Helper()
	return fixture.seedUser(t, models.User{
		Name:       "Ayşe Admin",
		Email:      "admin@example.com",
		Role:       models.RoleAdmin,
		IsActive:   true,
		IsApproved: true,
	})
}

func (fixture *testApp) seedStaff(t *testing.T, email string) models.User {
	t.Helper()
	return fixture.seedUser(t, fixtureStaff(email))
}

func fixtureStaff(email string) models.User {
	return models.User{
		Name:       "Mehmet Staff",
		Department: "Kitchen",
		Email:      email,
		IsActive:   true,
		IsApproved: true,
	}
}

type requestOptions struct {
	cookie  string
	headers map[string]string
}

func (fixture *testApp) do(t *testing.T, method string, path string, body any, options requestOptions) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", testUserAgent)
	if options.cookie != "" {
		request.Header.Set("Cookie", authCookieName+"="+options.cookie)
	}
	for key, value := range options.headers {
		request.Header.Set(key, value)
	}

	response, err := fixture.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return response
}

func (fixture *testApp) login(t *testing.T, email string) string {
	t.Helper()

	response := fixture.do(t, http.MethodPost, "/api/auth/login", fiber.Map{
		"email":    email,
		"password": testPassword,
	}, requestOptions{})
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected login status 200, got %d", response.StatusCode)
	}

	cookie := responseCookieValue(response.Cookies(), authCookieName)
	if cookie == "" {
		t.Fatal("expected auth cookie after login")
	}
	return cookie
}

func responseCookieValue(cookies []*http.Cookie, name string) string {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func readJSON(t *testing.T, response *http.Response) map[string]any {
	t.Helper()
	defer response.Body.Close()

	payload := map[string]any{}
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode response body %q: %v", raw, err)
	}
	return payload
}

func readAPIError(t *testing.T, response *http.Response) string {
	t.Helper()
	code, _ := readJSON(t, response)["error"].(string)
	return code
}

func expectStatus(t *testing.T, response *http.Response, expected int) {
	t.Helper()
	if response.StatusCode != expected {
		raw, _ := io.ReadAll(response.Body)
		response.Body.Close()
		t.Fatalf("expected status %d, got %d: %s", expected, response.StatusCode, raw)
	}
}
