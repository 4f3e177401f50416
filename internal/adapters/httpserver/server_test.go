package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suroccidente/storefront/internal/adapters/repo/staticjson"
	"github.com/suroccidente/storefront/internal/security"
	"github.com/suroccidente/storefront/internal/usecase"
)

const testPassword = "hunter2-hunter2"

type testEnv struct {
	handler http.Handler
	store   *security.Store
	tokens  *security.TokenManager
}

// newTestEnv wires a server over the bundled catalog with no database,
// so reads come from static data and writes are rejected.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	static, err := staticjson.New()
	require.NoError(t, err)

	catalog := &usecase.CatalogUC{Static: static, Site: static.SiteConfig()}
	store := security.NewStore(security.DefaultConfig())
	require.NoError(t, store.Bootstrap("admin", "admin@example.com", testPassword))
	tokens := security.NewTokenManager("test-secret", 24*time.Hour)

	h := New(catalog, store, tokens,
		security.NewLimiter(security.LoginPolicy),
		security.NewLimiter(security.AdminPolicy),
		false)
	return &testEnv{handler: h, store: store, tokens: tokens}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestProductListing(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(7), body["totalItems"])
	assert.Equal(t, float64(1), body["currentPage"])
}

func TestProductListingFiltersAndPaginates(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/products?category=accesorios", nil))
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["totalItems"])

	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/products?limit=3&page=3", nil))
	body = decodeBody(t, rec)
	assert.Equal(t, float64(3), body["totalPages"])
	assert.Len(t, body["products"], 1)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/products?q=vestido&sort=price&order=asc", nil))
	body = decodeBody(t, rec)
	products := body["products"].([]any)
	require.Len(t, products, 2)
	first := products[0].(map[string]any)
	second := products[1].(map[string]any)
	assert.Less(t, first["price"].(float64), second["price"].(float64))
}

func TestProductDetailWithRelated(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/products/p1000000-0000-4000-8000-000000000007", nil))
	require.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	p := body["product"].(map[string]any)
	assert.Equal(t, "Bolso Tejido Wayuu", p["name"])
	assert.NotEmpty(t, body["related"])

	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/products/missing", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestFeaturedEndpoint(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/products/featured", nil))
	require.Equal(t, 200, rec.Code)
	assert.Len(t, decodeBody(t, rec)["products"], 3)
}

func TestCategoryBySlugEndpoint(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/categories/vestidos", nil))
	require.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	cat := body["category"].(map[string]any)
	assert.Equal(t, "Vestidos", cat["name"])
	assert.Len(t, body["products"], 2)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/categories/zapatos", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestRelatedEndpoint(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/products/p1000000-0000-4000-8000-000000000001/related?limit=2", nil))
	require.Equal(t, 200, rec.Code)
	assert.Len(t, decodeBody(t, rec)["related"], 2)
}

func TestProductStatusBatch(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodPost, "/api/products/status", strings.NewReader(`{"product_ids": "nope"}`)))
	assert.Equal(t, 400, rec.Code)

	rec = e.do(httptest.NewRequest(http.MethodPost, "/api/products/status", strings.NewReader(`{"product_ids": []}`)))
	assert.Equal(t, 400, rec.Code)

	payload := `{"product_ids": ["p1000000-0000-4000-8000-000000000001","p1000000-0000-4000-8000-000000000006","ghost"]}`
	rec = e.do(httptest.NewRequest(http.MethodPost, "/api/products/status", strings.NewReader(payload)))
	require.Equal(t, 200, rec.Code)
	products := decodeBody(t, rec)["products"].(map[string]any)

	inStock := products["p1000000-0000-4000-8000-000000000001"].(map[string]any)
	assert.Equal(t, true, inStock["available"])

	outOfStock := products["p1000000-0000-4000-8000-000000000006"].(map[string]any)
	assert.Equal(t, false, outOfStock["available"])

	ghost := products["ghost"].(map[string]any)
	assert.Equal(t, false, ghost["available"])
}

func TestWhatsAppLink(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/products/p1000000-0000-4000-8000-000000000001/whatsapp", nil))
	require.Equal(t, 200, rec.Code)
	url := decodeBody(t, rec)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "https://wa.me/573001234567?text="))
}

func TestStatsEndpoint(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(7), body["total"])
	assert.NotNil(t, body["priceRange"])
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["remote_source"])
}

// sameOrigin marks a request as coming from our own pages; mutating
// admin requests without it are rejected by the CSRF check.
func sameOrigin(req *http.Request) *http.Request {
	req.Header.Set("Origin", "http://"+req.Host)
	return req
}

func (e *testEnv) login(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := sameOrigin(httptest.NewRequest(http.MethodPost, "/admin/api/login", strings.NewReader(body)))
	req.RemoteAddr = "10.0.0.1:5555"
	return e.do(req)
}

func authCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookie {
			return c
		}
	}
	t.Fatal("auth cookie not set")
	return nil
}

func TestLoginFlow(t *testing.T) {
	e := newTestEnv(t)

	rec := e.login(t, "admin", "wrong")
	assert.Equal(t, 401, rec.Code)

	rec = e.login(t, "admin", testPassword)
	require.Equal(t, 200, rec.Code)
	cookie := authCookieFrom(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/me", nil)
	req.AddCookie(cookie)
	rec = e.do(req)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "admin", decodeBody(t, rec)["username"])

	// Logout revokes the session; the still-valid token stops working.
	req = sameOrigin(httptest.NewRequest(http.MethodPost, "/admin/api/logout", nil))
	req.AddCookie(cookie)
	rec = e.do(req)
	require.Equal(t, 200, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/api/me", nil)
	req.AddCookie(cookie)
	rec = e.do(req)
	assert.Equal(t, 401, rec.Code)
}

func TestAdminRequiresAuth(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/admin/api/security/logs", nil))
	assert.Equal(t, 401, rec.Code)

	logs := e.store.Logs(0)
	require.NotEmpty(t, logs)
	assert.Equal(t, security.EventUnauthorizedAccess, logs[0].Type)
}

func TestRoleGuard(t *testing.T) {
	e := newTestEnv(t)

	viewer := &security.User{ID: "v1", Username: "vera", Role: security.RoleViewer}
	sess := e.store.CreateSession(viewer)
	tok, _, err := e.tokens.Issue(viewer, sess.ID)
	require.NoError(t, err)
	cookie := &http.Cookie{Name: authCookie, Value: tok}

	req := httptest.NewRequest(http.MethodGet, "/admin/api/me", nil)
	req.AddCookie(cookie)
	assert.Equal(t, 200, e.do(req).Code)

	req = sameOrigin(httptest.NewRequest(http.MethodDelete, "/admin/api/products/p1", nil))
	req.AddCookie(cookie)
	rec := e.do(req)
	assert.Equal(t, 403, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient permissions")

	req = httptest.NewRequest(http.MethodGet, "/admin/api/security/stats", nil)
	req.AddCookie(cookie)
	assert.Equal(t, 403, e.do(req).Code)
}

func TestWritesReturn503WithoutDatabase(t *testing.T) {
	e := newTestEnv(t)
	rec := e.login(t, "admin", testPassword)
	cookie := authCookieFrom(t, rec)

	req := sameOrigin(httptest.NewRequest(http.MethodPost, "/admin/api/products", strings.NewReader(`{"name":"Nuevo","price":1000}`)))
	req.AddCookie(cookie)
	rec = e.do(req)
	assert.Equal(t, 503, rec.Code)

	req = sameOrigin(httptest.NewRequest(http.MethodPut, "/admin/api/products/p1/stock", strings.NewReader(`{"quantity":5}`)))
	req.AddCookie(cookie)
	rec = e.do(req)
	assert.Equal(t, 503, rec.Code)
}

func TestLoginRateLimit(t *testing.T) {
	e := newTestEnv(t)

	// A nonexistent username keeps the account-lockout counter out of
	// the picture; the limiter counts attempts per IP regardless.
	var rec *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		rec = e.login(t, "ghost", "wrong")
		require.Equal(t, 401, rec.Code)
	}
	rec = e.login(t, "ghost", "wrong")
	assert.Equal(t, 429, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different client is unaffected.
	body := `{"username":"ghost","password":"wrong"}`
	req := sameOrigin(httptest.NewRequest(http.MethodPost, "/admin/api/login", strings.NewReader(body)))
	req.RemoteAddr = "10.0.0.2:5555"
	assert.Equal(t, 401, e.do(req).Code)
}

func TestAccountLockoutOverridesCredentials(t *testing.T) {
	e := newTestEnv(t)

	for i := 0; i < 5; i++ {
		body := `{"username":"admin","password":"wrong"}`
		req := sameOrigin(httptest.NewRequest(http.MethodPost, "/admin/api/login", strings.NewReader(body)))
		req.RemoteAddr = "10.0.0." + string(rune('1'+i)) + ":5555"
		require.Equal(t, 401, e.do(req).Code)
	}

	// The right password no longer helps while the lock holds.
	body := `{"username":"admin","password":"` + testPassword + `"}`
	req := sameOrigin(httptest.NewRequest(http.MethodPost, "/admin/api/login", strings.NewReader(body)))
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, 423, e.do(req).Code)
}

func TestCrossOriginAdminWriteRejected(t *testing.T) {
	e := newTestEnv(t)
	rec := e.login(t, "admin", testPassword)
	cookie := authCookieFrom(t, rec)

	req := httptest.NewRequest(http.MethodPost, "/admin/api/products", strings.NewReader(`{"name":"X"}`))
	req.AddCookie(cookie)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = e.do(req)
	assert.Equal(t, 403, rec.Code)

	logs := e.store.Logs(1)
	require.NotEmpty(t, logs)
	assert.Equal(t, security.EventCSRFMismatch, logs[0].Type)
}

func TestHeaderlessAdminWriteRejected(t *testing.T) {
	e := newTestEnv(t)
	rec := e.login(t, "admin", testPassword)
	cookie := authCookieFrom(t, rec)

	// No Origin and no Referer on a mutating request is rejected the
	// same as a foreign origin.
	req := httptest.NewRequest(http.MethodPost, "/admin/api/products", strings.NewReader(`{"name":"X"}`))
	req.AddCookie(cookie)
	rec = e.do(req)
	assert.Equal(t, 403, rec.Code)

	logs := e.store.Logs(1)
	require.NotEmpty(t, logs)
	assert.Equal(t, security.EventCSRFMismatch, logs[0].Type)
}

func TestSecurityLogsCSV(t *testing.T) {
	e := newTestEnv(t)
	rec := e.login(t, "admin", testPassword)
	cookie := authCookieFrom(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/security/logs?format=csv", nil)
	req.AddCookie(cookie)
	rec = e.do(req)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "login_success")
}

func TestExportProductsXLSX(t *testing.T) {
	e := newTestEnv(t)
	rec := e.login(t, "admin", testPassword)
	cookie := authCookieFrom(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/export/products", nil)
	req.AddCookie(cookie)
	rec = e.do(req)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, rec.Body.Len())
}
