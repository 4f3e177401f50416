package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suroccidente/storefront/internal/domain"
	"github.com/suroccidente/storefront/internal/security"
	"github.com/suroccidente/storefront/internal/usecase"
)

type Server struct {
	mux     *http.ServeMux
	catalog *usecase.CatalogUC
	store   *security.Store
	tokens  *security.TokenManager

	loginLimiter *security.Limiter
	adminLimiter *security.Limiter

	cookieSecure bool
}

func New(catalog *usecase.CatalogUC, store *security.Store, tokens *security.TokenManager, login, admin *security.Limiter, cookieSecure bool) http.Handler {
	s := &Server{
		mux:          http.NewServeMux(),
		catalog:      catalog,
		store:        store,
		tokens:       tokens,
		loginLimiter: login,
		adminLimiter: admin,
		cookieSecure: cookieSecure,
	}
	s.routes()
	return Chain(s.mux,
		SecurityHeaders,
		Recovery,
		RequestID,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/products", s.apiProducts)
	s.mux.HandleFunc("/api/products/featured", s.apiFeatured)
	s.mux.HandleFunc("/api/products/status", s.apiProductStatus)
	s.mux.HandleFunc("/api/products/", s.apiProductByID)
	s.mux.HandleFunc("/api/categories", s.apiCategories)
	s.mux.HandleFunc("/api/categories/", s.apiCategoryBySlug)
	s.mux.HandleFunc("/api/stats", s.apiStats)
	s.mux.HandleFunc("/api/site", s.apiSite)

	s.mux.HandleFunc("/admin/api/login", rateLimited(s.loginLimiter, s.store, sameOriginRequired(s.store, s.adminLogin)))
	s.mux.HandleFunc("/admin/api/logout", s.adminGuard(security.RoleViewer, s.adminLogout))
	s.mux.HandleFunc("/admin/api/me", s.adminGuard(security.RoleViewer, s.adminMe))
	s.mux.HandleFunc("/admin/api/products", s.adminGuard(security.RoleAdmin, s.adminCreateProduct))
	s.mux.HandleFunc("/admin/api/products/", s.adminProductRouter)
	s.mux.HandleFunc("/admin/api/movements", s.adminGuard(security.RoleModerator, s.adminMovements))
	s.mux.HandleFunc("/admin/api/security/logs", s.adminGuard(security.RoleAdmin, s.adminSecurityLogs))
	s.mux.HandleFunc("/admin/api/security/stats", s.adminGuard(security.RoleAdmin, s.adminSecurityStats))
	s.mux.HandleFunc("/admin/api/export/products", s.adminGuard(security.RoleModerator, s.adminExportProducts))
	s.mux.HandleFunc("/admin/api/export/movements", s.adminGuard(security.RoleModerator, s.adminExportMovements))

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{"status": "ok", "remote_source": s.catalog.Remote != nil})
}

// apiProducts is the uniform catalog listing: optional search term,
// field filters, sort and pagination, all applied in that order.
func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()

	var (
		list []domain.Product
		err  error
	)
	if term := strings.TrimSpace(q.Get("q")); term != "" {
		list, err = s.catalog.SearchProducts(r.Context(), term)
	} else if q.Get("featured") == "true" {
		list, err = s.catalog.GetFeaturedProducts(r.Context())
	} else {
		list, err = s.catalog.GetAllProducts(r.Context())
	}
	if err != nil {
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}

	filter := domain.ProductFilter{
		Category:  q.Get("category"),
		Condition: q.Get("condition"),
		Gender:    q.Get("gender"),
		MinPrice:  parsePrice(q.Get("min_price")),
		MaxPrice:  parsePrice(q.Get("max_price")),
		Sizes:     splitCSV(q.Get("sizes")),
		Tags:      splitCSV(q.Get("tags")),
	}
	list = usecase.FilterProducts(list, filter)

	sortBy := q.Get("sort")
	if sortBy == "" {
		sortBy = "created_at"
	}
	order := q.Get("order")
	if order == "" {
		order = "desc"
	}
	list = usecase.SortProducts(list, sortBy, order)

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	writeJSON(w, 200, usecase.PaginateProducts(list, page, limit))
}

func (s *Server) apiProductByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/products/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "path", http.StatusNotFound)
		return
	}
	id := parts[0]
	p, err := s.catalog.GetProductByID(r.Context(), id)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if len(parts) == 2 && parts[1] == "whatsapp" {
		cfg := s.catalog.GetSiteConfig()
		writeJSON(w, 200, map[string]any{"url": domain.WhatsAppURL(cfg, p, r.URL.Query().Get("message"))})
		return
	}
	if len(parts) == 2 && parts[1] == "related" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		related, _ := s.catalog.GetRelatedProducts(r.Context(), p, limit)
		writeJSON(w, 200, map[string]any{"related": related})
		return
	}
	if len(parts) > 1 {
		http.Error(w, "path", http.StatusNotFound)
		return
	}
	related, _ := s.catalog.GetRelatedProducts(r.Context(), p, 4)
	writeJSON(w, 200, map[string]any{"product": p, "related": related})
}

// apiProductStatus answers a batch availability check. The body must
// be a non-empty JSON array of product ids.
func (s *Server) apiProductStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ProductIDs []string `json:"product_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.ProductIDs) == 0 {
		writeJSON(w, 400, map[string]any{"error": "product_ids must be a non-empty array"})
		return
	}
	out := make(map[string]any, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		p, err := s.catalog.GetProductByID(r.Context(), id)
		if err != nil {
			out[id] = map[string]any{"available": false}
			continue
		}
		out[id] = map[string]any{
			"available":      p.Active && p.StockStatus != domain.StockOut,
			"stock_status":   p.StockStatus,
			"stock_quantity": p.StockQuantity,
		}
	}
	writeJSON(w, 200, map[string]any{"products": out})
}

func (s *Server) apiFeatured(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	list, err := s.catalog.GetFeaturedProducts(r.Context())
	if err != nil {
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, 200, map[string]any{"products": list})
}

func (s *Server) apiCategoryBySlug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/categories/"), "/")
	if slug == "" || strings.Contains(slug, "/") {
		http.Error(w, "path", http.StatusNotFound)
		return
	}
	cat, err := s.catalog.GetCategoryBySlug(r.Context(), slug)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	products, _ := s.catalog.GetProductsByCategory(r.Context(), slug)
	writeJSON(w, 200, map[string]any{"category": cat, "products": products})
}

func (s *Server) apiCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	cats, err := s.catalog.GetAllCategories(r.Context())
	if err != nil {
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, 200, map[string]any{"categories": cats})
}

func (s *Server) apiStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.catalog.GetProductStats(r.Context())
	if err != nil {
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, 200, stats)
}

func (s *Server) apiSite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, 200, s.catalog.GetSiteConfig())
}

func parsePrice(raw string) *int64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
