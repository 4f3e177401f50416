package httpserver

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/suroccidente/storefront/internal/domain"
	"github.com/suroccidente/storefront/internal/security"
)

const authCookie = "auth_token"

// adminGuard authenticates the session cookie and enforces the minimum
// role, wrapping the handler with the admin rate limit and the
// same-origin check for mutating methods.
func (s *Server) adminGuard(minRole string, next func(http.ResponseWriter, *http.Request, *security.Session)) http.HandlerFunc {
	authed := func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.authenticate(r)
		if !ok {
			s.store.LogEvent(security.EventUnauthorizedAccess, security.SeverityWarning, clientIP(r), r.UserAgent(), r.URL.Path, nil)
			writeJSON(w, 401, map[string]any{"error": "authentication required"})
			return
		}
		if !security.HasRole(sess.Role, minRole) {
			s.store.LogEvent(security.EventInsufficientPermissions, security.SeverityWarning, clientIP(r), r.UserAgent(), r.URL.Path,
				map[string]string{"username": sess.Username, "required_role": minRole})
			writeJSON(w, 403, map[string]any{"error": "insufficient permissions"})
			return
		}
		next(w, r, sess)
	}
	return rateLimited(s.adminLimiter, s.store, sameOriginRequired(s.store, authed))
}

// authenticate verifies the signed cookie and requires the embedded
// session to still exist; a valid token whose session was revoked or
// expired does not authenticate.
func (s *Server) authenticate(r *http.Request) (*security.Session, bool) {
	c, err := r.Cookie(authCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	claims, err := s.tokens.Verify(c.Value)
	if err != nil {
		return nil, false
	}
	sess, ok := s.store.Session(claims.SessionID)
	if !ok {
		return nil, false
	}
	return sess, true
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	ip := clientIP(r)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		s.store.LogEvent(security.EventInputValidationFailed, security.SeverityWarning, ip, r.UserAgent(), r.URL.Path, nil)
		writeJSON(w, 400, map[string]any{"error": "username and password are required"})
		return
	}

	u, err := s.store.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, security.ErrAccountLocked) {
			s.store.LogEvent(security.EventAccountLocked, security.SeverityCritical, ip, r.UserAgent(), r.URL.Path,
				map[string]string{"username": req.Username})
			writeJSON(w, 423, map[string]any{"error": "account temporarily locked"})
			return
		}
		s.store.LogEvent(security.EventLoginFailure, security.SeverityWarning, ip, r.UserAgent(), r.URL.Path,
			map[string]string{"username": req.Username})
		writeJSON(w, 401, map[string]any{"error": "invalid credentials"})
		return
	}

	sess := s.store.CreateSession(u)
	tok, _, err := s.tokens.Issue(u, sess.ID)
	if err != nil {
		log.Error().Err(err).Msg("token signing failed")
		http.Error(w, "internal", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	s.store.LogEvent(security.EventLoginSuccess, security.SeverityInfo, ip, r.UserAgent(), r.URL.Path,
		map[string]string{"username": u.Username})
	writeJSON(w, 200, map[string]any{"user": u, "role": u.Role})
}

func (s *Server) adminLogout(w http.ResponseWriter, r *http.Request, sess *security.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	s.store.DeleteSession(sess.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, 200, map[string]any{"status": "ok"})
}

func (s *Server) adminMe(w http.ResponseWriter, r *http.Request, sess *security.Session) {
	writeJSON(w, 200, sess)
}

func (s *Server) adminCreateProduct(w http.ResponseWriter, r *http.Request, sess *security.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	created, err := s.catalog.CreateProduct(r.Context(), &p, sess.Username)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, 201, created)
}

// adminProductRouter dispatches /admin/api/products/{id} and
// /admin/api/products/{id}/stock. Updates need moderator, deletion
// needs admin.
func (s *Server) adminProductRouter(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/api/products/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "path", http.StatusNotFound)
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "stock" && r.Method == http.MethodPut:
		s.adminGuard(security.RoleModerator, func(w http.ResponseWriter, r *http.Request, sess *security.Session) {
			s.adminUpdateStock(w, r, sess, id)
		})(w, r)
	case len(parts) == 2 && parts[1] == "history" && r.Method == http.MethodGet:
		s.adminGuard(security.RoleViewer, func(w http.ResponseWriter, r *http.Request, sess *security.Session) {
			s.adminHistory(w, r, id)
		})(w, r)
	case len(parts) == 1 && r.Method == http.MethodPut:
		s.adminGuard(security.RoleModerator, func(w http.ResponseWriter, r *http.Request, sess *security.Session) {
			s.adminUpdateProduct(w, r, sess, id)
		})(w, r)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.adminGuard(security.RoleAdmin, func(w http.ResponseWriter, r *http.Request, sess *security.Session) {
			s.adminDeleteProduct(w, r, sess, id)
		})(w, r)
	default:
		http.Error(w, "method", http.StatusMethodNotAllowed)
	}
}

func (s *Server) adminUpdateProduct(w http.ResponseWriter, r *http.Request, sess *security.Session, id string) {
	var upd domain.ProductUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	p, err := s.catalog.UpdateProduct(r.Context(), id, upd, sess.Username)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, 200, p)
}

func (s *Server) adminUpdateStock(w http.ResponseWriter, r *http.Request, sess *security.Session, id string) {
	var req struct {
		Quantity    *int   `json:"quantity"`
		Reason      string `json:"reason"`
		ReferenceID string `json:"reference_id"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeJSON(w, 400, map[string]any{"error": "quantity is required"})
		return
	}
	p, mv, err := s.catalog.UpdateStock(r.Context(), id, *req.Quantity, req.Reason, req.ReferenceID, sess.Username, req.Notes)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"product": p, "movement": mv})
}

func (s *Server) adminDeleteProduct(w http.ResponseWriter, r *http.Request, sess *security.Session, id string) {
	p, err := s.catalog.DeleteProduct(r.Context(), id, sess.Username)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "product": p})
}

func (s *Server) adminHistory(w http.ResponseWriter, r *http.Request, id string) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hist, err := s.catalog.History(r.Context(), id, limit)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"history": hist})
}

func (s *Server) adminMovements(w http.ResponseWriter, r *http.Request, _ *security.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	mvs, err := s.catalog.Movements(r.Context(), q.Get("product_id"), limit)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"movements": mvs})
}

func (s *Server) adminSecurityLogs(w http.ResponseWriter, r *http.Request, _ *security.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs := s.store.Logs(limit)

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=security_logs_%s.csv", time.Now().Format("2006-01-02")))
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"timestamp", "type", "severity", "ip", "user_agent", "path"})
		for _, ev := range logs {
			_ = cw.Write([]string{ev.Timestamp.Format(time.RFC3339), ev.Type, string(ev.Severity), ev.IP, ev.UserAgent, ev.Path})
		}
		cw.Flush()
		return
	}
	writeJSON(w, 200, map[string]any{"logs": logs, "alerts": s.store.Alerts()})
}

func (s *Server) adminSecurityStats(w http.ResponseWriter, r *http.Request, _ *security.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, 200, s.store.SecurityStats())
}

func (s *Server) adminExportProducts(w http.ResponseWriter, r *http.Request, _ *security.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	list, err := s.catalog.GetAllProducts(r.Context())
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"ID", "Nombre", "Slug", "Categoría", "Precio", "Condición", "Stock", "Estado", "SKU", "Destacado", "Activo"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for row, p := range list {
		values := []any{p.ID, p.Name, p.Slug, p.CategoryName(), p.Price, p.Condition, p.StockQuantity, string(p.StockStatus), p.SKU, p.Featured, p.Active}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=productos_%s.xlsx", time.Now().Format("2006-01-02")))
	if _, err := f.WriteTo(w); err != nil {
		log.Warn().Err(err).Msg("xlsx export write failed")
	}
}

func (s *Server) adminExportMovements(w http.ResponseWriter, r *http.Request, _ *security.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	mvs, err := s.catalog.Movements(r.Context(), r.URL.Query().Get("product_id"), 0)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"Fecha", "Producto", "Tipo", "Cantidad", "Stock anterior", "Stock nuevo", "Motivo", "Referencia", "Usuario"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for row, mv := range mvs {
		values := []any{mv.CreatedAt.Format(time.RFC3339), mv.ProductID, string(mv.MovementType), mv.Quantity, mv.PreviousStock, mv.NewStock, mv.Reason, mv.ReferenceID, mv.CreatedBy}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=movimientos_%s.xlsx", time.Now().Format("2006-01-02")))
	if _, err := f.WriteTo(w); err != nil {
		log.Warn().Err(err).Msg("xlsx export write failed")
	}
}

// writeCatalogError maps domain errors onto status codes: a write
// without a configured database is 503, a missing record 404, anything
// else 500.
func (s *Server) writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrReadOnlySource):
		writeJSON(w, 503, map[string]any{"error": "catalog is read-only: no database configured"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, 404, map[string]any{"error": "not found"})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, 400, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, 500, map[string]any{"error": err.Error()})
	}
}
