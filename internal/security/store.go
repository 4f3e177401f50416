// Package security holds the admin-layer state: users, sessions, the
// bounded security-event log and the rate limiters. Everything lives in
// one injectable Store built at process start and is lost on restart;
// nothing here is durable and nothing is shared across instances.
package security

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/suroccidente/storefront/internal/metrics"
)

const (
	RoleViewer    = "viewer"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// RoleRank implements the viewer < moderator < admin hierarchy. Unknown
// roles rank below viewer.
func RoleRank(role string) int {
	switch role {
	case RoleViewer:
		return 1
	case RoleModerator:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

func HasRole(userRole, required string) bool {
	return RoleRank(userRole) >= RoleRank(required)
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	EventLoginAttempt            = "login_attempt"
	EventLoginSuccess            = "login_success"
	EventLoginFailure            = "login_failure"
	EventUnauthorizedAccess      = "unauthorized_access"
	EventInsufficientPermissions = "insufficient_permissions"
	EventRateLimitExceeded       = "rate_limit_exceeded"
	EventCSRFMismatch            = "csrf_mismatch"
	EventInputValidationFailed   = "input_validation_failed"
	EventAccountLocked           = "account_locked"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
)

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Active       bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`

	loginAttempts int
	lockedUntil   time.Time
}

type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	Severity  Severity          `json:"severity"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Path      string            `json:"path,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}

type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
	WindowSec int       `json:"window_seconds"`
}

type Config struct {
	MaxLogEntries       int
	FailureThreshold    int
	SuspiciousThreshold int
	AlertWindow         time.Duration
	SessionTTL          time.Duration
	LockoutAttempts     int
	LockoutDuration     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxLogEntries:       1000,
		FailureThreshold:    5,
		SuspiciousThreshold: 3,
		AlertWindow:         5 * time.Minute,
		SessionTTL:          24 * time.Hour,
		LockoutAttempts:     5,
		LockoutDuration:     15 * time.Minute,
	}
}

type Store struct {
	mu       sync.Mutex
	cfg      Config
	users    map[string]*User
	sessions map[string]*Session
	logs     []Event
	alerts   []Alert

	now func() time.Time
}

func NewStore(cfg Config) *Store {
	def := DefaultConfig()
	if cfg.MaxLogEntries <= 0 {
		cfg.MaxLogEntries = def.MaxLogEntries
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuspiciousThreshold <= 0 {
		cfg.SuspiciousThreshold = def.SuspiciousThreshold
	}
	if cfg.AlertWindow <= 0 {
		cfg.AlertWindow = def.AlertWindow
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.LockoutAttempts <= 0 {
		cfg.LockoutAttempts = def.LockoutAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	return &Store{
		cfg:      cfg,
		users:    map[string]*User{},
		sessions: map[string]*Session{},
		now:      time.Now,
	}
}

// Bootstrap creates the initial admin account. This is the one place a
// missing required value is fatal to startup.
func (s *Store) Bootstrap(username, email, password string) error {
	if password == "" {
		return errors.New("admin bootstrap password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleAdmin,
		Active:       true,
		CreatedAt:    s.now(),
	}
	return nil
}

// Authenticate checks the credential and maintains the failed-attempt
// counter: five failures lock the account for the configured duration,
// a success resets it.
func (s *Store) Authenticate(username, password string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok || !u.Active {
		return nil, ErrInvalidCredentials
	}
	if s.now().Before(u.lockedUntil) {
		return nil, ErrAccountLocked
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		u.loginAttempts++
		if u.loginAttempts >= s.cfg.LockoutAttempts {
			u.lockedUntil = s.now().Add(s.cfg.LockoutDuration)
		}
		return nil, ErrInvalidCredentials
	}
	u.loginAttempts = 0
	u.lockedUntil = time.Time{}
	now := s.now()
	u.LastLogin = &now
	out := *u
	return &out, nil
}

func (s *Store) CreateSession(u *User) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       u.ID,
		Username:     u.Username,
		Role:         u.Role,
		CreatedAt:    s.now(),
		LastActivity: s.now(),
	}
	s.sessions[sess.ID] = sess
	return sess
}

// Session resolves an id and touches its activity timestamp. A session
// idle past the TTL is discarded and reported as absent.
func (s *Store) Session(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.now().Sub(sess.LastActivity) >= s.cfg.SessionTTL {
		delete(s.sessions, id)
		return nil, false
	}
	sess.LastActivity = s.now()
	out := *sess
	return &out, true
}

func (s *Store) DeleteSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// StartSweeper purges idle sessions on a ticker until ctx ends.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := s.PurgeSessions(); n > 0 {
					log.Debug().Int("purged", n).Msg("expired sessions removed")
				}
			}
		}
	}()
}

func (s *Store) PurgeSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for id, sess := range s.sessions {
		if s.now().Sub(sess.LastActivity) >= s.cfg.SessionTTL {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged
}

// LogEvent appends to the bounded security log (oldest evicted first)
// and runs the threshold check. Alerting is observational only: it
// synthesizes a record and a warn log, never an error.
func (s *Store) LogEvent(evType string, severity Severity, ip, userAgent, path string, detail map[string]string) Event {
	s.mu.Lock()
	ev := Event{
		ID:        uuid.NewString(),
		Timestamp: s.now(),
		Type:      evType,
		Severity:  severity,
		IP:        ip,
		UserAgent: userAgent,
		Path:      path,
		Detail:    detail,
	}
	s.logs = append(s.logs, ev)
	if len(s.logs) > s.cfg.MaxLogEntries {
		s.logs = s.logs[len(s.logs)-s.cfg.MaxLogEntries:]
	}
	alert := s.checkThresholds(ev)
	s.mu.Unlock()

	metrics.SecurityEvents.WithLabelValues(evType, string(severity)).Inc()
	if alert != nil {
		log.Warn().
			Str("alert_type", alert.Type).
			Int("count", alert.Count).
			Int("window_seconds", alert.WindowSec).
			Msg("security alert threshold reached")
	}
	return ev
}

func (s *Store) checkThresholds(ev Event) *Alert {
	cutoff := s.now().Add(-s.cfg.AlertWindow)
	if isFailureEvent(ev.Type) {
		n := s.countSince(cutoff, isFailureEvent)
		if n >= s.cfg.FailureThreshold {
			return s.appendAlert("multiple_failures", n)
		}
	}
	if isSuspiciousEvent(ev.Type) {
		n := s.countSince(cutoff, isSuspiciousEvent)
		if n >= s.cfg.SuspiciousThreshold {
			return s.appendAlert("suspicious_pattern", n)
		}
	}
	return nil
}

func (s *Store) countSince(cutoff time.Time, match func(string) bool) int {
	n := 0
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].Timestamp.Before(cutoff) {
			break
		}
		if match(s.logs[i].Type) {
			n++
		}
	}
	return n
}

func (s *Store) appendAlert(alertType string, count int) *Alert {
	a := Alert{
		ID:        uuid.NewString(),
		Type:      alertType,
		Timestamp: s.now(),
		Count:     count,
		WindowSec: int(s.cfg.AlertWindow.Seconds()),
	}
	s.alerts = append(s.alerts, a)
	if len(s.alerts) > s.cfg.MaxLogEntries {
		s.alerts = s.alerts[len(s.alerts)-s.cfg.MaxLogEntries:]
	}
	return &a
}

func isFailureEvent(t string) bool {
	switch t {
	case EventLoginFailure, EventRateLimitExceeded, EventInputValidationFailed, EventUnauthorizedAccess:
		return true
	}
	return false
}

func isSuspiciousEvent(t string) bool {
	switch t {
	case EventCSRFMismatch, EventInsufficientPermissions, EventAccountLocked:
		return true
	}
	return false
}

// Logs returns up to limit entries, newest first.
func (s *Store) Logs(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.logs))
	copy(out, s.logs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) Alerts() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

type Stats struct {
	TotalEvents    int            `json:"total_events"`
	CriticalEvents int            `json:"critical_events"`
	WarningEvents  int            `json:"warning_events"`
	AlertsRaised   int            `json:"alerts_raised"`
	EventsByType   map[string]int `json:"events_by_type"`
	ActiveSessions int            `json:"active_sessions"`
}

func (s *Store) SecurityStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{EventsByType: map[string]int{}, AlertsRaised: len(s.alerts), ActiveSessions: len(s.sessions)}
	for _, ev := range s.logs {
		st.TotalEvents++
		st.EventsByType[ev.Type]++
		switch ev.Severity {
		case SeverityCritical:
			st.CriticalEvents++
		case SeverityWarning:
			st.WarningEvents++
		}
	}
	return st
}
