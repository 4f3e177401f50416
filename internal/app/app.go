package app

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/suroccidente/storefront/internal/adapters/httpserver"
	"github.com/suroccidente/storefront/internal/adapters/repo/postgres"
	"github.com/suroccidente/storefront/internal/adapters/repo/staticjson"
	"github.com/suroccidente/storefront/internal/security"
	"github.com/suroccidente/storefront/internal/usecase"
)

type App struct {
	Catalog  *usecase.CatalogUC
	Security *security.Store
	Tokens   *security.TokenManager

	handler http.Handler
}

// NewApp reads the environment once and fixes the catalog wiring for
// the life of the process: a reachable database makes it the primary
// source with the bundled data as fallback, otherwise the app serves
// the bundled data alone and every write is rejected.
func NewApp(ctx context.Context) (*App, error) {
	static, err := staticjson.New()
	if err != nil {
		return nil, err
	}

	catalog := &usecase.CatalogUC{Static: static, Site: static.SiteConfig()}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	anonKey := strings.TrimSpace(os.Getenv("DATABASE_ANON_KEY"))
	if dbURL != "" && anonKey != "" {
		readDB, err := openTier(dbURL, anonKey)
		if err != nil {
			log.Warn().Err(err).Msg("database unreachable, serving bundled catalog only")
		} else {
			catalog.Remote = postgres.NewCatalogRepo(readDB)
			if svcKey := strings.TrimSpace(os.Getenv("DATABASE_SERVICE_KEY")); svcKey != "" {
				writeDB, err := openTier(dbURL, svcKey)
				if err != nil {
					log.Warn().Err(err).Msg("write-tier connection failed, catalog is read-only")
				} else {
					admin := postgres.NewAdminRepo(writeDB)
					if err := admin.Migrate(); err != nil {
						return nil, err
					}
					catalog.Writer = admin
				}
			}
		}
	} else {
		log.Info().Msg("no database configured, serving bundled catalog only")
	}

	adminPass := os.Getenv("ADMIN_PASSWORD")
	if adminPass == "" {
		return nil, errors.New("ADMIN_PASSWORD is required")
	}
	adminUser := os.Getenv("ADMIN_USERNAME")
	if adminUser == "" {
		adminUser = "admin"
	}
	store := security.NewStore(security.DefaultConfig())
	if err := store.Bootstrap(adminUser, os.Getenv("ADMIN_EMAIL"), adminPass); err != nil {
		return nil, err
	}
	store.StartSweeper(ctx, time.Hour)

	secret := os.Getenv("JWT_SECRET")
	production := strings.ToLower(os.Getenv("APP_ENV")) == "production"
	if secret == "" {
		if production {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		secret = "dev-secret"
		log.Warn().Msg("JWT_SECRET not set, using development default")
	}
	tokens := security.NewTokenManager(secret, 24*time.Hour)

	loginLimiter := security.NewLimiter(security.LoginPolicy)
	adminLimiter := security.NewLimiter(security.AdminPolicy)
	loginLimiter.StartSweeper(ctx, time.Hour)
	adminLimiter.StartSweeper(ctx, time.Hour)

	return &App{
		Catalog:  catalog,
		Security: store,
		Tokens:   tokens,
		handler:  httpserver.New(catalog, store, tokens, loginLimiter, adminLimiter, production),
	}, nil
}

func (a *App) HTTPHandler() http.Handler { return a.handler }

// openTier connects with the role password for one access tier,
// keeping the rest of the connection URL as given.
func openTier(rawURL, password string) (*gorm.DB, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	user := "postgres"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, password)
	return gorm.Open(gormpg.Open(u.String()), &gorm.Config{})
}
