package handler

import (
	"io/fs"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/joestump/group-blocks/internal/api"
	"github.com/joestump/group-blocks/internal/auth"
	"github.com/joestump/group-blocks/internal/groupview"
	"github.com/joestump/group-blocks/internal/i18n"
	"github.com/joestump/group-blocks/internal/store"
	"github.com/joestump/group-blocks/web"
)

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	SessionManager *scs.SessionManager
	AuthHandlers   *auth.Handlers
	AuthMiddleware *auth.Middleware
	GroupView      *groupview.Service
	GroupStore     *store.GroupStore
	ContentStore   *store.ContentStore
	SettingsStore  *store.SettingsStore
	Catalog        *i18n.Catalog
	Logger         *zap.Logger
}

// NewRouter assembles the full chi router with all middleware and routes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	// Static assets (embedded); fs.Sub so paths are css/app.css, not static/css/...
	staticSub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("failed to sub static FS: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServerFS(staticSub)))
	r.Handle("/metrics", promhttp.Handler())

	// Everything below reads the session.
	r.Group(func(r chi.Router) {
		r.Use(deps.SessionManager.LoadAndSave)

		if deps.AuthHandlers != nil {
			r.Get("/auth/login", deps.AuthHandlers.Login)
			r.Get("/auth/callback", deps.AuthHandlers.Callback)
			r.Post("/auth/logout", deps.AuthHandlers.Logout)
		}

		groups := NewGroupsHandler(deps.GroupView, deps.GroupStore, deps.ContentStore, deps.Catalog, deps.Logger)
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.Viewer)
			r.Get("/", groups.Index)
			r.Get("/group/{groupID}", groups.Show)
		})

		// The add blocks link here; the same gate guards the route.
		content := NewContentHandler(deps.GroupView, deps.GroupStore, deps.ContentStore, deps.Catalog, deps.Logger)
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/group/{groupID}/content/create/{pluginID}", content.New)
			r.Post("/group/{groupID}/content/create/{pluginID}", content.Create)
		})

		admin := NewAdminHandler(deps.SettingsStore, deps.Catalog, deps.Logger)
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireRole(store.RoleAdmin))
			r.Get("/admin/settings", admin.Settings)
			r.Put("/admin/settings", admin.UpdateSettings)
			r.Post("/admin/settings", admin.UpdateSettings)
		})

		r.Mount("/api/v1", api.NewAPIRouter(api.Deps{
			Viewer:    deps.AuthMiddleware.Viewer,
			GroupView: deps.GroupView,
			Catalog:   deps.Catalog,
			Logger:    deps.Logger,
		}))
	})

	return r
}
