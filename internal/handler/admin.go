package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/joestump/group-blocks/internal/auth"
	"github.com/joestump/group-blocks/internal/block"
	"github.com/joestump/group-blocks/internal/i18n"
	"github.com/joestump/group-blocks/internal/store"
)

// SettingsPage is the admin view of the site settings the blocks read.
type SettingsPage struct {
	BasePage
	PublicVisibilityDisabled bool
	Saved                    bool
}

// AdminHandler serves site setting administration.
type AdminHandler struct {
	settings *store.SettingsStore
	catalog  *i18n.Catalog
	logger   *zap.Logger
}

func NewAdminHandler(ss *store.SettingsStore, c *i18n.Catalog, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{settings: ss, catalog: c, logger: logger}
}

// Settings serves GET /admin/settings.
func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	h.renderSettings(w, r, false)
}

// UpdateSettings serves PUT and POST /admin/settings. The checkbox
// disable_public_visibility stores 1 when checked and 0 otherwise.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	value := "0"
	if v := r.FormValue("disable_public_visibility"); v == "1" || v == "on" {
		value = "1"
	}
	if err := h.settings.Set(r.Context(), block.DisablePublicVisibilityKey, value); err != nil {
		h.logger.Error("save settings", zap.Error(err))
		http.Error(w, "could not save settings", http.StatusInternalServerError)
		return
	}
	h.logger.Info("public visibility setting changed",
		zap.String("value", value),
		zap.String("user_id", auth.UserFromContext(r.Context()).ID))
	h.renderSettings(w, r, true)
}

func (h *AdminHandler) renderSettings(w http.ResponseWriter, r *http.Request, saved bool) {
	s, err := h.settings.Load(r.Context())
	if err != nil {
		h.logger.Error("load settings", zap.Error(err))
		http.Error(w, "could not load settings", http.StatusInternalServerError)
		return
	}
	render(w, http.StatusOK, "admin/settings.html", SettingsPage{
		BasePage:                 BasePage{User: auth.UserFromContext(r.Context()), Printer: h.catalog.Printer(w, r)},
		PublicVisibilityDisabled: s.Int(block.DisablePublicVisibilityKey, 0) == 1,
		Saved:                    saved,
	})
}
