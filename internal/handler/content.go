package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joestump/group-blocks/internal/auth"
	"github.com/joestump/group-blocks/internal/block"
	"github.com/joestump/group-blocks/internal/groupview"
	"github.com/joestump/group-blocks/internal/i18n"
	"github.com/joestump/group-blocks/internal/metrics"
	"github.com/joestump/group-blocks/internal/store"
)

// ContentFormPage is the group content creation form.
type ContentFormPage struct {
	BasePage
	Group *store.Group
	Type  block.ContentType
	Title string
	Body  string
	Error string
}

// ContentHandler serves the group content creation route the add blocks link to.
type ContentHandler struct {
	view    *groupview.Service
	groups  *store.GroupStore
	content *store.ContentStore
	catalog *i18n.Catalog
	logger  *zap.Logger
}

func NewContentHandler(v *groupview.Service, gs *store.GroupStore, cs *store.ContentStore, c *i18n.Catalog, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{view: v, groups: gs, content: cs, catalog: c, logger: logger}
}

// New serves GET /group/{groupID}/content/create/{pluginID}.
func (h *ContentHandler) New(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	group, b, ok := h.authorize(w, r, user)
	if !ok {
		return
	}
	render(w, http.StatusOK, "content_form.html", ContentFormPage{
		BasePage: BasePage{User: user, Printer: h.catalog.Printer(w, r)},
		Group:    group,
		Type:     b.Type,
	})
}

// Create serves POST /group/{groupID}/content/create/{pluginID}.
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	group, b, ok := h.authorize(w, r, user)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	title, body := r.FormValue("title"), r.FormValue("body")

	item, err := h.content.Create(r.Context(), group.ID, b.Type.PluginID(), user.ID, title, body)
	if err != nil {
		render(w, http.StatusUnprocessableEntity, "content_form.html", ContentFormPage{
			BasePage: BasePage{User: user, Printer: h.catalog.Printer(w, r)},
			Group:    group,
			Type:     b.Type,
			Title:    title,
			Body:     body,
			Error:    err.Error(),
		})
		return
	}
	if err := h.groups.Touch(r.Context(), group.ID); err != nil {
		h.logger.Warn("touch group", zap.String("group_id", group.ID), zap.Error(err))
	}
	metrics.GroupContentCreatedTotal.WithLabelValues(item.PluginID).Inc()
	h.logger.Info("group content created",
		zap.String("content_id", item.ID),
		zap.String("group_id", group.ID),
		zap.String("plugin_id", item.PluginID),
		zap.String("author_id", user.ID))

	http.Redirect(w, r, "/group/"+group.ID, http.StatusSeeOther)
}

// authorize applies the block gate for the route's plugin and writes the
// error response when it fails.
func (h *ContentHandler) authorize(w http.ResponseWriter, r *http.Request, user *store.User) (*store.Group, *block.Block, bool) {
	group, b, err := h.view.Authorize(r.Context(), user, chi.URLParam(r, "groupID"), chi.URLParam(r, "pluginID"))
	switch {
	case err == nil:
		return group, b, true
	case errors.Is(err, store.ErrNotFound), errors.Is(err, groupview.ErrUnknownPlugin):
		http.NotFound(w, r)
	case errors.Is(err, groupview.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		h.logger.Error("authorize group content", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
	return nil, nil, false
}
