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
	"github.com/joestump/group-blocks/internal/store"
)

// IndexPage lists the groups.
type IndexPage struct {
	BasePage
	Groups []*store.Group
}

// GroupPage shows one group, its content and the add blocks the viewer may use.
type GroupPage struct {
	BasePage
	Group     *store.Group
	Content   []*store.GroupContent
	Fragments []block.Fragment
}

// GroupsHandler serves the group listing and group pages.
type GroupsHandler struct {
	view    *groupview.Service
	groups  *store.GroupStore
	content *store.ContentStore
	catalog *i18n.Catalog
	logger  *zap.Logger
}

func NewGroupsHandler(v *groupview.Service, gs *store.GroupStore, cs *store.ContentStore, c *i18n.Catalog, logger *zap.Logger) *GroupsHandler {
	return &GroupsHandler{view: v, groups: gs, content: cs, catalog: c, logger: logger}
}

// Index serves GET /.
func (h *GroupsHandler) Index(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.List(r.Context())
	if err != nil {
		h.logger.Error("list groups", zap.Error(err))
		http.Error(w, "could not load groups", http.StatusInternalServerError)
		return
	}
	render(w, http.StatusOK, "index.html", IndexPage{
		BasePage: BasePage{User: auth.UserFromContext(r.Context()), Printer: h.catalog.Printer(w, r)},
		Groups:   groups,
	})
}

// Show serves GET /group/{groupID}. The page carries the cache contexts and
// tags of every rendered block.
func (h *GroupsHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	p := h.catalog.Printer(w, r)

	view, err := h.view.ForGroup(r.Context(), user, chi.URLParam(r, "groupID"), p)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("load group view", zap.Error(err))
		http.Error(w, "could not load group", http.StatusInternalServerError)
		return
	}

	items, err := h.content.ListByGroup(r.Context(), view.Group.ID)
	if err != nil {
		h.logger.Error("list group content", zap.String("group_id", view.Group.ID), zap.Error(err))
		http.Error(w, "could not load group content", http.StatusInternalServerError)
		return
	}

	block.SetCacheHeaders(w.Header(), view.CacheFragments())
	render(w, http.StatusOK, "group.html", GroupPage{
		BasePage:  BasePage{User: user, Printer: p},
		Group:     view.Group,
		Content:   items,
		Fragments: view.Fragments,
	})
}
