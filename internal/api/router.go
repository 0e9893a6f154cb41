// Package api serves the JSON view of the blocks for hosts that assemble
// pages themselves.
package api

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

// Deps holds all dependencies required to build the API router.
type Deps struct {
	// Viewer puts the session account, or the anonymous one, on the context.
	Viewer    func(http.Handler) http.Handler
	GroupView *groupview.Service
	Catalog   *i18n.Catalog
	Logger    *zap.Logger
}

// NewAPIRouter creates a chi sub-router for /api/v1. All routes return
// application/json.
func NewAPIRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(jsonContentType)
	if deps.Viewer != nil {
		r.Use(deps.Viewer)
	}

	h := &blocksAPIHandler{view: deps.GroupView, catalog: deps.Catalog, logger: deps.Logger}
	r.Get("/blocks", h.List)
	r.Get("/groups/{groupID}/blocks", h.ForGroup)

	return r
}

// jsonContentType is a middleware that sets Content-Type: application/json on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type blocksAPIHandler struct {
	view    *groupview.Service
	catalog *i18n.Catalog
	logger  *zap.Logger
}

// List returns every registered block.
// GET /api/v1/blocks
//
// @Summary      List blocks
// @Description  Returns every configured add content block with its plugin id and required permissions.
// @Tags         Blocks
// @Produce      json
// @Success      200  {object}  BlockListResponse
// @Router       /blocks [get]
func (h *blocksAPIHandler) List(w http.ResponseWriter, r *http.Request) {
	blocks := h.view.Registry().List()
	resp := BlockListResponse{Blocks: make([]BlockResponse, 0, len(blocks))}
	for _, b := range blocks {
		resp.Blocks = append(resp.Blocks, toBlockResponse(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ForGroup returns the fragments the viewer may see in a group, with the
// merged cache metadata as response headers.
// GET /api/v1/groups/{groupID}/blocks
//
// @Summary      Blocks visible in a group
// @Description  Returns the add links the current viewer may see in the group and the access result of every block. Cache contexts and tags are sent in the X-Cache-Contexts and Cache-Tag headers.
// @Tags         Blocks
// @Produce      json
// @Param        groupID  path      string  true  "Group ID"
// @Success      200      {object}  GroupBlocksResponse
// @Failure      401      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /groups/{groupID}/blocks [get]
func (h *blocksAPIHandler) ForGroup(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED")
		return
	}

	view, err := h.view.ForGroup(r.Context(), user, chi.URLParam(r, "groupID"), h.catalog.Printer(w, r))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "group not found", "NOT_FOUND")
		return
	}
	if err != nil {
		h.logger.Error("group blocks", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR")
		return
	}

	resp := GroupBlocksResponse{
		GroupID:   view.Group.ID,
		GroupType: view.Group.Type,
		Fragments: view.Fragments,
		Decisions: make([]DecisionResponse, 0, len(view.Decisions)),
	}
	if resp.Fragments == nil {
		resp.Fragments = []block.Fragment{}
	}
	for _, d := range view.Decisions {
		resp.Decisions = append(resp.Decisions, DecisionResponse{BlockID: d.BlockID, Result: d.Result.String()})
	}

	block.SetCacheHeaders(w.Header(), view.CacheFragments())
	writeJSON(w, http.StatusOK, resp)
}
