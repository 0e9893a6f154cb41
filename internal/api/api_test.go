package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/joestump/group-blocks/internal/api"
	"github.com/joestump/group-blocks/internal/auth"
	"github.com/joestump/group-blocks/internal/block"
	"github.com/joestump/group-blocks/internal/groupview"
	"github.com/joestump/group-blocks/internal/i18n"
	"github.com/joestump/group-blocks/internal/store"
	"github.com/joestump/group-blocks/internal/testutil"
)

type apiTestEnv struct {
	router http.Handler
	users  *store.UserStore
	groups *store.GroupStore
	viewer *store.User
}

// newAPITestEnv builds the API router with a viewer middleware that puts
// env.viewer on the context, falling back to the anonymous account.
func newAPITestEnv(t *testing.T) *apiTestEnv {
	t.Helper()
	db := testutil.NewTestDB(t)

	reg, err := block.NewRegistry(block.DefaultContentTypes(), nil, block.DefaultRoutes())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	catalog, err := i18n.LoadEmbedded("en-US")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if err := catalog.Register(); err != nil {
		t.Fatalf("register catalog: %v", err)
	}

	env := &apiTestEnv{
		users:  store.NewUserStore(db),
		groups: store.NewGroupStore(db),
	}
	svc := groupview.NewService(reg, env.groups, store.NewSettingsStore(db), zap.NewNop())

	viewer := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := env.viewer
			if u == nil {
				u, _ = env.users.Anonymous(r.Context())
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
		})
	}

	env.router = api.NewAPIRouter(api.Deps{
		Viewer:    viewer,
		GroupView: svc,
		Catalog:   catalog,
		Logger:    zap.NewNop(),
	})
	return env
}

func (e *apiTestEnv) get(t *testing.T, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestListBlocks(t *testing.T) {
	env := newAPITestEnv(t)

	rec := env.get(t, "/blocks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp api.BlockListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(resp.Blocks))
	}
	food := resp.Blocks[0]
	if food.ID != "group_add_food_block" || food.PluginID != "group_node:food" {
		t.Errorf("food block = %+v", food)
	}
	if food.AccountPermission != "create food content" || food.GroupPermission != "create group_node:food entity" {
		t.Errorf("food permissions = %q, %q", food.AccountPermission, food.GroupPermission)
	}
}

func TestGroupBlocks(t *testing.T) {
	env := newAPITestEnv(t)
	ctx := context.Background()

	g, err := env.groups.Create(ctx, block.PublicGroupType, "Kitchen")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	member, err := env.users.Upsert(ctx, "test", "m1", "m1@example.com", "Member", "")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := env.groups.AddMember(ctx, g.ID, member.ID, store.GroupRoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}

	t.Run("anonymous sees nothing", func(t *testing.T) {
		env.viewer = nil
		rec := env.get(t, "/groups/"+g.ID+"/blocks", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp api.GroupBlocksResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.Fragments) != 0 {
			t.Errorf("fragments = %+v, want none", resp.Fragments)
		}
		for _, d := range resp.Decisions {
			if d.Result != block.Forbidden.String() {
				t.Errorf("%s = %s, want forbidden", d.BlockID, d.Result)
			}
		}
	})

	t.Run("member sees both links", func(t *testing.T) {
		env.viewer = member
		rec := env.get(t, "/groups/"+g.ID+"/blocks", http.Header{"Accept-Language": {"nl-NL"}})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp api.GroupBlocksResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.Fragments) != 2 {
			t.Fatalf("fragments = %d, want 2", len(resp.Fragments))
		}
		if got := resp.Fragments[0].Label; got != "Eten toevoegen" {
			t.Errorf("label = %q, want translated", got)
		}
		if got := resp.Fragments[1].URL; got != "/group/"+g.ID+"/content/create/group_node:menu" {
			t.Errorf("menu URL = %q", got)
		}
		if got := rec.Header().Get(block.HeaderCacheTags); got != "group:"+g.ID {
			t.Errorf("%s = %q", block.HeaderCacheTags, got)
		}
		if got := rec.Header().Get(block.HeaderCacheContexts); got != block.CacheContextURLPath {
			t.Errorf("%s = %q", block.HeaderCacheContexts, got)
		}
	})

	t.Run("missing group", func(t *testing.T) {
		rec := env.get(t, "/groups/missing/blocks", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "NOT_FOUND") {
			t.Errorf("body = %s", rec.Body.String())
		}
	})
}
