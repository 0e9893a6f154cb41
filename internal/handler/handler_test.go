package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/joestump/group-blocks/internal/auth"
	"github.com/joestump/group-blocks/internal/block"
	"github.com/joestump/group-blocks/internal/groupview"
	"github.com/joestump/group-blocks/internal/handler"
	"github.com/joestump/group-blocks/internal/i18n"
	"github.com/joestump/group-blocks/internal/store"
	"github.com/joestump/group-blocks/internal/testutil"
)

type fakeAuthenticator struct {
	claims *auth.Claims
}

func (f *fakeAuthenticator) AuthCodeURL(state, challenge string) string {
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeAuthenticator) Exchange(ctx context.Context, code, verifier string) (*auth.Claims, error) {
	return f.claims, nil
}

type testEnv struct {
	router   http.Handler
	idp      *fakeAuthenticator
	users    *store.UserStore
	groups   *store.GroupStore
	content  *store.ContentStore
	settings *store.SettingsStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithTypes(t, block.DefaultContentTypes())
}

func newTestEnvWithTypes(t *testing.T, types []block.ContentType) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	logger := zap.NewNop()

	reg, err := block.NewRegistry(types, nil, block.DefaultRoutes())
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

	env := &testEnv{
		idp:      &fakeAuthenticator{},
		users:    store.NewUserStore(db),
		groups:   store.NewGroupStore(db),
		content:  store.NewContentStore(db),
		settings: store.NewSettingsStore(db),
	}
	sm := auth.NewSessionManager(db, "sqlite3", time.Hour, false)
	env.router = handler.NewRouter(handler.Deps{
		SessionManager: sm,
		AuthHandlers:   auth.NewHandlers(env.idp, sm, env.users, "", false, logger),
		AuthMiddleware: auth.NewMiddleware(sm, env.users, logger),
		GroupView:      groupview.NewService(reg, env.groups, env.settings, logger),
		GroupStore:     env.groups,
		ContentStore:   env.content,
		SettingsStore:  env.settings,
		Catalog:        catalog,
		Logger:         logger,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// login signs subject in through the auth routes and returns the session
// cookie and the stored user.
func (e *testEnv) login(t *testing.T, subject string) ([]*http.Cookie, *store.User) {
	t.Helper()
	e.idp.claims = &auth.Claims{Issuer: "https://idp.example.com", Subject: subject, Email: subject + "@example.com", Name: subject}

	w := e.do(t, http.MethodGet, "/auth/login", nil, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("login status = %d", w.Code)
	}
	cookies := w.Result().Cookies()
	var state string
	for _, c := range cookies {
		if c.Name == "__auth_state" {
			state = c.Value
		}
	}

	w = e.do(t, http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(state), nil, cookies)
	if w.Code != http.StatusFound {
		t.Fatalf("callback status = %d: %s", w.Code, w.Body.String())
	}
	var session []*http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "group_blocks_session" {
			session = append(session, c)
		}
	}
	if len(session) == 0 {
		t.Fatal("callback did not set a session cookie")
	}

	u, err := e.users.GetByEmail(context.Background(), subject+"@example.com")
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	return session, u
}

func (e *testEnv) seedGroup(t *testing.T, groupType string) *store.Group {
	t.Helper()
	g, err := e.groups.Create(context.Background(), groupType, "Kitchen")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return g
}

func (e *testEnv) join(t *testing.T, g *store.Group, u *store.User) {
	t.Helper()
	if err := e.groups.AddMember(context.Background(), g.ID, u.ID, store.GroupRoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}
}

func TestGroupPage_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	g := env.seedGroup(t, block.PublicGroupType)

	w := env.do(t, http.MethodGet, "/group/"+g.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "/content/create/") {
		t.Error("anonymous viewer sees an add link")
	}
	if !strings.Contains(body, "No content yet.") {
		t.Error("empty group message missing")
	}
	if got := w.Header().Get(block.HeaderCacheTags); got != "group:"+g.ID {
		t.Errorf("%s = %q", block.HeaderCacheTags, got)
	}
}

func TestGroupPage_MemberSeesBlocks(t *testing.T) {
	env := newTestEnv(t)
	g := env.seedGroup(t, block.PublicGroupType)
	session, u := env.login(t, "alice")
	env.join(t, g, u)

	w := env.do(t, http.MethodGet, "/group/"+g.ID+"?lang=nl", nil, session)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`href="/group/` + g.ID + `/content/create/group_node:food"`,
		`href="/group/` + g.ID + `/content/create/group_node:menu"`,
		`class="btn btn-primary btn-raised waves-effect brand-bg-primary"`,
		"Eten toevoegen",
		"Menu toevoegen",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}

	// Disabling public visibility hides the links from plain members.
	if err := env.settings.Set(context.Background(), block.DisablePublicVisibilityKey, "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	w = env.do(t, http.MethodGet, "/group/"+g.ID, nil, session)
	if strings.Contains(w.Body.String(), "/content/create/") {
		t.Error("member sees add links with public visibility disabled")
	}
}

func TestGroupPage_NotFound(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/group/missing", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreateContent(t *testing.T) {
	env := newTestEnv(t)
	g := env.seedGroup(t, "open_group")
	session, u := env.login(t, "alice")
	outsider, _ := env.login(t, "bob")
	env.join(t, g, u)

	target := "/group/" + g.ID + "/content/create/group_node:food"

	tests := []struct {
		name    string
		method  string
		target  string
		form    url.Values
		cookies []*http.Cookie
		want    int
	}{
		{"anonymous redirects to login", http.MethodGet, target, nil, nil, http.StatusFound},
		{"outsider forbidden", http.MethodGet, target, nil, outsider, http.StatusForbidden},
		{"unknown plugin", http.MethodGet, "/group/" + g.ID + "/content/create/group_node:event", nil, session, http.StatusNotFound},
		{"unknown group", http.MethodGet, "/group/missing/content/create/group_node:food", nil, session, http.StatusNotFound},
		{"member form", http.MethodGet, target, nil, session, http.StatusOK},
		{"blank title", http.MethodPost, target, url.Values{"title": {"  "}}, session, http.StatusUnprocessableEntity},
		{"outsider post forbidden", http.MethodPost, target, url.Values{"title": {"Soup"}}, outsider, http.StatusForbidden},
		{"member creates", http.MethodPost, target, url.Values{"title": {"Soup"}, "body": {"Hot"}}, session, http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.target, tt.form, tt.cookies)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	items, err := env.content.ListByGroup(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("ListByGroup: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Soup" || items[0].PluginID != "group_node:food" || items[0].AuthorID != u.ID {
		t.Errorf("items = %+v", items)
	}

	w := env.do(t, http.MethodGet, "/group/"+g.ID, nil, session)
	if !strings.Contains(w.Body.String(), "Soup") {
		t.Error("group page does not list created content")
	}
}

func TestConfiguredLabelWithPercent(t *testing.T) {
	deal := block.ContentType{Bundle: "deal", Label: "Add 50% Deal"}
	env := newTestEnvWithTypes(t, []block.ContentType{deal})
	ctx := context.Background()
	g := env.seedGroup(t, "open_group")
	session, u := env.login(t, "alice")
	env.join(t, g, u)

	if err := env.users.Grant(ctx, store.RoleUser, deal.AccountPermission()); err != nil {
		t.Fatalf("grant account permission: %v", err)
	}
	if err := env.groups.Grant(ctx, "open_group", store.GroupRoleMember, deal.GroupPermission()); err != nil {
		t.Fatalf("grant group permission: %v", err)
	}

	w := env.do(t, http.MethodGet, "/group/"+g.ID, nil, session)
	if !strings.Contains(w.Body.String(), "Add 50% Deal") {
		t.Errorf("group page missing label, body:\n%s", w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/group/"+g.ID+"/content/create/group_node:deal", nil, session)
	if w.Code != http.StatusOK {
		t.Fatalf("form status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Add 50% Deal") || strings.Contains(body, "MISSING") {
		t.Errorf("form label garbled, body:\n%s", body)
	}
}

func TestAdminSettings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session, u := env.login(t, "root")

	w := env.do(t, http.MethodGet, "/admin/settings", nil, session)
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", w.Code)
	}

	if _, err := env.users.UpdateRole(ctx, u.ID, store.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	w = env.do(t, http.MethodGet, "/admin/settings", nil, session)
	if w.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "checked") {
		t.Error("checkbox checked before the setting is enabled")
	}

	w = env.do(t, http.MethodPut, "/admin/settings", url.Values{"disable_public_visibility": {"1"}}, session)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200", w.Code)
	}
	s, err := env.settings.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, _ := s.Get(block.DisablePublicVisibilityKey); v != "1" {
		t.Errorf("setting = %q, want 1", v)
	}

	w = env.do(t, http.MethodPost, "/admin/settings", url.Values{}, session)
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d, want 200", w.Code)
	}
	s, _ = env.settings.Load(ctx)
	if v, _ := s.Get(block.DisablePublicVisibilityKey); v != "0" {
		t.Errorf("setting = %q, want 0", v)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
