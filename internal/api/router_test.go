// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package api

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cityofrecipes/internal/apperrors"
	"github.com/tomtom215/cityofrecipes/internal/auth"
	"github.com/tomtom215/cityofrecipes/internal/authz"
	"github.com/tomtom215/cityofrecipes/internal/config"
	"github.com/tomtom215/cityofrecipes/internal/logging"
	"github.com/tomtom215/cityofrecipes/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

type testServer struct {
	handler   http.Handler
	contests  *mockContests
	ratings   *mockRatings
	directory *mockDirectory
}

type serverOption func(*HandlerDeps, *ChiMiddlewareConfig)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	ts := &testServer{
		contests:  newMockContests(),
		ratings:   &mockRatings{},
		directory: newMockDirectory(),
	}
	deps := HandlerDeps{
		Contests:  ts.contests,
		Ratings:   ts.ratings,
		Directory: ts.directory,
		DB:        mockPinger{},
	}
	mc := DefaultChiMiddlewareConfig()
	mc.RateLimitDisabled = true
	for _, opt := range opts {
		opt(&deps, mc)
	}

	authn, err := auth.NewMiddleware(&config.SecurityConfig{AuthMode: "none"}, nil, AccessErrorWriter())
	if err != nil {
		t.Fatal(err)
	}
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		t.Fatal(err)
	}
	ts.handler = NewRouter(RouterDeps{
		Handler:       NewHandler(deps),
		Authenticator: authn,
		Enforcer:      enforcer,
		Middleware:    mc,
	}).Setup()
	return ts
}

// do sends a request as role ("" for anonymous) and decodes the envelope.
func (ts *testServer) do(t *testing.T, method, path, role, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	if role != "" {
		r.Header.Set(auth.HeaderUserID, role+"-1")
		r.Header.Set(auth.HeaderUserRole, role)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("invalid envelope %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func wantError(t *testing.T, w *httptest.ResponseRecorder, env envelope, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", w.Body.String())
	}
	if env.Error.Code != code {
		t.Errorf("error code = %q, want %q", env.Error.Code, code)
	}
}

func TestPublicContestRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.contests.active = []models.Contest{{ID: "c1", Name: "Pies"}}
	ts.contests.contests["c1"] = &models.ContestView{
		Contest: models.Contest{ID: "c1", Slug: "pies"},
		Status:  models.StatusOpen,
	}

	paths := []string{
		"/api/v1/contests/active",
		"/api/v1/contests/finished",
		"/api/v1/contests/c1",
		"/api/v1/contests/by-slug/pies",
		"/api/v1/contests/c1/recipes",
		"/api/v1/contests/by-recipe/r1",
		"/api/v1/contests/available-for-recipe/r1",
		"/api/v1/categories",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			w, env := ts.do(t, http.MethodGet, path, "", "")
			if w.Code != http.StatusOK || !env.Success {
				t.Errorf("status = %d body = %s", w.Code, w.Body.String())
			}
			if env.Meta == nil || env.Meta.RequestID == "" {
				t.Error("meta.request_id missing")
			}
			if env.Meta != nil && env.Meta.RequestID != w.Header().Get("X-Request-ID") {
				t.Error("meta.request_id does not match X-Request-ID header")
			}
		})
	}
}

func TestGetContest_View(t *testing.T) {
	ts := newTestServer(t)
	ts.contests.contests["c1"] = &models.ContestView{
		Contest:   models.Contest{ID: "c1", Name: "Pies"},
		Status:    models.StatusClosed,
		Frozen:    true,
		Standings: []models.Standing{},
	}

	w, env := ts.do(t, http.MethodGet, "/api/v1/contests/c1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var view models.ContestView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatal(err)
	}
	if view.ID != "c1" || !view.Frozen || view.Status != models.StatusClosed {
		t.Errorf("view = %+v", view)
	}

	w, env = ts.do(t, http.MethodGet, "/api/v1/contests/missing", "", "")
	wantError(t, w, env, http.StatusNotFound, apperrors.CodeContestNotFound)
}

func TestEnroll(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/v1/contests/c1/recipes/r1", "", "")
	wantError(t, w, env, http.StatusUnauthorized, ErrCodeUnauthorized)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/contests/c1/recipes/r1", auth.RoleUser, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if got := ts.contests.enrolled; len(got) != 1 || got[0] != [3]string{"c1", "r1", "user-1"} {
		t.Errorf("enrolled = %v", got)
	}
}

func TestEnroll_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not author", apperrors.PermissionDenied(apperrors.CodeNotRecipeAuthor, "nope"), http.StatusForbidden, apperrors.CodeNotRecipeAuthor},
		{"closed", apperrors.Conflict(apperrors.CodeContestClosed, "closed"), http.StatusConflict, apperrors.CodeContestClosed},
		{"duplicate", apperrors.Conflict(apperrors.CodeAlreadyParticipating, "dup"), http.StatusConflict, apperrors.CodeAlreadyParticipating},
		{"missing recipe", apperrors.NotFound(apperrors.CodeRecipeNotFound, "gone"), http.StatusNotFound, apperrors.CodeRecipeNotFound},
		{"popularity", apperrors.Conflict(apperrors.CodeNotEnoughRatings, "few"), http.StatusConflict, apperrors.CodeNotEnoughRatings},
		{"storage", apperrors.Internal("boom", errors.New("disk on fire")), http.StatusInternalServerError, apperrors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.contests.enrollErr = tt.err
			w, env := ts.do(t, http.MethodPost, "/api/v1/contests/c1/recipes/r1", auth.RoleUser, "")
			wantError(t, w, env, tt.status, tt.code)
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	ts := newTestServer(t)
	ts.contests.err = apperrors.Internal("failed to list", errors.New("secret dsn"))

	w, env := ts.do(t, http.MethodGet, "/api/v1/contests/active", "", "")
	wantError(t, w, env, http.StatusInternalServerError, apperrors.CodeInternal)
	if strings.Contains(w.Body.String(), "secret dsn") {
		t.Error("internal error detail leaked to client")
	}
}

func TestAdminRoutes(t *testing.T) {
	contestBody := `{"name":"Summer Pie","start_date":"2026-06-01T00:00:00Z","end_date":"2026-06-30T00:00:00Z"}`

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"create contest", "/api/v1/contests", contestBody, http.StatusCreated},
		{"finalize", "/api/v1/contests/c1/finalize", "", http.StatusOK},
		{"create category", "/api/v1/categories", `{"name":"Desserts"}`, http.StatusCreated},
		{"create user", "/api/v1/users", `{"username":"olena","email":"olena@example.com"}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			w, env := ts.do(t, http.MethodPost, tt.path, auth.RoleUser, tt.body)
			wantError(t, w, env, http.StatusForbidden, ErrCodeForbidden)

			w, _ = ts.do(t, http.MethodPost, tt.path, auth.RoleAdmin, tt.body)
			if w.Code != tt.status {
				t.Errorf("admin status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestCreateContest_PassesInput(t *testing.T) {
	ts := newTestServer(t)
	body := `{"name":"Summer Pie","start_date":"2026-06-01T00:00:00Z","end_date":"2026-06-30T00:00:00Z","min_popularity":3}`
	w, _ := ts.do(t, http.MethodPost, "/api/v1/contests", auth.RoleAdmin, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	in := ts.contests.created[0]
	if in.Name != "Summer Pie" || in.MinPopularity != 3 || !in.EndDate.Equal(time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("input = %+v", in)
	}
}

func TestFinalize_ReturnsWinners(t *testing.T) {
	ts := newTestServer(t)
	ts.contests.winners = []models.RecipeSnapshot{{RecipeID: "A", ContestScore: 5}}

	w, env := ts.do(t, http.MethodPost, "/api/v1/contests/c1/finalize", auth.RoleAdmin, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got finalizeResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.ContestID != "c1" || len(got.Winners) != 1 || got.Winners[0].RecipeID != "A" {
		t.Errorf("response = %+v", got)
	}
}

func TestRateRecipe(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/api/v1/recipes/r1/ratings", auth.RoleUser, `{"stars":4}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if len(ts.ratings.votes) != 1 || ts.ratings.votes[0] != 4 {
		t.Errorf("votes = %v", ts.ratings.votes)
	}

	w, env := ts.do(t, http.MethodPost, "/api/v1/recipes/r1/ratings", auth.RoleUser, `{bad`)
	wantError(t, w, env, http.StatusBadRequest, apperrors.CodeInvalidInput)

	w, env = ts.do(t, http.MethodPost, "/api/v1/recipes/r1/ratings", auth.RoleUser, `{"stars":4,"extra":1}`)
	wantError(t, w, env, http.StatusBadRequest, apperrors.CodeInvalidInput)

	ts.ratings.err = apperrors.Invalid(apperrors.CodeInvalidStars, "stars must be between 1 and 5")
	w, env = ts.do(t, http.MethodPost, "/api/v1/recipes/r1/ratings", auth.RoleUser, `{"stars":9}`)
	wantError(t, w, env, http.StatusBadRequest, apperrors.CodeInvalidStars)
}

func TestCreateRecipe(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/v1/recipes", auth.RoleUser, `{"name":"Borscht Deluxe"}`)
	wantError(t, w, env, http.StatusNotFound, apperrors.CodeUserNotFound)

	ts.directory.users["user-1"] = &models.User{ID: "user-1", Username: "u"}

	w, env = ts.do(t, http.MethodPost, "/api/v1/recipes", auth.RoleUser, `{"name":"Borscht","category_id":"nope"}`)
	wantError(t, w, env, http.StatusNotFound, apperrors.CodeCategoryNotFound)

	w, env = ts.do(t, http.MethodPost, "/api/v1/recipes", auth.RoleUser, `{"name":"  ","photo_url":"ftp://x"}`)
	wantError(t, w, env, http.StatusBadRequest, apperrors.CodeInvalidInput)
	if env.Error.Details == nil {
		t.Error("validation details missing")
	}

	w, env = ts.do(t, http.MethodPost, "/api/v1/recipes", auth.RoleUser, `{"name":"Borscht Deluxe","ingredients":"буряк, сіль"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var recipe models.Recipe
	if err := json.Unmarshal(env.Data, &recipe); err != nil {
		t.Fatal(err)
	}
	if recipe.Slug != "borscht-deluxe" || recipe.AuthorID != "user-1" {
		t.Errorf("recipe = %+v", recipe)
	}

	w, _ = ts.do(t, http.MethodGet, "/api/v1/recipes/"+recipe.ID, "", "")
	if w.Code != http.StatusOK {
		t.Errorf("GET recipe status = %d", w.Code)
	}
	w, env = ts.do(t, http.MethodGet, "/api/v1/recipes/unknown", "", "")
	wantError(t, w, env, http.StatusNotFound, apperrors.CodeRecipeNotFound)
}

func TestCreateUser_IssuesToken(t *testing.T) {
	tokens, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: strings.Repeat("k", 32)})
	if err != nil {
		t.Fatal(err)
	}
	ts := newTestServer(t, func(d *HandlerDeps, _ *ChiMiddlewareConfig) { d.Tokens = tokens })

	w, env := ts.do(t, http.MethodPost, "/api/v1/users", auth.RoleAdmin,
		`{"username":"olena","email":"olena@example.com","role":"admin"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var resp createUserResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatal(err)
	}
	claims, err := tokens.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.Subject != resp.User.ID || claims.Role != auth.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}

	w, env = ts.do(t, http.MethodPost, "/api/v1/users", auth.RoleAdmin, `{"username":"x","email":"not-an-email"}`)
	wantError(t, w, env, http.StatusBadRequest, apperrors.CodeInvalidInput)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	if w, _ := ts.do(t, http.MethodGet, "/health/live", "", ""); w.Code != http.StatusOK {
		t.Errorf("live status = %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodGet, "/health/ready", "", ""); w.Code != http.StatusOK {
		t.Errorf("ready status = %d", w.Code)
	}

	down := newTestServer(t, func(d *HandlerDeps, _ *ChiMiddlewareConfig) {
		d.DB = mockPinger{err: errors.New("db down")}
	})
	w, env := down.do(t, http.MethodGet, "/health/ready", "", "")
	wantError(t, w, env, http.StatusServiceUnavailable, ErrCodeNotReady)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Errorf("metrics status = %d", w.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	w, env := ts.do(t, http.MethodGet, "/api/v1/nope", "", "")
	wantError(t, w, env, http.StatusNotFound, ErrCodeNotFound)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(_ *HandlerDeps, mc *ChiMiddlewareConfig) {
		mc.RateLimitDisabled = false
		mc.RateLimitRequests = 1
		mc.RateLimitWindow = time.Minute
	})

	if w, _ := ts.do(t, http.MethodGet, "/api/v1/contests/active", "", ""); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	w, env := ts.do(t, http.MethodGet, "/api/v1/contests/active", "", "")
	wantError(t, w, env, http.StatusTooManyRequests, ErrCodeTooManyRequests)
}

func TestStatusForKind(t *testing.T) {
	tests := map[apperrors.Kind]int{
		apperrors.KindNotFound:         http.StatusNotFound,
		apperrors.KindPermissionDenied: http.StatusForbidden,
		apperrors.KindConflict:         http.StatusConflict,
		apperrors.KindInvalid:          http.StatusBadRequest,
		apperrors.KindInternal:         http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := statusForKind(kind); got != want {
			t.Errorf("statusForKind(%s) = %d, want %d", kind, got, want)
		}
	}
}
