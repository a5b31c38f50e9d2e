package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/coursedesk/coursedesk/internal/auth"
	"github.com/coursedesk/coursedesk/internal/shared"
	_ "github.com/coursedesk/coursedesk/testing"
)

type stubRepo struct {
	user     *auth.User
	roleName string
	perms    []string
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) LoadRoleGrants(ctx context.Context, userID int64) (string, []string, error) {
	if s.roleName == "" {
		return "", nil, shared.ErrNotFound
	}
	return s.roleName, s.perms, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	return &auth.User{ID: 1, Email: "user@test.local", Name: "Test User",
		PasswordHash: string(hashed), IsActive: true}
}

// newAuthServer mounts the handler behind the real Redis-backed session
// layer so login and logout exercise the same load/commit path production
// uses. The middleware buffers the response because session commit has to
// write cookie headers before the handler's status goes out.
func newAuthServer(t *testing.T, repo auth.Repository) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo), sessions)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, req)
			require.NoError(t, sessions.Commit(req.Context(), w, req, sess))

			for key, values := range rec.Header() {
				for _, v := range values {
					w.Header().Add(key, v)
				}
			}
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	})
	r.Route("/auth", handler.MountRoutes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLoginSeedsSessionActor(t *testing.T) {
	repo := &stubRepo{
		user:     activeUser(t, "correctpass1"),
		roleName: "ADMIN",
		perms:    []string{"role:READ", "role:UPDATE", "user:READ"},
	}
	srv := newAuthServer(t, repo)
	client := newClient(t)

	resp := postJSON(t, client, srv.URL+"/auth/login",
		map[string]string{"email": "user@test.local", "password": "correctpass1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		UserID      string   `json:"userId"`
		RoleName    string   `json:"roleName"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "1", body.UserID)
	assert.Equal(t, "ADMIN", body.RoleName)
	assert.Equal(t, []string{"role:READ", "role:UPDATE", "user:READ"}, body.Permissions)
	assert.Len(t, repo.sessions, 1)

	// The cookie-bound session now answers /me without touching the repo.
	meResp, err := client.Get(srv.URL + "/auth/me")
	require.NoError(t, err)
	defer meResp.Body.Close()
	require.Equal(t, http.StatusOK, meResp.StatusCode)
	var me struct {
		RoleName string `json:"roleName"`
	}
	require.NoError(t, json.NewDecoder(meResp.Body).Decode(&me))
	assert.Equal(t, "ADMIN", me.RoleName)
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass1"), roleName: "ADMIN"}
	srv := newAuthServer(t, repo)

	resp := postJSON(t, newClient(t), srv.URL+"/auth/login",
		map[string]string{"email": "user@test.local", "password": "wrongpass1"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, repo.sessions)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t, "correctpass1")
	user.IsActive = false
	srv := newAuthServer(t, &stubRepo{user: user, roleName: "ADMIN"})

	resp := postJSON(t, newClient(t), srv.URL+"/auth/login",
		map[string]string{"email": "user@test.local", "password": "correctpass1"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginWithoutRoleYieldsNoPermissions(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass1")}
	srv := newAuthServer(t, repo)

	resp := postJSON(t, newClient(t), srv.URL+"/auth/login",
		map[string]string{"email": "user@test.local", "password": "correctpass1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		RoleName    string   `json:"roleName"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.RoleName)
	assert.Empty(t, body.Permissions)
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass1"), roleName: "ADMIN"}
	srv := newAuthServer(t, repo)
	client := newClient(t)

	resp := postJSON(t, client, srv.URL+"/auth/login",
		map[string]string{"email": "user@test.local", "password": "correctpass1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, client, srv.URL+"/auth/logout", map[string]string{})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, repo.sessions)

	meResp, err := client.Get(srv.URL + "/auth/me")
	require.NoError(t, err)
	defer meResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, meResp.StatusCode)
}

func TestMeUnauthenticated(t *testing.T) {
	srv := newAuthServer(t, &stubRepo{})

	resp, err := http.Get(srv.URL + "/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
