package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/ea-backend/config"
	"github.com/GoSim-25-26J-441/ea-backend/internal/users"
)

type fakeStore struct {
	roles map[string]users.Role
	err   error
	seen  []users.UpsertUser
}

func (f *fakeStore) EnsureUser(_ context.Context, u users.UpsertUser) (*users.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.seen = append(f.seen, u)
	role, ok := f.roles[u.ExternalID]
	if !ok {
		role = u.DefaultRole
	}
	return &users.User{ID: "db-" + u.ExternalID, ExternalID: u.ExternalID, Role: role}, nil
}

func newRouter(store UserStore, cfg config.AuthConfig, perm users.Permission) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithUser(store, cfg))
	r.GET("/x", Require(perm), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": Actor(c), "id": UserDBID(c)})
	})
	return r
}

func do(r http.Handler, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWithUser(t *testing.T) {
	t.Run("missing header without dev user", func(t *testing.T) {
		r := newRouter(&fakeStore{}, config.AuthConfig{}, users.PermRead)
		assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	})

	t.Run("dev user fallback", func(t *testing.T) {
		store := &fakeStore{}
		r := newRouter(store, config.AuthConfig{DevUser: "demo-user"}, users.PermRead)
		w := do(r, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"actor":"demo-user"`)
		assert.Contains(t, w.Body.String(), `"id":"db-demo-user"`)
	})

	t.Run("admin list sets default role", func(t *testing.T) {
		store := &fakeStore{}
		r := newRouter(store, config.AuthConfig{AdminUsers: []string{"root"}}, users.PermManageUsers)
		assert.Equal(t, http.StatusOK, do(r, "root").Code)
		assert.Equal(t, users.RoleAdmin, store.seen[0].DefaultRole)
	})

	t.Run("store failure", func(t *testing.T) {
		r := newRouter(&fakeStore{err: errors.New("db down")}, config.AuthConfig{}, users.PermRead)
		assert.Equal(t, http.StatusInternalServerError, do(r, "alice").Code)
	})
}

func TestRequire(t *testing.T) {
	store := &fakeStore{roles: map[string]users.Role{
		"arch":  users.RoleArchitect,
		"audit": users.RoleAuditor,
		"view":  users.RoleViewer,
	}}

	tests := []struct {
		user string
		perm users.Permission
		want int
	}{
		{"view", users.PermRead, http.StatusOK},
		{"view", users.PermWrite, http.StatusForbidden},
		{"arch", users.PermWrite, http.StatusOK},
		{"arch", users.PermAudit, http.StatusForbidden},
		{"audit", users.PermAudit, http.StatusOK},
		{"audit", users.PermManageUsers, http.StatusForbidden},
	}
	for _, tt := range tests {
		r := newRouter(store, config.AuthConfig{}, tt.perm)
		assert.Equal(t, tt.want, do(r, tt.user).Code, "%s perm %d", tt.user, tt.perm)
	}
}
