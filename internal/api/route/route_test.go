package route

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bassista/go_autosave/internal/app"
	"github.com/bassista/go_autosave/internal/cache"
	"github.com/bassista/go_autosave/internal/config"
	"github.com/bassista/go_autosave/internal/executor"
	"github.com/bassista/go_autosave/internal/repository"
	"github.com/bassista/go_autosave/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*app.App, *cache.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{
			RequestTimeout:     time.Second,
			CORSAllowedOrigins: "*",
		},
		Data: config.DataConfig{PersistInterval: time.Hour},
		AutoSave: config.AutoSaveConfig{
			Delay:          time.Hour,
			SessionTTL:     time.Hour,
			ReaperPoll:     time.Hour,
			Executor:       executor.ExecutorTypeStore,
			MaxBufferBytes: 1 << 10,
		},
	}

	repo, err := repository.NewJSONRepository(filepath.Join(t.TempDir(), "profiles.json"))
	require.NoError(t, err)

	store := cache.NewStore(repository.ProfileDocument{
		Profiles: []repository.Profile{{ID: "p1", Basics: repository.Basics{FullName: "Grace Hopper"}}},
	})
	a, err := app.New(cfg, repo, store, executor.NewStoreExecutor(store), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Cancel() })
	return a, store
}

func doRequest(r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRoutes_Health(t *testing.T) {
	a, _ := newTestApp(t)
	r := SetupRoutes(a, logrus.New())

	w := doRequest(r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "UP", body["message"])
	assert.Equal(t, float64(0), body["sessions"])
	assert.Equal(t, false, body["dirty"])
}

func TestSetupRoutes_Registered(t *testing.T) {
	a, _ := newTestApp(t)
	r := SetupRoutes(a, logrus.New())

	want := map[string]bool{
		"GET /health":              false,
		"GET /profiles":            false,
		"GET /profile/:id":         false,
		"POST /profile":            false,
		"DELETE /profile/:id":      false,
		"GET /sessions":            false,
		"POST /sessions":           false,
		"GET /sessions/:id":        false,
		"PUT /sessions/:id/buffer": false,
		"POST /sessions/:id/save":  false,
		"DELETE /sessions/:id":     false,
		"GET /sessions/:id/events": false,
		"GET /configuration":       false,
	}
	for _, ri := range r.Routes() {
		key := ri.Method + " " + ri.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		assert.True(t, found, "route %s not registered", route)
	}
}

func TestSetupRoutes_SessionLifecycle(t *testing.T) {
	a, store := newTestApp(t)
	r := SetupRoutes(a, logrus.New())

	w := doRequest(r, http.MethodPost, "/sessions", []byte(`{"profileId":"p1","section":"skills"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	var info session.Info
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	require.NotEmpty(t, info.ID)
	assert.Equal(t, time.Hour.Milliseconds(), info.DelayMs)

	w = doRequest(r, http.MethodPut, "/sessions/"+info.ID+"/buffer", []byte(`["go","sql"]`))
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doRequest(r, http.MethodPost, "/sessions/"+info.ID+"/save", nil)
	require.Equal(t, http.StatusOK, w.Code)

	p, err := store.Profile("p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "sql"}, p.Skills)

	w = doRequest(r, http.MethodGet, "/health", nil)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, float64(1), health["sessions"])
	assert.Equal(t, true, health["dirty"])

	w = doRequest(r, http.MethodDelete, "/sessions/"+info.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/sessions/"+info.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRoutes_Configuration(t *testing.T) {
	a, _ := newTestApp(t)
	r := SetupRoutes(a, logrus.New())

	w := doRequest(r, http.MethodGet, "/configuration", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"executor":"store"`)
}
