package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bassista/go_autosave/internal/cache"
	"github.com/bassista/go_autosave/internal/repository"
	"github.com/gin-gonic/gin"
)

// mockCrudService implements CrudService[repository.Profile]
type mockCrudService struct {
	removeErr error
	removed   []repository.Profile
	getErr    error
	added     []repository.Profile
}

func (m *mockCrudService) All() ([]repository.Profile, error) { return nil, nil }
func (m *mockCrudService) Get(id string) (repository.Profile, error) {
	if m.getErr != nil {
		return repository.Profile{}, m.getErr
	}
	return repository.Profile{ID: id}, nil
}
func (m *mockCrudService) Add(item repository.Profile) ([]repository.Profile, error) {
	m.added = append(m.added, item)
	return m.added, nil
}
func (m *mockCrudService) Remove(id string) ([]repository.Profile, error) {
	if m.removeErr != nil {
		return nil, m.removeErr
	}
	return m.removed, nil
}

type rejectAll struct{}

func (rejectAll) Validate(repository.Profile) error { return errors.New("rejected") }

func TestCrudController_Delete_MissingID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cc := &CrudController[repository.Profile]{Service: &mockCrudService{}}

	r := gin.New()
	// Register route without :id to simulate missing id param
	r.DELETE("/resource/", cc.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/resource/", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestCrudController_Delete_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	removed := []repository.Profile{{ID: "foo"}}
	cc := &CrudController[repository.Profile]{Service: &mockCrudService{removed: removed}}

	r := gin.New()
	r.DELETE("/resource/:id", cc.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/resource/foo", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp []repository.Profile
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp) != 1 || resp[0].ID != "foo" {
		t.Errorf("unexpected response body: %v", resp)
	}
}

func TestCrudController_Delete_NotFoundAndError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cc1 := &CrudController[repository.Profile]{Service: &mockCrudService{removeErr: cache.ErrProfileNotFound}}
	r1 := gin.New()
	r1.DELETE("/resource/:id", cc1.Delete)
	w1 := httptest.NewRecorder()
	r1.ServeHTTP(w1, httptest.NewRequest(http.MethodDelete, "/resource/x", nil))
	if w1.Code != http.StatusNotFound {
		t.Errorf("expected 404 for not found, got %d", w1.Code)
	}

	cc2 := &CrudController[repository.Profile]{Service: &mockCrudService{removeErr: errors.New("boom")}}
	r2 := gin.New()
	r2.DELETE("/resource/:id", cc2.Delete)
	w2 := httptest.NewRecorder()
	r2.ServeHTTP(w2, httptest.NewRequest(http.MethodDelete, "/resource/x", nil))
	if w2.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for internal error, got %d", w2.Code)
	}
}

func TestCrudController_GetOne(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cc := &CrudController[repository.Profile]{Service: &mockCrudService{}}
	r := gin.New()
	r.GET("/resource/:id", cc.GetOne)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource/p1", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	missing := &CrudController[repository.Profile]{Service: &mockCrudService{getErr: cache.ErrProfileNotFound}}
	r2 := gin.New()
	r2.GET("/resource/:id", missing.GetOne)
	w2 := httptest.NewRecorder()
	r2.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/resource/p1", nil))
	if w2.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w2.Code)
	}
}

func TestCrudController_CreateOrUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		body      string
		validator CrudValidator[repository.Profile]
		want      int
	}{
		{"valid", `{"id":"p1"}`, nil, http.StatusOK},
		{"malformed json", `{"id":`, nil, http.StatusBadRequest},
		{"rejected by validator", `{"id":"p1"}`, rejectAll{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := &CrudController[repository.Profile]{Service: &mockCrudService{}, Validator: tt.validator}
			r := gin.New()
			r.POST("/resource", cc.CreateOrUpdate)

			req := httptest.NewRequest(http.MethodPost, "/resource", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}
