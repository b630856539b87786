package design

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-caseshop/internal/store"
)

const cfgID = "11111111-1111-4111-8111-111111111111"

type stubDesignStore struct {
	created     store.Configuration
	createErr   error
	lastCreated store.CreateConfigurationParams
	createCalls int
	cfg         store.Configuration
	cfgErr      error
}

func (s *stubDesignStore) CreateConfiguration(_ context.Context, p store.CreateConfigurationParams) (store.Configuration, error) {
	s.createCalls++
	s.lastCreated = p
	if s.createErr != nil {
		return store.Configuration{}, s.createErr
	}
	return s.created, nil
}

func (s *stubDesignStore) GetConfiguration(_ context.Context, id string) (store.Configuration, error) {
	if s.cfgErr != nil {
		return store.Configuration{}, s.cfgErr
	}
	return s.cfg, nil
}

func newHandler(st *stubDesignStore) *Handler {
	return &Handler{Store: st, Validate: validator.New(), Logger: zerolog.Nop()}
}

func validBody() string {
	return `{
		"width": 1170, "height": 2532,
		"imageUrl": "https://uploads.example/raw.png",
		"croppedImageUrl": "https://uploads.example/cropped.png",
		"model": "iphone15", "color": "black",
		"finish": "textured", "material": "polycarbonate"
	}`
}

func TestCreateConfiguration(t *testing.T) {
	st := &stubDesignStore{
		created: store.Configuration{
			ID: cfgID, Width: 1170, Height: 2532,
			ImageURL: "https://uploads.example/raw.png",
			Model:    "iphone15", Color: "black",
			Finish: "textured", Material: "polycarbonate",
		},
	}
	h := newHandler(st)

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/configurations", strings.NewReader(validBody())))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"`+cfgID+`"`)
	assert.Equal(t, 1, st.createCalls)
	assert.Equal(t, "polycarbonate", st.lastCreated.Material)
	assert.Equal(t, int32(1170), st.lastCreated.Width)
}

func TestCreateConfigurationRejectsBadPayload(t *testing.T) {
	st := &stubDesignStore{}
	h := newHandler(st)

	cases := map[string]string{
		"invalid json":   `{`,
		"missing fields": `{}`,
		"unknown finish": strings.Replace(validBody(), "textured", "glitter", 1),
		"not a url":      strings.Replace(validBody(), "https://uploads.example/raw.png", "raw.png", 1),
		"negative width": strings.Replace(validBody(), "1170", "-1", 1),
		"bogus material": strings.Replace(validBody(), "polycarbonate", "vibranium", 1),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/configurations", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Zero(t, st.createCalls)
}

func TestCreateConfigurationStoreFailure(t *testing.T) {
	h := newHandler(&stubDesignStore{createErr: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/configurations", strings.NewReader(validBody())))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL")
}

func TestGetConfiguration(t *testing.T) {
	st := &stubDesignStore{
		cfg: store.Configuration{ID: cfgID, Model: "iphone15", Finish: "smooth", Material: "silicone"},
	}
	h := newHandler(st)

	router := chi.NewRouter()
	router.Get("/api/v1/configurations/{configurationID}", h.Get)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/configurations/"+cfgID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"finish":"smooth"`)
}

func TestGetConfigurationNotFound(t *testing.T) {
	h := newHandler(&stubDesignStore{cfgErr: store.ErrConfigurationNotFound})

	router := chi.NewRouter()
	router.Get("/api/v1/configurations/{configurationID}", h.Get)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/configurations/"+cfgID, nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFIGURATION_NOT_FOUND")
}
