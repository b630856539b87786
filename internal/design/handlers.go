// Package design saves and loads phone-case configurations for the
// storefront's configure flow.
package design

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-caseshop/internal/common"
	"github.com/noah-isme/backend-caseshop/internal/store"
)

// Input mirrors what the configure page submits after cropping the upload.
// Finish and material must match the pricing table's options.
type Input struct {
	Width           int32  `json:"width" validate:"required,gt=0"`
	Height          int32  `json:"height" validate:"required,gt=0"`
	ImageURL        string `json:"imageUrl" validate:"required,url"`
	CroppedImageURL string `json:"croppedImageUrl" validate:"omitempty,url"`
	Model           string `json:"model" validate:"required"`
	Color           string `json:"color" validate:"required"`
	Finish          string `json:"finish" validate:"required,oneof=smooth textured"`
	Material        string `json:"material" validate:"required,oneof=silicone polycarbonate"`
}

type Output struct {
	ID              string `json:"id"`
	Width           int32  `json:"width"`
	Height          int32  `json:"height"`
	ImageURL        string `json:"imageUrl"`
	CroppedImageURL string `json:"croppedImageUrl,omitempty"`
	Model           string `json:"model"`
	Color           string `json:"color"`
	Finish          string `json:"finish"`
	Material        string `json:"material"`
}

// DesignStore is the slice of the store this package needs.
type DesignStore interface {
	CreateConfiguration(ctx context.Context, p store.CreateConfigurationParams) (store.Configuration, error)
	GetConfiguration(ctx context.Context, id string) (store.Configuration, error)
}

type Handler struct {
	Store    DesignStore
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// Create handles POST /api/v1/configurations. The configure flow runs before
// login, so this endpoint is unauthenticated.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "design store not configured", nil)
		return
	}
	var payload Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid configuration", nil)
			return
		}
	}

	cfg, err := h.Store.CreateConfiguration(r.Context(), store.CreateConfigurationParams{
		Width:           payload.Width,
		Height:          payload.Height,
		ImageURL:        payload.ImageURL,
		CroppedImageURL: payload.CroppedImageURL,
		Model:           payload.Model,
		Color:           payload.Color,
		Finish:          payload.Finish,
		Material:        payload.Material,
	})
	if err != nil {
		h.Logger.Error().Err(err).Msg("configuration_create_failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to save configuration", nil)
		return
	}

	h.Logger.Info().Str("configuration_id", cfg.ID).Str("model", cfg.Model).Msg("configuration_created")
	common.JSON(w, http.StatusCreated, map[string]any{"data": toOutput(cfg)})
}

// Get handles GET /api/v1/configurations/{configurationID}. The preview page
// reloads the saved design by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "design store not configured", nil)
		return
	}
	cfg, err := h.Store.GetConfiguration(r.Context(), chi.URLParam(r, "configurationID"))
	if errors.Is(err, store.ErrConfigurationNotFound) || errors.Is(err, store.ErrInvalidID) {
		common.JSONError(w, http.StatusNotFound, "CONFIGURATION_NOT_FOUND", "configuration not found", nil)
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("configuration_load_failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load configuration", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toOutput(cfg)})
}

func toOutput(cfg store.Configuration) Output {
	return Output{
		ID:              cfg.ID,
		Width:           cfg.Width,
		Height:          cfg.Height,
		ImageURL:        cfg.ImageURL,
		CroppedImageURL: cfg.CroppedImageURL,
		Model:           cfg.Model,
		Color:           cfg.Color,
		Finish:          cfg.Finish,
		Material:        cfg.Material,
	}
}
