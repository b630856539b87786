package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const getConfigurationSQL = `
SELECT id, width, height, image_url, cropped_image_url, model, color, finish, material, created_at, updated_at
FROM configurations
WHERE id = $1`

// GetConfiguration loads a configuration by id.
func (s *Store) GetConfiguration(ctx context.Context, id string) (Configuration, error) {
	uid, err := uuidParam(id)
	if err != nil {
		return Configuration{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	var (
		cfg     Configuration
		cfgID   pgtype.UUID
		cropped pgtype.Text
	)
	row := s.Pool.QueryRow(ctx, getConfigurationSQL, uid)
	err = row.Scan(&cfgID, &cfg.Width, &cfg.Height, &cfg.ImageURL, &cropped,
		&cfg.Model, &cfg.Color, &cfg.Finish, &cfg.Material, &cfg.CreatedAt, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Configuration{}, ErrConfigurationNotFound
	}
	if err != nil {
		return Configuration{}, fmt.Errorf("store: get configuration: %w", err)
	}
	cfg.ID = uuidString(cfgID)
	cfg.CroppedImageURL = textValue(cropped)
	return cfg, nil
}

const createConfigurationSQL = `
INSERT INTO configurations (width, height, image_url, cropped_image_url, model, color, finish, material)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, updated_at`

// CreateConfigurationParams carries the fields for a new configuration.
type CreateConfigurationParams struct {
	Width           int32
	Height          int32
	ImageURL        string
	CroppedImageURL string
	Model           string
	Color           string
	Finish          string
	Material        string
}

// CreateConfiguration inserts a configuration and returns it with generated
// fields populated.
func (s *Store) CreateConfiguration(ctx context.Context, p CreateConfigurationParams) (Configuration, error) {
	var id pgtype.UUID
	cfg := Configuration{
		Width:           p.Width,
		Height:          p.Height,
		ImageURL:        p.ImageURL,
		CroppedImageURL: p.CroppedImageURL,
		Model:           p.Model,
		Color:           p.Color,
		Finish:          p.Finish,
		Material:        p.Material,
	}
	row := s.Pool.QueryRow(ctx, createConfigurationSQL,
		p.Width, p.Height, p.ImageURL, textParam(p.CroppedImageURL), p.Model, p.Color, p.Finish, p.Material)
	if err := row.Scan(&id, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		return Configuration{}, fmt.Errorf("store: create configuration: %w", err)
	}
	cfg.ID = uuidString(id)
	return cfg, nil
}
