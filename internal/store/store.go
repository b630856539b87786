// Package store is the persistence layer: hand-written pgx queries over the
// configurations, orders and addresses tables.
package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store executes queries against a pgx pool. Multi-statement operations run
// in a single transaction.
type Store struct {
	Pool *pgxpool.Pool
}

// New wraps a pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// Configuration is a saved phone-case design.
type Configuration struct {
	ID              string
	Width           int32
	Height          int32
	ImageURL        string
	CroppedImageURL string
	Model           string
	Color           string
	Finish          string
	Material        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Address is a stored postal address.
type Address struct {
	ID          string
	Name        string
	Street      string
	City        string
	State       string
	PostalCode  string
	Country     string
	PhoneNumber string
}

// Order is a purchase of one configuration by one user.
type Order struct {
	ID                string
	ConfigurationID   string
	UserID            string
	AmountCents       int64
	Currency          string
	IsPaid            bool
	Status            string
	ShippingAddressID string
	BillingAddressID  string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func uuidParam(id string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, err
	}
	var v pgtype.UUID
	v.Bytes = parsed
	v.Valid = true
	return v, nil
}

func uuidString(v pgtype.UUID) string {
	if !v.Valid {
		return ""
	}
	return uuid.UUID(v.Bytes).String()
}

func textValue(v pgtype.Text) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func textParam(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
