package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, configuration_id, user_id, amount_cents, currency, is_paid, status,
	shipping_address_id, billing_address_id, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                   Order
		id, cfgID           pgtype.UUID
		shippingID, billing pgtype.UUID
	)
	err := row.Scan(&id, &cfgID, &o.UserID, &o.AmountCents, &o.Currency, &o.IsPaid, &o.Status,
		&shippingID, &billing, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.ID = uuidString(id)
	o.ConfigurationID = uuidString(cfgID)
	o.ShippingAddressID = uuidString(shippingID)
	o.BillingAddressID = uuidString(billing)
	return o, nil
}

// GetOrder loads an order by id.
func (s *Store) GetOrder(ctx context.Context, id string) (Order, error) {
	uid, err := uuidParam(id)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, uid)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("store: get order: %w", err)
	}
	return o, nil
}

// FindUnpaidOrder returns the open order for a user and configuration, if one
// exists. The partial unique index guarantees at most one.
func (s *Store) FindUnpaidOrder(ctx context.Context, userID, configurationID string) (Order, error) {
	cfgID, err := uuidParam(configurationID)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidID, configurationID)
	}
	row := s.Pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND configuration_id = $2 AND is_paid = false`,
		userID, cfgID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("store: find unpaid order: %w", err)
	}
	return o, nil
}

// CreateOrderParams carries the fields for a new order.
type CreateOrderParams struct {
	UserID          string
	ConfigurationID string
	AmountCents     int64
	Currency        string
}

const createOrderSQL = `
INSERT INTO orders (configuration_id, user_id, amount_cents, currency)
VALUES ($1, $2, $3, $4)
RETURNING ` + orderColumns

// CreateOrder inserts an unpaid order. When a concurrent request already
// created the open order for the same user and configuration, the unique
// index fires and the existing order is returned instead.
func (s *Store) CreateOrder(ctx context.Context, p CreateOrderParams) (Order, error) {
	cfgID, err := uuidParam(p.ConfigurationID)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidID, p.ConfigurationID)
	}
	row := s.Pool.QueryRow(ctx, createOrderSQL, cfgID, p.UserID, p.AmountCents, p.Currency)
	o, err := scanOrder(row)
	if err == nil {
		return o, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return s.FindUnpaidOrder(ctx, p.UserID, p.ConfigurationID)
	}
	return Order{}, fmt.Errorf("store: create order: %w", err)
}

// SettlementAddresses carries the shipping and billing addresses captured
// from a completed payment.
type SettlementAddresses struct {
	Shipping Address
	Billing  Address
}

const insertAddressSQL = `
INSERT INTO addresses (name, street, city, state, postal_code, country, phone_number)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

const markPaidSQL = `
UPDATE orders
SET is_paid = true, shipping_address_id = $2, billing_address_id = $3, updated_at = now()
WHERE id = $1 AND is_paid = false
RETURNING ` + orderColumns

// MarkOrderPaid settles an order in one transaction: both addresses are
// inserted and the order flips to paid. Returns ErrOrderNotFound when no such
// order exists and ErrAlreadySettled when it was paid before this call; in
// either case nothing is written.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID string, addrs SettlementAddresses) (Order, error) {
	uid, err := uuidParam(orderID)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidID, orderID)
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("store: begin settlement: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var isPaid bool
	err = tx.QueryRow(ctx, `SELECT is_paid FROM orders WHERE id = $1 FOR UPDATE`, uid).Scan(&isPaid)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("store: lock order: %w", err)
	}
	if isPaid {
		return Order{}, ErrAlreadySettled
	}

	shippingID, err := insertAddress(ctx, tx, addrs.Shipping)
	if err != nil {
		return Order{}, fmt.Errorf("store: insert shipping address: %w", err)
	}
	billingID, err := insertAddress(ctx, tx, addrs.Billing)
	if err != nil {
		return Order{}, fmt.Errorf("store: insert billing address: %w", err)
	}

	row := tx.QueryRow(ctx, markPaidSQL, uid, shippingID, billingID)
	o, err := scanOrder(row)
	if err != nil {
		return Order{}, fmt.Errorf("store: mark order paid: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("store: commit settlement: %w", err)
	}
	return o, nil
}

func insertAddress(ctx context.Context, tx pgx.Tx, a Address) (pgtype.UUID, error) {
	var id pgtype.UUID
	err := tx.QueryRow(ctx, insertAddressSQL,
		a.Name, a.Street, a.City, textParam(a.State), a.PostalCode, a.Country, textParam(a.PhoneNumber),
	).Scan(&id)
	return id, err
}

// GetAddress loads a stored address by id.
func (s *Store) GetAddress(ctx context.Context, id string) (Address, error) {
	uid, err := uuidParam(id)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	var (
		a            Address
		addrID       pgtype.UUID
		state, phone pgtype.Text
	)
	row := s.Pool.QueryRow(ctx,
		`SELECT id, name, street, city, state, postal_code, country, phone_number FROM addresses WHERE id = $1`, uid)
	err = row.Scan(&addrID, &a.Name, &a.Street, &a.City, &state, &a.PostalCode, &a.Country, &phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, fmt.Errorf("store: address %s not found", id)
	}
	if err != nil {
		return Address{}, fmt.Errorf("store: get address: %w", err)
	}
	a.ID = uuidString(addrID)
	a.State = textValue(state)
	a.PhoneNumber = textValue(phone)
	return a, nil
}
