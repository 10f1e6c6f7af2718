package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/01moynul/orderdesk/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SQLStore keeps orders in the orders/order_items tables and accounts in
// users. The SQL sticks to what both MySQL and SQLite accept.
type SQLStore struct {
	DB *sql.DB
}

// NewSQLStore wraps an open, migrated pool.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) Close(context.Context) error {
	return s.DB.Close()
}

const orderColumns = `
	id, user_id, payment_method,
	ship_address, ship_city, ship_postal_code, ship_country,
	items_price, tax_price, shipping_price, total_price,
	is_paid, paid_at, payment_state, remote_order_id,
	payment_id, payment_status, payment_update_time, payment_email,
	is_delivered, delivered_at, created_at, updated_at`

// CreateOrder inserts the order and its line items in one transaction.
func (s *SQLStore) CreateOrder(ctx context.Context, in *models.NewOrder) (*models.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	o := newOrderFrom(in)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, payment_method,
			ship_address, ship_city, ship_postal_code, ship_country,
			items_price, tax_price, shipping_price, total_price,
			is_paid, payment_state, is_delivered, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?, FALSE, ?, ?)`,
		o.ID.Hex(), o.UserID.Hex(), o.PaymentMethod,
		o.ShippingAddress.Address, o.ShippingAddress.City, o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
		o.ItemsPrice, o.TaxPrice, o.ShippingPrice, o.TotalPrice,
		o.PaymentState, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, line_no, product_id, name, quantity, unit_price, image)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for i, item := range o.OrderItems {
		_, err := tx.ExecContext(ctx, itemQuery, o.ID.Hex(), i, item.Product.Hex(), item.Name, item.Quantity, item.Price, item.Image)
		if err != nil {
			return nil, fmt.Errorf("insert order item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create order: %w", err)
	}
	return o, nil
}

// GetOrder returns the order with its line items.
func (s *SQLStore) GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT"+orderColumns+" FROM orders WHERE id = ?", id.Hex())
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, fmt.Errorf("get order %s: %w", id.Hex(), err)
	}

	if err := s.attachItems(ctx, []*models.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrdersByUser returns the user's orders, newest first.
func (s *SQLStore) ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.listOrders(ctx, "WHERE user_id = ?", userID.Hex())
}

// ListOrders returns every order, newest first.
func (s *SQLStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.listOrders(ctx, "")
}

func (s *SQLStore) ListCapturePending(ctx context.Context) ([]models.Order, error) {
	return s.listOrders(ctx, "WHERE payment_state = ? AND is_paid = FALSE", models.PaymentCapturePending)
}

func (s *SQLStore) listOrders(ctx context.Context, where string, args ...any) ([]models.Order, error) {
	query := "SELECT" + orderColumns + " FROM orders " + where + " ORDER BY created_at DESC, id DESC"
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var ptrs []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	if err := s.attachItems(ctx, ptrs); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(ptrs))
	for _, o := range ptrs {
		orders = append(orders, *o)
	}
	return orders, nil
}

// attachItems loads the line items of all given orders with one query.
func (s *SQLStore) attachItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[string]*models.Order, len(orders))
	args := make([]any, 0, len(orders))
	for _, o := range orders {
		o.OrderItems = []models.OrderItem{}
		byID[o.ID.Hex()] = o
		args = append(args, o.ID.Hex())
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	rows, err := s.DB.QueryContext(ctx, `
		SELECT order_id, product_id, name, quantity, unit_price, image
		FROM order_items
		WHERE order_id IN (`+placeholders+`)
		ORDER BY order_id, line_no`, args...)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID, productID string
		var item models.OrderItem
		if err := rows.Scan(&orderID, &productID, &item.Name, &item.Quantity, &item.Price, &item.Image); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if item.Product, err = primitive.ObjectIDFromHex(productID); err != nil {
			return fmt.Errorf("order item product id %q: %w", productID, err)
		}
		if o, ok := byID[orderID]; ok {
			o.OrderItems = append(o.OrderItems, item)
		}
	}
	return rows.Err()
}

func (s *SQLStore) BeginCapture(ctx context.Context, id primitive.ObjectID, remoteOrderID string) (*models.Order, error) {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE orders SET payment_state = ?, remote_order_id = ?, updated_at = ?
		WHERE id = ? AND is_paid = FALSE`,
		models.PaymentCapturePending, remoteOrderID, now(), id.Hex())
	if err != nil {
		return nil, fmt.Errorf("begin capture %s: %w", id.Hex(), err)
	}
	return s.GetOrder(ctx, id)
}

// MarkPaid flips the paid flag. The guard on is_paid makes concurrent or
// repeated calls produce a single transition.
func (s *SQLStore) MarkPaid(ctx context.Context, id primitive.ObjectID, result models.PaymentResult) (*models.Order, error) {
	ts := now()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE orders SET
			is_paid = TRUE, paid_at = ?, payment_state = ?,
			payment_id = ?, payment_status = ?, payment_update_time = ?, payment_email = ?,
			updated_at = ?
		WHERE id = ? AND is_paid = FALSE`,
		ts, models.PaymentPaid,
		nullString(result.ID), nullString(result.Status), nullString(result.UpdateTime), nullString(result.EmailAddress),
		ts, id.Hex())
	if err != nil {
		return nil, fmt.Errorf("mark order %s paid: %w", id.Hex(), err)
	}
	return s.GetOrder(ctx, id)
}

func (s *SQLStore) MarkDelivered(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	ts := now()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE orders SET is_delivered = TRUE, delivered_at = ?, updated_at = ?
		WHERE id = ? AND is_delivered = FALSE`,
		ts, ts, id.Hex())
	if err != nil {
		return nil, fmt.Errorf("mark order %s delivered: %w", id.Hex(), err)
	}
	return s.GetOrder(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o                                  models.Order
		id, userID                         string
		paidAt, deliveredAt                sql.NullTime
		remoteID, payID, payStatus, payUpd sql.NullString
		payEmail                           sql.NullString
	)

	err := row.Scan(
		&id, &userID, &o.PaymentMethod,
		&o.ShippingAddress.Address, &o.ShippingAddress.City, &o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.ItemsPrice, &o.TaxPrice, &o.ShippingPrice, &o.TotalPrice,
		&o.IsPaid, &paidAt, &o.PaymentState, &remoteID,
		&payID, &payStatus, &payUpd, &payEmail,
		&o.IsDelivered, &deliveredAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if o.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("order id %q: %w", id, err)
	}
	if o.UserID, err = primitive.ObjectIDFromHex(userID); err != nil {
		return nil, fmt.Errorf("order user id %q: %w", userID, err)
	}
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		o.PaidAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time.UTC()
		o.DeliveredAt = &t
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	o.RemoteOrderID = remoteID.String
	if payID.Valid || payStatus.Valid || payUpd.Valid || payEmail.Valid {
		o.PaymentResult = &models.PaymentResult{
			ID:           payID.String,
			Status:       payStatus.String,
			UpdateTime:   payUpd.String,
			EmailAddress: payEmail.String,
		}
	}
	return &o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
