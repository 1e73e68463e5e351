package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Get(ctx context.Context, orderID string) (Record, error)
	MarkPaymentStatus(ctx context.Context, orderID string, status Status, paidAt *time.Time, gatewayResponse json.RawMessage) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, orderID string) (Record, error) {
	var rec Record
	var status string
	row := r.pool.QueryRow(ctx, `
		SELECT order_id, status, paid_at, gateway_response, updated_at
		FROM payments WHERE order_id=$1
	`, orderID)
	if err := row.Scan(&rec.OrderID, &status, &rec.PaidAt, &rec.GatewayResponse, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}

// MarkPaymentStatus records the outcome of a payment and, for completed
// payments, confirms the matching order. The two updates are sequential and
// not wrapped in a transaction; a failure between them leaves the order
// unconfirmed until the gateway redelivers the notification.
//
// An unknown orderID matches zero rows and is not an error, mirroring how
// the gateway retries on 5xx only. An empty orderID performs no writes.
func (r *PostgresRepository) MarkPaymentStatus(ctx context.Context, orderID string, status Status, paidAt *time.Time, gatewayResponse json.RawMessage) error {
	if orderID == "" {
		return nil
	}
	if gatewayResponse == nil {
		gatewayResponse = json.RawMessage(`{}`)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE payments
		SET status=$2, paid_at=$3, gateway_response=$4, updated_at=now()
		WHERE order_id=$1
	`, orderID, string(status), paidAt, gatewayResponse)
	if err != nil {
		return fmt.Errorf("update payment %s: %w", orderID, err)
	}

	if status == StatusCompleted {
		_, err = r.pool.Exec(ctx, `
			UPDATE orders
			SET status='confirmed', updated_at=now()
			WHERE id=$1
		`, orderID)
		if err != nil {
			return fmt.Errorf("confirm order %s: %w", orderID, err)
		}
	}

	return nil
}
