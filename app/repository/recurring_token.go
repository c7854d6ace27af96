package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
)

const RecurringTokenSchema = `
	CREATE TABLE IF NOT EXISTS recurring_tokens (
		shopper_reference          VARCHAR(256) NOT NULL,
		recurring_detail_reference VARCHAR(256) NOT NULL,
		created_at                 DATETIME(6)  NOT NULL,
		updated_at                 DATETIME(6)  NOT NULL,
		PRIMARY KEY (shopper_reference)
	)
`

type RecurringTokenRepository struct {
	db DBTX
}

func NewRecurringTokenRepository(db DBTX) *RecurringTokenRepository {
	return &RecurringTokenRepository{db: db}
}

func (r *RecurringTokenRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, RecurringTokenSchema)
	return err
}

// Store replaces any token already held for the shopper.
func (r *RecurringTokenRepository) Store(ctx context.Context, token *entity.RecurringToken) error {
	if strings.TrimSpace(token.ShopperReference) == "" || strings.TrimSpace(token.RecurringDetailReference) == "" {
		return ErrInvalidToken
	}

	query := `
		INSERT INTO recurring_tokens (shopper_reference, recurring_detail_reference, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`

	now := time.Now().UTC()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	token.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		token.ShopperReference,
		token.RecurringDetailReference,
		token.CreatedAt,
		token.UpdatedAt,
	)
	if err == nil {
		return nil
	}
	if !isDuplicateEntryError(err) {
		return err
	}

	update := `
		UPDATE recurring_tokens
		SET recurring_detail_reference = ?, updated_at = ?
		WHERE shopper_reference = ?
	`
	_, err = r.db.ExecContext(ctx, update, token.RecurringDetailReference, token.UpdatedAt, token.ShopperReference)
	return err
}

func (r *RecurringTokenRepository) Find(ctx context.Context, shopperReference string) (*entity.RecurringToken, error) {
	query := `
		SELECT shopper_reference, recurring_detail_reference, created_at, updated_at
		FROM recurring_tokens
		WHERE shopper_reference = ?
	`

	item := &entity.RecurringToken{}
	if err := scanRecurringToken(r.db.QueryRowContext(ctx, query, shopperReference), item); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return item, nil
}

func (r *RecurringTokenRepository) Delete(ctx context.Context, shopperReference string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recurring_tokens WHERE shopper_reference = ?`, shopperReference)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *RecurringTokenRepository) Exists(ctx context.Context, shopperReference string) (bool, error) {
	item, err := r.Find(ctx, shopperReference)
	if err != nil {
		return false, err
	}
	return item != nil, nil
}

func (r *RecurringTokenRepository) List(ctx context.Context) ([]*entity.RecurringToken, error) {
	query := `
		SELECT shopper_reference, recurring_detail_reference, created_at, updated_at
		FROM recurring_tokens
		ORDER BY shopper_reference ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.RecurringToken, 0)
	for rows.Next() {
		item := &entity.RecurringToken{}
		if err := scanRecurringToken(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecurringToken(scanner rowScanner, item *entity.RecurringToken) error {
	return scanner.Scan(
		&item.ShopperReference,
		&item.RecurringDetailReference,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}
