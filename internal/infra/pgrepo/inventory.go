package pgrepo

import (
	"context"
	"errors"

	"travelcore/internal/infra"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrCodeLockNotAvailable = "55P03"

type InventoryRepository struct {
	db DBTX
}

func NewInventoryRepository(db DBTX) *InventoryRepository {
	return &InventoryRepository{db: db}
}

var _ shared.InventoryRepository = (*InventoryRepository)(nil)

// Claim takes the unit's row lock first so concurrent claims queue rather
// than both reading the same availability. The decrement is guarded again in
// SQL; a stale-read claim can never drive available below zero.
func (r *InventoryRepository) Claim(ctx context.Context, unitID uuid.UUID, quantity int) error {
	var available int
	err := r.db.QueryRow(ctx,
		`SELECT available FROM inventory_units WHERE id = $1 FOR UPDATE`, unitID,
	).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return infra.NewRepoErr("inventory unit not found", infra.KindNotFound)
		}
		if isLockTimeout(err) {
			return infra.WrapRepoErr("timed out waiting for unit lock", err, infra.KindLockTimeout)
		}
		return infra.WrapRepoErr("failed to lock inventory unit", err)
	}
	if available < quantity {
		return infra.NewRepoErr("insufficient availability", infra.KindInsufficientStock)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE inventory_units
		SET available = available - $2
		WHERE id = $1 AND available >= $2`,
		unitID, quantity,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to claim inventory", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr("insufficient availability", infra.KindInsufficientStock)
	}
	return nil
}

// Release never pushes available above capacity, so a double release degrades
// to a no-op instead of minting phantom inventory.
func (r *InventoryRepository) Release(ctx context.Context, unitID uuid.UUID, quantity int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inventory_units
		SET available = LEAST(capacity, available + $2)
		WHERE id = $1`,
		unitID, quantity,
	)
	if err != nil {
		if isLockTimeout(err) {
			return infra.WrapRepoErr("timed out waiting for unit lock", err, infra.KindLockTimeout)
		}
		return infra.WrapRepoErr("failed to release inventory", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr("inventory unit not found", infra.KindNotFound)
	}
	return nil
}

func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrCodeLockNotAvailable
}
