package uow

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"travelcore/internal/infra/pgrepo"
	"travelcore/internal/pkg/errs"
	"travelcore/internal/usecase/shared"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
)

var (
	errTransactionBegin   = errs.New("failed to begin transaction")
	errTransactionCommit  = errs.New("failed to commit transaction")
	errMaxRetriesExceeded = errs.New("transaction failed after max retries")
)

type PostgresUoW struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewPostgresUoW(pool *pgxpool.Pool, lockTimeout time.Duration) shared.UnitOfWork {
	return &PostgresUoW{pool: pool, lockTimeout: lockTimeout}
}

// ReadCommitted prevents dirty reads while allowing concurrent writes. Unit
// claims serialize on row locks inside the transaction, not on isolation
// level.
func (u *PostgresUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runInTxWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (u *PostgresUoW) Reads() shared.CommandReads {
	return pgrepo.NewCommandReads(u.pool)
}

// Avoids defer accumulation in retry loops to prevent connection leaks
func (u *PostgresUoW) runInTxWithOptions(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, tx shared.Tx) error) error {
	const maxRetries = 3
	base := 100 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		pgxTx, err := u.pool.BeginTx(ctx, options)
		if err != nil {
			return errs.Mark(err, errTransactionBegin)
		}

		err = u.applyLockTimeout(ctx, pgxTx)
		if err == nil {
			tx := &pgTx{dbtx: pgxTx}
			err = fn(ctx, tx)
		}
		if err == nil {
			if err = pgxTx.Commit(ctx); err == nil {
				return nil
			}
			err = errs.Mark(err, errTransactionCommit)
		}

		if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
			if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				slog.Warn("rollback failed", "attempt", attempt+1, "error", rollbackErr.Error())
			}
		}

		if !shouldRetry(err, attempt, maxRetries) {
			if attempt == maxRetries {
				slog.Error("transaction failed after max retries",
					"attempts", attempt+1,
					"error", err.Error())
				return errs.Mark(err, errMaxRetriesExceeded)
			}
			return err
		}

		waitTime := calculateBackoff(attempt, base)

		slog.Warn("retrying transaction due to retryable error",
			"attempt", attempt+1,
			"wait_ms", waitTime.Milliseconds(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}

	return errMaxRetriesExceeded
}

// SET LOCAL bounds how long a claim waits on a contended unit row. Scoped to
// the transaction; the session default is untouched.
func (u *PostgresUoW) applyLockTimeout(ctx context.Context, tx pgx.Tx) error {
	if u.lockTimeout <= 0 {
		return nil
	}
	// SET does not take bind parameters; the value is a trusted config int.
	_, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", u.lockTimeout.Milliseconds()))
	if err != nil {
		return errs.Wrap(err, "failed to set lock timeout")
	}
	return nil
}

func shouldRetry(err error, attempt, maxRetries int) bool {
	return isRetryableError(err) && attempt < maxRetries
}

func calculateBackoff(attempt int, base time.Duration) time.Duration {
	waitTime := time.Duration(1<<attempt) * base
	jitter := cryptoRandInt63n(int64(waitTime / 5))
	return waitTime + time.Duration(jitter)
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	uval := binary.BigEndian.Uint64(buf[:]) & 0x7FFFFFFFFFFFFFFF
	return int64(uval) % n
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgErrCodeSerializationFailure, pgErrCodeDeadlockDetected:
		return true
	default:
		return false
	}
}

type pgTx struct {
	dbtx pgrepo.DBTX

	// Lazy-initialized repositories
	bookingRepo   shared.BookingRepository
	inventoryRepo shared.InventoryRepository
	auditRepo     shared.AuditRepository
	payoutRepo    shared.PayoutRepository
	promoRepo     shared.PromoRepository
	ledgerRepo    shared.LedgerRepository
}

func (t *pgTx) Bookings() shared.BookingRepository {
	if t.bookingRepo == nil {
		t.bookingRepo = pgrepo.NewBookingRepository(t.dbtx)
	}
	return t.bookingRepo
}

func (t *pgTx) Inventory() shared.InventoryRepository {
	if t.inventoryRepo == nil {
		t.inventoryRepo = pgrepo.NewInventoryRepository(t.dbtx)
	}
	return t.inventoryRepo
}

func (t *pgTx) Audit() shared.AuditRepository {
	if t.auditRepo == nil {
		t.auditRepo = pgrepo.NewAuditRepository(t.dbtx)
	}
	return t.auditRepo
}

func (t *pgTx) Payouts() shared.PayoutRepository {
	if t.payoutRepo == nil {
		t.payoutRepo = pgrepo.NewPayoutRepository(t.dbtx)
	}
	return t.payoutRepo
}

func (t *pgTx) Promos() shared.PromoRepository {
	if t.promoRepo == nil {
		t.promoRepo = pgrepo.NewPromoRepository(t.dbtx)
	}
	return t.promoRepo
}

func (t *pgTx) Ledger() shared.LedgerRepository {
	if t.ledgerRepo == nil {
		t.ledgerRepo = pgrepo.NewLedgerRepository(t.dbtx)
	}
	return t.ledgerRepo
}
