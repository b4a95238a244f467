package pgrepo

import (
	"context"
	"errors"
	"time"

	"travelcore/internal/domain/settlement"
	"travelcore/internal/infra"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrCodeUniqueViolation = "23505"

type PayoutRepository struct {
	db DBTX
}

func NewPayoutRepository(db DBTX) *PayoutRepository {
	return &PayoutRepository{db: db}
}

var _ shared.PayoutRepository = (*PayoutRepository)(nil)

const payoutColumns = `
	id, booking_id, supplier_id,
	gross_value::text, platform_fee::text, refunds::text, penalties::text, net_payable::text,
	status, kyc_verified, bank_verified, block_reason, failure_reason, retry_count,
	bank_holder, bank_account, bank_ifsc, bank_name,
	settled_at, settlement_ref, created_at, updated_at`

func (r *PayoutRepository) Create(ctx context.Context, p *settlement.OwnerPayout) error {
	holder, account, ifsc, bankName := bankColumns(p.BankSnapshot())
	_, err := r.db.Exec(ctx, `
		INSERT INTO owner_payouts (
			id, booking_id, supplier_id,
			gross_value, platform_fee, refunds, penalties, net_payable,
			status, kyc_verified, bank_verified, block_reason, failure_reason, retry_count,
			bank_holder, bank_account, bank_ifsc, bank_name,
			settled_at, settlement_ref, created_at, updated_at
		) VALUES (
			$1, $2, $3,
			$4::numeric, $5::numeric, $6::numeric, $7::numeric, $8::numeric,
			$9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18,
			$19, $20, $21, $22
		)`,
		p.ID(), p.BookingID(), p.SupplierID(),
		numericArg(p.GrossValue()), numericArg(p.PlatformFee()), numericArg(p.Refunds()),
		numericArg(p.Penalties()), numericArg(p.NetPayable()),
		string(p.Status()), p.KYCVerified(), p.BankVerified(), p.BlockReason(), p.FailureReason(), p.RetryCount(),
		holder, account, ifsc, bankName,
		p.SettledAt(), p.SettlementRef(), p.CreatedAt(), p.UpdatedAt(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrCodeUniqueViolation {
			return infra.WrapRepoErr("payout already exists for booking", err, infra.KindDuplicateKey)
		}
		return infra.WrapRepoErr("failed to create payout", err)
	}
	return nil
}

func (r *PayoutRepository) Get(ctx context.Context, id uuid.UUID) (*settlement.OwnerPayout, error) {
	row := r.db.QueryRow(ctx, `SELECT `+payoutColumns+` FROM owner_payouts WHERE id = $1`, id)
	p, err := scanPayout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.NewRepoErr("payout not found", infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get payout", err)
	}
	return p, nil
}

func (r *PayoutRepository) Update(ctx context.Context, p *settlement.OwnerPayout) error {
	holder, account, ifsc, bankName := bankColumns(p.BankSnapshot())
	tag, err := r.db.Exec(ctx, `
		UPDATE owner_payouts
		SET gross_value = $1::numeric,
		    platform_fee = $2::numeric,
		    refunds = $3::numeric,
		    penalties = $4::numeric,
		    net_payable = $5::numeric,
		    status = $6,
		    kyc_verified = $7,
		    bank_verified = $8,
		    block_reason = $9,
		    failure_reason = $10,
		    retry_count = $11,
		    bank_holder = $12,
		    bank_account = $13,
		    bank_ifsc = $14,
		    bank_name = $15,
		    settled_at = $16,
		    settlement_ref = $17,
		    updated_at = $18
		WHERE id = $19`,
		numericArg(p.GrossValue()), numericArg(p.PlatformFee()), numericArg(p.Refunds()),
		numericArg(p.Penalties()), numericArg(p.NetPayable()),
		string(p.Status()), p.KYCVerified(), p.BankVerified(), p.BlockReason(), p.FailureReason(), p.RetryCount(),
		holder, account, ifsc, bankName,
		p.SettledAt(), p.SettlementRef(), p.UpdatedAt(), p.ID(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update payout", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr("payout not found", infra.KindNotFound)
	}
	return nil
}

func bankColumns(b *settlement.BankDetails) (holder, account, ifsc, bankName *string) {
	if b == nil {
		return nil, nil, nil, nil
	}
	return &b.HolderName, &b.AccountNumber, &b.IFSC, &b.BankName
}

func scanPayout(row pgx.Row) (*settlement.OwnerPayout, error) {
	var (
		id, bookingID, supplierID                 uuid.UUID
		grossS, feeS, refundsS, penaltiesS, netS  string
		status, blockReason, failureReason        string
		kycVerified, bankVerified                 bool
		retryCount                                int
		bankHolder, bankAccount, bankIFSC, bankNm *string
		settledAt                                 *time.Time
		settlementRef                             string
		createdAt, updatedAt                      time.Time
	)
	err := row.Scan(
		&id, &bookingID, &supplierID,
		&grossS, &feeS, &refundsS, &penaltiesS, &netS,
		&status, &kycVerified, &bankVerified, &blockReason, &failureReason, &retryCount,
		&bankHolder, &bankAccount, &bankIFSC, &bankNm,
		&settledAt, &settlementRef, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	gross, err := scanDecimal(grossS)
	if err != nil {
		return nil, err
	}
	fee, err := scanDecimal(feeS)
	if err != nil {
		return nil, err
	}
	refunds, err := scanDecimal(refundsS)
	if err != nil {
		return nil, err
	}
	penalties, err := scanDecimal(penaltiesS)
	if err != nil {
		return nil, err
	}
	net, err := scanDecimal(netS)
	if err != nil {
		return nil, err
	}

	var snapshot *settlement.BankDetails
	if bankHolder != nil || bankAccount != nil || bankIFSC != nil || bankNm != nil {
		snapshot = &settlement.BankDetails{
			HolderName:    deref(bankHolder),
			AccountNumber: deref(bankAccount),
			IFSC:          deref(bankIFSC),
			BankName:      deref(bankNm),
		}
	}

	return settlement.ReconstructOwnerPayout(
		id, bookingID, supplierID,
		gross, fee, refunds, penalties, net,
		settlement.Status(status),
		kycVerified, bankVerified,
		blockReason, failureReason, retryCount,
		snapshot, settledAt, settlementRef,
		createdAt, updatedAt,
	), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
