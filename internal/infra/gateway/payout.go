// Package gateway holds outbound integrations for money movement.
package gateway

import (
	"context"
	"log/slog"
	"strings"

	"travelcore/internal/domain/settlement"
	"travelcore/internal/pkg/errs"
	"travelcore/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errIncompleteBankDetails = errs.New("transfer rejected: incomplete bank details")

// SandboxGateway acknowledges transfers locally and returns a synthetic
// reference. Stands in until the payment provider integration lands; the
// settlement flow treats it exactly like a real provider.
type SandboxGateway struct {
	logger *slog.Logger
}

func NewSandboxGateway(logger *slog.Logger) *SandboxGateway {
	return &SandboxGateway{logger: logger}
}

var _ commands.PayoutGateway = (*SandboxGateway)(nil)

func (g *SandboxGateway) Transfer(ctx context.Context, payoutID, supplierID uuid.UUID, amount decimal.Decimal, bank settlement.BankDetails) (string, error) {
	if !bank.Complete() {
		return "", errIncompleteBankDetails
	}
	ref := "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	g.logger.InfoContext(ctx, "sandbox transfer acknowledged",
		"payout_id", payoutID,
		"supplier_id", supplierID,
		"amount", amount.StringFixed(2),
		"reference", ref,
	)
	return ref, nil
}
