// Package mutation provides the ledger mutation service: the only
// writer of batch quantities. Commit, adjust, transfer, split and scrap
// share one transactional guard: lock the affected rows, re-check the
// quantity invariants against the freshly read state, write, commit.
package mutation

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"batchline/internal/core/apperror"
	appctx "batchline/internal/core/context"
	"batchline/internal/core/tx"
	"batchline/internal/domain/attrschema"
	"batchline/internal/domain/audit"
	"batchline/internal/domain/catalogs/batchtype"
	"batchline/internal/domain/catalogs/branch"
	"batchline/internal/domain/ledger"
	"batchline/pkg/numerator"
)

var tracer = otel.Tracer("batchline/mutation")

// Service executes guarded ledger mutations.
type Service struct {
	repo       ledger.Repository
	txManager  tx.Manager
	branches   branch.Repository
	batchTypes batchtype.Repository
	validator  *attrschema.Validator
	schemas    ledger.SchemaResolver
	numerator  numerator.Generator
	audit      audit.Recorder
}

// Config wires the mutation service's collaborators.
type Config struct {
	Repo       ledger.Repository
	TxManager  tx.Manager
	Branches   branch.Repository
	BatchTypes batchtype.Repository
	Validator  *attrschema.Validator
	Schemas    ledger.SchemaResolver
	Numerator  numerator.Generator
	Audit      audit.Recorder
}

// NewService creates the mutation service.
func NewService(cfg Config) *Service {
	rec := cfg.Audit
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Service{
		repo:       cfg.Repo,
		txManager:  cfg.TxManager,
		branches:   cfg.Branches,
		batchTypes: cfg.BatchTypes,
		validator:  cfg.Validator,
		schemas:    cfg.Schemas,
		numerator:  cfg.Numerator,
		audit:      rec,
	}
}

// nextNumber issues the operation number before the transaction starts;
// a rolled back operation burns its number.
func (s *Service) nextNumber(ctx context.Context, opType ledger.OperationType) (string, error) {
	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(opType.NumberPrefix()), nil, time.Now())
	if err != nil {
		return "", apperror.NewInternal(err).WithDetail("step", "number")
	}
	return number, nil
}

// newOperation assembles a journal header stamped with the operator.
func (s *Service) newOperation(ctx context.Context, opType ledger.OperationType, number string) *ledger.Operation {
	return ledger.NewOperation(opType, number, appctx.OperatorName(ctx))
}

// requireReason rejects empty operator justifications on adjust/scrap.
func requireReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return apperror.NewValidation("reason is required").WithDetail("field", "reason")
	}
	return nil
}
