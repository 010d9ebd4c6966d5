package batchtype

import (
	"context"
	"fmt"
	"time"

	"batchline/internal/core/id"
	"batchline/internal/core/tx"
	"batchline/internal/domain"
	"batchline/pkg/numerator"
)

// Service provides business logic for the BatchType catalog.
type Service struct {
	*domain.CatalogService[*BatchType]
	repo      Repository
	txManager tx.Manager
	numerator numerator.Generator
}

// NewService creates a new BatchType service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*BatchType]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "batch_type",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		txManager:      txManager,
		numerator:      gen,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)
	base.Hooks().On(domain.BeforeUpdate, svc.prepareForUpdate)

	return svc
}

// GetDefault resolves the default batch type for receipts that omit one.
func (s *Service) GetDefault(ctx context.Context) (*BatchType, error) {
	return s.repo.GetDefault(ctx)
}

// SetDefault moves the default flag to the given type atomically.
func (s *Service) SetDefault(ctx context.Context, typeID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		bt, err := s.repo.GetForUpdate(ctx, typeID)
		if err != nil {
			return err
		}
		if err := s.repo.ClearDefault(ctx); err != nil {
			return err
		}
		bt.IsDefault = true
		return s.repo.Update(ctx, bt)
	})
}

// prepareForCreate handles code generation and the default flag.
func (s *Service) prepareForCreate(ctx context.Context, bt *BatchType) error {
	if bt.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.Config{Prefix: "BT", PadWidth: 4}, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		bt.Code = code
	}

	if bt.IsDefault {
		if err := s.repo.ClearDefault(ctx); err != nil {
			return err
		}
	}

	return nil
}

// prepareForUpdate handles the default flag.
func (s *Service) prepareForUpdate(ctx context.Context, bt *BatchType) error {
	if bt.IsDefault {
		if err := s.repo.ClearDefault(ctx); err != nil {
			return err
		}
	}
	return nil
}
