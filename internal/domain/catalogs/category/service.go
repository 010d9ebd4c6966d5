package category

import (
	"context"
	"fmt"
	"time"

	"batchline/internal/core/tx"
	"batchline/internal/domain"
	"batchline/internal/domain/attrschema"
	"batchline/pkg/numerator"
)

// RuleCompiler checks that extra rules compile before they are stored.
// attrschema.Validator satisfies it.
type RuleCompiler interface {
	CompileRules(rules []string) error
}

// Service provides business logic for the Category catalog.
type Service struct {
	*domain.CatalogService[*Category]
	repo      Repository
	numerator numerator.Generator
	compiler  RuleCompiler
}

// NewService creates a new Category service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator, compiler RuleCompiler) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Category]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "category",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
		compiler:       compiler,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForWrite)
	base.Hooks().On(domain.BeforeUpdate, svc.prepareForWrite)

	return svc
}

// prepareForWrite resolves the archetype, generates a code when missing
// and rejects rules that do not compile. Bad rules must fail here, in
// front of the admin, not later in front of the operator creating a batch.
func (s *Service) prepareForWrite(ctx context.Context, c *Category) error {
	if c.Archetype == "" {
		c.Archetype = attrschema.ResolveArchetype(c.Name)
	}

	if c.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.Config{Prefix: "CT", PadWidth: 4}, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		c.Code = code
	}

	if len(c.ExtraRules) > 0 && s.compiler != nil {
		if err := s.compiler.CompileRules(c.ExtraRules); err != nil {
			return err
		}
	}

	return nil
}
