package recipe

import (
	"context"
	"fmt"
	"time"

	"batchline/internal/core/apperror"
	"batchline/internal/core/id"
	"batchline/internal/core/tx"
	"batchline/internal/domain"
	"batchline/internal/domain/catalogs/product"
	"batchline/pkg/numerator"
)

// Service provides business logic for the Recipe registry.
type Service struct {
	*domain.CatalogService[*Recipe]
	repo      Repository
	products  product.Repository
	numerator numerator.Generator
}

// NewService creates a new Recipe service.
func NewService(repo Repository, products product.Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Recipe]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "recipe",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		products:       products,
		numerator:      gen,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)
	base.Hooks().On(domain.BeforeUpdate, svc.checkProducts)

	return svc
}

// Resolve picks the recipe for a virtual product. An explicit recipeID
// pins a specific recipe (active or not); otherwise the product must have
// exactly one active recipe. Zero is NotFound, more than one is a
// validation error naming the candidates so the caller can pin.
func (s *Service) Resolve(ctx context.Context, virtualProductID id.ID, recipeID *id.ID) (*Recipe, error) {
	if recipeID != nil && !id.IsNil(*recipeID) {
		r, err := s.GetByID(ctx, *recipeID)
		if err != nil {
			return nil, err
		}
		if r.VirtualProductID != virtualProductID {
			return nil, apperror.NewValidation("recipe does not manufacture the requested product").
				WithDetail("recipeId", recipeID.String()).
				WithDetail("virtualProductId", virtualProductID.String())
		}
		return r, nil
	}

	candidates, err := s.repo.ListByVirtualProduct(ctx, virtualProductID, true)
	if err != nil {
		return nil, err
	}

	switch len(candidates) {
	case 0:
		return nil, apperror.NewNotFound("recipe", virtualProductID.String())
	case 1:
		return candidates[0], nil
	default:
		codes := make([]string, len(candidates))
		for i, c := range candidates {
			codes[i] = c.Code
		}
		return nil, apperror.NewValidation("product has multiple active recipes, pin one explicitly").
			WithDetail("virtualProductId", virtualProductID.String()).
			WithDetail("candidates", codes)
	}
}

// ListByVirtualProduct lists the recipes manufacturing a product.
func (s *Service) ListByVirtualProduct(ctx context.Context, virtualProductID id.ID, activeOnly bool) ([]*Recipe, error) {
	return s.repo.ListByVirtualProduct(ctx, virtualProductID, activeOnly)
}

// Deactivate retires a recipe from automatic resolution. Deactivated
// recipes stay pinnable by ID so historical allocations remain
// reproducible.
func (s *Service) Deactivate(ctx context.Context, recipeID id.ID) (*Recipe, error) {
	r, err := s.GetByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if !r.IsActive {
		return r, nil
	}
	r.IsActive = false
	if err := s.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// prepareForCreate handles code generation and product checks.
func (s *Service) prepareForCreate(ctx context.Context, r *Recipe) error {
	if r.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.Config{Prefix: "BOM", PadWidth: 4}, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		r.Code = code
	}
	return s.checkProducts(ctx, r)
}

// checkProducts verifies the recipe's ends: output must be a virtual
// product, input must be stockable.
func (s *Service) checkProducts(ctx context.Context, r *Recipe) error {
	virtual, err := s.products.GetByID(ctx, r.VirtualProductID)
	if err != nil {
		return apperror.NewValidation("virtual product does not resolve").
			WithDetail("virtualProductId", r.VirtualProductID.String()).WithCause(err)
	}
	if !virtual.IsVirtual {
		return apperror.NewValidation("recipe output must be a virtual product").
			WithDetail("virtualProductId", r.VirtualProductID.String())
	}

	raw, err := s.products.GetByID(ctx, r.RawProductID)
	if err != nil {
		return apperror.NewValidation("raw product does not resolve").
			WithDetail("rawProductId", r.RawProductID.String()).WithCause(err)
	}
	if !raw.CanBeStocked() {
		return apperror.NewValidation("recipe input must be a stockable product").
			WithDetail("rawProductId", r.RawProductID.String())
	}

	return nil
}
