package allocation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"batchline/internal/core/apperror"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain/ledger"
	"batchline/internal/domain/recipe"
)

var tracer = otel.Tracer("batchline/allocation")

// CandidateSource reads allocation candidates from the ledger.
// ledger.Repository satisfies it.
type CandidateSource interface {
	ListCandidates(ctx context.Context, productID id.ID, branchID *id.ID) ([]*ledger.Batch, error)
}

// RecipeResolver resolves the recipe for a virtual product.
// recipe.Service satisfies it.
type RecipeResolver interface {
	Resolve(ctx context.Context, virtualProductID id.ID, recipeID *id.ID) (*recipe.Recipe, error)
}

// Engine computes allocation proposals. Read-only and lock-free: a
// proposal is advisory and every commit re-validates under locks.
type Engine struct {
	batches CandidateSource
	recipes RecipeResolver

	// defaultPolicy applies when a request does not name one
	defaultPolicy SelectionPolicy
}

// NewEngine creates the proposal engine. An invalid or empty default
// policy falls back to creation order.
func NewEngine(batches CandidateSource, recipes RecipeResolver, defaultPolicy SelectionPolicy) *Engine {
	if !defaultPolicy.Valid() {
		defaultPolicy = PolicyCreationOrder
	}
	return &Engine{
		batches:       batches,
		recipes:       recipes,
		defaultPolicy: defaultPolicy,
	}
}

// ProposeInput describes the material requirement.
type ProposeInput struct {
	VirtualProductID id.ID

	// OutputQuantity is in the virtual product's base unit
	OutputQuantity types.Quantity

	// BranchID narrows candidates to one branch; nil is branch-agnostic
	BranchID *id.ID

	// RecipeID pins a specific recipe; nil resolves the unique active one
	RecipeID *id.ID

	// Policy overrides the engine default for this call
	Policy SelectionPolicy
}

// Propose resolves the recipe, computes the required raw quantity and
// greedily selects batches until the requirement is covered. Exhausting
// candidates short of the requirement returns InsufficientStock with the
// shortfall; partial proposals are never returned.
func (e *Engine) Propose(ctx context.Context, input ProposeInput) (*Proposal, error) {
	ctx, span := tracer.Start(ctx, "allocation.propose",
		trace.WithAttributes(
			attribute.String("product.id", input.VirtualProductID.String()),
		))
	defer span.End()

	if !input.OutputQuantity.IsPositive() {
		return nil, apperror.NewValidation("output quantity must be greater than zero").
			WithDetail("field", "outputQuantity").
			WithDetail("value", input.OutputQuantity)
	}

	rcp, err := e.recipes.Resolve(ctx, input.VirtualProductID, input.RecipeID)
	if err != nil {
		return nil, err
	}

	// Exact; tolerance applies to comparisons below, never to the
	// requirement itself.
	required := rcp.RequiredQuantity(input.OutputQuantity)

	candidates, err := e.batches.ListCandidates(ctx, rcp.RawProductID, input.BranchID)
	if err != nil {
		return nil, err
	}

	policy := input.Policy
	if !policy.Valid() {
		policy = e.defaultPolicy
	}

	lines, selected := selectGreedy(policy.order(candidates), required)
	if !types.QtyCovers(selected, required) {
		return nil, apperror.NewInsufficientStock(rcp.RawProductID.String(), required, selected)
	}

	span.SetAttributes(attribute.Int("lines", len(lines)))

	return &Proposal{
		RecipeID:         rcp.ID,
		RecipeCode:       rcp.Code,
		VirtualProductID: rcp.VirtualProductID,
		RawProductID:     rcp.RawProductID,
		BranchID:         input.BranchID,
		OutputQuantity:   input.OutputQuantity,
		ConversionFactor: rcp.ConversionFactor,
		RequiredQuantity: required,
		SelectedTotal:    selected,
		Lines:            lines,
		Policy:           policy,
	}, nil
}

// selectGreedy walks candidates accumulating min(remaining, still needed)
// until the requirement is covered or candidates run out.
func selectGreedy(candidates []*ledger.Batch, required types.Quantity) ([]Line, types.Quantity) {
	var lines []Line
	running := types.ZeroQuantity()

	for _, c := range candidates {
		if types.QtyCovers(running, required) {
			break
		}
		take := types.QtyMin(c.RemainingQuantity, required.Sub(running))
		if !take.IsPositive() {
			continue
		}
		lines = append(lines, Line{
			BatchID:          c.ID,
			InstanceCode:     c.InstanceCode,
			QuantityDeducted: take,
		})
		running = running.Add(take)
	}

	return lines, running
}
