package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
	"batchline/internal/core/id"
	"batchline/internal/domain"
	"batchline/internal/domain/catalogs/batchtype"
	"batchline/internal/domain/catalogs/branch"
	"batchline/internal/domain/catalogs/category"
	"batchline/internal/domain/catalogs/product"
	"batchline/internal/domain/recipe"
)

// Catalog is a generic in-memory CatalogRepository. The meta accessor
// exposes the embedded entity.Catalog of T; clone copies T so stored
// state never aliases caller state.
type Catalog[T entity.Validatable] struct {
	name  string
	meta  func(T) *entity.Catalog
	clone func(T) T

	mu    sync.RWMutex
	items map[id.ID]T
	order []id.ID
}

// NewCatalog creates an empty catalog. name labels NotFound and
// Duplicate errors.
func NewCatalog[T entity.Validatable](name string, meta func(T) *entity.Catalog, clone func(T) T) *Catalog[T] {
	return &Catalog[T]{
		name:  name,
		meta:  meta,
		clone: clone,
		items: make(map[id.ID]T),
	}
}

// Create implements CatalogRepository.
func (c *Catalog[T]) Create(ctx context.Context, e T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.meta(e)
	if _, exists := c.items[m.ID]; exists {
		return apperror.NewDuplicate(c.name, "id", m.ID.String())
	}
	for _, other := range c.items {
		om := c.meta(other)
		if om.Code == m.Code && !om.DeletionMark {
			return apperror.NewDuplicate(c.name, "code", m.Code)
		}
	}

	c.items[m.ID] = c.clone(e)
	c.order = append(c.order, m.ID)
	return nil
}

// GetByID implements CatalogRepository. Deletion-marked records are
// still returned; callers inspect the mark.
func (c *Catalog[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[entityID]
	if !ok {
		var zero T
		return zero, apperror.NewNotFound(c.name, entityID.String())
	}
	return c.clone(e), nil
}

// GetByCode implements CatalogRepository.
func (c *Catalog[T]) GetByCode(ctx context.Context, code string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, eid := range c.order {
		e := c.items[eid]
		if m := c.meta(e); m.Code == code && !m.DeletionMark {
			return c.clone(e), nil
		}
	}
	var zero T
	return zero, apperror.NewNotFound(c.name, code)
}

// Update implements CatalogRepository with the optimistic version guard.
func (c *Catalog[T]) Update(ctx context.Context, e T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.meta(e)
	stored, ok := c.items[m.ID]
	if !ok {
		return apperror.NewNotFound(c.name, m.ID.String())
	}
	if c.meta(stored).Version != m.Version {
		return apperror.NewConcurrentModification(c.name, m.ID.String())
	}

	m.SetVersion(m.Version + 1)
	c.items[m.ID] = c.clone(e)
	return nil
}

// SetDeletionMark implements CatalogRepository.
func (c *Catalog[T]) SetDeletionMark(ctx context.Context, entityID id.ID, marked bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.items[entityID]
	if !ok {
		return apperror.NewNotFound(c.name, entityID.String())
	}
	m := c.meta(stored)
	m.DeletionMark = marked
	m.Version++
	return nil
}

// List implements CatalogRepository.
func (c *Catalog[T]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var idSet map[id.ID]struct{}
	if len(filter.IDs) > 0 {
		idSet = make(map[id.ID]struct{}, len(filter.IDs))
		for _, v := range filter.IDs {
			idSet[v] = struct{}{}
		}
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	matched := make([]T, 0, len(c.order))
	for _, eid := range c.order {
		e := c.items[eid]
		m := c.meta(e)
		if m.DeletionMark && !filter.IncludeDeleted {
			continue
		}
		if idSet != nil {
			if _, ok := idSet[m.ID]; !ok {
				continue
			}
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Code), search) &&
			!strings.Contains(strings.ToLower(m.Name), search) {
			continue
		}
		matched = append(matched, e)
	}

	switch filter.OrderBy {
	case "code":
		sort.SliceStable(matched, func(i, j int) bool {
			return c.meta(matched[i]).Code < c.meta(matched[j]).Code
		})
	case "", "name":
		sort.SliceStable(matched, func(i, j int) bool {
			return c.meta(matched[i]).Name < c.meta(matched[j]).Name
		})
	}

	total := int64(len(matched))
	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && offset+filter.Limit < end {
		end = offset + filter.Limit
	}

	items := make([]T, 0, end-offset)
	for _, e := range matched[offset:end] {
		items = append(items, c.clone(e))
	}
	return domain.ListResult[T]{
		Items:      items,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

// Exists implements CatalogRepository.
func (c *Catalog[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[entityID]
	return ok, nil
}

// ExistsByCode implements CatalogRepository.
func (c *Catalog[T]) ExistsByCode(ctx context.Context, code string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.items {
		if m := c.meta(e); m.Code == code && !m.DeletionMark {
			return true, nil
		}
	}
	return false, nil
}

// each mutates every stored item under the write lock.
func (c *Catalog[T]) each(fn func(T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, eid := range c.order {
		fn(c.items[eid])
	}
}

// collect returns clones of stored items matching pred, in creation order.
func (c *Catalog[T]) collect(pred func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []T
	for _, eid := range c.order {
		if e := c.items[eid]; pred(e) {
			out = append(out, c.clone(e))
		}
	}
	return out
}

type catalogSnapshot[T any] struct {
	items map[id.ID]T
	order []id.ID
}

// Snapshot implements Snapshotter.
func (c *Catalog[T]) Snapshot() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make(map[id.ID]T, len(c.items))
	for k, v := range c.items {
		items[k] = c.clone(v)
	}
	return catalogSnapshot[T]{items: items, order: append([]id.ID(nil), c.order...)}
}

// Restore implements Snapshotter.
func (c *Catalog[T]) Restore(snapshot any) {
	snap := snapshot.(catalogSnapshot[T])
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = snap.items
	c.order = snap.order
}

// --- Branch ---

// BranchRepo is the in-memory branch repository.
type BranchRepo struct {
	*Catalog[*branch.Branch]
}

// NewBranchRepo creates an empty branch repository.
func NewBranchRepo() *BranchRepo {
	return &BranchRepo{NewCatalog("branch",
		func(b *branch.Branch) *entity.Catalog { return &b.Catalog },
		func(b *branch.Branch) *branch.Branch {
			cp := *b
			cp.Address = cloneStringPtr(b.Address)
			cp.Attributes = b.Attributes.Clone()
			return &cp
		},
	)}
}

// GetForUpdate returns the branch. The memory store has no row locks.
func (r *BranchRepo) GetForUpdate(ctx context.Context, entityID id.ID) (*branch.Branch, error) {
	return r.GetByID(ctx, entityID)
}

// ClearDefault implements branch.Repository.
func (r *BranchRepo) ClearDefault(ctx context.Context) error {
	r.each(func(b *branch.Branch) { b.IsDefault = false })
	return nil
}

var _ branch.Repository = (*BranchRepo)(nil)

// --- BatchType ---

// BatchTypeRepo is the in-memory batch type repository.
type BatchTypeRepo struct {
	*Catalog[*batchtype.BatchType]
}

// NewBatchTypeRepo creates an empty batch type repository.
func NewBatchTypeRepo() *BatchTypeRepo {
	return &BatchTypeRepo{NewCatalog("batch_type",
		func(t *batchtype.BatchType) *entity.Catalog { return &t.Catalog },
		func(t *batchtype.BatchType) *batchtype.BatchType {
			cp := *t
			cp.Description = cloneStringPtr(t.Description)
			cp.Attributes = t.Attributes.Clone()
			return &cp
		},
	)}
}

// GetForUpdate returns the batch type. The memory store has no row locks.
func (r *BatchTypeRepo) GetForUpdate(ctx context.Context, entityID id.ID) (*batchtype.BatchType, error) {
	return r.GetByID(ctx, entityID)
}

// GetDefault implements batchtype.Repository.
func (r *BatchTypeRepo) GetDefault(ctx context.Context) (*batchtype.BatchType, error) {
	defaults := r.collect(func(t *batchtype.BatchType) bool {
		return t.IsDefault && !t.DeletionMark
	})
	if len(defaults) == 0 {
		return nil, apperror.NewNotFound("batch_type", "default")
	}
	return defaults[0], nil
}

// ClearDefault implements batchtype.Repository.
func (r *BatchTypeRepo) ClearDefault(ctx context.Context) error {
	r.each(func(t *batchtype.BatchType) { t.IsDefault = false })
	return nil
}

var _ batchtype.Repository = (*BatchTypeRepo)(nil)

// --- Product ---

// ProductRepo is the in-memory product repository.
type ProductRepo struct {
	*Catalog[*product.Product]
}

// NewProductRepo creates an empty product repository.
func NewProductRepo() *ProductRepo {
	return &ProductRepo{NewCatalog("product",
		func(p *product.Product) *entity.Catalog { return &p.Catalog },
		func(p *product.Product) *product.Product {
			cp := *p
			cp.Article = cloneStringPtr(p.Article)
			cp.Barcode = cloneStringPtr(p.Barcode)
			cp.Description = cloneStringPtr(p.Description)
			cp.DefaultCategoryID = cloneIDPtr(p.DefaultCategoryID)
			cp.AttributeDefaults = p.AttributeDefaults.Clone()
			cp.Attributes = p.Attributes.Clone()
			return &cp
		},
	)}
}

var _ product.Repository = (*ProductRepo)(nil)

// --- Category ---

// CategoryRepo is the in-memory category repository.
type CategoryRepo struct {
	*Catalog[*category.Category]
}

// NewCategoryRepo creates an empty category repository.
func NewCategoryRepo() *CategoryRepo {
	return &CategoryRepo{NewCatalog("category",
		func(c *category.Category) *entity.Catalog { return &c.Catalog },
		func(c *category.Category) *category.Category {
			cp := *c
			cp.ExtraRules = append(category.RuleList(nil), c.ExtraRules...)
			cp.Description = cloneStringPtr(c.Description)
			cp.Attributes = c.Attributes.Clone()
			return &cp
		},
	)}
}

var _ category.Repository = (*CategoryRepo)(nil)

// --- Recipe ---

// RecipeRepo is the in-memory recipe repository.
type RecipeRepo struct {
	*Catalog[*recipe.Recipe]
}

// NewRecipeRepo creates an empty recipe repository.
func NewRecipeRepo() *RecipeRepo {
	return &RecipeRepo{NewCatalog("recipe",
		func(r *recipe.Recipe) *entity.Catalog { return &r.Catalog },
		func(r *recipe.Recipe) *recipe.Recipe {
			cp := *r
			cp.Description = cloneStringPtr(r.Description)
			cp.Attributes = r.Attributes.Clone()
			return &cp
		},
	)}
}

// ListByVirtualProduct implements recipe.Repository.
func (r *RecipeRepo) ListByVirtualProduct(ctx context.Context, virtualProductID id.ID, activeOnly bool) ([]*recipe.Recipe, error) {
	return r.collect(func(rc *recipe.Recipe) bool {
		if rc.VirtualProductID != virtualProductID || rc.DeletionMark {
			return false
		}
		return !activeOnly || rc.IsActive
	}), nil
}

var _ recipe.Repository = (*RecipeRepo)(nil)

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneIDPtr(v *id.ID) *id.ID {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
