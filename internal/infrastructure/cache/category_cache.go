// Package cache provides the category schema cache with PostgreSQL
// LISTEN/NOTIFY invalidation. Category writes notify the channel inside
// their transaction, so every instance reloads at commit instead of
// polling on a TTL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"batchline/internal/core/apperror"
	"batchline/internal/core/id"
	"batchline/internal/domain/attrschema"
	"batchline/internal/domain/catalogs/category"
	"batchline/internal/domain/ledger"
	"batchline/pkg/logger"
)

// CategoriesChannel is the NOTIFY channel the category repository
// signals on every create, update, and deletion mark. The payload is
// the category id, or blank to reload everything.
const CategoriesChannel = "batchline_categories"

const categorySchemaQuery = `
	SELECT id, code, name, archetype, extra_rules, version
	FROM cat_categories
	WHERE deletion_mark = FALSE
`

// CategoryCache resolves category ids into validator schemas. It is the
// production ledger.SchemaResolver: reads are served from memory, a
// miss falls through to the database, and NOTIFY keeps the map current
// across instances.
type CategoryCache struct {
	pool *pgxpool.Pool

	mu      sync.RWMutex
	schemas map[id.ID]attrschema.Schema

	// Lifecycle
	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// Stats reports cache state for the readiness endpoint.
type Stats struct {
	Categories int  `json:"categories"`
	Listening  bool `json:"listening"`
}

// NewCategoryCache creates a category cache over the given pool.
func NewCategoryCache(pool *pgxpool.Pool) *CategoryCache {
	return &CategoryCache{
		pool:    pool,
		schemas: make(map[id.ID]attrschema.Schema),
	}
}

// Start loads all category schemas and begins listening for NOTIFY
// events. Safe to call once; repeated calls are no-ops.
func (c *CategoryCache) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.lifecycleMu.Lock()
	if c.started {
		c.lifecycleMu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.lifecycleMu.Unlock()

	if err := c.loadAll(c.ctx); err != nil {
		c.Stop()
		return fmt.Errorf("load categories: %w", err)
	}

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "category cache started")
	return nil
}

// Stop gracefully stops the cache listener.
func (c *CategoryCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	logger.Info(context.Background(), "category cache stopped")
}

// SchemaFor implements ledger.SchemaResolver. Uncategorized batches get
// the unconstrained schema. A miss falls through to the database before
// it is reported, so a cold cache never fails a valid request.
func (c *CategoryCache) SchemaFor(ctx context.Context, categoryID *id.ID) (attrschema.Schema, error) {
	if categoryID == nil || id.IsNil(*categoryID) {
		return attrschema.Uncategorized(), nil
	}

	c.mu.RLock()
	schema, ok := c.schemas[*categoryID]
	c.mu.RUnlock()
	if ok {
		return schema, nil
	}

	schema, ok, err := c.loadOne(ctx, *categoryID)
	if err != nil {
		return attrschema.Schema{}, err
	}
	if !ok {
		return attrschema.Schema{}, apperror.NewNotFound("category", categoryID.String())
	}
	return schema, nil
}

// GetStats returns current cache statistics.
func (c *CategoryCache) GetStats() Stats {
	c.mu.RLock()
	count := len(c.schemas)
	c.mu.RUnlock()

	c.lifecycleMu.Lock()
	started := c.started
	c.lifecycleMu.Unlock()

	return Stats{Categories: count, Listening: started}
}

// listenLoop holds a dedicated connection on the categories channel,
// reacquiring after any failure.
func (c *CategoryCache) listenLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(c.ctx, "LISTEN "+CategoriesChannel); err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		logger.Info(c.ctx, "listening for category notifications", "channel", CategoriesChannel)

		c.waitForNotifications(conn)
		conn.Release()
	}
}

// waitForNotifications blocks waiting for NOTIFY events. The timeout
// keeps shutdown responsive; hitting it just re-arms the wait.
func (c *CategoryCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if c.ctx.Err() != nil {
				return // Shutting down
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue // Timeout, re-arm
			}
			// Connection broke; reacquire in listenLoop.
			logger.Warn(c.ctx, "notification wait failed, reconnecting", "error", err)
			return
		}

		logger.Debug(c.ctx, "received category notification", "payload", notification.Payload)
		c.handleNotification(c.ctx, notification.Payload)
	}
}

// handleNotification reloads the category named by the payload. A blank
// or unparsable payload reloads everything.
func (c *CategoryCache) handleNotification(ctx context.Context, payload string) {
	categoryID, err := id.Parse(strings.TrimSpace(payload))
	if err != nil || id.IsNil(categoryID) {
		if err := c.loadAll(ctx); err != nil {
			logger.Error(ctx, "failed to reload all categories", "error", err)
		}
		return
	}

	if _, _, err := c.loadOne(ctx, categoryID); err != nil {
		logger.Error(ctx, "failed to reload category", "categoryId", categoryID, "error", err)
	}
}

// loadAll replaces the schema map from the database.
func (c *CategoryCache) loadAll(ctx context.Context) error {
	rows, err := c.pool.Query(ctx, categorySchemaQuery)
	if err != nil {
		return fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	schemas := make(map[id.ID]attrschema.Schema)
	for rows.Next() {
		var cat category.Category
		if err := rows.Scan(&cat.ID, &cat.Code, &cat.Name, &cat.Archetype, &cat.ExtraRules, &cat.Version); err != nil {
			return fmt.Errorf("scan category: %w", err)
		}
		schemas[cat.ID] = cat.AttrSchema()
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read categories: %w", err)
	}

	c.mu.Lock()
	c.schemas = schemas
	c.mu.Unlock()

	logger.Info(ctx, "loaded category schemas", "count", len(schemas))
	return nil
}

// loadOne refreshes a single category. A category that is gone or has
// its deletion mark set is evicted.
func (c *CategoryCache) loadOne(ctx context.Context, categoryID id.ID) (attrschema.Schema, bool, error) {
	var cat category.Category
	err := c.pool.QueryRow(ctx, categorySchemaQuery+" AND id = $1", categoryID).
		Scan(&cat.ID, &cat.Code, &cat.Name, &cat.Archetype, &cat.ExtraRules, &cat.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.mu.Lock()
			delete(c.schemas, categoryID)
			c.mu.Unlock()
			return attrschema.Schema{}, false, nil
		}
		return attrschema.Schema{}, false, fmt.Errorf("query category: %w", err)
	}

	schema := cat.AttrSchema()
	c.mu.Lock()
	c.schemas[categoryID] = schema
	c.mu.Unlock()
	return schema, true, nil
}

// Ensure interface compliance.
var _ ledger.SchemaResolver = (*CategoryCache)(nil)
