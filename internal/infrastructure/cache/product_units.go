// Package cache provides caching infrastructure with PostgreSQL LISTEN/NOTIFY support.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tannery/internal/core/id"
	"tannery/internal/core/types"
	"tannery/internal/domain/ledger"
	"tannery/internal/domain/units"
	"tannery/pkg/logger"
)

// notifyChannel carries product catalog change events.
// Payload is the product id, or empty to flush everything.
const notifyChannel = "cat_products_changed"

type cachedUnits struct {
	main units.Unit
	sub  units.Unit
}

// ProductUnitsCache decorates a ledger.ProductStore with an in-memory
// unit lookup cache, invalidated via PostgreSQL LISTEN/NOTIFY. Every
// movement needs the product's units for conversion; the catalog rows
// change rarely, so TTL polling would be pure waste.
type ProductUnitsCache struct {
	inner ledger.ProductStore
	pool  *pgxpool.Pool

	mu    sync.RWMutex
	units map[id.ID]cachedUnits

	// Lifecycle
	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

var _ ledger.ProductStore = (*ProductUnitsCache)(nil)

// NewProductUnitsCache creates a new product units cache.
func NewProductUnitsCache(inner ledger.ProductStore, pool *pgxpool.Pool) *ProductUnitsCache {
	return &ProductUnitsCache{
		inner: inner,
		pool:  pool,
		units: make(map[id.ID]cachedUnits),
	}
}

// GetUnits returns the product's units, from cache when possible.
func (c *ProductUnitsCache) GetUnits(ctx context.Context, productID id.ID) (units.Unit, units.Unit, error) {
	c.mu.RLock()
	cached, ok := c.units[productID]
	c.mu.RUnlock()
	if ok {
		return cached.main, cached.sub, nil
	}

	main, sub, err := c.inner.GetUnits(ctx, productID)
	if err != nil {
		return "", "", err
	}

	c.mu.Lock()
	c.units[productID] = cachedUnits{main: main, sub: sub}
	c.mu.Unlock()
	return main, sub, nil
}

// UpdateAggregates passes through to the underlying store.
// Aggregate stock never affects unit lookups.
func (c *ProductUnitsCache) UpdateAggregates(ctx context.Context, productID id.ID, stock, subStock types.Quantity) error {
	return c.inner.UpdateAggregates(ctx, productID, stock, subStock)
}

// Start begins listening for NOTIFY events.
func (c *ProductUnitsCache) Start(ctx context.Context) error {
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

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "product units cache started")
	return nil
}

// Stop gracefully stops the cache listener.
func (c *ProductUnitsCache) Stop() {
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
	logger.Info(context.Background(), "product units cache stopped")
}

// listenLoop listens for PostgreSQL NOTIFY events.
func (c *ProductUnitsCache) listenLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Acquire dedicated connection for LISTEN
		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(c.ctx, "LISTEN "+notifyChannel+";"); err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		logger.Info(c.ctx, "listening for product catalog notifications", "channel", notifyChannel)

		c.waitForNotifications(conn)
		conn.Release()
	}
}

// waitForNotifications blocks waiting for NOTIFY events.
func (c *ProductUnitsCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Wait for notification with timeout for graceful shutdown
		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if c.ctx.Err() != nil {
				return // Shutting down
			}
			// Timeout is expected, continue listening
			continue
		}

		logger.Debug(c.ctx, "received notification",
			"channel", notification.Channel,
			"payload", notification.Payload)

		c.invalidate(notification.Payload)
	}
}

// invalidate drops the cached entry named by payload, or all entries
// when the payload is empty or unparseable.
func (c *ProductUnitsCache) invalidate(payload string) {
	payload = strings.TrimSpace(payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if payload == "" {
		c.units = make(map[id.ID]cachedUnits)
		return
	}

	productID, err := id.Parse(payload)
	if err != nil {
		c.units = make(map[id.ID]cachedUnits)
		return
	}
	delete(c.units, productID)
}

// Stats returns cache statistics.
type Stats struct {
	ProductsCached int
}

// GetStats returns current cache statistics.
func (c *ProductUnitsCache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{ProductsCached: len(c.units)}
}
