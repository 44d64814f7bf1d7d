package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/cubetab/internal/audit"
	"github.com/JonMunkholm/cubetab/internal/cache"
	"github.com/JonMunkholm/cubetab/internal/cube"
	"github.com/JonMunkholm/cubetab/internal/flatten"
	"github.com/JonMunkholm/cubetab/internal/logging"
	"github.com/JonMunkholm/cubetab/internal/table"
	"golang.org/x/sync/singleflight"
)

// DefaultQueryTimeout bounds one execution when Config.QueryTimeout is zero.
const DefaultQueryTimeout = 2 * time.Minute

// ErrInvalidSort is returned for a malformed or out-of-range sortBy entry.
var ErrInvalidSort = errors.New("invalid sort")

// Config wires the service's collaborators. Catalog and Executor are required.
type Config struct {
	Catalog  *cube.Catalog
	Executor cube.Executor
	Cache    cache.QueryCache // nil disables caching
	Audit    *audit.Helper    // nil audits nothing
	Limiter  *QueryLimiter    // nil uses the defaults

	QueryTimeout time.Duration
	// MaxRowLimit caps every data access' row limit. Zero means uncapped.
	MaxRowLimit int
}

// Service runs catalog queries and manages their cache.
type Service struct {
	catalog      *cube.Catalog
	executor     cube.Executor
	cache        cache.QueryCache
	audit        *audit.Helper
	limiter      *QueryLimiter
	queryTimeout time.Duration
	maxRowLimit  int

	flight singleflight.Group
	now    func() time.Time
}

// NewService creates a new Service instance.
func NewService(cfg Config) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("core: catalog is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("core: executor is required")
	}

	s := &Service{
		catalog:      cfg.Catalog,
		executor:     cfg.Executor,
		cache:        cfg.Cache,
		audit:        cfg.Audit,
		limiter:      cfg.Limiter,
		queryTimeout: cfg.QueryTimeout,
		maxRowLimit:  cfg.MaxRowLimit,
		now:          time.Now,
	}
	if s.cache == nil {
		s.cache = cache.NoCache{}
	}
	if s.audit == nil {
		s.audit = audit.NewHelper("query-service", nil)
	}
	if s.limiter == nil {
		s.limiter = NewQueryLimiter(0, 0)
	}
	if s.queryTimeout <= 0 {
		s.queryTimeout = DefaultQueryTimeout
	}
	return s, nil
}

// Limiter returns the service's execution limiter.
func (s *Service) Limiter() *QueryLimiter { return s.limiter }

// ListDataAccesses returns every configured data access in catalog order.
func (s *Service) ListDataAccesses() []DataAccessInfo {
	items := s.catalog.DataAccesses()
	infos := make([]DataAccessInfo, len(items))
	for i, da := range items {
		infos[i] = newDataAccessInfo(da)
	}
	return infos
}

// DataAccess returns the description of one data access.
func (s *Service) DataAccess(id string) (DataAccessInfo, error) {
	da, _, err := s.catalog.Lookup(id)
	if err != nil {
		return DataAccessInfo{}, err
	}
	return newDataAccessInfo(da), nil
}

// DoQuery executes a data access and returns the requested page of its
// flattened result.
func (s *Service) DoQuery(ctx context.Context, opts QueryOptions) (res *QueryResult, err error) {
	da, c, err := s.catalog.Lookup(opts.DataAccessID)
	if err != nil {
		return nil, err
	}
	params, err := da.ResolveParams(opts.Params)
	if err != nil {
		return nil, err
	}
	sorts, err := parseSortBy(opts.SortBy)
	if err != nil {
		return nil, err
	}

	q, ctx := s.audit.StartQuery(ctx, da.ID, params)
	defer func() { q.End(err) }()

	key := cache.NewKey(da.ID, params)
	mem, cached, err := s.load(ctx, c, da, key, opts.BypassCache)
	if err != nil {
		return nil, err
	}

	sorted, err := applySort(mem, sorts)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		DataAccess: newDataAccessInfo(da),
		Table:      table.Page(sorted, opts.PageStart, opts.PageSize),
		TotalRows:  sorted.RowCount(),
		PageStart:  opts.PageStart,
		PageSize:   opts.PageSize,
		Cached:     cached,
	}, nil
}

// load returns the materialised result for key, from the cache when
// possible. Concurrent loads of the same key share one execution.
func (s *Service) load(ctx context.Context, c cube.Cube, da cube.DataAccess, key cache.Key, bypass bool) (*table.Memory, bool, error) {
	if da.CacheEnabled() && !bypass {
		if mem, ok := s.cache.Get(key); ok {
			logging.FromContext(ctx).Debug("query cache hit", "key", key.String())
			return mem, true, nil
		}
	}

	// The shared execution outlives any single caller's cancellation.
	execCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key.String(), func() (any, error) {
		return s.execute(execCtx, c, da, key)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, false, r.Err
		}
		return r.Val.(*table.Memory), false, nil
	}
}

// execute runs the query, flattens and materialises it, and caches the
// result when the data access allows it.
func (s *Service) execute(ctx context.Context, c cube.Cube, da cube.DataAccess, key cache.Key) (*table.Memory, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	logger := logging.FromContext(ctx)
	start := s.now()

	var mem *table.Memory
	err := s.limiter.Run(ctx, func() error {
		result, err := s.executor.Execute(ctx, c, da, key.Params)
		if err != nil {
			return fmt.Errorf("execute %s: %w", da.ID, err)
		}
		if result == nil {
			return fmt.Errorf("execute %s: %w", da.ID, flatten.ErrNilResult)
		}

		t, err := flatten.New(result,
			flatten.WithRowLimit(s.rowLimit(da)),
			flatten.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("flatten %s: %w", da.ID, err)
		}
		defer t.Close()

		mem, err = table.Materialize(ctx, t)
		if err != nil {
			return fmt.Errorf("materialize %s: %w", da.ID, err)
		}
		return nil
	})
	if err != nil {
		logger.Error("query failed", "data_access", da.ID, "error", err)
		return nil, err
	}

	if da.CacheEnabled() {
		s.cache.Put(key, mem, da.CacheTTL)
	}

	logger.Info("query executed",
		"data_access", da.ID,
		"rows", mem.RowCount(),
		"columns", mem.ColumnCount(),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	return mem, nil
}

// rowLimit is the data access' limit capped by the service maximum.
func (s *Service) rowLimit(da cube.DataAccess) int {
	limit := da.RowLimit
	if s.maxRowLimit > 0 && (limit <= 0 || limit > s.maxRowLimit) {
		limit = s.maxRowLimit
	}
	return limit
}

// CacheInfos describes every cached result.
func (s *Service) CacheInfos() []cache.ElementInfo {
	keys := s.cache.Keys()
	infos := make([]cache.ElementInfo, 0, len(keys))
	for _, k := range keys {
		if info, ok := s.cache.ElementInfo(k); ok {
			infos = append(infos, info)
		}
	}
	return infos
}

// ClearCache drops every cached result.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// ClearCacheFor drops the cached results of one data access and returns
// how many were removed.
func (s *Service) ClearCacheFor(id string) (int, error) {
	if _, _, err := s.catalog.Lookup(id); err != nil {
		return 0, err
	}
	return s.cache.RemoveAll(id), nil
}

// Shutdown waits for running queries and releases the cache.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.limiter.WaitForDrain(ctx)
	s.cache.Shutdown()
	return err
}

type sortKey struct {
	col  int
	desc bool
}

// parseSortBy parses entries of the form "<column><A|D>", e.g. "1D".
// Columns are zero-based.
func parseSortBy(entries []string) ([]sortKey, error) {
	var keys []sortKey
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		dir := strings.ToUpper(e[len(e)-1:])
		if dir != "A" && dir != "D" {
			return nil, fmt.Errorf("%w: %q must end in A or D", ErrInvalidSort, e)
		}
		col, err := strconv.Atoi(e[:len(e)-1])
		if err != nil || col < 0 {
			return nil, fmt.Errorf("%w: %q has no column index", ErrInvalidSort, e)
		}
		keys = append(keys, sortKey{col: col, desc: dir == "D"})
	}
	return keys, nil
}

// applySort orders mem by keys, the first being primary. The cached table
// is never modified.
func applySort(mem *table.Memory, keys []sortKey) (*table.Memory, error) {
	out := mem
	for i := len(keys) - 1; i >= 0; i-- {
		sorted, err := out.SortBy(keys[i].col, keys[i].desc)
		if err != nil {
			return nil, fmt.Errorf("%w: column %d: %w", ErrInvalidSort, keys[i].col, err)
		}
		out = sorted
	}
	return out, nil
}
