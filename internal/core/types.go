package core

import (
	"time"

	"github.com/JonMunkholm/cubetab/internal/cube"
	"github.com/JonMunkholm/cubetab/internal/table"
)

// QueryOptions selects a data access and shapes the returned page.
type QueryOptions struct {
	DataAccessID string
	Params       map[string]string

	// PageStart is the first row returned; PageSize <= 0 returns every row
	// from PageStart.
	PageStart int
	PageSize  int

	// SortBy lists sort columns as "<index><A|D>", e.g. "1D". The first
	// entry is the primary key.
	SortBy []string

	// BypassCache executes the query even when a cached result exists.
	// The fresh result still replaces the cached one.
	BypassCache bool
}

// QueryResult is one page of a flattened query result.
type QueryResult struct {
	DataAccess DataAccessInfo
	Table      table.Reader
	TotalRows  int
	PageStart  int
	PageSize   int
	Cached     bool
}

// DataAccessInfo describes a data access for listings.
type DataAccessInfo struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Cube       string          `json:"cube"`
	Columns    []string        `json:"columns,omitempty"`
	Rows       []string        `json:"rows,omitempty"`
	Pages      []string        `json:"pages,omitempty"`
	Measures   []string        `json:"measures"`
	Parameters []ParameterInfo `json:"parameters,omitempty"`
	RowLimit   int             `json:"rowLimit,omitempty"`
	Cache      bool            `json:"cache"`
	CacheTTL   time.Duration   `json:"cacheTtl,omitempty"`
}

// ParameterInfo describes one declared parameter.
type ParameterInfo struct {
	Name    string `json:"name"`
	Default string `json:"default,omitempty"`
}

func newDataAccessInfo(da cube.DataAccess) DataAccessInfo {
	info := DataAccessInfo{
		ID:       da.ID,
		Name:     da.Name,
		Cube:     da.Cube,
		Columns:  da.Columns,
		Rows:     da.Rows,
		Pages:    da.Pages,
		Measures: da.Measures,
		RowLimit: da.RowLimit,
		Cache:    da.CacheEnabled(),
		CacheTTL: da.CacheTTL,
	}
	for _, p := range da.Parameters {
		info.Parameters = append(info.Parameters, ParameterInfo{Name: p.Name, Default: p.Default})
	}
	return info
}
