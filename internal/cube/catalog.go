// Package cube is the query engine behind a data access: a YAML catalog of
// cubes over PostgreSQL fact tables, a GROUP BY query builder, and a builder
// that assembles the rows into a multidimensional olap.Result.
package cube

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownDataAccess is returned by Lookup for an id not in the catalog.
	ErrUnknownDataAccess = errors.New("unknown data access")

	// ErrInvalidParameter is returned for unknown or malformed query parameters.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidCatalog wraps every catalog validation failure.
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// Aggregator is the SQL aggregate applied to a measure column.
type Aggregator string

const (
	AggSum   Aggregator = "sum"
	AggCount Aggregator = "count"
	AggAvg   Aggregator = "avg"
	AggMin   Aggregator = "min"
	AggMax   Aggregator = "max"
)

func (a Aggregator) valid() bool {
	switch a {
	case AggSum, AggCount, AggAvg, AggMin, AggMax:
		return true
	}
	return false
}

// Level maps one level of a dimension to a fact table column.
type Level struct {
	Name   string `yaml:"name"`
	Column string `yaml:"column"`
}

// Dimension is an ordered list of levels, coarsest first.
type Dimension struct {
	Name   string  `yaml:"name"`
	Levels []Level `yaml:"levels"`
}

// Measure is an aggregated fact column.
type Measure struct {
	Name       string     `yaml:"name"`
	Aggregator Aggregator `yaml:"aggregator"`
	Column     string     `yaml:"column"` // empty only for count
	Format     string     `yaml:"format"` // optional fmt verb, e.g. "%.2f"
}

// Cube binds dimensions and measures to a fact table.
type Cube struct {
	Name       string      `yaml:"name"`
	Schema     string      `yaml:"schema"`
	Table      string      `yaml:"table"`
	Dimensions []Dimension `yaml:"dimensions"`
	Measures   []Measure   `yaml:"measures"`
}

// Dimension returns the dimension called name.
func (c Cube) Dimension(name string) (Dimension, bool) {
	for _, d := range c.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}

// Measure returns the measure called name.
func (c Cube) Measure(name string) (Measure, bool) {
	for _, m := range c.Measures {
		if m.Name == name {
			return m, true
		}
	}
	return Measure{}, false
}

// Parameter is a named equality filter on a fact column.
type Parameter struct {
	Name    string `yaml:"name"`
	Column  string `yaml:"column"`
	Default string `yaml:"default"`
}

// DataAccess is a named, parameterised query over a cube. Columns dimensions
// go on axis 0 together with the measures, Rows on axis 1 and Pages on the
// next crossed axis.
type DataAccess struct {
	ID         string        `yaml:"id"`
	Name       string        `yaml:"name"`
	Cube       string        `yaml:"cube"`
	Columns    []string      `yaml:"columns"`
	Rows       []string      `yaml:"rows"`
	Pages      []string      `yaml:"pages"`
	Measures   []string      `yaml:"measures"`
	Parameters []Parameter   `yaml:"parameters"`
	RowLimit   int           `yaml:"rowLimit"`
	CacheTTL   time.Duration `yaml:"cacheTTL"`
	Cache      *bool         `yaml:"cache"`
}

// CacheEnabled reports whether results of da may be cached. Defaults to true.
func (da DataAccess) CacheEnabled() bool {
	return da.Cache == nil || *da.Cache
}

// ResolveParams validates given against the declared parameters and fills
// in defaults. Unknown names are rejected.
func (da DataAccess) ResolveParams(given map[string]string) (map[string]string, error) {
	declared := make(map[string]Parameter, len(da.Parameters))
	for _, p := range da.Parameters {
		declared[p.Name] = p
	}
	for name := range given {
		if _, ok := declared[name]; !ok {
			return nil, fmt.Errorf("%w: %q is not declared by %s", ErrInvalidParameter, name, da.ID)
		}
	}

	resolved := make(map[string]string, len(da.Parameters))
	for _, p := range da.Parameters {
		if v, ok := given[p.Name]; ok {
			resolved[p.Name] = v
			continue
		}
		resolved[p.Name] = p.Default
	}
	return resolved, nil
}

// Catalog is the parsed query catalog.
type Catalog struct {
	Cubes []Cube       `yaml:"cubes"`
	Items []DataAccess `yaml:"dataAccesses"`

	cubes map[string]int
	items map[string]int
}

// LoadCatalog reads and validates the catalog file at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog. Unknown keys are errors.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Lookup returns the data access with the given id and its cube.
func (c *Catalog) Lookup(id string) (DataAccess, Cube, error) {
	i, ok := c.items[id]
	if !ok {
		return DataAccess{}, Cube{}, fmt.Errorf("%w: %s", ErrUnknownDataAccess, id)
	}
	da := c.Items[i]
	return da, c.Cubes[c.cubes[da.Cube]], nil
}

// DataAccesses returns every data access in file order.
func (c *Catalog) DataAccesses() []DataAccess {
	out := make([]DataAccess, len(c.Items))
	copy(out, c.Items)
	return out
}

func (c *Catalog) index() error {
	c.cubes = make(map[string]int, len(c.Cubes))
	for i, cube := range c.Cubes {
		if err := validateCube(cube); err != nil {
			return err
		}
		if _, dup := c.cubes[cube.Name]; dup {
			return fmt.Errorf("%w: duplicate cube %q", ErrInvalidCatalog, cube.Name)
		}
		c.cubes[cube.Name] = i
	}

	c.items = make(map[string]int, len(c.Items))
	for i, da := range c.Items {
		if da.ID == "" {
			return fmt.Errorf("%w: data access %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := c.items[da.ID]; dup {
			return fmt.Errorf("%w: duplicate data access %q", ErrInvalidCatalog, da.ID)
		}
		ci, ok := c.cubes[da.Cube]
		if !ok {
			return fmt.Errorf("%w: data access %q references unknown cube %q", ErrInvalidCatalog, da.ID, da.Cube)
		}
		if err := validateDataAccess(c.Cubes[ci], da); err != nil {
			return err
		}
		c.items[da.ID] = i
	}
	return nil
}

func validateCube(cube Cube) error {
	if cube.Name == "" || cube.Table == "" {
		return fmt.Errorf("%w: cube needs a name and a table", ErrInvalidCatalog)
	}
	for _, d := range cube.Dimensions {
		if len(d.Levels) == 0 {
			return fmt.Errorf("%w: dimension %s.%s has no levels", ErrInvalidCatalog, cube.Name, d.Name)
		}
		for _, l := range d.Levels {
			if l.Column == "" {
				return fmt.Errorf("%w: level %s.%s.%s has no column", ErrInvalidCatalog, cube.Name, d.Name, l.Name)
			}
		}
	}
	for _, m := range cube.Measures {
		if !m.Aggregator.valid() {
			return fmt.Errorf("%w: measure %s.%s has unknown aggregator %q", ErrInvalidCatalog, cube.Name, m.Name, m.Aggregator)
		}
		if m.Column == "" && m.Aggregator != AggCount {
			return fmt.Errorf("%w: measure %s.%s has no column", ErrInvalidCatalog, cube.Name, m.Name)
		}
	}
	return nil
}

func validateDataAccess(cube Cube, da DataAccess) error {
	seen := make(map[string]bool)
	for _, group := range [][]string{da.Columns, da.Rows, da.Pages} {
		for _, name := range group {
			if _, ok := cube.Dimension(name); !ok {
				return fmt.Errorf("%w: data access %q references unknown dimension %q", ErrInvalidCatalog, da.ID, name)
			}
			if seen[name] {
				return fmt.Errorf("%w: data access %q uses dimension %q twice", ErrInvalidCatalog, da.ID, name)
			}
			seen[name] = true
		}
	}
	if len(da.Pages) > 0 && len(da.Rows) == 0 {
		return fmt.Errorf("%w: data access %q has pages but no rows", ErrInvalidCatalog, da.ID)
	}
	if len(da.Measures) == 0 {
		return fmt.Errorf("%w: data access %q selects no measures", ErrInvalidCatalog, da.ID)
	}
	for _, name := range da.Measures {
		if _, ok := cube.Measure(name); !ok {
			return fmt.Errorf("%w: data access %q references unknown measure %q", ErrInvalidCatalog, da.ID, name)
		}
	}
	for _, p := range da.Parameters {
		if p.Name == "" || p.Column == "" {
			return fmt.Errorf("%w: data access %q has a parameter without name or column", ErrInvalidCatalog, da.ID)
		}
	}
	if da.RowLimit < 0 {
		return fmt.Errorf("%w: data access %q has a negative row limit", ErrInvalidCatalog, da.ID)
	}
	return nil
}
