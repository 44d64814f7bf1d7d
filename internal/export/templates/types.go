// Package templates holds the templ components of the HTML export.
package templates

// Column is one header cell of a result table.
type Column struct {
	Name   string
	Header bool // dimension-header column
}

// Cell is one rendered body cell.
type Cell struct {
	Text   string
	Header bool
}
