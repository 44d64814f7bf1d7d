// Package flatten renders a multidimensional query result as a
// two-dimensional table.
//
// # Layout
//
// Given a result with axes 0..N-1, the flattened table has:
//
//   - one row per combination of positions on the crossed axes 1..N-1, so the
//     row count is the product of their sizes (1 when there are none);
//   - one header column per member slot of each crossed axis, ordered from
//     axis N-1 down to axis 1 and named after the slot's hierarchy;
//   - one value column per position of axis 0, named by joining the display
//     names of the position's members with "/".
//
// A result with no axes at all flattens to a single "Measure" column with a
// single row.
//
// # Addressing
//
// A (row, column) pair maps to a coordinate vector by mixed-radix decoding of
// the row over the crossed axis sizes, axis 1 varying fastest. Header columns
// leave the axis-0 coordinate undefined (-1); value columns use their offset
// into the value region. See [Schema.CellKey] and [DecodeRow].
//
// # Construction
//
//	t, err := flatten.New(result,
//	    flatten.WithRowLimit(500),
//	    flatten.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	defer t.Close()
//
// The schema is computed once in [New] and is immutable afterwards. Reads do
// not mutate the table, so a [Table] is safe for concurrent use whenever the
// underlying result is. Close must not race with in-flight reads.
//
// # Diagnostics
//
// Heterogeneous axes, where the number of distinct hierarchies differs from
// the number of member slots, are tolerated. The mismatch is reported through
// the [Diagnostics] sink passed with [WithDiagnostics] and never surfaces as
// an error.
package flatten
