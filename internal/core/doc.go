// Package core provides the query service behind the HTTP API.
//
// It is independent of any transport layer and can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Query Flow
//
// [Service.DoQuery] runs one data access end to end:
//
//  1. Look the data access up in the catalog and resolve its parameters
//  2. Serve the result from the query cache when an entry exists
//  3. Otherwise execute it once per cache key (concurrent callers share the
//     execution), flatten the multidimensional result into a table and
//     materialise it
//  4. Store the table in the cache, sort it and return the requested page
//
// Every query is audited through [audit.Helper] with its own request id.
//
// # Concurrency
//
// Executions are bounded by a [QueryLimiter]. A query waits for a free slot
// up to the limiter's wait time and then fails with [ErrTooManyQueries].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - QRY001-QRY004: Query errors (unknown data access, parameters, sorting)
//   - FLT001: Flattening errors (row or column out of range)
//   - EXP001: Export errors (unknown output type)
//   - DB004-DB007: Database errors (connections, timeouts)
//   - REQ001-REQ002: Request errors (cancelled, deadline)
//
// # Maintenance
//
// [Service.StartCacheJanitor] periodically sweeps expired cache entries.
package core
