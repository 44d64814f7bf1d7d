package audit

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// LogStore writes audit records to a slog logger.
type LogStore struct {
	Logger *slog.Logger
}

// Record implements Store.
func (s LogStore) Record(ctx context.Context, rec Record) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"request_id", rec.RequestID.String(),
		"object", rec.Object,
		"path", rec.Path,
		"phase", string(rec.Phase),
	}
	if rec.Phase == PhaseStart && len(rec.Params) > 0 {
		attrs = append(attrs, "params", rec.Params)
	} else if rec.Phase != PhaseStart {
		attrs = append(attrs, "duration_ms", rec.Duration.Milliseconds())
	}
	if rec.Error != "" {
		attrs = append(attrs, "error", rec.Error)
	}
	if rec.ClientIP != "" {
		attrs = append(attrs, "client_ip", rec.ClientIP)
	}
	logger.InfoContext(ctx, "audit", attrs...)
	return nil
}

// Execer is the exec subset of *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}

// PostgresStore inserts audit records into the query_audit table:
//
//	CREATE TABLE query_audit (
//	    id          bigserial PRIMARY KEY,
//	    request_id  uuid        NOT NULL,
//	    object      text        NOT NULL,
//	    path        text        NOT NULL,
//	    phase       text        NOT NULL,
//	    params      jsonb,
//	    duration_ms bigint,
//	    error       text,
//	    client_ip   inet,
//	    user_agent  text,
//	    created_at  timestamptz NOT NULL
//	);
type PostgresStore struct {
	DB Execer
}

const insertAudit = `INSERT INTO query_audit
	(request_id, object, path, phase, params, duration_ms, error, client_ip, user_agent, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Record implements Store.
func (s PostgresStore) Record(ctx context.Context, rec Record) error {
	var params []byte
	if len(rec.Params) > 0 {
		var err error
		if params, err = json.Marshal(rec.Params); err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
	}

	duration := pgtype.Int8{}
	if rec.Phase != PhaseStart {
		duration = pgtype.Int8{Int64: rec.Duration.Milliseconds(), Valid: true}
	}

	_, err := s.DB.Exec(ctx, insertAudit,
		pgtype.UUID{Bytes: rec.RequestID, Valid: true},
		rec.Object,
		rec.Path,
		string(rec.Phase),
		params,
		duration,
		pgtype.Text{String: rec.Error, Valid: rec.Error != ""},
		clientAddr(rec.ClientIP),
		pgtype.Text{String: rec.UserAgent, Valid: rec.UserAgent != ""},
		pgtype.Timestamptz{Time: rec.At, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// MultiStore fans a record out to several stores and returns the first error.
type MultiStore []Store

// Record implements Store.
func (m MultiStore) Record(ctx context.Context, rec Record) error {
	var first error
	for _, s := range m {
		if err := s.Record(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// clientAddr parses ip for an inet column; unparsable addresses store NULL.
func clientAddr(ip string) *netip.Addr {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil
	}
	return &addr
}
