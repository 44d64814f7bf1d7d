// Package audit records the start and end of every query.
package audit

import (
	"context"
	"time"

	"github.com/JonMunkholm/cubetab/internal/logging"
	"github.com/google/uuid"
)

// Phase is the lifecycle point an audit record describes.
type Phase string

const (
	PhaseStart  Phase = "query_start"
	PhaseEnd    Phase = "query_end"
	PhaseFailed Phase = "query_failed"
)

// Record is one audit entry.
type Record struct {
	RequestID uuid.UUID         `json:"requestId"`
	Object    string            `json:"object"`
	Path      string            `json:"path"`
	Phase     Phase             `json:"phase"`
	Params    map[string]string `json:"params,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
	Error     string            `json:"error,omitempty"`
	ClientIP  string            `json:"clientIp,omitempty"`
	UserAgent string            `json:"userAgent,omitempty"`
	At        time.Time         `json:"at"`
}

// Store persists audit records.
type Store interface {
	Record(ctx context.Context, rec Record) error
}

// Helper audits queries for one object, typically the query service.
type Helper struct {
	object string
	store  Store
	now    func() time.Time
}

// NewHelper returns a helper writing to store.
func NewHelper(object string, store Store) *Helper {
	return &Helper{object: object, store: store, now: time.Now}
}

// QueryAudit is the handle of a started query. Call End exactly once.
type QueryAudit struct {
	h         *Helper
	ctx       context.Context
	requestID uuid.UUID
	path      string
	start     time.Time
}

// StartQuery records the start of a query and returns its handle together
// with a context whose logger carries the query id.
func (h *Helper) StartQuery(ctx context.Context, path string, params map[string]string) (*QueryAudit, context.Context) {
	id := uuid.New()
	ctx = logging.NewContext(ctx, logging.WithFields(ctx, "query_id", id.String()))

	q := &QueryAudit{h: h, ctx: ctx, requestID: id, path: path, start: h.now()}
	client := ClientFromContext(ctx)
	h.record(ctx, Record{
		RequestID: id,
		Object:    h.object,
		Path:      path,
		Phase:     PhaseStart,
		Params:    params,
		ClientIP:  client.IPAddress,
		UserAgent: client.UserAgent,
		At:        q.start,
	})
	return q, ctx
}

// RequestID returns the id assigned by StartQuery.
func (q *QueryAudit) RequestID() uuid.UUID { return q.requestID }

// End records the end of the query. A non-nil err marks it failed.
func (q *QueryAudit) End(err error) {
	now := q.h.now()
	rec := Record{
		RequestID: q.requestID,
		Object:    q.h.object,
		Path:      q.path,
		Phase:     PhaseEnd,
		Duration:  now.Sub(q.start),
		At:        now,
	}
	if err != nil {
		rec.Phase = PhaseFailed
		rec.Error = err.Error()
	}
	q.h.record(q.ctx, rec)
}

// record stores rec. Store failures are logged and never fail the query.
func (h *Helper) record(ctx context.Context, rec Record) {
	if h.store == nil {
		return
	}
	if err := h.store.Record(context.WithoutCancel(ctx), rec); err != nil {
		logging.FromContext(ctx).Warn("audit record failed", "phase", rec.Phase, "error", err)
	}
}
