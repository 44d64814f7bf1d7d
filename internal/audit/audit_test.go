package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/cubetab/internal/logging"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type memStore struct {
	records []Record
	err     error
}

func (s *memStore) Record(_ context.Context, rec Record) error {
	s.records = append(s.records, rec)
	return s.err
}

func fixedHelper(store Store) (*Helper, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := NewHelper("query-service", store)
	h.now = func() time.Time { return now }
	return h, &now
}

func TestHelper_StartEnd(t *testing.T) {
	store := &memStore{}
	h, now := fixedHelper(store)

	ctx := WithClient(context.Background(), "10.0.0.7", "curl/8")
	q, _ := h.StartQuery(ctx, "/api/query/sales", map[string]string{"store": "north"})
	*now = now.Add(250 * time.Millisecond)
	q.End(nil)

	if len(store.records) != 2 {
		t.Fatalf("got %d records, want 2", len(store.records))
	}
	start, end := store.records[0], store.records[1]
	if start.Phase != PhaseStart || start.Params["store"] != "north" || start.Object != "query-service" || start.ClientIP != "10.0.0.7" {
		t.Errorf("start record = %+v", start)
	}
	if end.Phase != PhaseEnd || end.Duration != 250*time.Millisecond {
		t.Errorf("end record = %+v", end)
	}
	if start.RequestID != end.RequestID || start.RequestID != q.RequestID() {
		t.Error("request ids differ between start and end")
	}
}

func TestHelper_EndWithError(t *testing.T) {
	store := &memStore{}
	h, _ := fixedHelper(store)

	q, _ := h.StartQuery(context.Background(), "p", nil)
	q.End(errors.New("boom"))

	end := store.records[1]
	if end.Phase != PhaseFailed || end.Error != "boom" {
		t.Errorf("end record = %+v", end)
	}
}

func TestHelper_StoreFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.NewContext(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	h, _ := fixedHelper(&memStore{err: errors.New("db down")})

	q, qctx := h.StartQuery(ctx, "p", nil)
	q.End(nil)

	if !strings.Contains(buf.String(), "audit record failed") || !strings.Contains(buf.String(), "query_id="+q.RequestID().String()) {
		t.Errorf("log output = %q", buf.String())
	}
	if logging.FromContext(qctx) == nil {
		t.Error("query context has no logger")
	}
}

func TestLogStore(t *testing.T) {
	var buf bytes.Buffer
	s := LogStore{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	err := s.Record(context.Background(), Record{Phase: PhaseEnd, Path: "p", Duration: 2 * time.Second})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !strings.Contains(buf.String(), "phase=query_end") || !strings.Contains(buf.String(), "duration_ms=2000") {
		t.Errorf("log output = %q", buf.String())
	}
}

type fakeExecer struct {
	sql  string
	args []any
	err  error
}

func (e *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.sql, e.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), e.err
}

func TestPostgresStore(t *testing.T) {
	db := &fakeExecer{}
	s := PostgresStore{DB: db}

	rec := Record{Phase: PhaseStart, Path: "p", Params: map[string]string{"a": "1"}, At: time.Now()}
	if err := s.Record(context.Background(), rec); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !strings.Contains(db.sql, "INSERT INTO query_audit") || len(db.args) != 10 {
		t.Fatalf("exec = %q with %d args", db.sql, len(db.args))
	}
	if string(db.args[4].([]byte)) != `{"a":"1"}` {
		t.Errorf("params arg = %s", db.args[4])
	}
	if d := db.args[5].(pgtype.Int8); d.Valid {
		t.Error("start record has a duration")
	}

	db.err = errors.New("fail")
	if err := s.Record(context.Background(), rec); !errors.Is(err, db.err) {
		t.Errorf("Record() error = %v, want wrapped exec error", err)
	}
}

func TestMultiStore(t *testing.T) {
	a, b := &memStore{err: errors.New("a")}, &memStore{}
	err := MultiStore{a, b}.Record(context.Background(), Record{})
	if err == nil || len(b.records) != 1 {
		t.Errorf("MultiStore error = %v, b records = %d", err, len(b.records))
	}
}

func TestClientAddr(t *testing.T) {
	if clientAddr("not-an-ip") != nil {
		t.Error("clientAddr(invalid) != nil")
	}
	if a := clientAddr("192.168.1.5"); a == nil || a.String() != "192.168.1.5" {
		t.Errorf("clientAddr() = %v", a)
	}
}
