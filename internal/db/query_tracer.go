package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"

	"github.com/storefrontapp/storefront/internal/logging"
)

const (
	maxQueryDescription = 512
	slowQueryThreshold  = 250 * time.Millisecond
)

type tracedQuery struct {
	span      *sentry.Span
	statement string
	startedAt time.Time
}

type tracedQueryKey struct{}

// queryTracer opens a Sentry span per statement when the caller is already traced
// and logs statements that exceed the slow threshold.
type queryTracer struct {
	slowThreshold time.Duration
	now           func() time.Time
}

func newQueryTracer() *queryTracer {
	return &queryTracer{slowThreshold: slowQueryThreshold, now: time.Now}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	q := &tracedQuery{statement: normalizeQuery(data.SQL), startedAt: t.now()}

	if sentry.SpanFromContext(ctx) != nil {
		q.span = sentry.StartSpan(ctx, "db.query",
			sentry.WithDescription(q.statement),
			sentry.WithSpanOrigin(sentry.SpanOriginManual),
		)
		q.span.SetData("db.system", "postgresql")
		if op := queryOperation(q.statement); op != "" {
			q.span.SetData("db.operation", op)
		}
		if table := queryTable(q.statement); table != "" {
			q.span.SetData("db.sql.table", table)
		}
		ctx = q.span.Context()
	}

	return context.WithValue(ctx, tracedQueryKey{}, q)
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	q, _ := ctx.Value(tracedQueryKey{}).(*tracedQuery)
	if q == nil {
		return
	}
	elapsed := t.now().Sub(q.startedAt)

	// A missing row is an expected lookup result, not a failed statement.
	failed := data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows)

	if q.span != nil {
		if failed {
			q.span.Status = sentry.SpanStatusInternalError
			q.span.SetData("db.error", data.Err.Error())
		} else {
			q.span.Status = sentry.SpanStatusOK
		}
		if rows := data.CommandTag.RowsAffected(); rows >= 0 {
			q.span.SetData("db.rows_affected", rows)
		}
		q.span.Finish()
	}

	if t.slowThreshold > 0 && elapsed >= t.slowThreshold {
		logging.FromContext(ctx, nil).Warn("slow database query",
			"operation", queryOperation(q.statement),
			"table", queryTable(q.statement),
			"duration_ms", elapsed.Milliseconds(),
		)
	}
}

func normalizeQuery(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	if normalized == "" {
		return "sql.query"
	}
	if len(normalized) > maxQueryDescription {
		return normalized[:maxQueryDescription]
	}
	return normalized
}

func queryOperation(query string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(query), " ")
	return strings.ToUpper(verb)
}

// queryTable returns the first table named after FROM, INTO or UPDATE.
func queryTable(query string) string {
	parts := strings.Fields(query)
	for i := 0; i < len(parts)-1; i++ {
		switch strings.ToUpper(parts[i]) {
		case "FROM", "INTO", "UPDATE":
			return strings.Trim(parts[i+1], "(\"")
		}
	}
	return ""
}
