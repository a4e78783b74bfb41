package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslateError(t *testing.T) {
	t.Parallel()

	if err := translateError(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := translateError(fmt.Errorf("scan: %w", pgx.ErrNoRows)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "categories_name_key"}
	err := translateError(dup)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if !strings.Contains(err.Error(), "categories_name_key") {
		t.Fatalf("expected constraint name in error, got %q", err.Error())
	}

	other := errors.New("boom")
	if err := translateError(other); err != other {
		t.Fatalf("expected passthrough, got %v", err)
	}
}

func TestNormalizeQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "empty", query: "   ", want: "sql.query"},
		{name: "collapses whitespace", query: "\n\tSELECT id\n  FROM orders\n", want: "SELECT id FROM orders"},
		{name: "truncates", query: strings.Repeat("x", 600), want: strings.Repeat("x", 512)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeQuery(tt.query); got != tt.want {
				t.Fatalf("normalizeQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueryOperationAndTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query     string
		operation string
		table     string
	}{
		{query: "SELECT id FROM orders WHERE id = $1", operation: "SELECT", table: "orders"},
		{query: "insert into categories (name, slug) VALUES ($1, $2)", operation: "INSERT", table: "categories"},
		{query: "UPDATE orders SET status = $2", operation: "UPDATE", table: "orders"},
		{query: "BEGIN", operation: "BEGIN", table: ""},
	}

	for _, tt := range tests {
		if got := queryOperation(tt.query); got != tt.operation {
			t.Errorf("queryOperation(%q) = %q, want %q", tt.query, got, tt.operation)
		}
		if got := queryTable(tt.query); got != tt.table {
			t.Errorf("queryTable(%q) = %q, want %q", tt.query, got, tt.table)
		}
	}
}

func TestIntToInt32(t *testing.T) {
	t.Parallel()

	if v, err := intToInt32(50, "limit"); err != nil || v != 50 {
		t.Fatalf("unexpected result: %d, %v", v, err)
	}
	if _, err := intToInt32(1<<40, "limit"); err == nil {
		t.Fatal("expected range error")
	}
}

func TestQueryTracerWithoutSpan(t *testing.T) {
	t.Parallel()

	tracer := newQueryTracer()
	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	if _, ok := ctx.Value(tracedQueryKey{}).(*tracedQuery); !ok {
		t.Fatal("expected traced query in context")
	}
	// No active transaction: ending must not panic, including on a missing row.
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: pgx.ErrNoRows})
	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
}
