package adapters

import (
	"context"
	"strings"
	"testing"
)

func TestPostgresSource_Query(t *testing.T) {
	tests := []struct {
		table     string
		wantTable string
		wantErr   bool
	}{
		{"", "FROM course", false},
		{"courses", "FROM courses", false},
		{"public.course", "FROM public.course", false},
		{"course; DROP TABLE course", "", true},
		{"1course", "", true},
		{"a.b.c", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			q, err := (&PostgresSource{Table: tt.table}).query()
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got err=%v", tt.wantErr, err)
			}
			if !tt.wantErr && !strings.Contains(q, tt.wantTable) {
				t.Errorf("query %q does not select %q", q, tt.wantTable)
			}
		})
	}
}

func TestPostgresSource_RequiresPool(t *testing.T) {
	if _, err := (&PostgresSource{}).Collect(context.Background()); err == nil {
		t.Fatal("expected error for missing pool")
	}
}

func TestNewPostgresPool_RequiresURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty database URL")
	}
}
