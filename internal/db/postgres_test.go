package db_test

import (
	"testing"

	"github.com/notifyhub/chatbridge/internal/db"
)

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/read?sslmode=disable", "pgx5://u:p@localhost:5432/read?sslmode=disable"},
		{"postgresql://localhost/read", "pgx5://localhost/read"},
		{"localhost/read", "pgx5://localhost/read"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := db.MigrationURL(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsPostgres(t *testing.T) {
	if !db.IsPostgres("postgres://x") || !db.IsPostgres("postgresql://x") {
		t.Fatal("expected postgres URLs to be detected")
	}
	if db.IsPostgres("sqlite://read.db") || db.IsPostgres("") {
		t.Fatal("expected non-postgres URLs to be rejected")
	}
}
