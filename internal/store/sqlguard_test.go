package store

import (
	"errors"
	"testing"
)

func TestCheckSelect(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want error
	}{
		{"select", "SELECT * FROM transactions", nil},
		{"lowercase with trailing semicolon", "select 1;", nil},
		{"leading comment", "-- top spenders\nSELECT user_id FROM transactions", nil},
		{"block comment", "/* x */ SELECT 1", nil},
		{"cte", "WITH t AS (SELECT amount FROM transactions) SELECT sum(amount) FROM t", nil},
		{"replace function", "SELECT replace(name, 'a', 'b') FROM vendors", nil},
		{"keyword inside string", "SELECT * FROM t WHERE memo = 'DELETE; DROP TABLE x'", nil},
		{"keyword as quoted identifier", `SELECT "update" FROM t`, nil},
		{"window function", "SELECT id, sum(amount) OVER (PARTITION BY user_id) FROM transactions", nil},

		{"empty", "   ", ErrEmptyQuery},
		{"only semicolons", ";;", ErrEmptyQuery},
		{"only comment", "-- nothing", ErrEmptyQuery},
		{"insert", "INSERT INTO t VALUES (1)", ErrNotSelect},
		{"update", "UPDATE t SET a = 1", ErrNotSelect},
		{"delete", "delete from t", ErrNotSelect},
		{"drop", "DROP TABLE transactions", ErrNotSelect},
		{"create", "CREATE TABLE x (a)", ErrNotSelect},
		{"pragma", "PRAGMA query_only = OFF", ErrNotSelect},
		{"attach", "ATTACH DATABASE 'x.db' AS x", ErrNotSelect},
		{"comment hides nothing", "/* SELECT */ DELETE FROM t", ErrNotSelect},
		{"cte with delete", "WITH t AS (SELECT 1) DELETE FROM transactions", ErrNotSelect},
		{"cte with replace into", "WITH t AS (SELECT 1) REPLACE INTO x SELECT * FROM t", ErrNotSelect},
		{"two statements", "SELECT 1; SELECT 2", ErrMultipleStatements},
		{"stacked write", "SELECT 1; DROP TABLE t", ErrMultipleStatements},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSelect(tt.sql)
			if !errors.Is(err, tt.want) {
				t.Fatalf("CheckSelect(%q) = %v, want %v", tt.sql, err, tt.want)
			}
		})
	}
}

func TestCheckSelectUnterminated(t *testing.T) {
	for _, q := range []string{"SELECT 'abc", "SELECT /* abc", `SELECT "x`} {
		if err := CheckSelect(q); err == nil {
			t.Fatalf("expected error for %q", q)
		}
	}
}
