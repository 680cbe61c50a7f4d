package main

import (
	"bufio"
	"strings"
	"testing"
)

// Columns scanned into pointer fields are written with explicit binds, and
// an explicit NULL bypasses column DEFAULTs. Each such column must be
// nullable in the schema or inserts fail at the constraint.
func TestPointerBackedColumnsAreNullable(t *testing.T) {
	nullable := []struct{ table, column string }{
		{"documents", "page_count"},
		{"documents", "current_result_id"},
		{"documents", "next_attempt_at"},
		{"documents", "last_error"},
		{"verification_attempts", "diagnostics"},
		{"review_items", "reviewer_id"},
		{"review_items", "decision"},
		{"review_items", "corrections"},
		{"review_items", "claimed_at"},
		{"review_items", "resolved_at"},
		{"review_items", "escalated_at"},
		{"webhook_deliveries", "next_attempt_at"},
		{"webhook_deliveries", "last_error"},
		{"webhook_deliveries", "delivered_at"},
	}

	columns := parseColumns(t)

	for _, tt := range nullable {
		line, ok := columns[tt.table+"."+tt.column]
		if !ok {
			t.Errorf("column %s.%s not found in schema", tt.table, tt.column)
			continue
		}
		if strings.Contains(line, "NOT NULL") {
			t.Errorf("column %s.%s must be nullable: %q", tt.table, tt.column, line)
		}
	}
}

// parseColumns maps "table.column" to its definition line in the initial
// migration.
func parseColumns(t *testing.T) map[string]string {
	t.Helper()

	data, err := migrations.ReadFile("migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}

	columns := make(map[string]string)
	var table string

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if rest, ok := strings.CutPrefix(line, "CREATE TABLE "); ok {
			table = strings.TrimSpace(strings.TrimSuffix(rest, "("))
			continue
		}
		if line == ");" {
			table = ""
			continue
		}
		if table == "" || line == "" {
			continue
		}

		name, _, ok := strings.Cut(line, " ")
		if !ok || strings.ToUpper(name) == name {
			continue
		}
		columns[table+"."+name] = line
	}

	return columns
}
