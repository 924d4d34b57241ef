package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tillpoint/tillpoint-backend/pkg/migrate"
)

func TestReturnsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_returns.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no returns migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS return_records",
		"CREATE TABLE IF NOT EXISTS return_line_items",
		"FOREIGN KEY (return_id) REFERENCES return_records(id) ON DELETE CASCADE",
		"CHECK (qty > 0)",
		"CHECK (refund_amount_cents >= 0)",
		"DROP TABLE IF EXISTS return_line_items",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_inventory.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no inventory migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS inventory_levels",
		"CREATE TABLE IF NOT EXISTS inventory_transactions",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"CHECK (on_hand_qty >= 0)",
		"DROP TABLE IF EXISTS inventory_transactions",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations directory failed validation: %v", err)
	}
}
