package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}

func TestBillingCoreMigrationEnforcesSessionInvariants(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	var sql string
	for _, e := range entries {
		if strings.Contains(e.Name(), "billing_core") {
			b, err := os.ReadFile(filepath.Join("migrations", e.Name()))
			if err != nil {
				t.Fatalf("read migration: %v", err)
			}
			sql = string(b)
		}
	}
	if sql == "" {
		t.Fatal("billing_core migration not found")
	}

	// The partial unique indexes are the persistence-level guard for the
	// one-open-segment and one-active-engagement invariants.
	for _, idx := range []string{
		"table_segments_one_open_per_visit",
		"cast_engagements_one_active_per_pair",
		"visit_guests_one_primary_payer_per_visit",
		"visit_guests_one_main_per_visit",
	} {
		if !strings.Contains(sql, idx) {
			t.Fatalf("expected migration to define index %s", idx)
		}
	}
}
