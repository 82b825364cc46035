package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/PabloGalante/taskbot/internal/adapters/storage/storetest"
	"github.com/PabloGalante/taskbot/internal/domain"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Store {
		s, err := NewStore(filepath.Join(t.TempDir(), "nested", "taskbot.db"))
		if err != nil {
			t.Fatalf("NewStore: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestOrderClause(t *testing.T) {
	got := orderClause(domain.Sort{Field: domain.SortPriority, Direction: domain.Desc})
	want := "priority_rank DESC, due_date ASC, id ASC"
	if got != want {
		t.Fatalf("orderClause = %q, want %q", got, want)
	}
}
