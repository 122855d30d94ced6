package repo

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSQLite_CreatesAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// All three tables must be usable after migration.
	ctx := context.Background()
	if _, err := GetOrCreateAccount(ctx, db, 1, 40); err != nil {
		t.Fatalf("accounts table unusable: %v", err)
	}
	if err := RegisterMedia(ctx, db, 1, "abc"); err != nil {
		t.Fatalf("media table unusable: %v", err)
	}
	if err := MarkSeen(ctx, db, 1, 1); err != nil {
		t.Fatalf("seen table unusable: %v", err)
	}
}

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does", "not", "exist", "vault.db")

	if _, err := OpenSQLite(path); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}

func TestOpenSQLite_TranslatesDuplicateKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	ctx := context.Background()
	if err := RegisterMedia(ctx, db, 1, "same"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterMedia(ctx, db, 2, "same"); err == nil {
		t.Fatalf("duplicate fingerprint accepted")
	}
}
