package gamification

import (
	"testing"

	"benchclub/internal/database"
)

func TestSyncCatalogIsIdempotent(t *testing.T) {
	db := newTestDB(t) // already runs SyncCatalog once

	if err := SyncCatalog(db); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	var count int64
	if err := db.Model(&database.Achievement{}).Count(&count).Error; err != nil {
		t.Fatalf("count achievements: %v", err)
	}
	if count != int64(len(Catalog)) {
		t.Fatalf("expected %d catalog rows, got %d", len(Catalog), count)
	}
}

func TestSyncCatalogKeepsManualEdits(t *testing.T) {
	db := newTestDB(t)

	err := db.Model(&database.Achievement{}).
		Where("code = ?", CodeFirstBuild).
		Update("points", 75).Error
	if err != nil {
		t.Fatalf("tweak points: %v", err)
	}

	if err := SyncCatalog(db); err != nil {
		t.Fatalf("resync: %v", err)
	}

	var entry database.Achievement
	if err := db.Where("code = ?", CodeFirstBuild).First(&entry).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.Points != 75 {
		t.Fatalf("sync must not overwrite manual edits, points = %d", entry.Points)
	}
}
