package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"benchclub/internal/database"
	"benchclub/internal/errcode"
	"benchclub/internal/gamification"
	"benchclub/internal/tasks"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := gamification.SyncCatalog(db); err != nil {
		t.Fatalf("sync catalog: %v", err)
	}
	return db
}

func newTestNotifyHandler(t *testing.T) (*AchievementNotifyHandler, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAchievementNotifyHandler(db, nil, logger), db
}

func TestComposeMessageResolvesCatalogEntries(t *testing.T) {
	handler, _ := newTestNotifyHandler(t)

	message, err := handler.composeMessage(context.Background(), tasks.AchievementNotifyPayload{
		UserID:        1,
		Codes:         []string{gamification.CodeFirstBuild, gamification.CodeCommentator},
		CorrelationID: "corr-1",
	})
	if err != nil {
		t.Fatalf("compose message: %v", err)
	}
	if message.ErrorCode != errcode.OK {
		t.Fatalf("unexpected error code %d", message.ErrorCode)
	}
	if message.Type != "achievement_unlocked" {
		t.Fatalf("unexpected message type %q", message.Type)
	}
	if len(message.Names) != 2 {
		t.Fatalf("expected two resolved names, got %+v", message.Names)
	}
	if message.Points != 80 {
		t.Fatalf("expected 50+30 points, got %d", message.Points)
	}
	if message.CorrelationID != "corr-1" {
		t.Fatalf("correlation id lost: %q", message.CorrelationID)
	}
}

func TestComposeMessageFlagsCatalogDrift(t *testing.T) {
	handler, db := newTestNotifyHandler(t)

	// 授予与通知之间目录行被手工删掉：标记漂移但保留已解析的部分。
	err := db.Unscoped().
		Where("code = ?", gamification.CodeFirstBuild).
		Delete(&database.Achievement{}).Error
	if err != nil {
		t.Fatalf("remove catalog row: %v", err)
	}

	message, err := handler.composeMessage(context.Background(), tasks.AchievementNotifyPayload{
		UserID:        1,
		Codes:         []string{gamification.CodeFirstBuild, gamification.CodeCommentator},
		CorrelationID: "corr-2",
	})
	if err != nil {
		t.Fatalf("compose message: %v", err)
	}
	if message.ErrorCode != errcode.CatalogDrift {
		t.Fatalf("expected catalog drift code %d, got %d", errcode.CatalogDrift, message.ErrorCode)
	}
	if len(message.Names) != 1 {
		t.Fatalf("expected the surviving entry only, got %+v", message.Names)
	}
	if message.Points != 30 {
		t.Fatalf("expected commentator points only, got %d", message.Points)
	}
}
