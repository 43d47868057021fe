package gamification

import (
	"context"
	"fmt"
	"testing"

	"benchclub/internal/database"
)

func TestAggregateProfileCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, "+79995000001")

	seedBuild(t, db, user.ID, true)
	seedBuild(t, db, user.ID, false)

	for i := 0; i < 2; i++ {
		fan := seedUser(t, db, fmt.Sprintf("+7999600000%d", i))
		sub := database.Subscription{FollowerID: fan.ID, FollowedID: user.ID}
		if err := db.Create(&sub).Error; err != nil {
			t.Fatalf("seed follower: %v", err)
		}
	}
	idol := seedUser(t, db, "+79996000009")
	sub := database.Subscription{FollowerID: user.ID, FollowedID: idol.ID}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("seed following: %v", err)
	}

	if _, err := NewEvaluator(db).Evaluate(ctx, user.ID); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	profile, err := AggregateProfile(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if profile.TotalBuilds != 2 {
		t.Errorf("total builds = %d, want 2", profile.TotalBuilds)
	}
	if profile.PublishedBuilds != 1 {
		t.Errorf("published builds = %d, want 1", profile.PublishedBuilds)
	}
	if profile.Followers != 2 {
		t.Errorf("followers = %d, want 2", profile.Followers)
	}
	if profile.Following != 1 {
		t.Errorf("following = %d, want 1", profile.Following)
	}
	if profile.Points != 50 {
		t.Errorf("points = %d, want 50 (first_build only)", profile.Points)
	}
	if profile.Title != TitleNewcomer {
		t.Errorf("title = %q, want %q", profile.Title, TitleNewcomer)
	}
}

func TestAggregateProfileReflectsNewGrantsImmediately(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, "+79995000002")

	before, err := AggregateProfile(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if before.Points != 0 || before.Title != TitleObserver {
		t.Fatalf("fresh account should be observer with 0 points, got %+v", before)
	}

	seedBuild(t, db, user.ID, true)
	if _, err := NewEvaluator(db).Evaluate(ctx, user.ID); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	after, err := AggregateProfile(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("aggregate after grant: %v", err)
	}
	if after.Points != 50 || after.Title != TitleNewcomer {
		t.Fatalf("profile must reflect the grant without any cache delay, got %+v", after)
	}
}
