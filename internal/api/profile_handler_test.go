package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"benchclub/internal/database"
	"benchclub/internal/gamification"
)

func TestProfileOverviewReflectsGrants(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "+79992000001")
	buildHandler := NewBuildHandler(db, gamification.NewEvaluator(db), nil)
	h := NewProfileHandler(db)

	c, w := newJSONContext(t, user.ID, http.MethodPost, "/v1/builds", validBuildPayload("first rig", true))
	buildHandler.CreateBuild(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("create build: %d body=%s", w.Code, w.Body.String())
	}

	c, w = newJSONContext(t, user.ID, http.MethodGet, "/v1/profile", nil)
	h.Overview(c)
	if w.Code != http.StatusOK {
		t.Fatalf("overview failed: %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Profile      gamification.Profile `json:"profile"`
		Achievements []map[string]any     `json:"achievements"`
		Builds       []map[string]any     `json:"builds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode overview: %v", err)
	}

	if resp.Profile.Points != 50 {
		t.Errorf("points = %d, want 50", resp.Profile.Points)
	}
	if resp.Profile.Title != gamification.TitleNewcomer {
		t.Errorf("title = %q, want %q", resp.Profile.Title, gamification.TitleNewcomer)
	}
	if len(resp.Achievements) != 1 || resp.Achievements[0]["code"] != gamification.CodeFirstBuild {
		t.Errorf("recent achievements = %v, want single first_build", resp.Achievements)
	}
	if len(resp.Builds) != 1 {
		t.Errorf("recent builds = %d, want 1", len(resp.Builds))
	}
}

func TestExpertShowsOnlyPublishedBuilds(t *testing.T) {
	db := newTestDB(t)
	expert := seedUser(t, db, "+79992000002")
	visitor := seedUser(t, db, "+79992000003")
	h := NewProfileHandler(db)

	seedPublishedBuild(t, db, expert.ID)
	draft := database.Build{Title: "unfinished", AuthorID: expert.ID}
	if err := db.Create(&draft).Error; err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	c, w := newJSONContext(t, visitor.ID, http.MethodGet, "/v1/experts/x", nil)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(expert.ID)}}
	h.Expert(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expert failed: %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		DisplayName string           `json:"display_name"`
		Builds      []map[string]any `json:"builds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode expert: %v", err)
	}
	if len(resp.Builds) != 1 {
		t.Fatalf("drafts must stay private, got %d builds", len(resp.Builds))
	}
}

func TestExpertUnknownUser(t *testing.T) {
	db := newTestDB(t)
	visitor := seedUser(t, db, "+79992000004")
	h := NewProfileHandler(db)

	c, w := newJSONContext(t, visitor.ID, http.MethodGet, "/v1/experts/999", nil)
	c.Params = gin.Params{{Key: "id", Value: "999"}}
	h.Expert(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestLeaderboardOrdersByPublishedCount(t *testing.T) {
	db := newTestDB(t)
	prolific := seedUser(t, db, "+79992000005")
	casual := seedUser(t, db, "+79992000006")
	lurker := seedUser(t, db, "+79992000007")
	h := NewProfileHandler(db)

	for i := 0; i < 3; i++ {
		seedPublishedBuild(t, db, prolific.ID)
	}
	seedPublishedBuild(t, db, casual.ID)
	draft := database.Build{Title: "never shown", AuthorID: lurker.ID}
	if err := db.Create(&draft).Error; err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	c, w := newJSONContext(t, casual.ID, http.MethodGet, "/v1/leaderboard", nil)
	h.Leaderboard(c)
	if w.Code != http.StatusOK {
		t.Fatalf("leaderboard failed: %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Items []leaderboardRow `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("lurker without published builds must not rank, got %d rows", len(resp.Items))
	}
	if resp.Items[0].UserID != prolific.ID || resp.Items[0].Published != 3 {
		t.Fatalf("wrong leader: %+v", resp.Items[0])
	}
	if resp.Items[1].UserID != casual.ID || resp.Items[1].Published != 1 {
		t.Fatalf("wrong runner-up: %+v", resp.Items[1])
	}
}

func TestProfileUpdate(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "+79992000008")
	h := NewProfileHandler(db)

	payload := gin.H{"display_name": "New Name", "bio": "water cooling enthusiast"}
	c, w := newJSONContext(t, user.ID, http.MethodPut, "/v1/profile", payload)
	h.Update(c)
	if w.Code != http.StatusOK {
		t.Fatalf("update failed: %d body=%s", w.Code, w.Body.String())
	}

	var reloaded database.User
	if err := db.First(&reloaded, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if reloaded.DisplayName != "New Name" || reloaded.Bio != "water cooling enthusiast" {
		t.Fatalf("update did not land: %+v", reloaded)
	}
	if reloaded.Email != nil {
		t.Fatalf("empty email should stay null, got %v", *reloaded.Email)
	}
}

func TestProfileUpdateDuplicateEmailConflicts(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "+79992000009")
	other := seedUser(t, db, "+79992000010")
	h := NewProfileHandler(db)

	payload := gin.H{"display_name": "Owner", "email": "shared@example.com"}
	c, w := newJSONContext(t, owner.ID, http.MethodPut, "/v1/profile", payload)
	h.Update(c)
	if w.Code != http.StatusOK {
		t.Fatalf("first update failed: %d body=%s", w.Code, w.Body.String())
	}

	payload = gin.H{"display_name": "Other", "email": "shared@example.com"}
	c, w = newJSONContext(t, other.ID, http.MethodPut, "/v1/profile", payload)
	h.Update(c)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate email must 409, got %d body=%s", w.Code, w.Body.String())
	}

	// 用户保留自己的邮箱再次提交不算冲突。
	payload = gin.H{"display_name": "Owner Again", "email": "shared@example.com"}
	c, w = newJSONContext(t, owner.ID, http.MethodPut, "/v1/profile", payload)
	h.Update(c)
	if w.Code != http.StatusOK {
		t.Fatalf("own email re-submit must pass, got %d body=%s", w.Code, w.Body.String())
	}
}
