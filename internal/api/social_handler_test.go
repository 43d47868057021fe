package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"benchclub/internal/database"
	"benchclub/internal/gamification"
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

func seedUser(t *testing.T, db *gorm.DB, phone string) database.User {
	t.Helper()
	user := database.User{PhoneNumber: phone, DisplayName: "user-" + phone, PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedPublishedBuild(t *testing.T, db *gorm.DB, authorID uint) database.Build {
	t.Helper()
	build := database.Build{Title: "ryzen tower", AuthorID: authorID, IsPublished: true}
	if err := db.Create(&build).Error; err != nil {
		t.Fatalf("seed build: %v", err)
	}
	return build
}

// newJSONContext 构造带鉴权用户与 JSON 体的测试上下文。
func newJSONContext(t *testing.T, userID uint, method, target string, payload any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, body)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("userID", userID)
	return c, w
}

func TestToggleSubscriptionRejectsSelfFollow(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "+79990000001")
	h := NewSocialHandler(db, gamification.NewEvaluator(db), nil)

	c, w := newJSONContext(t, user.ID, http.MethodPost, "/v1/subscriptions/1", nil)
	c.Params = gin.Params{{Key: "user_id", Value: fmt.Sprint(user.ID)}}

	h.ToggleSubscription(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
	var count int64
	if err := db.Model(&database.Subscription{}).Count(&count).Error; err != nil {
		t.Fatalf("count subscriptions: %v", err)
	}
	if count != 0 {
		t.Fatalf("self follow must not persist, got %d rows", count)
	}
}

func TestToggleSubscriptionRoundTrip(t *testing.T) {
	db := newTestDB(t)
	follower := seedUser(t, db, "+79990000002")
	target := seedUser(t, db, "+79990000003")
	h := NewSocialHandler(db, gamification.NewEvaluator(db), nil)

	toggle := func() map[string]bool {
		c, w := newJSONContext(t, follower.ID, http.MethodPost, "/v1/subscriptions/x", nil)
		c.Params = gin.Params{{Key: "user_id", Value: fmt.Sprint(target.ID)}}
		h.ToggleSubscription(c)
		if w.Code != http.StatusOK {
			t.Fatalf("toggle failed: %d body=%s", w.Code, w.Body.String())
		}
		var resp map[string]bool
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return resp
	}

	if resp := toggle(); !resp["subscribed"] {
		t.Fatal("first toggle should subscribe")
	}
	if resp := toggle(); resp["subscribed"] {
		t.Fatal("second toggle should unsubscribe")
	}
	// 第三次切换必须能重新建边，软删残留会在这里撞唯一索引。
	if resp := toggle(); !resp["subscribed"] {
		t.Fatal("third toggle should subscribe again")
	}
}

func TestToggleSubscriptionUnknownTarget(t *testing.T) {
	db := newTestDB(t)
	follower := seedUser(t, db, "+79990000004")
	h := NewSocialHandler(db, gamification.NewEvaluator(db), nil)

	c, w := newJSONContext(t, follower.ID, http.MethodPost, "/v1/subscriptions/999", nil)
	c.Params = gin.Params{{Key: "user_id", Value: "999"}}

	h.ToggleSubscription(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestRateBuildUpsertsInPlace(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "+79990000005")
	reviewer := seedUser(t, db, "+79990000006")
	build := seedPublishedBuild(t, db, author.ID)
	h := NewSocialHandler(db, gamification.NewEvaluator(db), nil)

	rate := func(score int) {
		c, w := newJSONContext(t, reviewer.ID, http.MethodPut, "/v1/builds/x/rating", gin.H{"score": score})
		c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(build.ID)}}
		h.RateBuild(c)
		if w.Code != http.StatusOK {
			t.Fatalf("rate %d failed: %d body=%s", score, w.Code, w.Body.String())
		}
	}

	rate(4)
	rate(5)

	var ratings []database.BuildRating
	if err := db.Where("build_id = ?", build.ID).Find(&ratings).Error; err != nil {
		t.Fatalf("load ratings: %v", err)
	}
	if len(ratings) != 1 {
		t.Fatalf("re-rating must overwrite, got %d rows", len(ratings))
	}
	if ratings[0].Score != 5 {
		t.Fatalf("score = %d, want 5", ratings[0].Score)
	}

	rate(3)
	if err := db.Where("build_id = ?", build.ID).Find(&ratings).Error; err != nil {
		t.Fatalf("reload ratings: %v", err)
	}
	if len(ratings) != 1 || ratings[0].Score != 3 {
		t.Fatalf("downgrade must land in place, got %+v", ratings)
	}
}

func TestRateBuildEvaluatesAuthorNotReviewer(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "+79990000007")
	build := seedPublishedBuild(t, db, author.ID)
	h := NewSocialHandler(db, gamification.NewEvaluator(db), nil)

	for i := 0; i < 3; i++ {
		reviewer := seedUser(t, db, fmt.Sprintf("+7999700000%d", i))
		c, w := newJSONContext(t, reviewer.ID, http.MethodPut, "/v1/builds/x/rating", gin.H{"score": 5})
		c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(build.ID)}}
		h.RateBuild(c)
		if w.Code != http.StatusOK {
			t.Fatalf("rate failed: %d body=%s", w.Code, w.Body.String())
		}
	}

	var grants []database.UserAchievement
	err := db.Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.user_id = ? AND achievements.code = ?", author.ID, gamification.CodeMentor).
		Find(&grants).Error
	if err != nil {
		t.Fatalf("load grants: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("author should hold mentor after three five-star ratings, got %d", len(grants))
	}
}

func TestAddCommentHiddenDraft(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "+79990000008")
	stranger := seedUser(t, db, "+79990000009")
	draft := database.Build{Title: "secret rig", AuthorID: author.ID, IsPublished: false}
	if err := db.Create(&draft).Error; err != nil {
		t.Fatalf("seed draft: %v", err)
	}
	h := NewSocialHandler(db, gamification.NewEvaluator(db), nil)

	c, w := newJSONContext(t, stranger.ID, http.MethodPost, "/v1/builds/x/comments", gin.H{"content": "looks great"})
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(draft.ID)}}

	h.AddComment(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("draft must stay invisible to strangers, got %d", w.Code)
	}
}

func TestAddCommentGrantsCommentator(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "+79990000010")
	commenter := seedUser(t, db, "+79990000011")
	build := seedPublishedBuild(t, db, author.ID)
	h := NewSocialHandler(db, gamification.NewEvaluator(db), nil)

	for i := 0; i < 5; i++ {
		c, w := newJSONContext(t, commenter.ID, http.MethodPost, "/v1/builds/x/comments",
			gin.H{"content": fmt.Sprintf("comment number %d", i)})
		c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(build.ID)}}
		h.AddComment(c)
		if w.Code != http.StatusCreated {
			t.Fatalf("comment %d failed: %d body=%s", i, w.Code, w.Body.String())
		}
	}

	var count int64
	err := db.Model(&database.UserAchievement{}).
		Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.user_id = ? AND achievements.code = ?", commenter.ID, gamification.CodeCommentator).
		Count(&count).Error
	if err != nil {
		t.Fatalf("count grants: %v", err)
	}
	if count != 1 {
		t.Fatalf("commentator grant count = %d, want 1", count)
	}
}
