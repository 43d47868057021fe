package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Role 表示账号角色。
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User 表示俱乐部成员账号。手机号唯一，作为登录标识。
type User struct {
	gorm.Model
	PhoneNumber  string  `gorm:"uniqueIndex;size:20;not null"`
	DisplayName  string  `gorm:"size:80;not null"`
	Email        *string `gorm:"uniqueIndex;size:120"`
	PasswordHash string  `gorm:"size:255;not null"`
	Role         string  `gorm:"size:16;not null;default:member"`
	Bio          string  `gorm:"type:text"`

	Builds       []Build           `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Comments     []BuildComment    `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Ratings      []BuildRating     `gorm:"foreignKey:ReviewerID;constraint:OnDelete:CASCADE"`
	Achievements []UserAchievement `gorm:"constraint:OnDelete:CASCADE"`
	Benchmarks   []BenchmarkResult `gorm:"constraint:OnDelete:CASCADE"`
}

// Build 表示成员登记的一台整机配置。
// IsAnonymous 控制对外展示时是否隐藏作者身份。
type Build struct {
	gorm.Model
	Title           string `gorm:"size:120;not null"`
	Description     string `gorm:"type:text;not null"`
	HardwareSummary string `gorm:"type:text;not null"`
	IsPublished     bool   `gorm:"not null;default:false;index:idx_builds_author_published,priority:2"`
	IsAnonymous     bool   `gorm:"not null;default:false"`
	CoverImage      string `gorm:"size:255"`
	AuthorID        uint   `gorm:"not null;index:idx_builds_author_published,priority:1"`
	Author          User

	Tags       []Tag             `gorm:"many2many:build_tags"`
	Comments   []BuildComment    `gorm:"constraint:OnDelete:CASCADE"`
	Ratings    []BuildRating     `gorm:"constraint:OnDelete:CASCADE"`
	Components []BuildComponent  `gorm:"constraint:OnDelete:CASCADE"`
	Benchmarks []BenchmarkResult `gorm:"constraint:OnDelete:CASCADE"`
}

// AverageRating 计算该 Build 的平均评分；无评分时返回 false。
// 需要调用方预加载 Ratings。
func (b *Build) AverageRating() (float64, bool) {
	if len(b.Ratings) == 0 {
		return 0, false
	}
	var sum int
	for _, r := range b.Ratings {
		sum += r.Score
	}
	return float64(sum) / float64(len(b.Ratings)), true
}

// Tag 是共享的引用数据，名称大小写不敏感地唯一（查询层保证）。
type Tag struct {
	gorm.Model
	Name string `gorm:"uniqueIndex;size:50;not null"`

	Builds []Build `gorm:"many2many:build_tags"`
}

// BuildComment 对 (user, build) 无条数限制。
type BuildComment struct {
	gorm.Model
	Content     string `gorm:"type:text;not null"`
	IsAnonymous bool   `gorm:"not null;default:false"`
	BuildID     uint   `gorm:"not null;index"`
	Build       Build
	AuthorID    uint `gorm:"not null;index"`
	Author      User
}

// BuildRating 每个评审者对同一 Build 至多一条记录；
// 分数约束在 1..5，由数据库层 CHECK 保证。
type BuildRating struct {
	gorm.Model
	Score       int    `gorm:"not null;check:score >= 1 AND score <= 5"`
	Feedback    string `gorm:"size:500"`
	IsAnonymous bool   `gorm:"not null;default:false"`
	BuildID     uint   `gorm:"not null;uniqueIndex:uniq_build_reviewer_rating"`
	Build       Build
	ReviewerID  uint `gorm:"not null;uniqueIndex:uniq_build_reviewer_rating"`
	Reviewer    User
}

// BuildComponent 记录配件及三家商城的价格与链接。
type BuildComponent struct {
	gorm.Model
	Name            string `gorm:"size:120;not null"`
	DNSPrice        *float64
	DNSURL          string `gorm:"size:255"`
	MegamarketPrice *float64
	MegamarketURL   string `gorm:"size:255"`
	MvideoPrice     *float64
	MvideoURL       string `gorm:"size:255"`
	BuildID         uint   `gorm:"not null;index"`
}

// Achievement 是不可变的徽章目录项，由启动时的目录同步创建。
type Achievement struct {
	gorm.Model
	Code        string `gorm:"uniqueIndex;size:50;not null"`
	Name        string `gorm:"size:120;not null"`
	Description string `gorm:"type:text;not null"`
	Points      int    `gorm:"not null;default:0"`
}

// UserAchievement 记录一次授予。复合唯一索引保证同一徽章
// 对同一用户至多授予一次；并发重复插入走 ON CONFLICT DO NOTHING。
type UserAchievement struct {
	gorm.Model
	AwardedAt     time.Time `gorm:"not null;autoCreateTime"`
	UserID        uint      `gorm:"not null;uniqueIndex:uniq_user_achievement"`
	User          User
	AchievementID uint `gorm:"not null;uniqueIndex:uniq_user_achievement"`
	Achievement   Achievement
}

// Subscription 是 follower→followed 的有向关注边。
// 同一有序对唯一，自关注由 CHECK 拒绝。
type Subscription struct {
	gorm.Model
	FollowerID uint `gorm:"not null;uniqueIndex:uniq_follow_relationship;check:chk_no_self_follow,follower_id <> followed_id"`
	Follower   User `gorm:"foreignKey:FollowerID"`
	FollowedID uint `gorm:"not null;uniqueIndex:uniq_follow_relationship"`
	Followed   User `gorm:"foreignKey:FollowedID"`
}

// BenchmarkResult 记录一次跑分。可选关联到成员自己的 Build，
// 否则 BuildName 为自由文本。匿名标志独立于所关联 Build 的匿名标志。
type BenchmarkResult struct {
	gorm.Model
	BuildName      string  `gorm:"size:120;not null"`
	BenchmarkName  string  `gorm:"size:120;not null"`
	Score          float64 `gorm:"not null"`
	Notes          string  `gorm:"size:500"`
	Details        datatypes.JSON
	ScreenshotPath string    `gorm:"size:255"`
	IsAnonymous    bool      `gorm:"not null;default:false"`
	RecordedAt     time.Time `gorm:"not null;autoCreateTime;index"`
	UserID         uint      `gorm:"not null;index"`
	User           User
	BuildID        *uint
	Build          *Build
}

// AllModels 供 AutoMigrate 与测试复用。
func AllModels() []any {
	return []any{
		&User{},
		&Build{},
		&Tag{},
		&BuildComment{},
		&BuildRating{},
		&BuildComponent{},
		&Achievement{},
		&UserAchievement{},
		&Subscription{},
		&BenchmarkResult{},
	}
}
