package gamification

import (
	"context"

	"gorm.io/gorm"
)

// Profile 是用户声望的时点快照，每次请求重新计算，不做缓存。
type Profile struct {
	Title           string `json:"title"`
	Points          int    `json:"points"`
	TotalBuilds     int64  `json:"total_builds"`
	PublishedBuilds int64  `json:"published_builds"`
	Followers       int64  `json:"followers"`
	Following       int64  `json:"following"`
}

// AggregateProfile 基于当前落库状态汇总积分、Build 数与关注数，
// 并据此推导头衔。
func AggregateProfile(ctx context.Context, db *gorm.DB, userID uint) (Profile, error) {
	s := store{db: db}

	points, err := s.sumPoints(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	totalBuilds, err := s.countBuilds(ctx, userID, false)
	if err != nil {
		return Profile{}, err
	}
	publishedBuilds, err := s.countBuilds(ctx, userID, true)
	if err != nil {
		return Profile{}, err
	}
	followers, err := s.countFollowers(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	following, err := s.countFollowing(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	return Profile{
		Title:           Classify(points, publishedBuilds, followers),
		Points:          points,
		TotalBuilds:     totalBuilds,
		PublishedBuilds: publishedBuilds,
		Followers:       followers,
		Following:       following,
	}, nil
}
