// Package visibility 决定带匿名标志的记录对外展示的身份。
package visibility

import "benchclub/internal/database"

// 匿名展示文案，按记录类型区分。
const (
	AnonymousBuilder  = "Anonymous Builder"
	AnonymousMember   = "Anonymous Member"
	AnonymousReviewer = "Anonymous Reviewer"
)

// BuildAuthorName 返回 Build 的展示作者名。需要预加载 Author。
func BuildAuthorName(b *database.Build) string {
	if b.IsAnonymous {
		return AnonymousBuilder
	}
	return b.Author.DisplayName
}

// CommentAuthorName 返回评论的展示作者名。需要预加载 Author。
func CommentAuthorName(c *database.BuildComment) string {
	if c.IsAnonymous {
		return AnonymousMember
	}
	return c.Author.DisplayName
}

// RatingReviewerName 返回评分的展示评审名。需要预加载 Reviewer。
func RatingReviewerName(r *database.BuildRating) string {
	if r.IsAnonymous {
		return AnonymousReviewer
	}
	return r.Reviewer.DisplayName
}

// BenchmarkAuthorName 返回跑分记录的展示作者名。需要预加载 User。
// 匿名标志独立于所关联 Build 的匿名标志。
func BenchmarkAuthorName(b *database.BenchmarkResult) string {
	if b.IsAnonymous {
		return AnonymousMember
	}
	return b.User.DisplayName
}

// AllowProfileLink 决定是否允许从 Build 跳转/关注其作者。
// 仅控制界面入口，不是服务端强约束。
func AllowProfileLink(b *database.Build) bool {
	return !b.IsAnonymous
}
