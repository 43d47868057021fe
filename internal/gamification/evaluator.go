package gamification

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"benchclub/internal/database"
)

// Evaluator 扫描用户的累计活动并授予新满足条件的徽章。
// 每次用户动作（发布、评论、评分、关注）之后由 Web 层调用。
type Evaluator struct {
	store store
}

// NewEvaluator 基于已初始化的数据库连接构造评估器。
func NewEvaluator(db *gorm.DB) *Evaluator {
	return &Evaluator{store: store{db: db}}
}

// Evaluate 独立检查每条规则，把本次新满足的徽章一批写入并返回。
// 已拥有或目录中缺失的代码会被跳过；同一 (user, achievement)
// 的并发重复授予由唯一索引 + ON CONFLICT DO NOTHING 消化，
// 不视为错误。未授予任何徽章时返回空切片。
func (e *Evaluator) Evaluate(ctx context.Context, userID uint) ([]database.UserAchievement, error) {
	catalog, err := e.store.catalogByCode(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := e.store.ownedCodes(ctx, userID)
	if err != nil {
		return nil, err
	}

	var grants []database.UserAchievement
	for _, rule := range Catalog {
		entry, inCatalog := catalog[rule.Code]
		if !inCatalog || owned[rule.Code] {
			continue
		}

		satisfied, err := e.satisfied(ctx, rule.Code, userID)
		if err != nil {
			return nil, err
		}
		if satisfied {
			grants = append(grants, database.UserAchievement{
				UserID:        userID,
				AchievementID: entry.ID,
				Achievement:   entry,
			})
		}
	}

	if len(grants) == 0 {
		return nil, nil
	}

	// 一个事务落一批；输掉并发竞争的行静默跳过。
	// Omit 关联，目录条目只读，不随授予写回。
	err = e.store.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).
		Create(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("persist achievement grants for user %d: %w", userID, err)
	}

	return grants, nil
}

// satisfied 评估单条规则的解锁谓词，阈值均为闭区间下界。
func (e *Evaluator) satisfied(ctx context.Context, code string, userID uint) (bool, error) {
	switch code {
	case CodeFirstBuild:
		published, err := e.store.countBuilds(ctx, userID, true)
		if err != nil {
			return false, err
		}
		return published >= 1, nil
	case CodeCommentator:
		comments, err := e.store.countComments(ctx, userID)
		if err != nil {
			return false, err
		}
		return comments >= 5, nil
	case CodeMentor:
		fiveStars, err := e.store.countFiveStarsReceived(ctx, userID)
		if err != nil {
			return false, err
		}
		return fiveStars >= 3, nil
	case CodeSocial:
		following, err := e.store.countFollowing(ctx, userID)
		if err != nil {
			return false, err
		}
		return following >= 3, nil
	default:
		return false, nil
	}
}
