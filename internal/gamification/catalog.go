package gamification

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"benchclub/internal/database"
)

// 徽章代码。规则顺序即授予顺序。
const (
	CodeFirstBuild  = "first_build"
	CodeCommentator = "commentator"
	CodeMentor      = "mentor"
	CodeSocial      = "social"
)

// Rule 是目录中一条不可变的徽章定义。
type Rule struct {
	Code        string
	Name        string
	Description string
	Points      int
}

// Catalog 是固定的徽章目录。目录同步只插入缺失项，
// 已有条目的名称/描述/分值可在库中调整而不会被覆盖。
var Catalog = []Rule{
	{
		Code:        CodeFirstBuild,
		Name:        "First Build",
		Description: "Publish your first build.",
		Points:      50,
	},
	{
		Code:        CodeCommentator,
		Name:        "Commentator",
		Description: "Leave 5 helpful comments.",
		Points:      30,
	},
	{
		Code:        CodeMentor,
		Name:        "Mentor",
		Description: "Receive 3 five-star ratings for your builds.",
		Points:      80,
	},
	{
		Code:        CodeSocial,
		Name:        "Community Person",
		Description: "Follow 3 experts.",
		Points:      20,
	},
}

// SyncCatalog 幂等地把固定目录写入 achievements 表（按 code 补插）。
// 每次进程启动调用一次，先于任何 Evaluate。
func SyncCatalog(db *gorm.DB) error {
	for _, rule := range Catalog {
		var existing database.Achievement
		err := db.Where("code = ?", rule.Code).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup achievement %q: %w", rule.Code, err)
		}

		entry := database.Achievement{
			Code:        rule.Code,
			Name:        rule.Name,
			Description: rule.Description,
			Points:      rule.Points,
		}
		if err := db.Create(&entry).Error; err != nil {
			return fmt.Errorf("insert achievement %q: %w", rule.Code, err)
		}
	}
	return nil
}
