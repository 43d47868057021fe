package gamification

// 头衔由高到低构成优先级瀑布，首个命中的档位生效。
const (
	TitleLegend      = "Legend of Builds"
	TitleOverclocker = "Overclocker"
	TitleBuildMaster = "Build Master"
	TitleNewcomer    = "Newcomer"
	TitleObserver    = "Observer"
)

// Classify 把聚合指标映射为头衔。纯函数，对任意输入恰好
// 返回五个头衔之一。每档是积分路径与活动路径的 OR。
func Classify(points int, published, followers int64) string {
	switch {
	case points >= 500 || (published >= 10 && followers >= 20):
		return TitleLegend
	case points >= 250 || (published >= 5 && followers >= 10):
		return TitleOverclocker
	case points >= 100 || (published >= 2 && followers >= 5):
		return TitleBuildMaster
	case points >= 50 || published >= 1:
		return TitleNewcomer
	default:
		return TitleObserver
	}
}
