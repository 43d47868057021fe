package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如目录漂移导致规则被跳过）
// - 5xxx：系统错误（需要中断流程）
const (
	OK           = 0
	CatalogDrift = 4001
	SystemError  = 5000
)
