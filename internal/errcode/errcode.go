package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：调用方可修正/告警类错误（例如资源缺失但流程可继续）
// - 5xxx：系统错误（需要中断流程）
const (
	OK              = 0
	Validation      = 4000
	NotFound        = 4004
	ResourceMissing = 4009
	RateLimited     = 4029

	SystemError        = 5000
	StorageError       = 5001
	RenderTimeout      = 5002
	EmptyOutput        = 5003
	BrowserUnavailable = 5004
)

// Retryable 表示该错误码对应的失败是否值得调用方重试。
func Retryable(code int) bool {
	switch code {
	case RenderTimeout, EmptyOutput, BrowserUnavailable:
		return true
	default:
		return false
	}
}
