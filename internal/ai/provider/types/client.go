package types

// ClientHandle 已构建的 Provider 客户端句柄
//
// 句柄由 Client Manager 独占持有，构建后不再修改，可被多个并发调用只读共享。
// 具体调用能力由各协议族的实现提供，编排器按 Family 分派。
type ClientHandle interface {
	// Family 返回句柄所属协议族
	Family() Family

	// Provider 返回 Provider 名称（用于日志与错误）
	Provider() string

	// IsRetryable 判断该协议族的调用错误是否值得重试
	IsRetryable(err error) bool

	// Close 释放底层连接
	Close() error
}
