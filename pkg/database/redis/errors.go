package redis

import "errors"

var (
	ErrNilConfig     = errors.New("redis: config is nil")
	ErrInvalidConfig = errors.New("redis: invalid config")

	// ErrNil 键不存在
	ErrNil = errors.New("redis: nil")

	// ErrLockFailed 获取锁失败（重试次数用尽）
	ErrLockFailed = errors.New("redis: failed to acquire lock")

	// ErrLockNotHeld 解锁或续期时锁已过期或被他人持有
	ErrLockNotHeld = errors.New("redis: lock not held")
)
