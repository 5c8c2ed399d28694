package engine

import (
	"github.com/google/uuid"
	"github.com/lk2023060901/arise/app/progression/internal/gameconfig"
)

// Rules 无状态规则引擎，所有状态都由调用方传入
type Rules struct {
	tables *gameconfig.Tables
	newID  func() string
}

// Option 规则引擎选项
type Option func(*Rules)

// WithIDGenerator 替换 id 生成器
func WithIDGenerator(fn func() string) Option {
	return func(r *Rules) {
		r.newID = fn
	}
}

// NewRules 创建规则引擎
func NewRules(tables *gameconfig.Tables, opts ...Option) *Rules {
	if tables == nil {
		tables = gameconfig.DefaultTables()
	}
	r := &Rules{
		tables: tables,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tables 规则表
func (r *Rules) Tables() *gameconfig.Tables {
	return r.tables
}
