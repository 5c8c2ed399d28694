package engine

import (
	"github.com/cockroachdb/errors"
)

// 业务错误，调用方用 errors.Is 判断种类
var (
	ErrOutOfSequence        = errors.New("out of sequence")
	ErrInsufficientResource = errors.New("insufficient resource")
	ErrInvalidState         = errors.New("invalid state")
	ErrNotEligible          = errors.New("not eligible")
	ErrAlreadyExists        = errors.New("already exists")
	ErrMaxReached           = errors.New("max reached")
	ErrNotActive            = errors.New("not active")
	ErrNotFound             = errors.New("not found")
)

// IsDomainError 是否为可返回给调用方的业务错误
func IsDomainError(err error) bool {
	return errors.IsAny(err,
		ErrOutOfSequence,
		ErrInsufficientResource,
		ErrInvalidState,
		ErrNotEligible,
		ErrAlreadyExists,
		ErrMaxReached,
		ErrNotActive,
		ErrNotFound,
	)
}
