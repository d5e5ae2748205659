package util

import (
	"errors"
	"fmt"
)

// 业务错误类别，调用方通过 errors.Is 判断
var (
	ErrNotFound           = errors.New("resource not found")
	ErrValidation         = errors.New("validation failed")
	ErrGradingUnavailable = errors.New("grading unavailable")
	ErrStorage            = errors.New("storage error")
)

var (
	ErrQuestionNotFound   = fmt.Errorf("question %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("用户不存在: %w", ErrNotFound)
	ErrTagNotFound        = fmt.Errorf("tag %w", ErrNotFound)
	ErrQuestionAnswered   = fmt.Errorf("%w: question already has answer history, deactivate it and create a new one", ErrValidation)
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrUsernameTaken      = errors.New("该用户名已被占用")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")
)

// Validationf 构造参数校验错误
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
