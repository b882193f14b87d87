package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeInvalidBody          = "INVALID_BODY"
	CodeOrderNotFound        = "ORDER_NOT_FOUND"
	CodePersistenceExhausted = "PERSISTENCE_EXHAUSTED"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeInternal             = "INTERNAL_ERROR"
)

var (
	// 全階層で保存に失敗（503）
	ErrPersistenceExhausted = errors.New("persistence exhausted")
	// 在庫更新失敗（ログのみ）
	ErrInventoryUpdate = errors.New("inventory update failed")
	// 通知失敗（ログのみ）
	ErrNotification = errors.New("notification failed")
)

// 呼び出し側に返すエラー。Fieldは入力エラーのときだけ入る。
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%d %s: %s (%s)", e.Status, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, code string, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// 入力エラー（400）。最初に見つかった違反だけを返す。
func NewValidationError(field string, message string) error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}
