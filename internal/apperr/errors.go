// Package apperr はアプリケーション共通のエラー種別と HTTP レスポンスへの変換を提供します。
package apperr

import (
	"errors"
	"net/http"
)

// Kind はエラーの種別です。
type Kind string

const (
	KindValidation       Kind = "VALIDATION"
	KindConflict         Kind = "CONFLICT"
	KindAuth             Kind = "AUTH"
	KindTokenExpired     Kind = "TOKEN_EXPIRED"
	KindTokenInvalid     Kind = "TOKEN_INVALID"
	KindUnauthenticated  Kind = "UNAUTHENTICATED"
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindNotFound         Kind = "NOT_FOUND"
	KindInternal         Kind = "INTERNAL"
)

// InternalMessage はクライアントに返す内部エラーの汎用メッセージです。
const InternalMessage = "Internal server error"

// Error は種別とクライアント向けメッセージを持つエラーです。
// Err には原因を保持し、ログにのみ出力します。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is は同じ Kind の *Error と一致します。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Status は種別に対応する HTTP ステータスを返します。
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuth, KindTokenExpired, KindTokenInvalid, KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Validation(msg string) *Error       { return newError(KindValidation, msg) }
func Conflict(msg string) *Error         { return newError(KindConflict, msg) }
func Auth(msg string) *Error             { return newError(KindAuth, msg) }
func TokenExpired(msg string) *Error     { return newError(KindTokenExpired, msg) }
func TokenInvalid(msg string) *Error     { return newError(KindTokenInvalid, msg) }
func Unauthenticated(msg string) *Error  { return newError(KindUnauthenticated, msg) }
func PermissionDenied(msg string) *Error { return newError(KindPermissionDenied, msg) }
func NotFound(msg string) *Error         { return newError(KindNotFound, msg) }

// Internal は原因を包んだ内部エラーを返します。
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: InternalMessage, Err: err}
}

// KindOf は err の種別を返します。*Error でない場合は KindInternal です。
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind は err が指定の種別かどうかを返します。
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
