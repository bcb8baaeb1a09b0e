// Package apperror типизированные ошибки доменного ядра.
// Ошибки сравниваются по коду: errors.Is(err, apperror.ErrSlotFull).
package apperror

import (
	"errors"
	"fmt"
)

// Kind класс ошибки, определяет реакцию вызывающей стороны
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Code точная причина отказа
type Code string

const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeNotEnrolled        Code = "NOT_ENROLLED"
	CodeSessionInPast      Code = "SESSION_IN_PAST"
	CodeSessionNotBookable Code = "SESSION_NOT_BOOKABLE"
	CodeLessonTypeMismatch Code = "LESSON_TYPE_MISMATCH"
	CodeCannotCancel       Code = "CANNOT_CANCEL"

	CodeSlotConflict      Code = "SLOT_CONFLICT"
	CodeSlotFull          Code = "SLOT_FULL"
	CodeCreditUnavailable Code = "CREDIT_UNAVAILABLE"
	CodeAlreadyBooked     Code = "ALREADY_BOOKED"
	CodeDuplicateAbsence  Code = "DUPLICATE_ABSENCE"
	CodeAlreadyReviewed   Code = "ALREADY_REVIEWED"
	CodeConcurrentUpdate  Code = "CONCURRENT_UPDATE"

	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeInternal     Code = "INTERNAL"
)

// Error доменная ошибка. Message безопасно показывать пользователю,
// Err хранит первопричину только для логов.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по коду
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrInvalidInput       = &Error{Kind: KindValidation, Code: CodeInvalidInput, Message: "invalid input"}
	ErrNotFound           = &Error{Kind: KindNotFound, Code: CodeNotFound, Message: "not found"}
	ErrNotEnrolled        = &Error{Kind: KindValidation, Code: CodeNotEnrolled, Message: "you are not enrolled in this lesson session"}
	ErrSessionInPast      = &Error{Kind: KindValidation, Code: CodeSessionInPast, Message: "the lesson session has already started"}
	ErrSessionNotBookable = &Error{Kind: KindValidation, Code: CodeSessionNotBookable, Message: "this lesson session is not open for booking"}
	ErrLessonTypeMismatch = &Error{Kind: KindValidation, Code: CodeLessonTypeMismatch, Message: "the credit can only be used for the same lesson type"}
	ErrCannotCancel       = &Error{Kind: KindValidation, Code: CodeCannotCancel, Message: "this booking cannot be cancelled"}

	ErrSlotConflict      = &Error{Kind: KindConflict, Code: CodeSlotConflict, Message: "this time slot is already taken"}
	ErrSlotFull          = &Error{Kind: KindConflict, Code: CodeSlotFull, Message: "no available slots in this session"}
	ErrCreditUnavailable = &Error{Kind: KindConflict, Code: CodeCreditUnavailable, Message: "this credit has already been used or has expired"}
	ErrAlreadyBooked     = &Error{Kind: KindConflict, Code: CodeAlreadyBooked, Message: "you already have a place in this session"}
	ErrDuplicateAbsence  = &Error{Kind: KindConflict, Code: CodeDuplicateAbsence, Message: "an absence for this session was already submitted"}
	ErrAlreadyReviewed   = &Error{Kind: KindConflict, Code: CodeAlreadyReviewed, Message: "this absence is not awaiting review"}
	ErrConcurrentUpdate  = &Error{Kind: KindConflict, Code: CodeConcurrentUpdate, Message: "the data changed while processing the request, please retry"}

	ErrUnauthorized = &Error{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: "authentication required"}
	ErrForbidden    = &Error{Kind: KindForbidden, Code: CodeForbidden, Message: "access denied"}
	ErrInternal     = &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error"}
)

// Validation ошибка некорректного ввода
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// NotFound сущность не существует или не видна вызывающему
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: entity + " not found"}
}

// SlotConflict пересечение с существующей занятостью корта
func SlotConflict(kind, label string, id int64) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeSlotConflict,
		Message: "this time slot conflicts with " + label,
		Details: map[string]string{
			"conflictKind": kind,
			"conflictId":   fmt.Sprint(id),
		},
	}
}

// Internal прячет первопричину за общим сообщением
func Internal(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error", Err: err}
}

// With возвращает копию шаблонной ошибки с первопричиной
func (e *Error) With(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// KindOf класс ошибки; не-доменные ошибки считаются внутренними
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// CodeOf код ошибки или CodeInternal
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
