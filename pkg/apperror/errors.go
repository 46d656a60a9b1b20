package apperror

import "errors"

var (
	ErrNotFound         = errors.New("resource not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCorruptOTPRecord = errors.New("corrupt otp record")
	ErrStorageInvariant = errors.New("storage invariant violation")
	ErrBackupIO         = errors.New("backup io failure")
	ErrRestoreFailed    = errors.New("restore failed")
)

// AppError is a custom error type that attaches a human-readable message to
// one of the sentinels above, so callers can still match with errors.Is.
type AppError struct {
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError wrapping sentinel.
func New(sentinel error, message string) *AppError {
	return &AppError{Message: message, Err: sentinel}
}

// IsRecoverable reports whether the caller may retry the operation or surface
// the error as a user-facing message. Storage invariant violations and failed
// restores abort the current operation instead.
func IsRecoverable(err error) bool {
	return !errors.Is(err, ErrStorageInvariant) && !errors.Is(err, ErrRestoreFailed)
}
