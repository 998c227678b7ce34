package errors

// ErrorCode represents a unique identifier for each error type
type ErrorCode string

// Error is a coded error; its Category decides how the pipeline reacts to it
type Error interface {
	error
	Code() ErrorCode
	Category() Category
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory defines methods for creating coded errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
