package commons

// Response is the envelope every wallet endpoint returns. Data is omitted on failure.
type Response[T any] struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    *T       `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// LedgerUnavailable is the only error detail callers see when the ledger store fails.
const LedgerUnavailable = "ledger is unavailable right now"

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Message: message,
		Data:    &data,
	}
}

func ErrorResponse[T any](message string, errors ...string) Response[T] {
	return Response[T]{
		Success: false,
		Message: message,
		Errors:  errors,
	}
}

// UnavailableResponse reports a storage failure without leaking its cause.
func UnavailableResponse[T any](message string) Response[T] {
	return ErrorResponse[T](message, LedgerUnavailable)
}
