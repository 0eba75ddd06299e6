package domain

import "errors"

var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrNotAllowed     = errors.New("only SELECT queries are allowed")
	ErrMultiStatement = errors.New("multiple statements are not allowed")
	ErrParseFailed    = errors.New("failed to parse SQL")

	ErrEmptyTable        = errors.New("the uploaded file is empty or contains no data")
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrMalformedInput    = errors.New("malformed input")
	ErrSourceUnavailable = errors.New("no query source is configured")
)

// IsInputError reports whether err is caused by the caller's data rather
// than by the server.
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrEmptyQuery, ErrNotAllowed, ErrMultiStatement, ErrParseFailed,
		ErrEmptyTable, ErrUnsupportedFormat, ErrMalformedInput, ErrSourceUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
