// Package apperrors provides the error type used across the LabHub gateway.
// It extends the standard error interface with status codes and error
// chaining so handler boundaries can map any failure to an HTTP response.
package apperrors

// Error is the interface implemented by all application errors. Methods
// return Error so call sites can chain message and status adjustments.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // creates a new error using current as template
	Msg(msg string) Error                  // creates a new error with message and wraps original
	MsgErr(msg string, err ...error) Error // creates error with message and wraps extra errors
	Err(err ...error) Error                // attaches additional errors to current error
	SetStatusCode(int) Error               // sets HTTP status code for the error
	StatusCode() int                       // returns the current status code
	ErrorAll() string                      // returns full message including wrapped errors
	UnwrapAll() []error                    // returns all wrapped errors
}
