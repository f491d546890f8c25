package status

// HTTPError is an error with an HTTP status code attached. Every failure the
// engine can produce on its own is represented by one of the values below, so
// callers may compare errors directly.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	// ErrCloseConnection and ErrDisconnected are sentinels: no response is
	// rendered for them, the connection is simply torn down.
	ErrCloseConnection  = NewError(CloseConnection, "actively closing the connection")
	ErrDisconnected     = NewError(CloseConnection, "peer closed the connection")
	ErrShutdown         = NewError(CloseConnection, "shutting down")
	ErrGracefulShutdown = NewError(CloseConnection, "graceful shutdown")

	ErrTimeout            = NewError(RequestTimeout, "request timed out")
	ErrBadRequest         = NewError(BadRequest, "bad request")
	ErrBadRequestLine     = NewError(BadRequest, "malformed request line")
	ErrBadHeader          = NewError(BadRequest, "malformed header field")
	ErrBadChunk           = NewError(BadRequest, "malformed chunk-encoded data")
	ErrTooLongRequestLine = NewError(BadRequest, "request line is too long")

	ErrHeaderFieldsTooLarge = NewError(HeaderFieldsTooLarge, "too large headers section")
	ErrTooManyHeaders       = NewError(HeaderFieldsTooLarge, "too many headers")

	ErrMethodNotImplemented = NewError(NotImplemented, "request method is not supported")
	ErrUnsupportedProtocol  = NewError(HTTPVersionNotSupported, "HTTP version not supported")

	ErrBodyTooLarge        = NewError(RequestEntityTooLarge, "request body is too large")
	ErrInternalServerError = NewError(InternalServerError, "internal server error")
	ErrNotFound            = NewError(NotFound, "not found")
	ErrMethodNotAllowed    = NewError(MethodNotAllowed, "method not allowed")
	ErrUnsupportedMedia    = NewError(UnsupportedMediaType, "unsupported media type")
	ErrTeapot              = NewError(Teapot, "i'm a teapot")
)
