package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

var (
	// ShutdownRequestedError reports that a request arrived after the shutdown handshake started.
	ShutdownRequestedError = New("Shutdown already requested")
	// NotInitializedError reports that a request arrived before the initialize handshake.
	NotInitializedError = New("Server not initialized")
	// AlreadyInitializedError reports a second initialize request.
	AlreadyInitializedError = New("Server already initialized")

	// ExitBeforeShutdownError reports an exit notification received before the shutdown request.
	ExitBeforeShutdownError = New("Received exit notification before a shutdown request")
	// ClientExitedError reports a client that went away without the exit notification.
	ClientExitedError = New("client exited without proper shutdown sequence")
)

// IsBadRequest reports whether the error is caused by the shape or timing of the caller's request
// rather than by a server side failure.
func IsBadRequest(e error) bool {
	if stderr.Is(e, ShutdownRequestedError) || stderr.Is(e, NotInitializedError) || stderr.Is(e, AlreadyInitializedError) {
		return true
	}
	var (
		parse   *ParseError
		badID   *InvalidRequestIDError
		noNode  *NoNodeFoundError
		unknown *UnimplementedMethodError
	)
	return stderr.As(e, &parse) || stderr.As(e, &badID) || stderr.As(e, &noNode) || stderr.As(e, &unknown)
}
