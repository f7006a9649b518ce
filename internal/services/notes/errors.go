package notes

import "errors"

// Failure taxonomy for the note store. Every operation returns one of these
// (possibly wrapped); callers branch with errors.Is.
var (
	// ErrUnauthenticated is returned when no user is signed in.
	ErrUnauthenticated = errors.New("user not authenticated")

	// ErrAccessDenied is returned when the caller owns neither the note nor
	// the right to touch it. Reads never return it to avoid leaking whether
	// a foreign note exists; they report ErrNoteNotFound instead.
	ErrAccessDenied = errors.New("access denied")

	// ErrNoteNotFound - note not found in the store.
	ErrNoteNotFound = errors.New("note not found")

	// ErrTransport is the catch-all for backend failures.
	ErrTransport = errors.New("note store unavailable")
)
