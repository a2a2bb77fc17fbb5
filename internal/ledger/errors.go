package ledger

import "errors"

// Kind separates business-rule failures from plain persistence failures so
// the transport layer can map them deterministically.
type Kind string

const (
	KindNotFound Kind = "NOT_FOUND"
	KindConflict Kind = "CONFLICT"
)

type codedError struct {
	kind Kind
	msg  string
}

func (e codedError) Error() string { return e.msg }
func (e codedError) Kind() Kind    { return e.kind }

var (
	ErrBookNotFound    = codedError{kind: KindNotFound, msg: "book not found"}
	ErrNoActiveBorrow  = codedError{kind: KindNotFound, msg: "no active borrow record found for this user and book"}
	ErrBookUnavailable = codedError{kind: KindConflict, msg: "book not available"}
	ErrAlreadyBorrowed = codedError{kind: KindConflict, msg: "user already has an active borrow for this book"}
)

// KindOf returns the business kind of err, or "" when err carries none
// (transient persistence failures stay uncoded and surface as 5xx upstream).
func KindOf(err error) Kind {
	var ce interface{ Kind() Kind }
	if errors.As(err, &ce) {
		return ce.Kind()
	}
	return ""
}
