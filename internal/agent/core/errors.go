package core

import "errors"

// ErrRetrievalUnavailable is returned when the vector similarity index is
// unreachable. It is fatal for the request: the orchestrator surfaces it to
// the caller instead of answering from thin air.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// UnverifiedAnswer is returned in place of the drafted text when every
// synthesis attempt produced quotes that failed verification.
const UnverifiedAnswer = "Verification could not be completed: the answer's quotes were not found verbatim in the retrieved sources."
