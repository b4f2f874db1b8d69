package services

import "errors"

// Pipeline error taxonomy. Controllers map these onto HTTP statuses with
// errors.Is; everything else surfaces as an internal error.
var (
	// Resolution failures. The session row does not exist yet when these
	// occur, so no cleanup is needed.
	ErrTextbookNotFound = errors.New("no textbook found for subject and grade")
	ErrNoPagesInRange   = errors.New("no pages in selected ranges")
	ErrNoGroundingText  = errors.New("selected pages have no text content")

	// Generation failures. The session row exists and must be aborted
	// before either of these reaches the caller.
	ErrGenerationFailed  = errors.New("quiz generation failed")
	ErrInsufficientYield = errors.New("generation yielded too few valid items")

	// Grading failures. Not-owned sessions collapse into not-found so the
	// response never confirms that someone else's session exists.
	ErrSessionNotFound = errors.New("session not found")
	ErrNoGradableItems = errors.New("no submitted item ids belong to this session")
)
