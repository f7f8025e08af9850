package content

import "errors"

// ============================================================================
// Standard Content Store Errors
// ============================================================================

// These errors provide a consistent way to indicate common failure conditions
// across all content store implementations. Implementations wrap them with
// additional context:
//
//	return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
//
// Callers match them with errors.Is.

var (
	// ErrContentNotFound indicates the requested content does not exist.
	ErrContentNotFound = errors.New("content not found")

	// ErrInvalidOffset indicates a negative or overflowing offset.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrStoreClosed indicates the store was used after Close.
	ErrStoreClosed = errors.New("content store closed")
)

// maxOffset keeps offset+length well inside int64.
const maxOffset = 1 << 62

// ValidateOffset rejects negative offsets and offset+length overflow.
func ValidateOffset(offset int64, length int) error {
	if offset < 0 || offset > maxOffset || int64(length) > maxOffset-offset {
		return ErrInvalidOffset
	}
	return nil
}
