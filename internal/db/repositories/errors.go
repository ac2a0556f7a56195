package repositories

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrImportFinalized is returned for any write to an import that already
	// reached success or error
	ErrImportFinalized = errors.New("import is already finalized")
)

// ListOptions pages list queries. A zero Limit means the default of 50.
type ListOptions struct {
	Limit  int
	Offset int
}

func (o ListOptions) limit() int {
	switch {
	case o.Limit <= 0:
		return 50
	case o.Limit > 500:
		return 500
	default:
		return o.Limit
	}
}
