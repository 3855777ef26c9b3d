package audience

import "errors"

var (
	// ErrAudienceEmpty marks a target that resolved to no users. Resolve
	// only logs it.
	ErrAudienceEmpty   = errors.New("audience resolved to no recipients")
	ErrInvalidTarget   = errors.New("invalid audience target")
	ErrDirectoryLookup = errors.New("user directory lookup failed")
)
