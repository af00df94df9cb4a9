package contract

import "errors"

// Configuration errors terminate the run.
var (
	ErrConfigNotFound    = errors.New("store config file not found")
	ErrMissingConfigKeys = errors.New("store config is missing required keys")
)

// Store errors.
var (
	ErrRepoNotFound       = errors.New("repository does not exist")
	ErrLengthMismatch     = errors.New("makefile count mismatch")
	ErrInvalidMakefile    = errors.New("invalid makefile entry")
	ErrCorruptEntry       = errors.New("stored entry violates invariants")
	ErrInvariantViolation = errors.New("update did not affect exactly one record")
)

// ErrPopulationTooSmall is returned when more samples are requested than there are candidates.
var ErrPopulationTooSmall = errors.New("sample size exceeds candidate population")

// IsFatal reports whether err must terminate the run instead of being reported per repository.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfigNotFound) ||
		errors.Is(err, ErrMissingConfigKeys) ||
		errors.Is(err, ErrInvariantViolation)
}
