package types

import "github.com/pkg/errors"

// Sentinel errors for the fatal classes. Any error wrapping one of the first
// three leaves the index file torn; the only remedy is a rebuild from the
// source records.
var (
	ErrCorruption     = errors.New("index corruption")
	ErrCacheExhausted = errors.New("page cache exhausted, increase cachesize")
	ErrIoFailure      = errors.New("index i/o failure")

	ErrReadOnly = errors.New("index opened read-only")
	ErrTorn     = errors.New("index is torn by an earlier fatal error")
)

type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindCorruption
	KindCacheExhausted
	KindIoFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindCorruption:
		return "corruption"
	case KindCacheExhausted:
		return "cache-exhausted"
	case KindIoFailure:
		return "io-failure"
	default:
		return "other"
	}
}

// Kind classifies err into the closed set of index error kinds.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindOther
	case errors.Is(err, ErrCorruption):
		return KindCorruption
	case errors.Is(err, ErrCacheExhausted):
		return KindCacheExhausted
	case errors.Is(err, ErrIoFailure):
		return KindIoFailure
	default:
		return KindOther
	}
}

// IsFatal reports whether err means the on-disk structure can no longer be
// trusted.
func IsFatal(err error) bool {
	return Kind(err) != KindOther
}

// Corruptf wraps ErrCorruption with a formatted context message.
func Corruptf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrCorruption, format, args...)
}
