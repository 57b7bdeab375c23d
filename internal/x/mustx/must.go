// Package mustx allows a sequence of fallible storage operations to be written
// without checking each error individually.
//
// Helpers call Must() to abort on the first error, and the exported entry
// point recovers it with a deferred call to Recover().
package mustx

// sentinel wraps errors raised by Must() so that Recover() can tell them apart
// from other panics.
type sentinel struct {
	cause error
}

// Must aborts the current operation if err is non-nil.
func Must(err error) {
	if err != nil {
		panic(sentinel{err})
	}
}

// Value returns v, or aborts the current operation if err is non-nil.
func Value[T any](v T, err error) T {
	Must(err)
	return v
}

// Recover assigns the error passed to Must() to *err.
//
// It must be called directly by a defer statement. Panics that were not raised
// by Must() are propagated.
func Recover(err *error) {
	if err == nil {
		panic("err must be a non-nil pointer")
	}

	r := recover()
	if r == nil {
		return
	}

	if s, ok := r.(sentinel); ok {
		*err = s.cause
		return
	}

	panic(r)
}
