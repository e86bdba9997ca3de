package bboltx

// Must panics if err is non-nil.
//
// The panic value is a PanicSentinel, which can be converted back into an
// error by Recover().
func Must(err error) {
	if err != nil {
		panic(PanicSentinel{err})
	}
}

// Recover recovers from a panic caused by Must().
//
// It is intended to be used in a defer statement. The error that caused the
// panic is assigned to *err.
func Recover(err *error) {
	if err == nil {
		panic("err must be a non-nil pointer")
	}

	switch v := recover().(type) {
	case PanicSentinel:
		*err = v.Cause
	case nil:
		return
	default:
		panic(v)
	}
}

// PanicSentinel is a wrapper value used to identify panics that are caused by
// Must().
type PanicSentinel struct {
	// Cause is the error that caused the panic.
	Cause error
}
