package panicerr

// Recover runs f in the caller's own goroutine, turning any panic it raises
// into a returned error instead of letting it unwind further (spec.md §5:
// the pipeline is single-threaded end to end, so there is no goroutine
// boundary to cross here -- only a defer/recover one).
func Recover(name string, f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(name, r)
		}
	}()
	return f()
}
