package ptsne

// Error is a wrapper for specific types of errors for which there is no additional information
// necessary. These errors are defined as global variables.
type Error struct{ string }

func (err Error) Error() string {
	return err.string
}

// These are the global errors that may be returned by the estimator.
var (
	// ErrNotFitted is returned by Transform and FitTransform when no network has
	// been trained yet.
	ErrNotFitted = Error{"estimator is not fitted yet; call Fit with appropriate arguments before using this method"}
)

// NilArgError documents errors resulting from certain arguments provided to a function being nil.
type NilArgError struct{ string }

func (err NilArgError) Error() string {
	return err.string + " is nil"
}
