package thumbnail

import "errors"

var errUnspecified = errors.New("thumbnail generation failed")

// Result is the outcome of one thumbnail generation: either the path of the
// saved thumbnail or the error that prevented it.
type Result struct {
	path string
	err  error
}

// Succeeded returns a successful Result
func Succeeded(path string) Result {
	return Result{path: path}
}

// Failed returns a failed Result
func Failed(err error) Result {
	if err == nil {
		err = errUnspecified
	}
	return Result{err: err}
}

// Path returns the thumbnail path and true on success
func (r Result) Path() (string, bool) {
	if r.err != nil {
		return "", false
	}
	return r.path, true
}

// Err returns the generation error, nil on success
func (r Result) Err() error {
	return r.err
}
