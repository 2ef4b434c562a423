package nav

import "fmt"

// ErrorReporter keeps the first reported failure so the command can return
// it as its error.
type ErrorReporter struct {
	err error
}

func (r *ErrorReporter) ReportError(title string, err error) {
	if r.err != nil || err == nil {
		return
	}
	r.err = fmt.Errorf("%s: %w", title, err)
}

func (r *ErrorReporter) Err() error {
	return r.err
}
