package lifecycle

import "fmt"

// notRunningError indicates no server process matched the slug.
type notRunningError struct{ slug string }

func (e notRunningError) Error() string { return "no server running for: " + e.slug }

// ErrNotRunning constructs a notRunningError for slug.
func ErrNotRunning(slug string) error { return notRunningError{slug: slug} }

// IsNotRunning reports whether err indicates no matching server process.
func IsNotRunning(err error) bool {
	_, ok := err.(notRunningError)
	return ok
}

// startupTimeoutError indicates a spawned server never became reachable
// within the ceiling. The process is left running; LogPath points at its
// output for diagnosis.
type startupTimeoutError struct {
	slug    string
	logPath string
}

func (e startupTimeoutError) Error() string {
	return fmt.Sprintf("server for %s did not become ready; check %s", e.slug, e.logPath)
}

// LogPath returns the spawned server's log file location.
func (e startupTimeoutError) LogPath() string { return e.logPath }

// ErrStartupTimeout constructs a startupTimeoutError.
func ErrStartupTimeout(slug, logPath string) error {
	return startupTimeoutError{slug: slug, logPath: logPath}
}

// IsStartupTimeout reports whether err indicates a readiness-wait timeout.
func IsStartupTimeout(err error) bool {
	_, ok := err.(startupTimeoutError)
	return ok
}
