package catalog

// notFoundError indicates the requested slug has no record.
type notFoundError struct{ slug string }

func (e notFoundError) Error() string { return "model not found: " + e.slug }

// ErrNotFound constructs a notFoundError for slug.
func ErrNotFound(slug string) error { return notFoundError{slug: slug} }

// IsNotFound reports whether err indicates a missing catalog entry.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// conflictError indicates a rename target slug is already taken.
type conflictError struct{ slug string }

func (e conflictError) Error() string { return "slug already exists: " + e.slug }

// ErrConflict constructs a conflictError for slug.
func ErrConflict(slug string) error { return conflictError{slug: slug} }

// IsConflict reports whether err indicates a slug collision on rename.
func IsConflict(err error) bool {
	_, ok := err.(conflictError)
	return ok
}
