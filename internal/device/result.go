package device

// Result is the answer of a lookup that may legitimately find nothing.
type Result[T any] struct {
	value T
	found bool
}

func Found[T any](v T) Result[T] { return Result[T]{value: v, found: true} }

func NotFound[T any]() Result[T] { return Result[T]{} }

// OK reports whether a value was found.
func (r Result[T]) OK() bool { return r.found }

// Value returns the found value, or the zero value.
func (r Result[T]) Value() T { return r.value }

// Get returns the value and whether it was found.
func (r Result[T]) Get() (T, bool) { return r.value, r.found }
