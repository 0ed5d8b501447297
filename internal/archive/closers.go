package archive

import "fmt"

// closeStack finalizes archive resources in LIFO order (last pushed, first
// closed), so the innermost stream flushes before the stream it wraps.
type closeStack struct {
	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// Push registers a resource to close.
func (s *closeStack) Push(name string, fn func() error) {
	s.closers = append([]closer{{name, fn}}, s.closers...)
}

// Close runs every registered closer even when one fails, and reports the
// first failure. A second Close is a no-op.
func (s *closeStack) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.fn(); err != nil && first == nil {
			first = fmt.Errorf("failed to close %s: %w", c.name, err)
		}
	}
	s.closers = nil
	return first
}
