// Package contseq chains fallible pipeline steps, running each in order
// and short-circuiting after the first failure while still naming which
// step failed.
//
// Adapted from the teacher repository's continuity package: same
// chain-and-short-circuit shape, generalized to record the name of the
// step that failed (the ingest pipeline in this module reports it,
// continuity's original callers did not).
package contseq

// Chain runs named steps in order, stopping at the first one that fails.
type Chain struct {
	step string
	err  error
}

// New creates an empty Chain.
func New() *Chain {
	return &Chain{}
}

// Then runs f under the given step name if the chain hasn't failed yet.
func (c *Chain) Then(step string, f func() error) *Chain {
	if c.err != nil {
		return c
	}
	if err := f(); err != nil {
		c.step = step
		c.err = err
	}
	return c
}

// Err returns the first error encountered, or nil.
func (c *Chain) Err() error {
	return c.err
}

// FailedStep returns the name of the step that failed, or "" if none did.
func (c *Chain) FailedStep() string {
	return c.step
}
