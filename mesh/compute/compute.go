// Package compute defines the fleet's compute function and its
// implementations, from pure byte transforms to model-backed completers.
package compute

import "context"

// Func is the computation applied by a site when an inner expression
// becomes ready. It receives every child blob, in order; by convention
// the first is the "function" blob and the rest its arguments, but the
// engine treats all of them uniformly.
//
// The same Func must be configured at every site of a fleet, and must be
// deterministic for sites to converge on a single result id per
// expression.
//
// A non-nil error means the computation could not be performed this
// attempt; the site logs it and retries on a later tick.
type Func func(args [][]byte) ([]byte, error)

// ArgLens is the default demo compute function: one output byte per
// argument, holding that argument's length truncated to a byte.
func ArgLens(args [][]byte) ([]byte, error) {
	out := make([]byte, len(args))
	for i, arg := range args {
		out[i] = byte(len(arg))
	}
	return out, nil
}

// Concat concatenates all argument blobs in order.
func Concat(args [][]byte) ([]byte, error) {
	var n int
	for _, arg := range args {
		n += len(arg)
	}
	out := make([]byte, 0, n)
	for _, arg := range args {
		out = append(out, arg...)
	}
	return out, nil
}

// Completer produces a result blob from ordered argument blobs using an
// external service, typically an LLM provider.
//
// Implementations should respect ctx cancellation and return provider
// errors unwrapped enough for errors.Is/As inspection.
type Completer interface {
	Complete(ctx context.Context, args [][]byte) ([]byte, error)
}

// FromCompleter bridges a Completer to a Func.
//
// Each invocation runs with its own context derived from
// context.Background(); the engine's compute step has no caller context
// to thread through. External completions are only as deterministic as
// the backing service; fleets that need strict convergence should prefer
// pure Funcs.
func FromCompleter(c Completer) Func {
	return func(args [][]byte) ([]byte, error) {
		return c.Complete(context.Background(), args)
	}
}
