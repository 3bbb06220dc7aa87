// Package credctx implements the Credential Context (C17): the
// task-local cell holding the current request's API key, used to
// propagate a caller's credential across a chain of endpoint calls.
//
// Go has no language-level task-local storage; context.Context is the
// idiomatic substitute, and it happens to map onto the spec's contract
// exactly: Set returns both a derived context carrying the new value and
// a Token wrapping the context it was derived from, so Clear(token)
// "restores the outer value" by simply handing back that parent
// context rather than mutating any shared cell. Two concurrent
// goroutines holding different contexts never observe each other's
// values, satisfying the task-isolation requirement without any
// synchronization.
package credctx

import "context"

type contextKey struct{}

var apiKeyContextKey = contextKey{}

// Token wraps the context in effect before a Set call, so Clear can
// hand it back to the caller (restoring the outer value, including the
// empty default).
type Token struct {
	prev context.Context
}

// Set returns a derived context carrying key as the active credential,
// plus a Token that Clear can use to restore the previous context.
func Set(ctx context.Context, key string) (context.Context, Token) {
	return context.WithValue(ctx, apiKeyContextKey, key), Token{prev: ctx}
}

// Get returns the active credential for ctx, or "" if none is set.
func Get(ctx context.Context) string {
	v, _ := ctx.Value(apiKeyContextKey).(string)
	return v
}

// Clear returns the context that was in effect before the corresponding
// Set call, restoring whatever value (or absence of one) the enclosing
// scope had.
func Clear(token Token) context.Context {
	if token.prev == nil {
		return context.Background()
	}
	return token.prev
}
