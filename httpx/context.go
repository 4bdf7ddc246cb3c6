package httpx

import "context"

type ctxKey int

const ctxKeyCallID ctxKey = iota

// WithCallID returns a new context that carries a call ID. The ID tags
// log lines only; it is never sent on the wire.
func WithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCallID, id)
}

// CallIDFrom extracts the call ID from ctx.
func CallIDFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx.Value(ctxKeyCallID).(string)
	return s, ok && s != ""
}
