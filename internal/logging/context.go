package logging

import "context"

type requestIDKey struct{}

// WithRequestID stores the request identifier on ctx so code below the HTTP
// layer can tag its logs with it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the identifier stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
