package audit

import "context"

// Client identifies the caller of a query.
type Client struct {
	IPAddress string
	UserAgent string
}

type clientKey struct{}

// WithClient returns a copy of ctx carrying the caller's address and agent.
func WithClient(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, Client{IPAddress: ip, UserAgent: userAgent})
}

// ClientFromContext returns the caller stored by WithClient.
func ClientFromContext(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}
