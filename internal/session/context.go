package session

import "context"

type dataKey struct{}

// WithData returns a context carrying the authenticated admin session.
func WithData(ctx context.Context, data *Data) context.Context {
	return context.WithValue(ctx, dataKey{}, data)
}

// FromContext returns the admin session stored by WithData, or nil.
func FromContext(ctx context.Context) *Data {
	if ctx == nil {
		return nil
	}
	data, _ := ctx.Value(dataKey{}).(*Data)
	return data
}
