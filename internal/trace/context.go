package trace

import "context"

type ctxKey struct{}

// ctxValue travels as one context value so that attaching a parent span
// keeps the tracer and vice versa.
type ctxValue struct {
	tracer Tracer
	parent uint64
}

func valueOf(ctx context.Context) ctxValue {
	if ctx != nil {
		if v, ok := ctx.Value(ctxKey{}).(ctxValue); ok {
			return v
		}
	}
	return ctxValue{tracer: Nop}
}

// FromContext returns the Tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return valueOf(ctx).tracer
}

// ParentFromContext returns the span id attached with WithParent, 0 if none.
func ParentFromContext(ctx context.Context) uint64 {
	return valueOf(ctx).parent
}

// WithTracer attaches t to ctx. A nil t detaches tracing.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	v := valueOf(ctx)
	v.tracer = t
	return context.WithValue(ctx, ctxKey{}, v)
}

// WithParent records span id as the parent of spans begun from ctx.
func WithParent(ctx context.Context, id uint64) context.Context {
	v := valueOf(ctx)
	v.parent = id
	return context.WithValue(ctx, ctxKey{}, v)
}
