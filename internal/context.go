package internal

import (
	"context"
	"net/http"

	"github.com/antonio-alexander/go-employee-proxy/internal/data"
)

type ctxKeyCorrelationId struct{}

func CtxWithCorrelationId(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationId{}, correlationId)
}

func CorrelationIdFromCtx(ctx context.Context) string {
	item := ctx.Value(ctxKeyCorrelationId{})
	correlationId, ok := item.(string)
	if ok {
		return correlationId
	}
	return ""
}

// CtxFromRequest returns the request context carrying the request's
// correlation id, one is generated if the caller didn't provide it
func CtxFromRequest(request *http.Request) context.Context {
	correlationId := request.Header.Get(data.HeaderCorrelationId)
	if correlationId == "" {
		correlationId = GenerateId()
	}
	return CtxWithCorrelationId(request.Context(), correlationId)
}
