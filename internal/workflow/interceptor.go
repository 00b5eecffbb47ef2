package workflow

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/backoffice/internal/issuer"
	"github.com/edvin/backoffice/internal/storage"
)

// ErrorTypingInterceptor gives every activity error an application error
// type, so failures group by cause in the Temporal UI: the issuer failure
// kind, storage_unavailable, or the activity name as a fallback.
type ErrorTypingInterceptor struct {
	interceptor.WorkerInterceptorBase
}

func (e *ErrorTypingInterceptor) InterceptActivity(
	ctx context.Context,
	next interceptor.ActivityInboundInterceptor,
) interceptor.ActivityInboundInterceptor {
	return &errorTypingActivityInterceptor{next: next}
}

type errorTypingActivityInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
	next interceptor.ActivityInboundInterceptor
}

func (e *errorTypingActivityInterceptor) Init(outbound interceptor.ActivityOutboundInterceptor) error {
	return e.next.Init(outbound)
}

func (e *errorTypingActivityInterceptor) ExecuteActivity(
	ctx context.Context,
	in *interceptor.ExecuteActivityInput,
) (interface{}, error) {
	result, err := e.next.ExecuteActivity(ctx, in)
	if err == nil {
		return result, nil
	}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return result, err
	}
	return result, temporal.NewApplicationError(err.Error(), errorType(err, activity.GetInfo(ctx).ActivityType.Name), err)
}

func errorType(err error, activityName string) string {
	if kind, ok := issuer.KindOf(err); ok {
		return string(kind)
	}
	if errors.Is(err, storage.ErrUnavailable) {
		return "storage_unavailable"
	}
	return activityName
}
