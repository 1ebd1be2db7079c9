package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/relabs-tech/carlot/core"
	"github.com/relabs-tech/carlot/core/logger"
	"github.com/relabs-tech/carlot/core/notify"
)

// notify publishes a domain event. Failures are logged and counted, they never fail the request.
func (a *API) notify(ctx context.Context, resource string, operation core.Operation, id uuid.UUID, payload interface{}) {
	a.metrics.events.WithLabelValues(resource, string(operation)).Inc()
	rlog := logger.FromContext(ctx)
	event, err := notify.NewEvent(ctx, resource, operation, id, payload)
	if err == nil {
		err = a.notifier.Notify(ctx, event)
	}
	if err != nil {
		a.metrics.notifyFailure.Inc()
		rlog.WithError(err).Errorf("Error 4900: cannot notify %s %s %s", operation, resource, id)
	}
}
