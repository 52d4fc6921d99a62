package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Dispatcher is the single entry point used by the cron trigger, the webhook
// endpoint and manual retries
type Dispatcher struct {
	registry *Registry
	runs     reconciliation.SyncRunRepository
	logger   *zap.Logger
}

// NewDispatcher creates a new Dispatcher. runs may be nil.
func NewDispatcher(registry *Registry, runs reconciliation.SyncRunRepository, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		runs:     runs,
		logger:   logger,
	}
}

// Registry returns the synchronizer registry
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// RunScheduled runs every registered synchronizer one after another. A failing
// type does not stop the others.
func (d *Dispatcher) RunScheduled(ctx context.Context, trigger reconciliation.TriggerSource) ([]*RunReport, error) {
	var (
		reports []*RunReport
		errs    []error
	)
	for _, t := range d.registry.Types() {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		report, err := d.RunType(ctx, t, trigger)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

// RunType runs the synchronizer of one type and records the run
func (d *Dispatcher) RunType(ctx context.Context, t reconciliation.ObjectType, trigger reconciliation.TriggerSource) (*RunReport, error) {
	s, err := d.registry.Get(t)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "dispatcher", "run",
		telemetry.WithAttribute(telemetry.SpanAttrObjectType, t.String()),
		telemetry.WithAttribute(telemetry.SpanAttrTrigger, trigger.String()),
	)
	defer span.End()

	report, runErr := s.Run(ctx, trigger)
	defer func() { telemetry.RecordError(span, runErr) }()
	if d.runs != nil && report != nil {
		if err := d.runs.Save(context.WithoutCancel(ctx), report.Run); err != nil {
			d.logger.Error("failed to save sync run",
				zap.String("object_type", t.String()),
				zap.String("run_id", report.Run.ID.String()),
				zap.Error(err),
			)
			runErr = errors.Join(runErr, fmt.Errorf("failed to save sync run: %w", err))
		}
	}
	return report, runErr
}

// HandleWebhook processes one "<type>_<method>" event. A disabled synchronizer
// turns the delivery into a no-op.
func (d *Dispatcher) HandleWebhook(ctx context.Context, event string, payload []byte) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dispatcher", "webhook",
		telemetry.WithAttribute(telemetry.SpanAttrEvent, event),
	)
	defer span.End()

	ev, err := reconciliation.ParseEvent(event)
	if err != nil {
		return nil, err
	}
	s, err := d.registry.Get(ev.Type)
	if err != nil {
		return nil, err
	}

	enabled, err := s.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		d.logger.Debug("webhook ignored, synchronizer disabled", zap.String("event", ev.String()))
		return &Result{Type: ev.Type, Method: ev.Method, Outcome: reconciliation.OutcomeSkipped}, nil
	}

	obj, err := s.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", ev.Type, err)
	}

	if err := s.Setup(ctx); err != nil {
		result := s.RecordFailure(ctx, reconciliation.TriggerWebhook, ev.Method, obj.SourceID(), err)
		return result, result.Failure()
	}

	method, err := s.ResolveMethod(ctx, ev.Method, obj)
	if err != nil {
		result := s.RecordFailure(ctx, reconciliation.TriggerWebhook, ev.Method, obj.SourceID(), err)
		return result, result.Failure()
	}

	result := s.Apply(ctx, reconciliation.TriggerWebhook, method, obj, payload)
	return result, result.Failure()
}

// Retry re-attempts one object. The object is fetched fresh from the source
// system, never taken from a stored payload; deletes only need the id.
func (d *Dispatcher) Retry(
	ctx context.Context,
	objectID string,
	t reconciliation.ObjectType,
	method reconciliation.Method,
) (*Result, error) {
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %q", reconciliation.ErrUnknownMethod, method)
	}
	s, err := d.registry.Get(t)
	if err != nil {
		return nil, err
	}

	if err := s.Setup(ctx); err != nil {
		result := s.RecordFailure(ctx, reconciliation.TriggerManual, method, objectID, err)
		return result, result.Failure()
	}

	var obj reconciliation.RemoteObject = reconciliation.ObjectRef(objectID)
	if method != reconciliation.MethodDelete {
		fresh, err := s.Get(ctx, objectID)
		if err != nil {
			result := s.RecordFailure(ctx, reconciliation.TriggerManual, method, objectID,
				fmt.Errorf("failed to fetch %s %s: %w", t, objectID, err))
			return result, result.Failure()
		}
		obj = fresh

		method, err = s.ResolveMethod(ctx, method, obj)
		if err != nil {
			result := s.RecordFailure(ctx, reconciliation.TriggerManual, method, objectID, err)
			return result, result.Failure()
		}
	}

	d.logger.Info("retrying synchronization",
		zap.String("object_type", t.String()),
		zap.String("object_id", objectID),
		zap.String("method", method.String()),
	)
	result := s.Apply(ctx, reconciliation.TriggerManual, method, obj, nil)
	return result, result.Failure()
}
