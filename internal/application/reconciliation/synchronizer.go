package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/domain/shared"
	"github.com/erp/syncengine/internal/infrastructure/telemetry"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// payloadExcerptLength bounds the payload copy kept inline in audit records
const payloadExcerptLength = 2000

// Result is the outcome of one synchronization attempt
type Result struct {
	RecordID uuid.UUID
	ObjectID string
	Type     reconciliation.ObjectType
	Method   reconciliation.Method
	Outcome  reconciliation.Outcome
	TargetID string
	// Err is the reason the attempt failed
	Err error
	// AuditErr is set when the audit record could not be written
	AuditErr error
}

// Failure joins the attempt error and the audit error
func (r *Result) Failure() error {
	return errors.Join(r.Err, r.AuditErr)
}

// RunReport summarises a batch run
type RunReport struct {
	Run     *reconciliation.SyncRun
	Results []*Result
}

// SynchronizerOption configures a Synchronizer
type SynchronizerOption func(*Synchronizer)

// WithClaimStore narrows the duplicate-create window with short-lived claims
func WithClaimStore(claims shared.ClaimStore, ttl time.Duration) SynchronizerOption {
	return func(s *Synchronizer) {
		s.claims = claims
		if ttl > 0 {
			s.claimTTL = ttl
		}
	}
}

// WithPayloadArchive stores the full payload of every attempt
func WithPayloadArchive(archive reconciliation.PayloadArchive) SynchronizerOption {
	return func(s *Synchronizer) {
		s.archive = archive
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(metrics Metrics) SynchronizerOption {
	return func(s *Synchronizer) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// Synchronizer applies the shared synchronization contract to one object type:
// identity mappings guard creates, every attempt is audited and the batch
// cursor only moves forward.
type Synchronizer struct {
	handler  Handler
	mappings reconciliation.IdentityMappingRepository
	audit    reconciliation.AuditLogRepository
	config   *ConfigurationService
	claims   shared.ClaimStore
	claimTTL time.Duration
	archive  reconciliation.PayloadArchive
	metrics  Metrics
	logger   *zap.Logger
}

// NewSynchronizer creates a new Synchronizer
func NewSynchronizer(
	handler Handler,
	mappings reconciliation.IdentityMappingRepository,
	audit reconciliation.AuditLogRepository,
	config *ConfigurationService,
	logger *zap.Logger,
	opts ...SynchronizerOption,
) *Synchronizer {
	s := &Synchronizer{
		handler:  handler,
		mappings: mappings,
		audit:    audit,
		config:   config,
		claimTTL: shared.DefaultClaimConfig().TTL,
		metrics:  NoopMetrics{},
		logger:   logger.With(zap.String("object_type", handler.ObjectType().String())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Type returns the object type handled
func (s *Synchronizer) Type() reconciliation.ObjectType {
	return s.handler.ObjectType()
}

// Handler returns the type-specific handler
func (s *Synchronizer) Handler() Handler {
	return s.handler
}

// Enabled reports whether the synchronizer is switched on
func (s *Synchronizer) Enabled(ctx context.Context) (bool, error) {
	return s.config.Enabled(ctx, s.Type())
}

// Setup resolves the configuration a run needs
func (s *Synchronizer) Setup(ctx context.Context) error {
	if err := s.handler.Prepare(ctx); err != nil {
		return fmt.Errorf("%s setup failed: %w", s.Type(), err)
	}
	return nil
}

// FetchBatch pulls objects strictly after cursor. A maxCount of 0 returns
// nothing without calling the source; nil is unbounded.
func (s *Synchronizer) FetchBatch(ctx context.Context, cursor string, maxCount *int) ([]reconciliation.RemoteObject, error) {
	if maxCount != nil && *maxCount <= 0 {
		return nil, nil
	}
	objects, err := s.handler.Fetch(ctx, cursor, maxCount)
	if err != nil {
		return nil, err
	}
	return truncateObjects(objects, maxCount), nil
}

func (s *Synchronizer) mappingKey(sourceID string) reconciliation.MappingKey {
	return reconciliation.NewMappingKey(s.Type(), s.handler.SourceService(), s.handler.TargetService(), sourceID)
}

// Get fetches the current state of an object from the source system
func (s *Synchronizer) Get(ctx context.Context, id string) (reconciliation.RemoteObject, error) {
	return s.handler.Get(ctx, id)
}

// Decode converts a webhook payload into a typed object
func (s *Synchronizer) Decode(payload []byte) (reconciliation.RemoteObject, error) {
	return s.handler.Decode(payload)
}

// SynchronizeOne creates the counterpart of obj in the target system and
// records the identity mapping. An existing mapping rejects the create
// without any remote call.
func (s *Synchronizer) SynchronizeOne(ctx context.Context, obj reconciliation.RemoteObject) (string, error) {
	key := s.mappingKey(obj.SourceID())

	_, found, err := s.mappings.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to look up mapping: %w", err)
	}
	if found {
		return "", reconciliation.NewMappingError(key, reconciliation.ErrAlreadyMapped)
	}

	if s.claims != nil {
		claimKey := "create:" + key.String()
		claimed, err := s.claims.Claim(ctx, claimKey, s.claimTTL)
		switch {
		case err != nil:
			s.logger.Warn("create claim unavailable, relying on mapping check",
				zap.String("object_id", key.SourceObjectID),
				zap.Error(err),
			)
		case !claimed:
			return "", reconciliation.NewMappingError(key, reconciliation.ErrCreateInProgress)
		default:
			defer func() {
				if err := s.claims.Release(context.WithoutCancel(ctx), claimKey); err != nil {
					s.logger.Warn("failed to release create claim",
						zap.String("object_id", key.SourceObjectID),
						zap.Error(err),
					)
				}
			}()
		}
	}

	targetID, err := s.handler.Create(ctx, obj)
	if err != nil {
		return "", err
	}

	mapping, err := reconciliation.NewIdentityMapping(key, targetID)
	if err != nil {
		return "", err
	}
	if err := s.mappings.Put(ctx, mapping); err != nil {
		// The remote object exists but is not mapped: an operator has to link it.
		s.logger.Error("created remote object but failed to store mapping",
			zap.String("object_id", key.SourceObjectID),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
		if errors.Is(err, reconciliation.ErrAlreadyMapped) {
			return targetID, reconciliation.NewMappingError(key, reconciliation.ErrAlreadyMapped)
		}
		return targetID, fmt.Errorf("failed to store mapping: %w", err)
	}
	return targetID, nil
}

// UpdateOne re-applies obj to its mapped counterpart
func (s *Synchronizer) UpdateOne(ctx context.Context, obj reconciliation.RemoteObject) (string, error) {
	key := s.mappingKey(obj.SourceID())
	targetID, found, err := s.mappings.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to look up mapping: %w", err)
	}
	if !found {
		return "", reconciliation.NewMappingError(key, reconciliation.ErrNotMapped)
	}
	if err := s.handler.Update(ctx, obj, targetID); err != nil {
		return targetID, err
	}
	return targetID, nil
}

// DeleteOne deletes the mapped counterpart and then forgets the mapping
func (s *Synchronizer) DeleteOne(ctx context.Context, ref reconciliation.RemoteObject) (string, error) {
	key := s.mappingKey(ref.SourceID())
	targetID, found, err := s.mappings.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to look up mapping: %w", err)
	}
	if !found {
		return "", reconciliation.NewMappingError(key, reconciliation.ErrNotMapped)
	}
	if err := s.handler.Delete(ctx, targetID); err != nil {
		return targetID, err
	}
	if err := s.mappings.Delete(ctx, key); err != nil {
		return targetID, fmt.Errorf("failed to delete mapping: %w", err)
	}
	return targetID, nil
}

// ResolveMethod turns an update into a create when the handler allows it and
// no mapping exists yet
func (s *Synchronizer) ResolveMethod(ctx context.Context, method reconciliation.Method, obj reconciliation.RemoteObject) (reconciliation.Method, error) {
	if method != reconciliation.MethodUpdate {
		return method, nil
	}
	creator, ok := s.handler.(unmappedUpdateCreator)
	if !ok || !creator.CreatesOnUnmappedUpdate() {
		return method, nil
	}
	_, found, err := s.mappings.Get(ctx, s.mappingKey(obj.SourceID()))
	if err != nil {
		return method, fmt.Errorf("failed to look up mapping: %w", err)
	}
	if !found {
		return reconciliation.MethodCreate, nil
	}
	return method, nil
}

// Apply performs one attempt and writes exactly one audit record for it.
// payload is the raw source payload when there is one.
func (s *Synchronizer) Apply(
	ctx context.Context,
	source reconciliation.TriggerSource,
	method reconciliation.Method,
	obj reconciliation.RemoteObject,
	payload []byte,
) *Result {
	result := &Result{ObjectID: obj.SourceID(), Type: s.Type(), Method: method}

	ctx, span := telemetry.StartServiceSpan(ctx, "synchronizer", "apply",
		telemetry.WithAttribute(telemetry.SpanAttrObjectType, s.Type().String()),
		telemetry.WithAttribute(telemetry.SpanAttrObjectID, result.ObjectID),
		telemetry.WithAttribute(telemetry.SpanAttrMethod, method.String()),
		telemetry.WithAttribute(telemetry.SpanAttrTrigger, source.String()),
	)
	defer span.End()

	var err error
	switch method {
	case reconciliation.MethodCreate:
		result.TargetID, err = s.SynchronizeOne(ctx, obj)
	case reconciliation.MethodUpdate:
		result.TargetID, err = s.UpdateOne(ctx, obj)
	case reconciliation.MethodDelete:
		result.TargetID, err = s.DeleteOne(ctx, obj)
	default:
		err = fmt.Errorf("%w: %q", reconciliation.ErrUnknownMethod, method)
	}

	record := reconciliation.NewSynchronizedObjectRecord(result.ObjectID, s.Type(), source, method)
	record.TargetURL = s.handler.ObjectURL(result.ObjectID)
	switch {
	case err == nil:
		record.MarkSucceeded(reconciliation.OutcomeFor(method))
	case errors.Is(err, reconciliation.ErrNotApplicable):
		record.MarkSucceeded(reconciliation.OutcomeSkipped)
		record.WithExtra("reason", err.Error())
	default:
		record.MarkFailed(err)
		record.WithExtra("retryable", reconciliation.IsRetryable(err))
		result.Err = err
	}
	if result.TargetID != "" {
		record.WithExtra("target_id", result.TargetID)
	}
	if _, ok := obj.(reconciliation.ObjectRef); !ok {
		s.attachPayload(ctx, record, obj, payload)
	}

	result.RecordID = record.ID
	result.Outcome = record.Outcome
	result.AuditErr = s.appendRecord(ctx, record)
	s.metrics.RecordAttempt(ctx, s.Type(), method, record.Outcome)
	telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, record.Outcome.String())
	telemetry.RecordError(span, result.Err)

	fields := []zap.Field{
		zap.String("object_id", result.ObjectID),
		zap.String("method", method.String()),
		zap.String("source", source.String()),
		zap.String("outcome", record.Outcome.String()),
	}
	if result.Err != nil {
		s.logger.Warn("synchronization failed", append(fields, zap.Error(result.Err))...)
	} else {
		s.logger.Info("synchronization succeeded", append(fields, zap.String("target_id", result.TargetID))...)
	}
	return result
}

// RecordFailure audits an attempt that failed before an object was available,
// e.g. because the fresh fetch for a manual retry failed
func (s *Synchronizer) RecordFailure(
	ctx context.Context,
	source reconciliation.TriggerSource,
	method reconciliation.Method,
	objectID string,
	cause error,
) *Result {
	record := reconciliation.NewSynchronizedObjectRecord(objectID, s.Type(), source, method)
	record.TargetURL = s.handler.ObjectURL(objectID)
	record.MarkFailed(cause)
	record.WithExtra("retryable", reconciliation.IsRetryable(cause))

	result := &Result{
		RecordID: record.ID,
		ObjectID: objectID,
		Type:     s.Type(),
		Method:   method,
		Outcome:  reconciliation.OutcomeFailed,
		Err:      cause,
	}
	result.AuditErr = s.appendRecord(ctx, record)
	s.metrics.RecordAttempt(ctx, s.Type(), method, reconciliation.OutcomeFailed)
	s.logger.Warn("synchronization failed",
		zap.String("object_id", objectID),
		zap.String("method", method.String()),
		zap.String("source", source.String()),
		zap.Error(cause),
	)
	return result
}

// appendRecord writes an audit record. A failed write is never swallowed.
func (s *Synchronizer) appendRecord(ctx context.Context, record *reconciliation.SynchronizedObjectRecord) error {
	if err := s.audit.Append(context.WithoutCancel(ctx), record); err != nil {
		s.metrics.RecordAuditWriteFailure(ctx, s.Type())
		s.logger.Error("failed to write audit record",
			zap.String("object_id", record.ObjectID),
			zap.String("method", record.Method.String()),
			zap.Bool("succeeded", record.Succeeded),
			zap.Error(err),
		)
		return fmt.Errorf("failed to write audit record for %s %s: %w", s.Type(), record.ObjectID, err)
	}
	return nil
}

// attachPayload keeps an excerpt of the payload in the record and archives the
// full payload when an archive is configured
func (s *Synchronizer) attachPayload(ctx context.Context, record *reconciliation.SynchronizedObjectRecord, obj reconciliation.RemoteObject, payload []byte) {
	if len(payload) == 0 {
		encoded, err := json.Marshal(obj)
		if err != nil {
			s.logger.Debug("failed to encode object for audit", zap.Error(err))
			return
		}
		payload = encoded
	}

	excerpt := payload
	if len(excerpt) > payloadExcerptLength {
		excerpt = excerpt[:payloadExcerptLength]
	}
	record.WithExtra("payload_excerpt", string(excerpt))

	if s.archive == nil {
		return
	}
	key := fmt.Sprintf("%s/%s/%s.json", s.Type(), record.ObjectID, record.ID)
	if err := s.archive.Store(ctx, key, payload); err != nil {
		s.logger.Warn("failed to archive payload",
			zap.String("object_id", record.ObjectID),
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	record.ArchiveKey = key
}

// Run synchronizes one batch: objects after the cursor are created in the
// target system, each attempt is audited and the cursor advances past the
// batch whether or not individual objects failed.
func (s *Synchronizer) Run(ctx context.Context, trigger reconciliation.TriggerSource) (*RunReport, error) {
	run := reconciliation.NewSyncRun(s.Type(), trigger)
	run.Start()
	report := &RunReport{Run: run}
	defer func() {
		s.metrics.RecordRun(ctx, s.Type(), run.Status, run.Duration())
	}()

	enabled, err := s.Enabled(ctx)
	if err != nil {
		run.Fail(err)
		return report, err
	}
	if !enabled {
		s.logger.Debug("synchronizer disabled, skipping run")
		run.MarkDisabled()
		return report, nil
	}

	if err := s.Setup(ctx); err != nil {
		s.logger.Error("synchronizer setup failed", zap.Error(err))
		run.Fail(err)
		return report, err
	}

	cursor, err := s.config.Cursor(ctx, s.Type())
	if err != nil {
		run.Fail(err)
		return report, err
	}
	run.Cursor = cursor.LastProcessedSourceID

	objects, err := s.FetchBatch(ctx, cursor.LastProcessedSourceID, cursor.MaxBatchSize)
	if err != nil {
		s.logger.Error("failed to fetch batch", zap.String("cursor", cursor.LastProcessedSourceID), zap.Error(err))
		run.Fail(err)
		return report, err
	}

	var auditErrs []error
	attempted := make([]reconciliation.RemoteObject, 0, len(objects))
	for _, obj := range objects {
		if ctx.Err() != nil {
			break
		}
		attempted = append(attempted, obj)

		done, err := s.audit.HasSucceeded(ctx, s.Type(), obj.SourceID(), reconciliation.MethodCreate)
		if err != nil {
			s.logger.Warn("failed to check audit log, attempting create",
				zap.String("object_id", obj.SourceID()),
				zap.Error(err),
			)
		}
		if done {
			run.Skip()
			continue
		}

		result := s.Apply(ctx, trigger, reconciliation.MethodCreate, obj, nil)
		report.Results = append(report.Results, result)
		run.Record(result.Outcome)
		if result.AuditErr != nil {
			auditErrs = append(auditErrs, result.AuditErr)
		}
	}

	if err := s.AfterRun(ctx, attempted); err != nil {
		auditErrs = append(auditErrs, err)
	}
	if len(attempted) > 0 {
		run.Cursor = s.handler.NextCursor(attempted[len(attempted)-1])
	}

	run.Complete()
	s.logger.Info("synchronization run completed",
		zap.String("trigger", trigger.String()),
		zap.String("status", run.Status.String()),
		zap.Int("total", run.Total),
		zap.Int("succeeded", run.Succeeded),
		zap.Int("failed", run.Failed),
		zap.Int("skipped", run.Skipped),
	)
	if len(auditErrs) > 0 {
		run.Error = reconciliation.ErrorMessage(errors.Join(auditErrs...))
		return report, errors.Join(auditErrs...)
	}
	return report, nil
}

// AfterRun advances the cursor past the last attempted object. An empty batch
// leaves the cursor untouched.
func (s *Synchronizer) AfterRun(ctx context.Context, attempted []reconciliation.RemoteObject) error {
	if len(attempted) == 0 {
		return nil
	}
	next := s.handler.NextCursor(attempted[len(attempted)-1])
	if next == "" {
		return nil
	}
	return s.config.AdvanceCursor(context.WithoutCancel(ctx), s.Type(), next)
}
