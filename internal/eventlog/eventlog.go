// Package eventlog records pipeline progress. Every stage transition becomes
// an append-only event in storage and, on success, a best-effort broadcast to
// live subscribers. The append is mandatory; the broadcast is not.
package eventlog

import (
	"context"
	"time"

	"github.com/worq1337/parcer-sub001/internal/hub"
	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/models"
	"github.com/worq1337/parcer-sub001/internal/storage"
)

// Recorder appends pipeline events and fans them out.
type Recorder struct {
	store  *storage.Storage
	hub    *hub.Hub
	logger logging.Logger
}

// NewRecorder wires a recorder. hub may be nil when no live streaming is
// wanted (tests, one-shot CLI runs).
func NewRecorder(store *storage.Storage, h *hub.Hub, logger logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Recorder{store: store, hub: h, logger: logger}
}

// Record appends one event for the check and broadcasts it. An append
// failure is returned to the caller; a check whose history cannot be written
// must not advance.
func (r *Recorder) Record(ctx context.Context, check *models.CheckItem, stage models.Stage, status models.EventStatus, message string, payload map[string]interface{}) (*models.PipelineEvent, error) {
	event := &models.PipelineEvent{
		CheckID:   check.CheckID,
		Stage:     stage,
		Status:    status,
		Source:    check.Source,
		Message:   message,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	if err := r.store.AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	r.logger.WithFields(
		logging.Field{Key: logging.FieldCheckID, Value: check.CheckID},
		logging.Field{Key: logging.FieldStage, Value: string(stage)},
		logging.Field{Key: logging.FieldStatus, Value: string(status)},
	).Debug("Pipeline event recorded")

	r.Broadcast(event)
	return event, nil
}

// Broadcast pushes an already-persisted event to live subscribers. Used
// directly by the coordinator for events written transactionally via
// SaveCheckWithEvent.
func (r *Recorder) Broadcast(event *models.PipelineEvent) {
	if r.hub == nil {
		return
	}
	broadcastType, ok := broadcastTypeFor(event.Stage)
	if !ok {
		return
	}
	r.hub.Publish(hub.Event{
		Type:      broadcastType,
		CheckID:   event.CheckID,
		Stage:     event.Stage,
		Status:    event.Status,
		Source:    event.Source,
		Message:   event.Message,
		Payload:   event.Payload,
		Timestamp: event.CreatedAt,
	})
}

// broadcastTypeFor maps internal stages onto the coarser event vocabulary
// stream consumers see. Intermediate bookkeeping stages are not broadcast.
func broadcastTypeFor(stage models.Stage) (string, bool) {
	switch stage {
	case models.StageReceived:
		return hub.EventCheckReceived, true
	case models.StageNormalized:
		return hub.EventCheckParsed, true
	case models.StageSaved:
		return hub.EventCheckSaved, true
	case models.StageDuplicateDetected:
		return hub.EventDuplicateDetected, true
	case models.StageFailedParse, models.StageFailedValidation, models.StageFailedDB:
		return hub.EventCheckFailed, true
	default:
		return "", false
	}
}

// ListByCheck returns a check's full timeline, oldest first.
func (r *Recorder) ListByCheck(ctx context.Context, checkID string) ([]models.PipelineEvent, error) {
	return r.store.ListEventsByCheck(ctx, checkID)
}

// ListQueue returns the filtered admin queue plus the unpaginated total.
func (r *Recorder) ListQueue(ctx context.Context, filters models.QueueFilters) ([]models.QueueRow, int, error) {
	return r.store.ListQueue(ctx, filters)
}

// Stats returns per-stage event counts for the given period.
func (r *Recorder) Stats(ctx context.Context, from, to time.Time) ([]models.StageCount, error) {
	return r.store.Stats(ctx, from, to)
}

// QueueLength reports checks still mid-pipeline.
func (r *Recorder) QueueLength(ctx context.Context) (int, error) {
	return r.store.QueueLength(ctx)
}

// ErrorCount reports checks whose latest status is error.
func (r *Recorder) ErrorCount(ctx context.Context) (int, error) {
	return r.store.ErrorCount(ctx)
}
