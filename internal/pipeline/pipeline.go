// Package pipeline drives a check through its processing stages: received →
// recorded → normalized → dictionary_matched → p2p_flagged →
// duplicate_checked → saved, with terminal failures failed_parse,
// failed_validation and failed_db. Attempts for the same check serialize on
// a per-check mutex; distinct checks run concurrently up to a limit.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/worq1337/parcer-sub001/internal/cardutils"
	"github.com/worq1337/parcer-sub001/internal/checkerror"
	"github.com/worq1337/parcer-sub001/internal/dedup"
	"github.com/worq1337/parcer-sub001/internal/directory"
	"github.com/worq1337/parcer-sub001/internal/eventlog"
	"github.com/worq1337/parcer-sub001/internal/extractor"
	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/models"
	"github.com/worq1337/parcer-sub001/internal/storage"
	"github.com/worq1337/parcer-sub001/internal/textutils"
)

// Options bounds the coordinator's resource use.
type Options struct {
	Concurrency    int           // max checks processed at once
	ExtractTimeout time.Duration // per-extraction deadline
	StorageRetries int           // attempts per storage write
	RetryBackoff   time.Duration // base delay between attempts
}

func (o *Options) applyDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.ExtractTimeout <= 0 {
		o.ExtractTimeout = 30 * time.Second
	}
	if o.StorageRetries <= 0 {
		o.StorageRetries = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 200 * time.Millisecond
	}
}

// IngestOptions carries per-request context for Ingest.
type IngestOptions struct {
	// BotID selects a dedicated extraction client when the text arrived via
	// a specific bot. Empty uses the default client.
	BotID string
	// Overrides are explicit field values from the manual entry form.
	Overrides *models.ManualOverrides
}

// Coordinator owns pipeline execution.
type Coordinator struct {
	store     *storage.Storage
	recorder  *eventlog.Recorder
	registry  *extractor.Registry
	directory *directory.Directory
	detector  *dedup.Detector
	opts      Options
	locks     *keyedMutex
	sem       chan struct{}
	wg        sync.WaitGroup
	logger    logging.Logger
}

// NewCoordinator wires the pipeline over its collaborators.
func NewCoordinator(store *storage.Storage, recorder *eventlog.Recorder, registry *extractor.Registry, dir *directory.Directory, detector *dedup.Detector, opts Options, logger logging.Logger) *Coordinator {
	opts.applyDefaults()
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Coordinator{
		store:     store,
		recorder:  recorder,
		registry:  registry,
		directory: dir,
		detector:  detector,
		opts:      opts,
		locks:     newKeyedMutex(),
		sem:       make(chan struct{}, opts.Concurrency),
		logger:    logger,
	}
}

// Wait blocks until all in-flight asynchronous attempts finish. Used on
// shutdown and in tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// job is one in-flight pipeline attempt.
type job struct {
	check *models.CheckItem
	// preExtracted skips the LLM when the fast path already produced fields.
	preExtracted *extractor.RawExtraction
	overrides    *models.ManualOverrides
	botID        string
	// conflictMode makes a duplicate decision surface as an error to the
	// caller instead of being recorded and flagged. Only the first manual
	// attempt runs in this mode.
	conflictMode bool
	// requeued attempts write their requeued marker once the check lock is
	// held, keeping it after the previous attempt's terminal event.
	requeued bool
}

// Ingest accepts one raw notification. It writes the check row plus the
// received and recorded events synchronously, then processes the rest either
// inline (manual source, so the caller sees duplicate conflicts) or in the
// background. A recognized multi-operation SMS yields one check per
// operation.
//
// The returned ids are valid even when processing later fails; the queue
// timeline tells the rest of the story.
func (c *Coordinator) Ingest(ctx context.Context, source models.Source, rawText string, opts IngestOptions) ([]string, error) {
	if textutils.NormalizeForMatch(rawText) == "" {
		return nil, &checkerror.ValidationError{Field: "text", Reason: "empty"}
	}
	if !source.Valid() {
		source = models.NormalizeSource(string(source))
	}

	var jobs []*job
	if operations := extractor.TryParseUzumSMS(rawText, time.Now()); len(operations) > 0 {
		for i := range operations {
			op := operations[i]
			jobs = append(jobs, &job{
				check:        newCheck(source, op.Line, opts.BotID),
				preExtracted: &op.Raw,
				overrides:    opts.Overrides,
				botID:        opts.BotID,
			})
		}
	} else {
		jobs = append(jobs, &job{
			check:     newCheck(source, rawText, opts.BotID),
			overrides: opts.Overrides,
			botID:     opts.BotID,
		})
	}

	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		if err := c.admit(ctx, j.check); err != nil {
			return ids, err
		}
		ids = append(ids, j.check.CheckID)
	}

	if source.IsManual() {
		for _, j := range jobs {
			j.conflictMode = true
			if err := c.runLocked(ctx, j); err != nil {
				return ids, err
			}
		}
		return ids, nil
	}

	for _, j := range jobs {
		c.spawn(j)
	}
	return ids, nil
}

func newCheck(source models.Source, rawText, botID string) *models.CheckItem {
	return &models.CheckItem{
		CheckID:    uuid.NewString(),
		Source:     source,
		RawText:    rawText,
		BotID:      botID,
		LastStage:  models.StageReceived,
		LastStatus: models.StatusOK,
	}
}

// admit persists the check row and its received and recorded events. After
// admit the check is visible in the queue no matter what happens next.
func (c *Coordinator) admit(ctx context.Context, check *models.CheckItem) error {
	err := c.withRetry(ctx, func() error {
		return c.store.CreateCheck(ctx, check)
	})
	if err != nil {
		return err
	}

	if err := c.record(ctx, check, models.StageReceived, models.StatusOK, "", map[string]interface{}{
		"source": string(check.Source),
	}); err != nil {
		return err
	}
	return c.record(ctx, check, models.StageRecorded, models.StatusOK, "", nil)
}

// record appends a stage event, retrying storage failures like every other
// durable write.
func (c *Coordinator) record(ctx context.Context, check *models.CheckItem, stage models.Stage, status models.EventStatus, message string, payload map[string]interface{}) error {
	return c.withRetry(ctx, func() error {
		_, err := c.recorder.Record(ctx, check, stage, status, message, payload)
		return err
	})
}

func (c *Coordinator) spawn(j *job) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx := context.Background()
		if err := c.runLocked(ctx, j); err != nil {
			c.logger.WithError(err).WithField(logging.FieldCheckID, j.check.CheckID).
				Warn("Pipeline attempt ended with error")
		}
	}()
}

// runLocked serializes the attempt on the check's mutex and bounds overall
// concurrency.
func (c *Coordinator) runLocked(ctx context.Context, j *job) error {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	unlock := c.locks.Lock(j.check.CheckID)
	defer unlock()

	return c.process(ctx, j)
}

// process runs the stages after recorded. The caller holds the check lock.
func (c *Coordinator) process(ctx context.Context, j *job) error {
	check := j.check
	start := time.Now()

	// A requeue marker written here, under the check lock, lands after the
	// previous attempt's terminal event.
	if j.requeued {
		if err := c.record(ctx, check, models.StageRequeued, models.StatusOK, "", nil); err != nil {
			return c.fail(ctx, check, models.StageFailedDB, err)
		}
	}

	raw, err := c.extract(ctx, j)
	if err != nil {
		return c.fail(ctx, check, classifyExtractError(err), err)
	}

	fields, err := extractor.Normalize(raw, check.CreatedAt)
	if err != nil {
		return c.fail(ctx, check, classifyExtractError(err), err)
	}
	applyOverrides(fields, j.overrides)
	check.ExtractedFields = *fields

	if err := c.record(ctx, check, models.StageNormalized, models.StatusOK, "", map[string]interface{}{
		"operator": fields.Operator,
		"amount":   fields.Amount.String(),
		"card":     fields.CardLast4,
	}); err != nil {
		return c.fail(ctx, check, models.StageFailedDB, err)
	}

	c.resolveOperator(check, raw)
	if err := c.record(ctx, check, models.StageDictionaryMatched, models.StatusOK, "", map[string]interface{}{
		"resolved_operator": check.Resolved.Operator,
		"app":               check.Resolved.App,
	}); err != nil {
		return c.fail(ctx, check, models.StageFailedDB, err)
	}

	c.flagP2P(check, raw, j.overrides)
	if err := c.record(ctx, check, models.StageP2PFlagged, models.StatusOK, "", map[string]interface{}{
		"is_p2p": check.Resolved.IsP2P,
	}); err != nil {
		return c.fail(ctx, check, models.StageFailedDB, err)
	}

	result, err := c.checkDuplicate(ctx, check)
	if err != nil {
		return c.fail(ctx, check, models.StageFailedDB, err)
	}
	check.Fingerprint = result.Fingerprint
	if err := c.record(ctx, check, models.StageDuplicateChecked, models.StatusOK, "", map[string]interface{}{
		"is_duplicate": result.IsDuplicate,
	}); err != nil {
		return c.fail(ctx, check, models.StageFailedDB, err)
	}

	if result.IsDuplicate && j.conflictMode {
		return c.reject(ctx, check, result)
	}
	if result.IsDuplicate {
		check.IsDuplicate = true
		check.DuplicateOf = result.DuplicateOf
		if err := c.record(ctx, check, models.StageDuplicateDetected, models.StatusOK,
			"duplicate of "+result.DuplicateOf, map[string]interface{}{
				"duplicate_of": result.DuplicateOf,
				"via":          result.Via,
			}); err != nil {
			return c.fail(ctx, check, models.StageFailedDB, err)
		}
	}

	if err := c.save(ctx, j, check); err != nil {
		return err
	}

	c.logger.WithFields(
		logging.Field{Key: logging.FieldCheckID, Value: check.CheckID},
		logging.Field{Key: logging.FieldOperator, Value: check.Operator},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(start).String()},
	).Info("Check processed")
	return nil
}

// extract obtains raw fields, from the fast path when available, otherwise
// from the bot's extraction client under the configured deadline.
func (c *Coordinator) extract(ctx context.Context, j *job) (*extractor.RawExtraction, error) {
	if j.preExtracted != nil {
		return j.preExtracted, nil
	}

	client := c.registry.ClientFor(j.botID)
	extractCtx, cancel := context.WithTimeout(ctx, c.opts.ExtractTimeout)
	defer cancel()

	raw, err := client.Extract(extractCtx, j.check.RawText)
	if err != nil {
		if errors.Is(extractCtx.Err(), context.DeadlineExceeded) {
			return nil, &checkerror.ParseError{
				Source:  client.Name(),
				Snippet: textutils.Snippet(j.check.RawText, 120),
				Err:     extractCtx.Err(),
			}
		}
		return nil, err
	}
	return raw, nil
}

func classifyExtractError(err error) models.Stage {
	var validationErr *checkerror.ValidationError
	if errors.As(err, &validationErr) {
		// A field that was never extracted is a parse problem; a field that
		// came back but is unusable is a validation problem.
		if validationErr.Value == "" {
			return models.StageFailedParse
		}
		return models.StageFailedValidation
	}
	return models.StageFailedParse
}

func applyOverrides(fields *models.ExtractedFields, overrides *models.ManualOverrides) {
	if overrides == nil {
		return
	}
	if overrides.Datetime != nil {
		fields.Datetime = *overrides.Datetime
	}
	if overrides.Amount != nil {
		fields.Amount = *overrides.Amount
	}
	if overrides.Currency != "" {
		fields.Currency = overrides.Currency
	}
	if overrides.CardLast4 != "" {
		fields.CardLast4 = cardutils.NormalizeLast4(overrides.CardLast4)
	}
	if overrides.Operator != "" {
		fields.Operator = overrides.Operator
	}
}

// resolveOperator consults the directory; when it has no answer, hints from
// the fast path (which knows the issuing app) fill in.
func (c *Coordinator) resolveOperator(check *models.CheckItem, raw *extractor.RawExtraction) {
	if match, ok := c.directory.Match(check.Operator); ok {
		check.Resolved.Operator = match.CanonicalName
		check.Resolved.App = match.AppName
		check.Resolved.IsP2P = match.IsP2P
		return
	}
	if raw != nil && raw.App != "" {
		check.Resolved.App = raw.App
	}
}

// flagP2P finalizes the P2P flag: explicit manual override first, then the
// directory verdict, then the fast-path hint, then a name heuristic for
// operators the directory does not know.
func (c *Coordinator) flagP2P(check *models.CheckItem, raw *extractor.RawExtraction, overrides *models.ManualOverrides) {
	if overrides != nil && overrides.IsP2P != nil {
		check.Resolved.IsP2P = *overrides.IsP2P
		return
	}
	if check.Resolved.Operator != "" {
		return // directory already decided
	}
	if raw != nil && raw.IsP2P != nil {
		check.Resolved.IsP2P = *raw.IsP2P
		return
	}
	if strings.Contains(strings.ToUpper(check.Operator), "P2P") {
		check.Resolved.IsP2P = true
	}
}

func (c *Coordinator) checkDuplicate(ctx context.Context, check *models.CheckItem) (*dedup.Result, error) {
	var result *dedup.Result
	err := c.withRetry(ctx, func() error {
		var err error
		result, err = c.detector.Check(ctx, check)
		return err
	})
	return result, err
}

// reject handles a manual-entry duplicate: the event trail records the
// decision but the candidate's fields are never saved.
func (c *Coordinator) reject(ctx context.Context, check *models.CheckItem, result *dedup.Result) error {
	conflict := &checkerror.DuplicateError{CheckID: result.DuplicateOf, CandidateID: check.CheckID}
	if err := c.record(ctx, check, models.StageFailedValidation, models.StatusError,
		conflict.Error(), map[string]interface{}{
			"duplicate_of": result.DuplicateOf,
			"via":          result.Via,
		}); err != nil {
		c.logger.WithError(err).WithField(logging.FieldCheckID, check.CheckID).
			Error("Failed to record duplicate rejection")
	}
	return conflict
}

// save writes the final check state and the saved event transactionally. A
// fingerprint collision discovered here (a racing attempt won the index)
// re-routes through the duplicate policy instead of failing.
func (c *Coordinator) save(ctx context.Context, j *job, check *models.CheckItem) error {
	check.LastStage = models.StageSaved
	check.LastStatus = models.StatusOK

	event := &models.PipelineEvent{
		CheckID: check.CheckID,
		Stage:   models.StageSaved,
		Status:  models.StatusOK,
		Source:  check.Source,
	}

	err := c.withRetry(ctx, func() error {
		err := c.store.SaveCheckWithEvent(ctx, check, event)
		if errors.Is(err, storage.ErrFingerprintConflict) {
			return err // not retryable; handled below
		}
		return err
	})
	if errors.Is(err, storage.ErrFingerprintConflict) && !check.IsDuplicate {
		return c.saveAsLateDuplicate(ctx, j, check, event)
	}
	if err != nil {
		return c.fail(ctx, check, models.StageFailedDB, err)
	}

	c.recorder.Broadcast(event)
	return nil
}

func (c *Coordinator) saveAsLateDuplicate(ctx context.Context, j *job, check *models.CheckItem, event *models.PipelineEvent) error {
	original, lookupErr := c.store.FindByFingerprint(ctx, check.Fingerprint)
	duplicateOf := ""
	if lookupErr == nil && original != nil {
		duplicateOf = original.CheckID
	}

	if j.conflictMode {
		return c.reject(ctx, check, &dedup.Result{
			IsDuplicate: true, DuplicateOf: duplicateOf, Via: "fingerprint",
		})
	}

	check.IsDuplicate = true
	check.DuplicateOf = duplicateOf
	if err := c.record(ctx, check, models.StageDuplicateDetected, models.StatusOK,
		"duplicate of "+duplicateOf, map[string]interface{}{
			"duplicate_of": duplicateOf,
			"via":          "fingerprint",
		}); err != nil {
		return c.fail(ctx, check, models.StageFailedDB, err)
	}

	check.LastStage = models.StageSaved
	check.LastStatus = models.StatusOK
	err := c.withRetry(ctx, func() error {
		return c.store.SaveCheckWithEvent(ctx, check, event)
	})
	if err != nil {
		return c.fail(ctx, check, models.StageFailedDB, err)
	}
	c.recorder.Broadcast(event)
	return nil
}

// fail records a terminal failure stage and returns the original error.
func (c *Coordinator) fail(ctx context.Context, check *models.CheckItem, stage models.Stage, cause error) error {
	check.LastStage = stage
	check.LastStatus = models.StatusError

	if recordErr := c.record(ctx, check, stage, models.StatusError, cause.Error(), nil); recordErr != nil {
		c.logger.WithError(recordErr).WithFields(
			logging.Field{Key: logging.FieldCheckID, Value: check.CheckID},
			logging.Field{Key: logging.FieldStage, Value: string(stage)},
		).Error("Failed to record terminal failure")
	}

	// Keep the check row in sync even though the event append already
	// mirrored the stage; the row also carries whatever fields were
	// extracted before the failure.
	if updateErr := c.store.UpdateCheck(ctx, check); updateErr != nil {
		c.logger.WithError(updateErr).WithField(logging.FieldCheckID, check.CheckID).
			Error("Failed to persist failure state")
	}

	return cause
}

// withRetry retries storage-class failures with linear backoff. Other error
// classes pass through on the first attempt.
func (c *Coordinator) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= c.opts.StorageRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		var storageErr *checkerror.StorageError
		if !errors.As(err, &storageErr) {
			return err
		}
		if attempt == c.opts.StorageRetries {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(c.opts.RetryBackoff * time.Duration(attempt)):
		}
	}
	return err
}

// Requeue re-runs a stored check from the recorded stage using its original
// raw text. Unknown ids return NotFoundError with nothing written. The
// requeued marker is appended by the attempt itself once it holds the check
// lock, so it never interleaves with an attempt already in flight.
func (c *Coordinator) Requeue(ctx context.Context, checkID string) error {
	check, err := c.store.GetCheck(ctx, checkID)
	if err != nil {
		return err
	}

	// Re-extraction starts from a clean slate; the duplicate decision is
	// re-evaluated against the current record set. Requeued checks always
	// record-and-flag on duplicates: there is no synchronous caller left to
	// hand a conflict to.
	check.ExtractedFields = models.ExtractedFields{}
	check.Resolved = models.ResolvedFields{}
	check.IsDuplicate = false
	check.DuplicateOf = ""
	check.Fingerprint = ""

	c.spawn(&job{check: check, botID: check.BotID, requeued: true})
	return nil
}
