package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worq1337/parcer-sub001/internal/checkerror"
	"github.com/worq1337/parcer-sub001/internal/dedup"
	"github.com/worq1337/parcer-sub001/internal/directory"
	"github.com/worq1337/parcer-sub001/internal/eventlog"
	"github.com/worq1337/parcer-sub001/internal/extractor"
	"github.com/worq1337/parcer-sub001/internal/hub"
	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/models"
	"github.com/worq1337/parcer-sub001/internal/storage"
)

type fakeClient struct {
	raw *extractor.RawExtraction
	err error
}

func (f *fakeClient) Extract(ctx context.Context, rawText string) (*extractor.RawExtraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func (f *fakeClient) Name() string { return "fake" }

// gatedClient parks its first Extract call until the test releases it, so the
// test can line up a second attempt behind an in-flight one.
type gatedClient struct {
	raw     *extractor.RawExtraction
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (g *gatedClient) Extract(ctx context.Context, rawText string) (*extractor.RawExtraction, error) {
	var first bool
	g.once.Do(func() {
		first = true
		close(g.entered)
	})
	if first {
		<-g.gate
	}
	return g.raw, nil
}

func (g *gatedClient) Name() string { return "gated" }

// namedClient counts its calls and stamps a recognizable operator.
type namedClient struct {
	name     string
	operator string
	calls    int32
}

func (n *namedClient) Extract(ctx context.Context, rawText string) (*extractor.RawExtraction, error) {
	atomic.AddInt32(&n.calls, 1)
	raw := goodExtraction()
	raw.Operator = n.operator
	return raw, nil
}

func (n *namedClient) Name() string { return n.name }

type testHarness struct {
	coordinator *Coordinator
	store       *storage.Storage
	client      *fakeClient
	registry    *extractor.Registry
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	logger := logging.NewMockLogger()
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "checks.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	client := &fakeClient{raw: goodExtraction()}
	registry := extractor.NewRegistry(client, logger)

	dir := directory.New([]models.OperatorEntry{
		{CanonicalName: "Yandex Go", AppName: "Yandex Go", Synonyms: []string{"YANDEX GO", "YANDEX.GO"}},
		{CanonicalName: "P2P HUMO", AppName: "Uzum Bank", IsP2P: true, Synonyms: []string{"perevod to HUMO"}},
	}, logger)

	recorder := eventlog.NewRecorder(store, hub.New(16, logger), logger)
	detector := dedup.NewDetector(store, 2*time.Minute, decimal.NewFromFloat(0.01), logger)

	coordinator := NewCoordinator(store, recorder, registry, dir, detector, Options{
		Concurrency:    2,
		ExtractTimeout: 5 * time.Second,
		StorageRetries: 2,
		RetryBackoff:   time.Millisecond,
	}, logger)

	return &testHarness{coordinator: coordinator, store: store, client: client, registry: registry}
}

func goodExtraction() *extractor.RawExtraction {
	income := false
	return &extractor.RawExtraction{
		Datetime:        "2025-04-06 14:05:00",
		TransactionType: extractor.TypePayment,
		Amount:          json.Number("15000.00"),
		IsIncome:        &income,
		Currency:        "UZS",
		CardLast4:       "1234",
		Operator:        "YANDEX GO",
	}
}

func indexOfStage(stages []models.Stage, stage models.Stage) int {
	for i, s := range stages {
		if s == stage {
			return i
		}
	}
	return -1
}

func stagesOf(events []models.PipelineEvent) []models.Stage {
	stages := make([]models.Stage, 0, len(events))
	for _, event := range events {
		stages = append(stages, event.Stage)
	}
	return stages
}

func TestIngest_BotHappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ids, err := h.coordinator.Ingest(ctx, models.SourceTelegramBot, "Оплата 15000 UZS YANDEX GO *1234", IngestOptions{})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	h.coordinator.Wait()

	check, err := h.store.GetCheck(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StageSaved, check.LastStage)
	assert.Equal(t, models.StatusOK, check.LastStatus)
	assert.Equal(t, "Yandex Go", check.Resolved.Operator)
	assert.Equal(t, "Yandex Go", check.Resolved.App)
	assert.True(t, check.Amount.Equal(decimal.RequireFromString("-15000")))
	assert.Equal(t, "1234", check.CardLast4)
	assert.False(t, check.IsDuplicate)
	assert.NotEmpty(t, check.Fingerprint)

	events, err := h.store.ListEventsByCheck(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, []models.Stage{
		models.StageReceived,
		models.StageRecorded,
		models.StageNormalized,
		models.StageDictionaryMatched,
		models.StageP2PFlagged,
		models.StageDuplicateChecked,
		models.StageSaved,
	}, stagesOf(events))
	for i, event := range events {
		assert.Equal(t, int64(i+1), event.Seq)
		assert.Equal(t, models.StatusOK, event.Status)
	}
}

func TestIngest_EmptyTextRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.coordinator.Ingest(context.Background(), models.SourceManual, "   \n\t ", IngestOptions{})
	var validationErr *checkerror.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "text", validationErr.Field)

	rows, total, err := h.store.ListQueue(context.Background(), models.QueueFilters{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, total)
}

func TestIngest_ExtractorErrorFailsParse(t *testing.T) {
	h := newHarness(t)
	h.client.err = &checkerror.ParseError{Source: "fake", Snippet: "garbage", Err: errors.New("no json")}
	ctx := context.Background()

	ids, err := h.coordinator.Ingest(ctx, models.SourceManual, "garbage text", IngestOptions{})
	require.Len(t, ids, 1)
	var parseErr *checkerror.ParseError
	require.ErrorAs(t, err, &parseErr)

	check, err := h.store.GetCheck(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StageFailedParse, check.LastStage)
	assert.Equal(t, models.StatusError, check.LastStatus)

	events, err := h.store.ListEventsByCheck(ctx, ids[0])
	require.NoError(t, err)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, models.StageFailedParse, last.Stage)
	assert.Equal(t, models.StatusError, last.Status)
}

func TestIngest_BadFieldFailsValidation(t *testing.T) {
	h := newHarness(t)
	raw := goodExtraction()
	raw.Amount = json.Number("0")
	h.client.raw = raw
	ctx := context.Background()

	ids, err := h.coordinator.Ingest(ctx, models.SourceManual, "Оплата 0 UZS", IngestOptions{})
	require.Len(t, ids, 1)
	var validationErr *checkerror.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "amount", validationErr.Field)

	check, err := h.store.GetCheck(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StageFailedValidation, check.LastStage)
}

func TestIngest_MissingFieldFailsParse(t *testing.T) {
	h := newHarness(t)
	raw := goodExtraction()
	raw.Operator = ""
	h.client.raw = raw
	ctx := context.Background()

	ids, err := h.coordinator.Ingest(ctx, models.SourceManual, "Оплата 15000 UZS", IngestOptions{})
	require.Len(t, ids, 1)
	require.Error(t, err)

	check, err := h.store.GetCheck(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StageFailedParse, check.LastStage)
}

func TestIngest_ManualDuplicateConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	firstIDs, err := h.coordinator.Ingest(ctx, models.SourceManual, "Оплата 15000 UZS YANDEX GO *1234", IngestOptions{})
	require.NoError(t, err)
	require.Len(t, firstIDs, 1)

	secondIDs, err := h.coordinator.Ingest(ctx, models.SourceManual, "Оплата 15000 UZS YANDEX GO *1234", IngestOptions{})
	require.Len(t, secondIDs, 1)
	var dupErr *checkerror.DuplicateError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, firstIDs[0], dupErr.CheckID)
	assert.Equal(t, secondIDs[0], dupErr.CandidateID)

	// The original stays saved and unflagged.
	original, err := h.store.GetCheck(ctx, firstIDs[0])
	require.NoError(t, err)
	assert.Equal(t, models.StageSaved, original.LastStage)
	assert.False(t, original.IsDuplicate)

	// The rejected candidate carries the trail but no saved event.
	candidate, err := h.store.GetCheck(ctx, secondIDs[0])
	require.NoError(t, err)
	assert.Equal(t, models.StageFailedValidation, candidate.LastStage)
	assert.Equal(t, models.StatusError, candidate.LastStatus)

	events, err := h.store.ListEventsByCheck(ctx, secondIDs[0])
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, models.StageFailedValidation, events[len(events)-1].Stage)
	assert.Equal(t, firstIDs[0], events[len(events)-1].Payload["duplicate_of"])
}

func TestIngest_BotDuplicateRecordedAndFlagged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	firstIDs, err := h.coordinator.Ingest(ctx, models.SourceTelegramBot, "Оплата 15000 UZS YANDEX GO *1234", IngestOptions{})
	require.NoError(t, err)
	h.coordinator.Wait()

	secondIDs, err := h.coordinator.Ingest(ctx, models.SourceTelegramBot, "Оплата 15000 UZS YANDEX GO *1234", IngestOptions{})
	require.NoError(t, err)
	h.coordinator.Wait()

	duplicate, err := h.store.GetCheck(ctx, secondIDs[0])
	require.NoError(t, err)
	assert.Equal(t, models.StageSaved, duplicate.LastStage)
	assert.True(t, duplicate.IsDuplicate)
	assert.Equal(t, firstIDs[0], duplicate.DuplicateOf)

	events, err := h.store.ListEventsByCheck(ctx, secondIDs[0])
	require.NoError(t, err)
	stages := stagesOf(events)
	assert.Contains(t, stages, models.StageDuplicateDetected)
	assert.Equal(t, models.StageSaved, stages[len(stages)-1])
}

func TestIngest_SMSMultiOperation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	text := "Spisanie, karta *1234: 15000.00 UZS, YANDEX GO. Dostupno: 120000.00 UZS\n" +
		"Popolnenie ot AKMAL T. na 50000.00 UZS, karta *5678. Dostupno: 170000.00 UZS"
	ids, err := h.coordinator.Ingest(ctx, models.SourceSMS, text, IngestOptions{})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	h.coordinator.Wait()

	debit, err := h.store.GetCheck(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StageSaved, debit.LastStage)
	assert.True(t, debit.Amount.IsNegative())
	assert.Equal(t, "1234", debit.CardLast4)
	assert.Equal(t, "Yandex Go", debit.Resolved.Operator)

	credit, err := h.store.GetCheck(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, models.StageSaved, credit.LastStage)
	assert.True(t, credit.Amount.IsPositive())
	assert.Equal(t, "5678", credit.CardLast4)
	assert.Equal(t, "Uzum Bank", credit.Resolved.App)
}

func TestIngest_ConcurrentChecksAllSave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Four operations, four background attempts hammering the store at once.
	text := "Spisanie, karta *1111: 1000.00 UZS, YANDEX GO. Dostupno: 90000.00 UZS\n" +
		"Spisanie, karta *2222: 2000.00 UZS, YANDEX GO. Dostupno: 80000.00 UZS\n" +
		"Spisanie, karta *3333: 3000.00 UZS, YANDEX GO. Dostupno: 70000.00 UZS\n" +
		"Spisanie, karta *4444: 4000.00 UZS, YANDEX GO. Dostupno: 60000.00 UZS"
	ids, err := h.coordinator.Ingest(ctx, models.SourceSMS, text, IngestOptions{})
	require.NoError(t, err)
	require.Len(t, ids, 4)
	h.coordinator.Wait()

	for _, id := range ids {
		check, err := h.store.GetCheck(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StageSaved, check.LastStage)
		assert.Equal(t, models.StatusOK, check.LastStatus)

		events, err := h.store.ListEventsByCheck(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []models.Stage{
			models.StageReceived,
			models.StageRecorded,
			models.StageNormalized,
			models.StageDictionaryMatched,
			models.StageP2PFlagged,
			models.StageDuplicateChecked,
			models.StageSaved,
		}, stagesOf(events))
	}
}

func TestIngest_ManualOverrides(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	when := time.Date(2025, 4, 7, 9, 30, 0, 0, time.UTC)
	amount := decimal.RequireFromString("42000")
	p2p := true
	ids, err := h.coordinator.Ingest(ctx, models.SourceManual, "Оплата 15000 UZS YANDEX GO *1234", IngestOptions{
		Overrides: &models.ManualOverrides{
			Datetime:  &when,
			Amount:    &amount,
			Currency:  "usd",
			CardLast4: "*9999",
			Operator:  "Custom Shop",
			IsP2P:     &p2p,
		},
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	check, err := h.store.GetCheck(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, check.Datetime.Equal(when))
	assert.True(t, check.Amount.Equal(amount))
	assert.Equal(t, "usd", check.Currency)
	assert.Equal(t, "9999", check.CardLast4)
	assert.Equal(t, "Custom Shop", check.Operator)
	assert.True(t, check.Resolved.IsP2P)
}

func TestIngest_UnknownOperatorNameHintsP2P(t *testing.T) {
	h := newHarness(t)
	raw := goodExtraction()
	raw.Operator = "ANORBANK P2P TRANSFER"
	h.client.raw = raw
	ctx := context.Background()

	ids, err := h.coordinator.Ingest(ctx, models.SourceManual, "Перевод 15000 UZS ANORBANK P2P *1234", IngestOptions{})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	check, err := h.store.GetCheck(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StageSaved, check.LastStage)
	// No directory entry matched, yet the operator name alone marks it P2P.
	assert.Empty(t, check.Resolved.Operator)
	assert.True(t, check.Resolved.IsP2P)
}

func TestRequeue_UnknownCheck(t *testing.T) {
	h := newHarness(t)

	err := h.coordinator.Requeue(context.Background(), "does-not-exist")
	var notFound *checkerror.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRequeue_RerunsPipeline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.client.err = &checkerror.ParseError{Source: "fake", Snippet: "x", Err: errors.New("transient")}
	ids, err := h.coordinator.Ingest(ctx, models.SourceManual, "Оплата 15000 UZS YANDEX GO *1234", IngestOptions{})
	require.Len(t, ids, 1)
	require.Error(t, err)

	h.client.err = nil
	require.NoError(t, h.coordinator.Requeue(ctx, ids[0]))
	h.coordinator.Wait()

	check, err := h.store.GetCheck(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StageSaved, check.LastStage)
	assert.Equal(t, models.StatusOK, check.LastStatus)
	firstFingerprint := check.Fingerprint
	assert.NotEmpty(t, firstFingerprint)

	events, err := h.store.ListEventsByCheck(ctx, ids[0])
	require.NoError(t, err)
	stages := stagesOf(events)
	assert.Contains(t, stages, models.StageFailedParse)
	assert.Contains(t, stages, models.StageRequeued)
	assert.Equal(t, models.StageSaved, stages[len(stages)-1])

	// A second requeue re-extracts the same raw text and must land on the
	// same fingerprint.
	require.NoError(t, h.coordinator.Requeue(ctx, ids[0]))
	h.coordinator.Wait()
	check, err = h.store.GetCheck(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, firstFingerprint, check.Fingerprint)
	assert.Equal(t, models.StageSaved, check.LastStage)
}

func TestRequeue_WaitsForInFlightAttempt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gated := &gatedClient{raw: goodExtraction(), entered: make(chan struct{}), gate: make(chan struct{})}
	h.registry.Register("slow-bot", gated)

	ids, err := h.coordinator.Ingest(ctx, models.SourceTelegramBot, "Оплата 15000 UZS YANDEX GO *1234", IngestOptions{BotID: "slow-bot"})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	// The first attempt is parked inside extraction when the requeue arrives.
	<-gated.entered
	require.NoError(t, h.coordinator.Requeue(ctx, ids[0]))
	close(gated.gate)
	h.coordinator.Wait()

	events, err := h.store.ListEventsByCheck(ctx, ids[0])
	require.NoError(t, err)
	stages := stagesOf(events)

	savedAt := indexOfStage(stages, models.StageSaved)
	requeuedAt := indexOfStage(stages, models.StageRequeued)
	require.GreaterOrEqual(t, savedAt, 0)
	require.GreaterOrEqual(t, requeuedAt, 0)
	// The requeued marker must land after the first attempt's terminal event,
	// never in the middle of its timeline.
	assert.Greater(t, requeuedAt, savedAt)
	assert.Equal(t, models.StageSaved, stages[len(stages)-1])
}

func TestRequeue_KeepsBotClient(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	botClient := &namedClient{name: "bot-a", operator: "BOT A SHOP"}
	h.registry.Register("bot-a", botClient)

	ids, err := h.coordinator.Ingest(ctx, models.SourceTelegramBot, "Оплата 15000 UZS BOT A SHOP *1234", IngestOptions{BotID: "bot-a"})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	h.coordinator.Wait()

	check, err := h.store.GetCheck(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "bot-a", check.BotID)
	assert.Equal(t, "BOT A SHOP", check.Operator)

	// The re-run must go back to the registered bot client, not the fallback.
	require.NoError(t, h.coordinator.Requeue(ctx, ids[0]))
	h.coordinator.Wait()

	check, err = h.store.GetCheck(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StageSaved, check.LastStage)
	assert.Equal(t, "BOT A SHOP", check.Operator)
	assert.EqualValues(t, 2, atomic.LoadInt32(&botClient.calls))
}

func TestClassifyExtractError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.Stage
	}{
		{
			name: "missing field is a parse failure",
			err:  &checkerror.ValidationError{Field: "operator", Reason: "missing"},
			want: models.StageFailedParse,
		},
		{
			name: "unusable value is a validation failure",
			err:  &checkerror.ValidationError{Field: "amount", Value: "abc", Reason: "not a number"},
			want: models.StageFailedValidation,
		},
		{
			name: "parse error",
			err:  &checkerror.ParseError{Source: "fake", Err: errors.New("no json")},
			want: models.StageFailedParse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyExtractError(tt.err))
		})
	}
}
