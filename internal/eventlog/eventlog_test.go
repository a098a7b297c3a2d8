package eventlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worq1337/parcer-sub001/internal/hub"
	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/models"
	"github.com/worq1337/parcer-sub001/internal/storage"
)

func testRecorder(t *testing.T) (*Recorder, *storage.Storage, *hub.Hub) {
	t.Helper()
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "events.db"), logging.NewMockLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	eventHub := hub.New(16, logging.NewMockLogger())
	return NewRecorder(store, eventHub, logging.NewMockLogger()), store, eventHub
}

func storedCheck(t *testing.T, store *storage.Storage) *models.CheckItem {
	t.Helper()
	check := &models.CheckItem{
		CheckID:    uuid.NewString(),
		Source:     models.SourceTelegramBot,
		RawText:    "raw",
		LastStage:  models.StageReceived,
		LastStatus: models.StatusOK,
	}
	require.NoError(t, store.CreateCheck(context.Background(), check))
	return check
}

func TestRecord_AppendsAndBroadcasts(t *testing.T) {
	recorder, store, eventHub := testRecorder(t)
	check := storedCheck(t, store)

	events, cancel := eventHub.Subscribe()
	defer cancel()

	event, err := recorder.Record(context.Background(), check, models.StageReceived, models.StatusOK, "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), event.Seq)

	select {
	case broadcast := <-events:
		assert.Equal(t, hub.EventCheckReceived, broadcast.Type)
		assert.Equal(t, check.CheckID, broadcast.CheckID)
	case <-time.After(time.Second):
		t.Fatal("no broadcast")
	}

	stored, err := recorder.ListByCheck(context.Background(), check.CheckID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.StageReceived, stored[0].Stage)
}

func TestRecord_IntermediateStagesAreNotBroadcast(t *testing.T) {
	recorder, store, eventHub := testRecorder(t)
	check := storedCheck(t, store)

	events, cancel := eventHub.Subscribe()
	defer cancel()

	for _, stage := range []models.Stage{models.StageRecorded, models.StageDictionaryMatched,
		models.StageP2PFlagged, models.StageDuplicateChecked, models.StageRequeued} {
		_, err := recorder.Record(context.Background(), check, stage, models.StatusOK, "", nil)
		require.NoError(t, err)
	}

	select {
	case event := <-events:
		t.Fatalf("unexpected broadcast for stage %s", event.Stage)
	default:
	}
}

func TestBroadcastTypeMapping(t *testing.T) {
	tests := []struct {
		stage    models.Stage
		expected string
		sent     bool
	}{
		{models.StageReceived, hub.EventCheckReceived, true},
		{models.StageNormalized, hub.EventCheckParsed, true},
		{models.StageSaved, hub.EventCheckSaved, true},
		{models.StageDuplicateDetected, hub.EventDuplicateDetected, true},
		{models.StageFailedParse, hub.EventCheckFailed, true},
		{models.StageFailedValidation, hub.EventCheckFailed, true},
		{models.StageFailedDB, hub.EventCheckFailed, true},
		{models.StageRecorded, "", false},
		{models.StageDuplicateChecked, "", false},
	}

	for _, tc := range tests {
		t.Run(string(tc.stage), func(t *testing.T) {
			broadcastType, ok := broadcastTypeFor(tc.stage)
			assert.Equal(t, tc.sent, ok)
			assert.Equal(t, tc.expected, broadcastType)
		})
	}
}

func TestRecord_PayloadRoundTrip(t *testing.T) {
	recorder, store, _ := testRecorder(t)
	check := storedCheck(t, store)

	_, err := recorder.Record(context.Background(), check, models.StageNormalized, models.StatusOK, "parsed", map[string]interface{}{
		"operator": "YANDEX GO",
		"amount":   "-15000",
	})
	require.NoError(t, err)

	events, err := recorder.ListByCheck(context.Background(), check.CheckID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "YANDEX GO", events[0].Payload["operator"])
	assert.Equal(t, "parsed", events[0].Message)
}
