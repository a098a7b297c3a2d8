package models

// Stage is a named point in the check processing state machine.
type Stage string

const (
	StageReceived          Stage = "received"
	StageRecorded          Stage = "recorded"
	StageNormalized        Stage = "normalized"
	StageDictionaryMatched Stage = "dictionary_matched"
	StageP2PFlagged        Stage = "p2p_flagged"
	StageDuplicateChecked  Stage = "duplicate_checked"
	StageSaved             Stage = "saved"
	StageFailedParse       Stage = "failed_parse"
	StageFailedValidation  Stage = "failed_validation"
	StageFailedDB          Stage = "failed_db"
	StageRequeued          Stage = "requeued"

	// StageDuplicateDetected is a side event emitted alongside saved when a
	// bot-path candidate was recorded and flagged as a duplicate.
	StageDuplicateDetected Stage = "duplicate_detected"
)

// Terminal reports whether the stage ends a pipeline attempt.
func (s Stage) Terminal() bool {
	switch s {
	case StageSaved, StageFailedParse, StageFailedValidation, StageFailedDB:
		return true
	}
	return false
}

// Failed reports whether the stage is a terminal failure.
func (s Stage) Failed() bool {
	switch s {
	case StageFailedParse, StageFailedValidation, StageFailedDB:
		return true
	}
	return false
}

// EventStatus is the outcome recorded on a pipeline event.
type EventStatus string

const (
	StatusOK    EventStatus = "ok"
	StatusError EventStatus = "error"
)
