package models

import "time"

// PipelineEvent is one immutable fact about a check's progress. Events are
// append-only and strictly ordered per check by Seq; no event is ever edited
// or deleted.
type PipelineEvent struct {
	EventID   string                 `json:"event_id"`
	CheckID   string                 `json:"check_id"`
	Seq       int64                  `json:"seq"`
	Stage     Stage                  `json:"stage"`
	Status    EventStatus            `json:"status"`
	Source    Source                 `json:"source"`
	Message   string                 `json:"message,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// QueueRow is a latest-event-per-check summary for the admin queue view.
type QueueRow struct {
	CheckID     string      `json:"check_id"`
	LastStage   Stage       `json:"last_stage"`
	LastStatus  EventStatus `json:"last_status"`
	Source      Source      `json:"source"`
	LastMessage string      `json:"last_message,omitempty"`
	LastTime    time.Time   `json:"last_time"`
	Datetime    time.Time   `json:"datetime"`
	Operator    string      `json:"operator"`
	Amount      string      `json:"amount"`
	Currency    string      `json:"currency"`
	CardLast4   string      `json:"card_last4"`
	IsDuplicate bool        `json:"is_duplicate"`
}

// QueueFilters narrows the admin queue listing.
type QueueFilters struct {
	OnlyErrors bool
	Source     Source // empty means all
	From       time.Time
	To         time.Time
	Query      string // matches check id, card last4 or operator
	Limit      int
	Offset     int
}

// StageCount is one row of the per-stage statistics breakdown.
type StageCount struct {
	Stage    Stage       `json:"stage"`
	Status   EventStatus `json:"status"`
	Count    int         `json:"count"`
	Earliest time.Time   `json:"earliest"`
	Latest   time.Time   `json:"latest"`
}
