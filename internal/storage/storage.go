// Package storage is the durable owner of check and pipeline event records.
// It is backed by SQLite with WAL mode; all writes for one check go through
// the pipeline's per-check lock, so the store itself only needs transaction
// boundaries, not row locking.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/worq1337/parcer-sub001/internal/checkerror"
	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/models"
)

// ErrFingerprintConflict reports that an insert or update collided with the
// unique fingerprint index. The coordinator maps this to a duplicate
// decision, never to a storage failure.
var ErrFingerprintConflict = errors.New("fingerprint already exists")

// Storage wraps the SQLite database.
type Storage struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if needed) the database at path and initializes the
// schema. Pass ":memory:" for an ephemeral store in tests.
func Open(ctx context.Context, path string, logger logging.Logger) (*Storage, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &checkerror.StorageError{Op: "open", Err: err}
	}

	// A single connection serializes writers. SQLite allows one writer at a
	// time anyway, and appendEventTx starts its transaction with a read (the
	// next seq) before writing; two connections doing that concurrently
	// deadlock into SQLITE_BUSY on the read-to-write upgrade.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &checkerror.StorageError{Op: "open", Err: err}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, &checkerror.StorageError{Op: "open", Err: err}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, &checkerror.StorageError{Op: "open", Err: err}
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, &checkerror.StorageError{Op: "init schema", Err: err}
	}

	return &Storage{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS checks (
	check_id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	raw_text TEXT NOT NULL,
	bot_id TEXT NOT NULL DEFAULT '',
	datetime TEXT,
	amount TEXT,
	currency TEXT,
	card_last4 TEXT,
	operator TEXT,
	transaction_type TEXT,
	balance TEXT,
	resolved_operator TEXT,
	app TEXT,
	is_p2p INTEGER NOT NULL DEFAULT 0,
	is_duplicate INTEGER NOT NULL DEFAULT 0,
	duplicate_of TEXT,
	fingerprint TEXT,
	last_stage TEXT NOT NULL,
	last_status TEXT NOT NULL,
	last_message TEXT,
	last_event_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_checks_fingerprint_unique
	ON checks(fingerprint)
	WHERE fingerprint != '' AND is_duplicate = 0;

CREATE INDEX IF NOT EXISTS idx_checks_card_datetime ON checks(card_last4, datetime);

CREATE TABLE IF NOT EXISTS queue_events (
	event_id TEXT PRIMARY KEY,
	check_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	stage TEXT NOT NULL,
	status TEXT NOT NULL,
	source TEXT NOT NULL,
	message TEXT,
	payload TEXT,
	created_at TEXT NOT NULL,
	UNIQUE(check_id, seq),
	FOREIGN KEY(check_id) REFERENCES checks(check_id)
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// timeLayout keeps the fractional seconds fixed-width so stored timestamps
// compare lexicographically in SQL (RFC3339Nano trims trailing zeros, which
// would sort "…05Z" after "…05.5Z").
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func decodeTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateCheck inserts a new check row. The caller owns CheckID assignment.
func (s *Storage) CreateCheck(ctx context.Context, check *models.CheckItem) error {
	now := time.Now()
	if check.CreatedAt.IsZero() {
		check.CreatedAt = now
	}
	check.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checks (
			check_id, source, raw_text, bot_id, datetime, amount, currency, card_last4,
			operator, transaction_type, balance, resolved_operator, app,
			is_p2p, is_duplicate, duplicate_of, fingerprint,
			last_stage, last_status, last_message, last_event_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		check.CheckID, string(check.Source), check.RawText, check.BotID,
		encodeTime(check.Datetime), amountString(check.Amount), check.Currency,
		check.CardLast4, check.Operator, check.TransactionType,
		balanceString(check.Balance), check.Resolved.Operator, check.Resolved.App,
		boolInt(check.Resolved.IsP2P), boolInt(check.IsDuplicate), check.DuplicateOf,
		check.Fingerprint, string(check.LastStage), string(check.LastStatus),
		"", "", encodeTime(check.CreatedAt), encodeTime(check.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraint(err) && check.Fingerprint != "" {
			return ErrFingerprintConflict
		}
		return &checkerror.StorageError{Op: "insert check", Err: err}
	}
	return nil
}

// UpdateCheck rewrites the mutable columns of an existing check. RawText,
// Source and CreatedAt are intentionally not updatable.
func (s *Storage) UpdateCheck(ctx context.Context, check *models.CheckItem) error {
	return s.updateCheck(ctx, s.db, check)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *Storage) updateCheck(ctx context.Context, db execer, check *models.CheckItem) error {
	check.UpdatedAt = time.Now()
	res, err := db.ExecContext(ctx, `
		UPDATE checks SET
			datetime = ?, amount = ?, currency = ?, card_last4 = ?,
			operator = ?, transaction_type = ?, balance = ?,
			resolved_operator = ?, app = ?, is_p2p = ?,
			is_duplicate = ?, duplicate_of = ?, fingerprint = ?,
			last_stage = ?, last_status = ?, updated_at = ?
		WHERE check_id = ?`,
		encodeTime(check.Datetime), amountString(check.Amount), check.Currency,
		check.CardLast4, check.Operator, check.TransactionType,
		balanceString(check.Balance), check.Resolved.Operator, check.Resolved.App,
		boolInt(check.Resolved.IsP2P), boolInt(check.IsDuplicate), check.DuplicateOf,
		check.Fingerprint, string(check.LastStage), string(check.LastStatus),
		encodeTime(check.UpdatedAt), check.CheckID,
	)
	if err != nil {
		if isUniqueConstraint(err) && check.Fingerprint != "" {
			return ErrFingerprintConflict
		}
		return &checkerror.StorageError{Op: "update check", Err: err}
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return &checkerror.NotFoundError{CheckID: check.CheckID}
	}
	return nil
}

// GetCheck returns the check with the given id, or NotFoundError.
func (s *Storage) GetCheck(ctx context.Context, checkID string) (*models.CheckItem, error) {
	row := s.db.QueryRowContext(ctx, selectCheckColumns+" WHERE check_id = ?", checkID)
	check, err := scanCheck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &checkerror.NotFoundError{CheckID: checkID}
	}
	if err != nil {
		return nil, &checkerror.StorageError{Op: "select check", Err: err}
	}
	return check, nil
}

// FindByFingerprint returns the non-duplicate check carrying the given
// fingerprint, or nil when none exists.
func (s *Storage) FindByFingerprint(ctx context.Context, fp string) (*models.CheckItem, error) {
	if fp == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		selectCheckColumns+" WHERE fingerprint = ? AND is_duplicate = 0 LIMIT 1", fp)
	check, err := scanCheck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &checkerror.StorageError{Op: "select by fingerprint", Err: err}
	}
	return check, nil
}

// ListCandidates returns the non-duplicate checks on the given card whose
// datetime lies inside [from, to], excluding excludeID. The duplicate
// detector applies the amount and operator comparisons on top.
func (s *Storage) ListCandidates(ctx context.Context, cardLast4 string, from, to time.Time, excludeID string) ([]*models.CheckItem, error) {
	rows, err := s.db.QueryContext(ctx,
		selectCheckColumns+` WHERE card_last4 = ? AND is_duplicate = 0
			AND datetime >= ? AND datetime <= ? AND check_id != ?
			ORDER BY datetime ASC`,
		cardLast4, encodeTime(from), encodeTime(to), excludeID)
	if err != nil {
		return nil, &checkerror.StorageError{Op: "select candidates", Err: err}
	}
	defer rows.Close()

	var checks []*models.CheckItem
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, &checkerror.StorageError{Op: "scan candidate", Err: err}
		}
		checks = append(checks, check)
	}
	return checks, rows.Err()
}

// AppendEvent inserts a pipeline event with the next per-check sequence
// number and mirrors the latest stage onto the check row, all in one
// transaction. Events are never updated or deleted.
func (s *Storage) AppendEvent(ctx context.Context, event *models.PipelineEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &checkerror.StorageError{Op: "begin append", Err: err}
	}
	defer tx.Rollback()

	if err := s.appendEventTx(ctx, tx, event); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &checkerror.StorageError{Op: "commit append", Err: err}
	}
	return nil
}

func (s *Storage) appendEventTx(ctx context.Context, tx *sql.Tx, event *models.PipelineEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	row := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM queue_events WHERE check_id = ?",
		event.CheckID)
	if err := row.Scan(&event.Seq); err != nil {
		return &checkerror.StorageError{Op: "next seq", Err: err}
	}

	var payload string
	if event.Payload != nil {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			return &checkerror.StorageError{Op: "encode payload", Err: err}
		}
		payload = string(data)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO queue_events (event_id, check_id, seq, stage, status, source, message, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventID, event.CheckID, event.Seq, string(event.Stage),
		string(event.Status), string(event.Source), event.Message, payload,
		encodeTime(event.CreatedAt),
	); err != nil {
		return &checkerror.StorageError{Op: "insert event", Err: err}
	}

	// Mirror the latest event onto the check row so queue listing never has
	// to scan history.
	if _, err := tx.ExecContext(ctx, `
		UPDATE checks SET last_stage = ?, last_status = ?, last_message = ?, last_event_at = ?, updated_at = ?
		WHERE check_id = ?`,
		string(event.Stage), string(event.Status), event.Message,
		encodeTime(event.CreatedAt), encodeTime(time.Now()), event.CheckID,
	); err != nil {
		return &checkerror.StorageError{Op: "mirror last stage", Err: err}
	}

	return nil
}

// SaveCheckWithEvent persists the final check state and its terminal event in
// the same unit of work: both succeed or both fail.
func (s *Storage) SaveCheckWithEvent(ctx context.Context, check *models.CheckItem, event *models.PipelineEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &checkerror.StorageError{Op: "begin save", Err: err}
	}
	defer tx.Rollback()

	if err := s.updateCheck(ctx, tx, check); err != nil {
		return err
	}
	if err := s.appendEventTx(ctx, tx, event); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if isUniqueConstraint(err) && check.Fingerprint != "" {
			return ErrFingerprintConflict
		}
		return &checkerror.StorageError{Op: "commit save", Err: err}
	}
	return nil
}

// ListEventsByCheck returns the full timeline for one check, oldest first.
func (s *Storage) ListEventsByCheck(ctx context.Context, checkID string) ([]models.PipelineEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, check_id, seq, stage, status, source, message, payload, created_at
		FROM queue_events WHERE check_id = ? ORDER BY seq ASC`, checkID)
	if err != nil {
		return nil, &checkerror.StorageError{Op: "select events", Err: err}
	}
	defer rows.Close()

	var events []models.PipelineEvent
	for rows.Next() {
		var (
			event      models.PipelineEvent
			payloadRaw sql.NullString
			createdRaw string
			stage      string
			status     string
			source     string
		)
		if err := rows.Scan(&event.EventID, &event.CheckID, &event.Seq, &stage,
			&status, &source, &event.Message, &payloadRaw, &createdRaw); err != nil {
			return nil, &checkerror.StorageError{Op: "scan event", Err: err}
		}
		event.Stage = models.Stage(stage)
		event.Status = models.EventStatus(status)
		event.Source = models.Source(source)
		event.CreatedAt = decodeTime(createdRaw)
		if payloadRaw.Valid && payloadRaw.String != "" {
			if err := json.Unmarshal([]byte(payloadRaw.String), &event.Payload); err != nil {
				s.logger.WithError(err).WithField(logging.FieldCheckID, checkID).
					Warn("Skipping malformed event payload")
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// ListQueue returns the admin queue rows matching the filters, plus the
// total count before pagination. It reads only the denormalized columns on
// checks; the event history is never scanned here.
func (s *Storage) ListQueue(ctx context.Context, filters models.QueueFilters) ([]models.QueueRow, int, error) {
	where := "WHERE 1=1"
	var args []interface{}

	if filters.OnlyErrors {
		where += " AND last_status = 'error'"
	}
	if filters.Source != "" {
		where += " AND source = ?"
		args = append(args, string(filters.Source))
	}
	if !filters.From.IsZero() {
		where += " AND last_event_at >= ?"
		args = append(args, encodeTime(filters.From))
	}
	if !filters.To.IsZero() {
		where += " AND last_event_at <= ?"
		args = append(args, encodeTime(filters.To))
	}
	if filters.Query != "" {
		where += " AND (check_id LIKE ? OR card_last4 LIKE ? OR operator LIKE ?)"
		pattern := "%" + filters.Query + "%"
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	countArgs := make([]interface{}, len(args))
	copy(countArgs, args)
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM checks "+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, &checkerror.StorageError{Op: "count queue", Err: err}
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 200
	}
	query := fmt.Sprintf(`
		SELECT check_id, last_stage, last_status, source, last_message, last_event_at,
			datetime, operator, amount, currency, card_last4, is_duplicate
		FROM checks %s ORDER BY last_event_at DESC LIMIT ? OFFSET ?`, where)
	args = append(args, limit, filters.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, &checkerror.StorageError{Op: "select queue", Err: err}
	}
	defer rows.Close()

	var result []models.QueueRow
	for rows.Next() {
		var (
			row                       models.QueueRow
			stage, status, source     string
			lastMessage               sql.NullString
			lastEventRaw, datetimeRaw sql.NullString
			amount                    sql.NullString
			isDuplicate               int
		)
		if err := rows.Scan(&row.CheckID, &stage, &status, &source, &lastMessage,
			&lastEventRaw, &datetimeRaw, &row.Operator, &amount, &row.Currency,
			&row.CardLast4, &isDuplicate); err != nil {
			return nil, 0, &checkerror.StorageError{Op: "scan queue row", Err: err}
		}
		row.LastStage = models.Stage(stage)
		row.LastStatus = models.EventStatus(status)
		row.Source = models.Source(source)
		row.LastMessage = lastMessage.String
		row.LastTime = decodeTime(lastEventRaw.String)
		row.Datetime = decodeTime(datetimeRaw.String)
		row.Amount = amount.String
		row.IsDuplicate = isDuplicate != 0
		result = append(result, row)
	}
	return result, total, rows.Err()
}

// CheckFilters narrows the register listing.
type CheckFilters struct {
	From      time.Time
	To        time.Time
	CardLast4 string
	Operator  string
	App       string
	IsP2P     *bool
	Limit     int
	Offset    int
}

// ListChecks returns register rows ordered oldest first, matching the grid's
// chronological numbering.
func (s *Storage) ListChecks(ctx context.Context, filters CheckFilters) ([]*models.CheckItem, error) {
	where := "WHERE 1=1"
	var args []interface{}

	if !filters.From.IsZero() {
		where += " AND datetime >= ?"
		args = append(args, encodeTime(filters.From))
	}
	if !filters.To.IsZero() {
		where += " AND datetime <= ?"
		args = append(args, encodeTime(filters.To))
	}
	if filters.CardLast4 != "" {
		where += " AND card_last4 = ?"
		args = append(args, filters.CardLast4)
	}
	if filters.Operator != "" {
		where += " AND operator LIKE ?"
		args = append(args, "%"+filters.Operator+"%")
	}
	if filters.App != "" {
		where += " AND app = ?"
		args = append(args, filters.App)
	}
	if filters.IsP2P != nil {
		where += " AND is_p2p = ?"
		args = append(args, boolInt(*filters.IsP2P))
	}

	query := selectCheckColumns + " " + where + " ORDER BY datetime ASC"
	if filters.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filters.Limit, filters.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &checkerror.StorageError{Op: "select checks", Err: err}
	}
	defer rows.Close()

	var checks []*models.CheckItem
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, &checkerror.StorageError{Op: "scan check", Err: err}
		}
		checks = append(checks, check)
	}
	return checks, rows.Err()
}

// Stats returns event counts grouped by stage and status for the admin
// dashboard.
func (s *Storage) Stats(ctx context.Context, from, to time.Time) ([]models.StageCount, error) {
	where := "WHERE 1=1"
	var args []interface{}
	if !from.IsZero() {
		where += " AND created_at >= ?"
		args = append(args, encodeTime(from))
	}
	if !to.IsZero() {
		where += " AND created_at <= ?"
		args = append(args, encodeTime(to))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, status, COUNT(*), MIN(created_at), MAX(created_at)
		FROM queue_events `+where+`
		GROUP BY stage, status ORDER BY stage, status`, args...)
	if err != nil {
		return nil, &checkerror.StorageError{Op: "select stats", Err: err}
	}
	defer rows.Close()

	var stats []models.StageCount
	for rows.Next() {
		var (
			stat             models.StageCount
			stage, status    string
			earliest, latest string
		)
		if err := rows.Scan(&stage, &status, &stat.Count, &earliest, &latest); err != nil {
			return nil, &checkerror.StorageError{Op: "scan stats", Err: err}
		}
		stat.Stage = models.Stage(stage)
		stat.Status = models.EventStatus(status)
		stat.Earliest = decodeTime(earliest)
		stat.Latest = decodeTime(latest)
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// QueueLength returns the number of checks still mid-pipeline.
func (s *Storage) QueueLength(ctx context.Context) (int, error) {
	var length int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM checks
		WHERE last_stage NOT IN ('saved', 'failed_parse', 'failed_validation', 'failed_db')`).
		Scan(&length)
	if err != nil {
		return 0, &checkerror.StorageError{Op: "queue length", Err: err}
	}
	return length, nil
}

// ErrorCount returns the number of checks whose latest status is error.
func (s *Storage) ErrorCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM checks WHERE last_status = 'error'").Scan(&count)
	if err != nil {
		return 0, &checkerror.StorageError{Op: "error count", Err: err}
	}
	return count, nil
}

const selectCheckColumns = `
	SELECT check_id, source, raw_text, bot_id, datetime, amount, currency, card_last4,
		operator, transaction_type, balance, resolved_operator, app,
		is_p2p, is_duplicate, duplicate_of, fingerprint,
		last_stage, last_status, created_at, updated_at
	FROM checks`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCheck(row rowScanner) (*models.CheckItem, error) {
	var (
		check                  models.CheckItem
		source, stage, status  string
		datetimeRaw, amountRaw sql.NullString
		balanceRaw             sql.NullString
		isP2P, isDuplicate     int
		createdRaw, updatedRaw string
	)
	err := row.Scan(&check.CheckID, &source, &check.RawText, &check.BotID, &datetimeRaw,
		&amountRaw, &check.Currency, &check.CardLast4, &check.Operator,
		&check.TransactionType, &balanceRaw, &check.Resolved.Operator,
		&check.Resolved.App, &isP2P, &isDuplicate, &check.DuplicateOf,
		&check.Fingerprint, &stage, &status, &createdRaw, &updatedRaw)
	if err != nil {
		return nil, err
	}

	check.Source = models.Source(source)
	check.LastStage = models.Stage(stage)
	check.LastStatus = models.EventStatus(status)
	check.Datetime = decodeTime(datetimeRaw.String)
	check.CreatedAt = decodeTime(createdRaw)
	check.UpdatedAt = decodeTime(updatedRaw)
	check.Resolved.IsP2P = isP2P != 0
	check.IsDuplicate = isDuplicate != 0

	if amountRaw.Valid && amountRaw.String != "" {
		amount, err := decimal.NewFromString(amountRaw.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount for check %s: %w", check.CheckID, err)
		}
		check.Amount = amount
	}
	if balanceRaw.Valid && balanceRaw.String != "" {
		balance, err := decimal.NewFromString(balanceRaw.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt balance for check %s: %w", check.CheckID, err)
		}
		check.Balance = &balance
	}

	return &check, nil
}

func amountString(amount decimal.Decimal) string {
	return amount.String()
}

func balanceString(balance *decimal.Decimal) string {
	if balance == nil {
		return ""
	}
	return balance.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
