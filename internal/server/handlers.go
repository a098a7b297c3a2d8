package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worq1337/parcer-sub001/internal/checkerror"
	"github.com/worq1337/parcer-sub001/internal/dateutils"
	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/models"
	"github.com/worq1337/parcer-sub001/internal/pipeline"
	"github.com/worq1337/parcer-sub001/internal/storage"
)

type ingestRequest struct {
	Source string `json:"source"`
	Text   string `json:"text"`
	BotID  string `json:"bot_id,omitempty"`

	// Manual entry overrides.
	Datetime  string `json:"datetime,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Currency  string `json:"currency,omitempty"`
	CardLast4 string `json:"card_last4,omitempty"`
	Operator  string `json:"operator,omitempty"`
	IsP2P     *bool  `json:"is_p2p,omitempty"`
}

func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	overrides, err := req.overrides()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	source := models.NormalizeSource(req.Source)
	ids, err := s.coordinator.Ingest(r.Context(), source, req.Text, pipeline.IngestOptions{
		BotID:     req.BotID,
		Overrides: overrides,
	})
	if err != nil {
		s.writeIngestError(w, err)
		return
	}

	response := map[string]interface{}{"check_id": ids[0]}
	if len(ids) > 1 {
		response["check_ids"] = ids
	}
	writeJSON(w, http.StatusCreated, response)
}

func (r *ingestRequest) overrides() (*models.ManualOverrides, error) {
	if r.Datetime == "" && r.Amount == "" && r.Currency == "" &&
		r.CardLast4 == "" && r.Operator == "" && r.IsP2P == nil {
		return nil, nil
	}

	overrides := &models.ManualOverrides{
		Currency:  r.Currency,
		CardLast4: r.CardLast4,
		Operator:  r.Operator,
		IsP2P:     r.IsP2P,
	}
	if r.Datetime != "" {
		parsed, _, err := dateutils.ParseDateTime(r.Datetime)
		if err != nil {
			return nil, errors.New("unrecognized datetime override")
		}
		overrides.Datetime = &parsed
	}
	if r.Amount != "" {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, errors.New("amount override is not a number")
		}
		overrides.Amount = &amount
	}
	return overrides, nil
}

func (s *Server) writeIngestError(w http.ResponseWriter, err error) {
	var duplicateErr *checkerror.DuplicateError
	if errors.As(err, &duplicateErr) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":        duplicateErr.Error(),
			"duplicate_of": duplicateErr.CheckID,
		})
		return
	}

	var validationErr *checkerror.ValidationError
	if errors.As(err, &validationErr) {
		if validationErr.Field == "text" {
			writeError(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		writeError(w, http.StatusUnprocessableEntity, validationErr.Error())
		return
	}

	var parseErr *checkerror.ParseError
	if errors.As(err, &parseErr) {
		writeError(w, http.StatusUnprocessableEntity, parseErr.Error())
		return
	}

	s.logger.WithError(err).Error("Ingest failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := models.QueueFilters{
		OnlyErrors: query.Get("only_errors") == "true",
		Source:     models.Source(query.Get("source")),
		Query:      query.Get("q"),
		Limit:      intParam(query.Get("limit")),
		Offset:     intParam(query.Get("offset")),
	}
	filters.From = timeParam(query.Get("from"))
	filters.To = timeParam(query.Get("to"))

	rows, total, err := s.recorder.ListQueue(r.Context(), filters)
	if err != nil {
		s.logger.WithError(err).Error("Queue listing failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rows == nil {
		rows = []models.QueueRow{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": rows,
		"total": total,
	})
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	stats, err := s.recorder.Stats(r.Context(), timeParam(query.Get("from")), timeParam(query.Get("to")))
	if err != nil {
		s.logger.WithError(err).Error("Stats failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	queueLength, err := s.recorder.QueueLength(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Queue length failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	errorCount, err := s.recorder.ErrorCount(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Error count failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if stats == nil {
		stats = []models.StageCount{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stages":       stats,
		"queue_length": queueLength,
		"error_count":  errorCount,
		"subscribers":  s.hub.SubscriberCount(),
	})
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"clients": []struct{}{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"clients": s.registry.Info()})
}

func (s *Server) handleCheckEvents(w http.ResponseWriter, r *http.Request, checkID string) {
	events, err := s.recorder.ListByCheck(r.Context(), checkID)
	if err != nil {
		s.logger.WithError(err).WithField(logging.FieldCheckID, checkID).Error("Event listing failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(events) == 0 {
		// Distinguish an unknown check from one with no events yet.
		if _, err := s.store.GetCheck(r.Context(), checkID); err != nil {
			var notFound *checkerror.NotFoundError
			if errors.As(err, &notFound) {
				writeError(w, http.StatusNotFound, notFound.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		events = []models.PipelineEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *Server) handleRequeue(w http.ResponseWriter, r *http.Request, checkID string) {
	err := s.coordinator.Requeue(r.Context(), checkID)
	if err != nil {
		var notFound *checkerror.NotFoundError
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, notFound.Error())
			return
		}
		s.logger.WithError(err).WithField(logging.FieldCheckID, checkID).Error("Requeue failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"check_id": checkID, "status": "requeued"})
}

func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := storage.CheckFilters{
		From:      timeParam(query.Get("from")),
		To:        timeParam(query.Get("to")),
		CardLast4: query.Get("card_last4"),
		Operator:  query.Get("operator"),
		App:       query.Get("app"),
		Limit:     intParam(query.Get("limit")),
		Offset:    intParam(query.Get("offset")),
	}
	if raw := query.Get("is_p2p"); raw != "" {
		isP2P := raw == "true"
		filters.IsP2P = &isP2P
	}

	checks, err := s.store.ListChecks(r.Context(), filters)
	if err != nil {
		s.logger.WithError(err).Error("Check listing failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if checks == nil {
		checks = []*models.CheckItem{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": checks})
}

func (s *Server) handleGetCheck(w http.ResponseWriter, r *http.Request, checkID string) {
	check, err := s.store.GetCheck(r.Context(), checkID)
	if err != nil {
		var notFound *checkerror.NotFoundError
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, notFound.Error())
			return
		}
		s.logger.WithError(err).WithField(logging.FieldCheckID, checkID).Error("Check lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func intParam(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

func timeParam(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, _, err := dateutils.ParseDateTime(raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
