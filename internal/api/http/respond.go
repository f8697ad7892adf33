package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/examengine/internal/directory"
	"github.com/mind-engage/examengine/internal/engine"
	"github.com/mind-engage/examengine/internal/exam"
	"github.com/mind-engage/examengine/internal/grading"
	"github.com/mind-engage/examengine/internal/session"
)

var validate = validator.New()

type errorBody struct {
	Error      string              `json:"error"`
	Message    string              `json:"message"`
	Submission *session.Submission `json:"submission,omitempty"`
}

type errMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first match wins.
var errMappings = []errMapping{
	{exam.ErrExamNotFound, http.StatusNotFound, "not_found"},
	{directory.ErrStudentNotFound, http.StatusNotFound, "not_found"},
	{exam.ErrQuestionNotFound, http.StatusNotFound, "question_not_found"},
	{session.ErrSubmissionNotFound, http.StatusNotFound, "submission_not_found"},
	{session.ErrNotStarted, http.StatusForbidden, "not_started"},
	{session.ErrWindowClosed, http.StatusForbidden, "window_closed"},
	{session.ErrAttemptsExhausted, http.StatusForbidden, "attempts_exhausted"},
	{session.ErrNotAuthorized, http.StatusForbidden, "not_authorized"},
	{session.ErrSubmissionClosed, http.StatusConflict, "submission_closed"},
	{session.ErrAlreadySubmitted, http.StatusConflict, "already_submitted"},
	{engine.ErrNotSubmitted, http.StatusConflict, "not_submitted"},
	{exam.ErrNotEditable, http.StatusConflict, "not_editable"},
	{session.ErrQuestionNotInExam, http.StatusBadRequest, "question_not_in_exam"},
	{exam.ErrInvalidExam, http.StatusBadRequest, "invalid_exam"},
	{exam.ErrInvalidQuestion, http.StatusBadRequest, "invalid_question"},
	{grading.ErrUnsupportedQuestionType, http.StatusUnprocessableEntity, "unsupported_question_type"},
	{grading.ErrInvalidKey, http.StatusUnprocessableEntity, "invalid_key"},
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	a.failWith(w, r, err, nil)
}

// failWith maps err to its status and stable code. Unknown errors are logged and hidden.
func (a *API) failWith(w http.ResponseWriter, r *http.Request, err error, sub *session.Submission) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: err.Error()})
		return
	}
	for _, m := range errMappings {
		if errors.Is(err, m.target) {
			respondJSON(w, m.status, errorBody{Error: m.code, Message: err.Error(), Submission: sub})
			return
		}
	}
	a.log.Error("request failed", err, map[string]any{"method": r.Method, "path": r.URL.Path})
	respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"})
}

func badRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: msg})
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
