package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examengine/internal/rbac"
	"github.com/mind-engage/examengine/internal/session"
)

type saveAnswerRequest struct {
	Answer string `json:"answer" validate:"max=10000"`
}

// POST /exams/{examID}/attempts
// 201 for a new attempt, 200 when the active attempt is resumed.
func (a *API) startAttempt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := a.en.StartAttempt(r.Context(), chi.URLParam(r, "examID"), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		status := http.StatusCreated
		if res.Resumed {
			status = http.StatusOK
		}
		respondJSON(w, status, res)
	}
}

// PUT /submissions/{submissionID}/answers/{questionID}  {"answer": "..."}
func (a *API) saveAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveAnswerRequest
		if !a.bind(w, r, &req) {
			return
		}
		ans, err := a.en.SaveAnswer(r.Context(), rbac.SubjectFromContext(r.Context()),
			chi.URLParam(r, "submissionID"), chi.URLParam(r, "questionID"), req.Answer)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, ans)
	}
}

// POST /submissions/{submissionID}/submit
// A repeated submit is a 409 whose body carries the stored result.
func (a *API) submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := a.en.Submit(r.Context(), rbac.SubjectFromContext(r.Context()), chi.URLParam(r, "submissionID"))
		if errors.Is(err, session.ErrAlreadySubmitted) && sub.ID != "" {
			a.failWith(w, r, err, &sub)
			return
		}
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, sub)
	}
}

// GET /submissions/{submissionID}
func (a *API) getSubmission() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := a.en.GetSubmission(r.Context(), caller(r), chi.URLParam(r, "submissionID"))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, view)
	}
}

// GET /submissions?exam_id=&student_id=&status=&limit=100&offset=0
// Callers without attempt:view-all only see their own submissions.
func (a *API) listSubmissions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := a.en.ListSubmissions(r.Context(), caller(r), session.ListOpts{
			ExamID:    strings.TrimSpace(q.Get("exam_id")),
			StudentID: strings.TrimSpace(q.Get("student_id")),
			Status:    session.Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
			Limit:     parseIntDefault(q.Get("limit"), 100),
			Offset:    parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			a.fail(w, r, err)
			return
		}
		if list == nil {
			list = []session.Submission{}
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// POST /submissions/{submissionID}/rescore
func (a *API) rescore() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := a.en.Rescore(r.Context(), chi.URLParam(r, "submissionID"))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, sub)
	}
}

// POST /submissions/{submissionID}/reconcile
func (a *API) reconcile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := a.en.RetryReconcile(r.Context(), chi.URLParam(r, "submissionID"))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, sub)
	}
}
