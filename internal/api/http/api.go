package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/examengine/internal/alert"
	"github.com/mind-engage/examengine/internal/engine"
	"github.com/mind-engage/examengine/internal/rbac"
)

type API struct {
	en  *engine.Engine
	log alert.Logger
}

func New(en *engine.Engine, log alert.Logger) *API {
	if log == nil {
		log = alert.Nop{}
	}
	return &API{en: en, log: log}
}

// Mount registers the exam and submission routes. The caller must have
// installed the JWT middleware so subject and role are in the context.
func (a *API) Mount(r chi.Router) {
	r.With(rbac.Require(rbac.PermExamCreate)).Post("/exams", a.createExam())
	r.With(rbac.Require(rbac.PermExamView)).Get("/exams", a.listExams())
	r.With(rbac.Require(rbac.PermExamView)).Get("/exams/{examID}", a.getExam())
	r.With(rbac.Require(rbac.PermExamCreate)).Put("/exams/{examID}/questions", a.replaceQuestions())
	r.With(rbac.Require(rbac.PermExamCreate)).Post("/exams/{examID}/publish", a.publish())
	r.With(rbac.Require(rbac.PermExamCreate)).Put("/exams/{examID}/questions/{questionID}/key", a.correctKey())

	r.With(rbac.Require(rbac.PermAttemptCreate)).Post("/exams/{examID}/attempts", a.startAttempt())
	r.With(rbac.RequireAny(rbac.PermViewOwn, rbac.PermViewAll)).Get("/submissions", a.listSubmissions())
	r.With(rbac.RequireAny(rbac.PermViewOwn, rbac.PermViewAll)).Get("/submissions/{submissionID}", a.getSubmission())
	r.With(rbac.Require(rbac.PermAttemptSave)).Put("/submissions/{submissionID}/answers/{questionID}", a.saveAnswer())
	r.With(rbac.Require(rbac.PermAttemptSubmit)).Post("/submissions/{submissionID}/submit", a.submit())
	r.With(rbac.Require(rbac.PermGrade)).Post("/submissions/{submissionID}/rescore", a.rescore())
	r.With(rbac.Require(rbac.PermGrade)).Post("/submissions/{submissionID}/reconcile", a.reconcile())
}

func caller(r *http.Request) engine.Caller {
	ctx := r.Context()
	return engine.Caller{
		ID:    rbac.SubjectFromContext(ctx),
		Staff: rbac.Can(ctx, rbac.PermViewAll),
	}
}

// bind decodes and validates the body, writing the error response on failure.
func (a *API) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := decode(r, dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		a.fail(w, r, err)
	} else {
		badRequest(w, "bad json")
	}
	return false
}
