package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examengine/internal/exam"
	"github.com/mind-engage/examengine/internal/rbac"
)

type createExamRequest struct {
	SchoolID     string    `json:"school_id"`
	ClassID      string    `json:"class_id" validate:"required"`
	SubjectID    string    `json:"subject_id" validate:"required"`
	TeacherID    string    `json:"teacher_id"`
	Title        string    `json:"title" validate:"required,max=200"`
	Description  string    `json:"description" validate:"max=4000"`
	DurationMin  int       `json:"duration_min" validate:"required,min=1"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	MaxAttempts  int       `json:"max_attempts" validate:"omitempty,min=1"`
	PassingScore int       `json:"passing_score" validate:"min=0,max=100"`
}

type optionDTO struct {
	Content   string `json:"content" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type questionDTO struct {
	Type        string      `json:"type" validate:"required,oneof=MULTIPLE_CHOICE TRUE_FALSE SHORT_ANSWER NUMERIC ESSAY"`
	Content     string      `json:"content" validate:"required"`
	Points      float64     `json:"points" validate:"gt=0"`
	Explanation string      `json:"explanation"`
	Options     []optionDTO `json:"options" validate:"dive"`
}

type replaceQuestionsRequest struct {
	Questions []questionDTO `json:"questions" validate:"required,min=1,dive"`
}

type correctKeyRequest struct {
	OptionIndex *int `json:"option_index" validate:"required,min=0"`
}

// POST /exams
func (a *API) createExam() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createExamRequest
		if !a.bind(w, r, &req) {
			return
		}
		teacher := req.TeacherID
		if teacher == "" || rbac.RoleFromContext(r.Context()) != "admin" {
			teacher = rbac.SubjectFromContext(r.Context())
		}
		if req.MaxAttempts == 0 {
			req.MaxAttempts = 1
		}
		e, err := a.en.CreateExam(r.Context(), exam.Exam{
			SchoolID:     req.SchoolID,
			ClassID:      req.ClassID,
			SubjectID:    req.SubjectID,
			TeacherID:    teacher,
			Title:        req.Title,
			Description:  req.Description,
			DurationMin:  req.DurationMin,
			StartTime:    req.StartTime.UTC(),
			EndTime:      req.EndTime.UTC(),
			MaxAttempts:  req.MaxAttempts,
			PassingScore: req.PassingScore,
		})
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, e)
	}
}

// GET /exams?class_id=&teacher_id=&status=&limit=50&offset=0
func (a *API) listExams() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := a.en.ListExams(r.Context(), caller(r), exam.ListOpts{
			ClassID:   strings.TrimSpace(q.Get("class_id")),
			TeacherID: strings.TrimSpace(q.Get("teacher_id")),
			Status:    exam.Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
			Limit:     parseIntDefault(q.Get("limit"), 50),
			Offset:    parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			a.fail(w, r, err)
			return
		}
		if list == nil {
			list = []exam.Exam{}
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /exams/{examID}
func (a *API) getExam() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := a.en.GetExam(r.Context(), caller(r), chi.URLParam(r, "examID"))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, view)
	}
}

// PUT /exams/{examID}/questions
func (a *API) replaceQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req replaceQuestionsRequest
		if !a.bind(w, r, &req) {
			return
		}
		qs := make([]exam.Question, 0, len(req.Questions))
		for _, dto := range req.Questions {
			q := exam.Question{
				Type:        exam.QuestionType(dto.Type),
				Content:     dto.Content,
				Points:      dto.Points,
				Explanation: dto.Explanation,
			}
			for _, o := range dto.Options {
				q.Options = append(q.Options, exam.Option{Content: o.Content, IsCorrect: o.IsCorrect})
			}
			qs = append(qs, q)
		}
		stored, err := a.en.ReplaceQuestions(r.Context(), chi.URLParam(r, "examID"), qs)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, stored)
	}
}

// POST /exams/{examID}/publish
func (a *API) publish() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := a.en.Publish(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, e)
	}
}

// PUT /exams/{examID}/questions/{questionID}/key  {"option_index": 1}
func (a *API) correctKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req correctKeyRequest
		if !a.bind(w, r, &req) {
			return
		}
		q, err := a.en.CorrectKey(r.Context(), chi.URLParam(r, "examID"), chi.URLParam(r, "questionID"), *req.OptionIndex)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}
