package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/mind-engage/examengine/internal/api/http"
	auth "github.com/mind-engage/examengine/internal/auth/middleware"
	"github.com/mind-engage/examengine/internal/db"
	"github.com/mind-engage/examengine/internal/db/dbtest"
	"github.com/mind-engage/examengine/internal/directory"
	"github.com/mind-engage/examengine/internal/engine"
	"github.com/mind-engage/examengine/internal/events"
	"github.com/mind-engage/examengine/internal/exam"
	"github.com/mind-engage/examengine/internal/grading"
	"github.com/mind-engage/examengine/internal/ledger"
	"github.com/mind-engage/examengine/internal/session"
)

type server struct {
	srv    *httptest.Server
	dir    *directory.SQLDirectory
	tokens map[string]string
	now    time.Time
}

func newServer(t *testing.T) *server {
	t.Helper()
	conn := dbtest.Open(t)
	dir := directory.NewSQLDirectory(conn)
	require.NoError(t, dir.Upsert(context.Background(), directory.Student{ID: "stu-1", ClassID: "class-1"}))
	require.NoError(t, dir.Upsert(context.Background(), directory.Student{ID: "stu-2", ClassID: "class-1"}))

	now := time.Now().UTC().Truncate(time.Second)
	en := engine.New(engine.Deps{
		Exams:      exam.NewSQLStore(conn, db.DriverSQLite),
		Sessions:   session.NewSQLStore(conn, db.DriverSQLite),
		Students:   dir,
		Grader:     grading.NewDefaultGrader(),
		Reconciler: ledger.NewReconciler(ledger.NewSQLStore(conn), events.NewEventLog(conn), nil),
		Terms:      ledger.CalendarTerms{StartMonth: time.August},
		Now:        func() time.Time { return now },
	})

	as := auth.NewAuthService("test-secret")
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(as))
		apihttp.New(en, nil).Mount(pr)
		apihttp.MountRoster(pr, dir, nil)
	})
	s := &server{srv: httptest.NewServer(r), dir: dir, tokens: map[string]string{}, now: now}
	t.Cleanup(s.srv.Close)

	for sub, role := range map[string]string{"t-1": "teacher", "stu-1": "student", "stu-2": "student"} {
		tok, err := as.IssueJWT(sub, role)
		require.NoError(t, err)
		s.tokens[sub] = tok
	}
	return s
}

func (s *server) do(t *testing.T, who, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rdr)
	require.NoError(t, err)
	if tok, ok := s.tokens[who]; ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	m, _ := out.(map[string]any)
	return resp.StatusCode, m
}

// publishedExam creates and publishes a two question exam open right now.
func (s *server) publishedExam(t *testing.T) (string, []string) {
	t.Helper()
	code, e := s.do(t, "t-1", http.MethodPost, "/exams", map[string]any{
		"class_id":      "class-1",
		"subject_id":    "math",
		"title":         "Fractions",
		"duration_min":  30,
		"start_time":    s.now.Add(-time.Minute),
		"end_time":      s.now.Add(time.Hour),
		"max_attempts":  1,
		"passing_score": 50,
	})
	require.Equal(t, http.StatusCreated, code, e)
	examID := e["id"].(string)
	assert.Equal(t, "t-1", e["teacher_id"])

	req, err := http.NewRequest(http.MethodPut, s.srv.URL+"/exams/"+examID+"/questions", bytes.NewReader(mustJSON(t, map[string]any{
		"questions": []map[string]any{
			{"type": "MULTIPLE_CHOICE", "content": "1/2 + 1/2", "points": 1, "options": []map[string]any{
				{"content": "1", "is_correct": true}, {"content": "2"},
			}},
			{"type": "TRUE_FALSE", "content": "1/3 > 1/4", "points": 1, "options": []map[string]any{
				{"content": "true", "is_correct": true}, {"content": "false"},
			}},
		},
	})))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+s.tokens["t-1"])
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var qs []exam.Question
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&qs))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, qs, 2)

	code, body := s.do(t, "t-1", http.MethodPost, "/exams/"+examID+"/publish", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "PUBLISHED", body["status"])
	return examID, []string{qs[0].ID, qs[1].ID}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestAttemptLifecycle(t *testing.T) {
	s := newServer(t)
	examID, qids := s.publishedExam(t)

	code, start := s.do(t, "stu-1", http.MethodPost, "/exams/"+examID+"/attempts", nil)
	require.Equal(t, http.StatusCreated, code, start)
	assert.Equal(t, false, start["resumed"])
	subID := start["submission"].(map[string]any)["id"].(string)
	for _, q := range start["questions"].([]any) {
		for _, o := range q.(map[string]any)["options"].([]any) {
			_, leaked := o.(map[string]any)["is_correct"]
			assert.False(t, leaked, "scoring key must not reach students")
		}
	}

	code, again := s.do(t, "stu-1", http.MethodPost, "/exams/"+examID+"/attempts", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, again["resumed"])
	assert.Equal(t, subID, again["submission"].(map[string]any)["id"])

	code, _ = s.do(t, "stu-1", http.MethodPut, "/submissions/"+subID+"/answers/"+qids[0], map[string]string{"answer": "1"})
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, "stu-1", http.MethodPut, "/submissions/"+subID+"/answers/"+qids[1], map[string]string{"answer": "false"})
	require.Equal(t, http.StatusOK, code)

	code, body := s.do(t, "stu-2", http.MethodPut, "/submissions/"+subID+"/answers/"+qids[1], map[string]string{"answer": "true"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "not_authorized", body["error"])

	code, sub := s.do(t, "stu-1", http.MethodPost, "/submissions/"+subID+"/submit", nil)
	require.Equal(t, http.StatusOK, code, sub)
	assert.Equal(t, "SUBMITTED", sub["status"])
	assert.EqualValues(t, 50, sub["percentage"])
	assert.Equal(t, true, sub["passed"])

	code, body = s.do(t, "stu-1", http.MethodPost, "/submissions/"+subID+"/submit", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_submitted", body["error"])
	require.NotNil(t, body["submission"])
	assert.EqualValues(t, 50, body["submission"].(map[string]any)["percentage"])

	code, body = s.do(t, "stu-1", http.MethodPut, "/submissions/"+subID+"/answers/"+qids[1], map[string]string{"answer": "true"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "submission_closed", body["error"])

	code, body = s.do(t, "stu-1", http.MethodPost, "/exams/"+examID+"/attempts", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "attempts_exhausted", body["error"])

	code, view := s.do(t, "stu-1", http.MethodGet, "/submissions/"+subID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, view["read_only"])
	assert.Len(t, view["answers"], 2)

	code, _ = s.do(t, "stu-2", http.MethodGet, "/submissions/"+subID, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, view = s.do(t, "t-1", http.MethodGet, "/submissions/"+subID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "stu-1", view["submission"].(map[string]any)["student_id"])
}

func TestRegradeEndpoints(t *testing.T) {
	s := newServer(t)
	examID, qids := s.publishedExam(t)

	_, start := s.do(t, "stu-1", http.MethodPost, "/exams/"+examID+"/attempts", nil)
	subID := start["submission"].(map[string]any)["id"].(string)
	s.do(t, "stu-1", http.MethodPut, "/submissions/"+subID+"/answers/"+qids[0], map[string]string{"answer": "2"})

	code, body := s.do(t, "t-1", http.MethodPost, "/submissions/"+subID+"/rescore", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "not_submitted", body["error"])

	code, sub := s.do(t, "stu-1", http.MethodPost, "/submissions/"+subID+"/submit", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, sub["percentage"])

	code, body = s.do(t, "t-1", http.MethodPut, "/exams/"+examID+"/questions/"+qids[0]+"/key", map[string]int{"option_index": 1})
	require.Equal(t, http.StatusOK, code, body)

	code, sub = s.do(t, "t-1", http.MethodPost, "/submissions/"+subID+"/rescore", nil)
	require.Equal(t, http.StatusOK, code, sub)
	assert.EqualValues(t, 50, sub["percentage"])

	code, sub = s.do(t, "t-1", http.MethodPost, "/submissions/"+subID+"/reconcile", nil)
	require.Equal(t, http.StatusOK, code, sub)
	assert.Equal(t, "ok", sub["reconcile_status"])

	code, _ = s.do(t, "stu-1", http.MethodPost, "/submissions/"+subID+"/rescore", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAuthoringValidationAndPermissions(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, "t-1", http.MethodPost, "/exams", map[string]any{"title": "no class"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["error"])

	code, _ = s.do(t, "stu-1", http.MethodPost, "/exams", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, "nobody", http.MethodGet, "/exams", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	examID, _ := s.publishedExam(t)
	code, body = s.do(t, "t-1", http.MethodPut, "/exams/"+examID+"/questions/missing/key", map[string]int{"option_index": 0})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "question_not_found", body["error"])

	code, body = s.do(t, "t-1", http.MethodPost, "/exams/"+examID+"/publish", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "not_editable", body["error"])

	code, body = s.do(t, "stu-1", http.MethodGet, "/exams/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["error"])
}

func TestRosterImport(t *testing.T) {
	s := newServer(t)

	csvBody := "id,class_id,full_name\nstu-3,class-1,Ada\nstu-4,class-2,Grace\n"
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/students/bulk", bytes.NewBufferString(csvBody))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+s.tokens["t-1"])
	req.Header.Set("Content-Type", "text/csv")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	st, err := s.dir.Student(context.Background(), "stu-4")
	require.NoError(t, err)
	assert.Equal(t, "class-2", st.ClassID)
	assert.Equal(t, "Grace", st.FullName)

	code, body := s.do(t, "t-1", http.MethodPost, "/students/bulk", []map[string]string{{"id": "stu-5"}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["error"])

	code, _ = s.do(t, "stu-1", http.MethodPost, "/students/bulk", []map[string]string{{"id": "stu-6", "class_id": "class-1"}})
	assert.Equal(t, http.StatusForbidden, code)
}
