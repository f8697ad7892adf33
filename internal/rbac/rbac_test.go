package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy(t *testing.T) {
	p := Policy{
		"grader": {"attempt:*"},
		"viewer": {PermExamView},
		"root":   {"*"},
	}
	tests := []struct {
		role, perm string
		want       bool
	}{
		{"grader", PermGrade, true},
		{"grader", PermViewAll, true},
		{"grader", PermExamCreate, false},
		{"grader", "attempts", false},
		{"viewer", PermExamView, true},
		{"viewer", PermExamCreate, false},
		{"root", PermExamCreate, true},
		{"root", "anything:at-all", true},
		{"root", "", true},
		{"nobody", PermExamView, false},
		{"", PermExamView, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, p.Allows(tc.role, tc.perm), "%s %s", tc.role, tc.perm)
	}
	assert.True(t, p.AllowsAny("grader", PermExamCreate, PermViewAll))
	assert.False(t, p.AllowsAny("viewer", PermExamCreate, PermGrade))
	assert.False(t, p.AllowsAny("root"))
}

func TestDefaultPolicy_AdminWildcard(t *testing.T) {
	admin := WithRole(context.Background(), "admin")
	for _, perm := range []string{PermExamCreate, PermGrade, PermRosterWrite, PermAttemptSubmit, "future:perm"} {
		assert.True(t, Can(admin, perm), perm)
	}
	assert.False(t, Can(WithRole(context.Background(), "teacher"), "future:perm"))
}

func TestDefaultPolicy(t *testing.T) {
	student := WithRole(context.Background(), "student")
	teacher := WithRole(context.Background(), "teacher")
	admin := WithRole(context.Background(), "admin")

	assert.True(t, Can(student, PermAttemptSubmit))
	assert.False(t, Can(student, PermViewAll))
	assert.False(t, Can(student, PermExamCreate))
	assert.True(t, Can(teacher, PermGrade))
	assert.False(t, Can(teacher, PermAttemptCreate))
	assert.True(t, Can(admin, PermGrade))
	assert.False(t, Can(context.Background(), PermExamView))
}

func TestRequire(t *testing.T) {
	h := Require(PermExamCreate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for role, want := range map[string]int{
		"teacher": http.StatusNoContent,
		"student": http.StatusForbidden,
		"":        http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPost, "/exams", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, want, rr.Code, role)
	}
}
