package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examengine/internal/alert"
	"github.com/mind-engage/examengine/internal/directory"
	"github.com/mind-engage/examengine/internal/rbac"
)

// RosterWriter stores student records in the directory read model.
type RosterWriter interface {
	Upsert(ctx context.Context, s directory.Student) error
}

type rosterRow struct {
	ID       string `json:"id" validate:"required"`
	ClassID  string `json:"class_id" validate:"required"`
	SchoolID string `json:"school_id"`
	FullName string `json:"full_name"`
}

// MountRoster registers POST /students/bulk. The body is a JSON array, or CSV
// with an id,class_id[,school_id,full_name] header when Content-Type is text/csv.
func MountRoster(r chi.Router, dir RosterWriter, log alert.Logger) {
	if log == nil {
		log = alert.Nop{}
	}
	a := &API{log: log}
	r.With(rbac.Require(rbac.PermRosterWrite)).Post("/students/bulk", func(w http.ResponseWriter, r *http.Request) {
		var rows []rosterRow
		if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
			rs, err := parseRosterCSV(r.Body)
			if err != nil {
				badRequest(w, "bad csv: "+err.Error())
				return
			}
			rows = rs
		} else if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			badRequest(w, "expected JSON array")
			return
		}
		for i := range rows {
			if err := validate.Struct(rows[i]); err != nil {
				a.fail(w, r, fmt.Errorf("row %d: %w", i+1, err))
				return
			}
		}
		for _, row := range rows {
			err := dir.Upsert(r.Context(), directory.Student{
				ID: strings.TrimSpace(row.ID), ClassID: strings.TrimSpace(row.ClassID),
				SchoolID: row.SchoolID, FullName: row.FullName,
			})
			if err != nil {
				a.fail(w, r, err)
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]int{"upserted": len(rows)})
	})
}

func parseRosterCSV(rd io.Reader) ([]rosterRow, error) {
	cr := csv.NewReader(rd)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["id"]; !ok {
		return nil, errors.New("missing id column")
	}
	if _, ok := col["class_id"]; !ok {
		return nil, errors.New("missing class_id column")
	}
	get := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	var out []rosterRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rosterRow{
			ID:       get(rec, "id"),
			ClassID:  get(rec, "class_id"),
			SchoolID: get(rec, "school_id"),
			FullName: get(rec, "full_name"),
		})
	}
}
