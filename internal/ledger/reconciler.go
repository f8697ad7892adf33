package ledger

import (
	"context"
	"time"

	"github.com/mind-engage/examengine/internal/alert"
	"github.com/mind-engage/examengine/internal/events"
)

// Request is one exam result to merge into the ledger.
type Request struct {
	Key
	ExamFields
	SubmissionID string `json:"submission_id"`
	ExamID       string `json:"exam_id"`
}

// Reconciler writes exam results through a single atomic upsert and then
// announces the change. It holds no cached ledger state.
type Reconciler struct {
	store Store
	pub   events.Publisher
	log   alert.Logger
	now   func() time.Time
}

func NewReconciler(store Store, pub events.Publisher, log alert.Logger) *Reconciler {
	if pub == nil {
		pub = events.Discard{}
	}
	if log == nil {
		log = alert.Nop{}
	}
	return &Reconciler{store: store, pub: pub, log: log, now: time.Now}
}

// Reconcile upserts the exam fields. A failed notification is logged but does
// not fail the call: the ledger row is already durable.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (Row, error) {
	now := r.now()
	row, err := r.store.UpsertExamFields(ctx, req.Key, req.ExamFields, now)
	if err != nil {
		return Row{}, err
	}
	ev, err := events.New(events.TypeGradeReconciled, row.ID, req, now)
	if err == nil {
		err = r.pub.Publish(ctx, ev)
	}
	if err != nil {
		r.log.Warn("grade event not delivered", err, alert.Fields{"ledger_row": row.ID, "submission": req.SubmissionID})
	}
	return row, nil
}
