package alert

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStd_FormatsFieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	l := NewStd(log.New(&buf, "", 0))

	l.Error("reconcile failed", errors.New("ledger down"), Fields{"submission": "s1", "attempt": 2})
	assert.Equal(t, "ERROR reconcile failed err=\"ledger down\" attempt=2 submission=s1\n", buf.String())
}

func TestPrepare_KeepsErrorsAndFields(t *testing.T) {
	err := errors.New("x")
	got := prepare("msg", []any{err, 42, Fields{"k": "v"}})
	assert.Equal(t, []any{"msg", err, Fields{"k": "v"}}, got)
}

func TestRollbar_DisabledWithoutToken(t *testing.T) {
	var buf bytes.Buffer
	l := NewRollbar(log.New(&buf, "", 0), "", "test", "")
	l.Warn("sweep skipped", Fields{"n": 0})
	l.Close()
	assert.Contains(t, buf.String(), "WARN sweep skipped n=0")
}
