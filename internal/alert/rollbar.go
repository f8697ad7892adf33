package alert

import (
	"log"

	"github.com/rollbar/rollbar-go"
)

// Rollbar prints through the standard logger and reports warnings and errors to Rollbar.
type Rollbar struct {
	std *Std
}

var _ Logger = (*Rollbar)(nil)

func NewRollbar(std *log.Logger, token, env, codeVersion string) *Rollbar {
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	if codeVersion != "" {
		rollbar.SetCodeVersion(codeVersion)
	}
	rollbar.SetEnabled(token != "")
	return &Rollbar{std: NewStd(std)}
}

func (l *Rollbar) Info(msg string, args ...any) {
	l.std.Info(msg, args...)
}

func (l *Rollbar) Warn(msg string, args ...any) {
	rollbar.Warning(prepare(msg, args)...)
	l.std.Warn(msg, args...)
}

func (l *Rollbar) Error(msg string, args ...any) {
	rollbar.Error(prepare(msg, args)...)
	l.std.Error(msg, args...)
}

// Close flushes queued reports.
func (l *Rollbar) Close() {
	rollbar.Wait()
}

// prepare orders args the way rollbar's variadic API expects: message, error, extras.
func prepare(msg string, args []any) []any {
	out := make([]any, 0, len(args)+1)
	out = append(out, msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case error, Fields:
			out = append(out, v)
		}
	}
	return out
}
