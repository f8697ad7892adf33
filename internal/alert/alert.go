// Package alert is the leveled logger used by the engine and its jobs.
package alert

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// Fields carries structured context; pass it (and any error) after the message.
type Fields = map[string]any

// Logger args: error values and Fields, in any order.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Std struct {
	std *log.Logger
}

var _ Logger = (*Std)(nil)

func NewStd(std *log.Logger) *Std {
	if std == nil {
		std = log.Default()
	}
	return &Std{std: std}
}

func (l *Std) Info(msg string, args ...any)  { l.print("INFO", msg, args) }
func (l *Std) Warn(msg string, args ...any)  { l.print("WARN", msg, args) }
func (l *Std) Error(msg string, args ...any) { l.print("ERROR", msg, args) }

func (l *Std) print(level, msg string, args []any) {
	l.std.Println(format(level, msg, args))
}

func format(level, msg string, args []any) string {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			fmt.Fprintf(&b, " err=%q", v.Error())
		case Fields:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%v", k, v[k])
			}
		default:
			fmt.Fprintf(&b, " %+v", v)
		}
	}
	return b.String()
}

// Nop discards everything.
type Nop struct{}

func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}
