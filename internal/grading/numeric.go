package grading

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mind-engage/examengine/internal/exam"
)

// numericStrategy compares against the first correct option, with optional
// tolerance directives in further correct options.
// Examples (correct option contents):
//
//	["3.14159", "tol=0.01"]   // absolute tolerance
//	["100", "reltol=0.05"]    // 5% relative tolerance
type numericStrategy struct{}

func (numericStrategy) Validate(q exam.Question) error {
	keys := optionContents(q.CorrectOptions())
	if len(keys) == 0 {
		return fmt.Errorf("%w: numeric target required", ErrInvalidKey)
	}
	if _, ok := parseFloatLoose(keys[0]); !ok {
		return fmt.Errorf("%w: numeric target %q is not a number", ErrInvalidKey, keys[0])
	}
	return nil
}

func (numericStrategy) Redact(q exam.Question) exam.Question { return withoutOptions(q) }

func (numericStrategy) Correct(q exam.Question, answer string) bool {
	keys := optionContents(q.CorrectOptions())
	if len(keys) == 0 {
		return false
	}
	target := keys[0]
	if strings.TrimSpace(answer) == target {
		return true
	}

	rv, rOK := parseFloatLoose(answer)
	tv, tOK := parseFloatLoose(target)
	if !rOK || !tOK {
		return false
	}
	absTol, relTol := parseTolerances(keys[1:])
	diff := math.Abs(rv - tv)
	if absTol >= 0 && diff <= absTol {
		return true
	}
	if relTol >= 0 && diff <= relTol*math.Abs(tv) {
		return true
	}
	return diff == 0
}

func optionContents(opts []exam.Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, strings.TrimSpace(o.Content))
	}
	return out
}

func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if sp := strings.Fields(s); len(sp) > 0 {
		if v, err := strconv.ParseFloat(sp[0], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func parseTolerances(keys []string) (absTol float64, relTol float64) {
	absTol, relTol = -1, -1
	for _, k := range keys {
		k = strings.TrimSpace(strings.ToLower(k))
		if strings.HasPrefix(k, "tol=") {
			if v, err := strconv.ParseFloat(strings.TrimPrefix(k, "tol="), 64); err == nil {
				absTol = v
			}
		}
		if strings.HasPrefix(k, "reltol=") {
			if v, err := strconv.ParseFloat(strings.TrimPrefix(k, "reltol="), 64); err == nil {
				relTol = v
			}
		}
	}
	return
}
