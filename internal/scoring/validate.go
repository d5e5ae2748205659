package scoring

import (
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/internal/util"
	"strings"
)

// ValidateItem checks that a question definition can be scored.
// Choice questions need at least two options with unique labels and
// exactly one correct option.
func ValidateItem(item Item) error {
	if strings.TrimSpace(item.Content) == "" {
		return util.Validationf("question content must not be empty")
	}

	switch item.Kind {
	case model.KindChoice:
		if len(item.Options) < 2 {
			return util.Validationf("choice question needs at least 2 options")
		}
		labels := make(map[string]bool, len(item.Options))
		correct := 0
		for _, o := range item.Options {
			label := strings.ToUpper(strings.TrimSpace(o.Label))
			if label == "" {
				return util.Validationf("option label must not be empty")
			}
			if labels[label] {
				return util.Validationf("duplicate option label %q", o.Label)
			}
			labels[label] = true
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return util.Validationf("choice question must have exactly one correct option, got %d", correct)
		}
	case model.KindTrueFalse:
		if len(item.Options) > 0 {
			return util.Validationf("true/false question must not have options")
		}
		if len(item.Canonical) == 0 {
			return util.Validationf("true/false question needs an answer")
		}
		for _, c := range item.Canonical {
			if _, ok := parseBool(c); !ok {
				return util.Validationf("invalid true/false answer %q", c)
			}
		}
	case model.KindFillBlank, model.KindShortAnswer, model.KindDesign:
		if len(item.Options) > 0 {
			return util.Validationf("%s question must not have options", item.Kind.Code())
		}
		if len(item.Canonical) == 0 {
			return util.Validationf("%s question needs at least one reference answer", item.Kind.Code())
		}
		for _, c := range item.Canonical {
			if strings.TrimSpace(c) == "" {
				return util.Validationf("reference answer must not be empty")
			}
		}
	default:
		return util.Validationf("unknown question type %d", item.Kind)
	}
	return nil
}
