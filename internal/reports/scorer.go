package reports

import (
	"strings"
	"unicode"
)

// Flag is one triggered bad-faith signal.
type Flag struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// ScoreInput carries the submission fields the scorer may inspect.
type ScoreInput struct {
	Title       string
	Description string
}

// Scorer evaluates a submission for bad-faith signals. The score and flags
// are stored on the report at creation; overriding them later is itself an
// auditable action.
type Scorer interface {
	Score(input ScoreInput) (int, []Flag)
}

// HeuristicScorer applies cheap lexical checks. A routine submission scores
// zero with no flags.
type HeuristicScorer struct{}

func (HeuristicScorer) Score(input ScoreInput) (int, []Flag) {
	score := 0
	var flags []Flag

	desc := strings.TrimSpace(input.Description)

	if len(desc) > 0 && len(desc) < 15 {
		score++
		flags = append(flags, Flag{
			Code:   "sparse_description",
			Detail: "description is too short to investigate",
		})
	}

	var letters, upper int
	for _, r := range desc {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters >= 20 && float64(upper)/float64(letters) > 0.8 {
		score += 2
		flags = append(flags, Flag{
			Code:   "shouting",
			Detail: "description is written almost entirely in capitals",
		})
	}

	if strings.Count(desc, "!") > 3 {
		score++
		flags = append(flags, Flag{
			Code:   "excessive_punctuation",
			Detail: "description contains repeated exclamation marks",
		})
	}

	return score, flags
}

var _ Scorer = HeuristicScorer{}
