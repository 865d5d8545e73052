package assessment

import id "haven/pkg/domain"

// Crisis rule constants. The PHQ-9 ninth item ("thoughts that you would be
// better off dead or of hurting yourself") triggers on any non-zero
// response; the total-score cutoffs mark the severe end of each
// instrument's range.
const (
	suicidalIdeationIndex = 8
	phq9CrisisTotal       = 20
	gad7CrisisTotal       = 15
)

// Detect applies the crisis rules to a validated ScoreResult. Rules are
// evaluated in order and the first match sets the reason:
//
//  1. Suicidal ideation: PHQ-9 item index 8 >= 1, regardless of total.
//  2. Score threshold: PHQ-9 total >= 20, GAD-7 total >= 15.
//
// Pure and total: no I/O, never fails. A result that matches neither rule
// yields an untriggered signal.
func Detect(result ScoreResult) CrisisSignal {
	if result.Instrument == id.InstrumentPHQ9 &&
		len(result.Answers) > suicidalIdeationIndex &&
		result.Answers[suicidalIdeationIndex] >= 1 {
		return CrisisSignal{Triggered: true, Reason: ReasonSuicidalIdeationItem, Source: result}
	}

	switch result.Instrument {
	case id.InstrumentPHQ9:
		if result.Total >= phq9CrisisTotal {
			return CrisisSignal{Triggered: true, Reason: ReasonScoreThreshold, Source: result}
		}
	case id.InstrumentGAD7:
		if result.Total >= gad7CrisisTotal {
			return CrisisSignal{Triggered: true, Reason: ReasonScoreThreshold, Source: result}
		}
	}

	return CrisisSignal{Source: result}
}
