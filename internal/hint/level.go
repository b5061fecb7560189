package hint

import (
	"fmt"
	"strings"
)

// Level selects how much of the edit a hint reveals.
type Level uint8

const (
	NextStep Level = iota
	Structure
	HalfSteps
	Solution
)

var levelNames = [...]string{
	NextStep:  "next_step",
	Structure: "structure",
	HalfSteps: "half_steps",
	Solution:  "solution",
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", uint8(l))
}

// ParseLevel accepts the names String returns.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == s {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown hint level %q (want one of %s)", s, strings.Join(levelNames[:], ", "))
}

// Escalate returns the level to use when the same submission asks again.
func (l Level) Escalate() Level {
	if l >= Solution {
		return Solution
	}
	return l + 1
}

// Outcome classifies what a hint request produced.
type Outcome uint8

const (
	OutcomeHint Outcome = iota
	OutcomeNoGoal
	OutcomeNoNext
	OutcomeAlreadyCorrect
	OutcomeRejected
)

// Outcomes lists every outcome, in the order reports print them.
var Outcomes = []Outcome{OutcomeHint, OutcomeNoGoal, OutcomeNoNext, OutcomeAlreadyCorrect, OutcomeRejected}

func (o Outcome) String() string {
	switch o {
	case OutcomeHint:
		return "hint"
	case OutcomeNoGoal:
		return "no_goal"
	case OutcomeNoNext:
		return "no_next"
	case OutcomeAlreadyCorrect:
		return "already_correct"
	case OutcomeRejected:
		return "rejected"
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}
