package challenge

import (
	"strconv"
	"strings"
)

const (
	// MaxDigits is the longest answer the keypad accepts.
	MaxDigits = 6

	// LabelNext is the submit caption while no digit has been typed.
	LabelNext = "NEXT"
	// LabelOK is the submit caption once an answer is being typed.
	LabelOK = "OK"
)

// Outcome is the gate result.
type Outcome int

const (
	// OutcomePending means the question has not been answered yet.
	OutcomePending Outcome = iota
	// OutcomeCorrect means the right answer was submitted.
	OutcomeCorrect
)

// String returns the outcome name.
func (o Outcome) String() string {
	if o == OutcomeCorrect {
		return "correct"
	}

	return "pending"
}

// SubmitResult describes what a submit did.
type SubmitResult int

const (
	// SubmitIgnored means nothing was typed or the gate was already passed.
	SubmitIgnored SubmitResult = iota
	// SubmitWrong means the answer was wrong and a new question was drawn.
	SubmitWrong
	// SubmitCorrect means the gate is now passed.
	SubmitCorrect
)

// String returns the result name.
func (r SubmitResult) String() string {
	switch r {
	case SubmitWrong:
		return "wrong"
	case SubmitCorrect:
		return "correct"
	default:
		return "ignored"
	}
}

// Gate holds one arithmetic challenge and the digits typed so far.
// Not safe for concurrent use.
type Gate struct {
	generator *Generator
	question  Question
	digits    []byte
	outcome   Outcome
}

// NewGate draws the first question from generator.
func NewGate(generator *Generator) *Gate {
	if generator == nil {
		generator = NewGenerator(nil)
	}

	return &Gate{
		generator: generator,
		question:  generator.Next(),
		digits:    make([]byte, 0, MaxDigits),
	}
}

// Question returns the current question.
func (g *Gate) Question() Question {
	return g.question
}

// Input returns the typed digits.
func (g *Gate) Input() string {
	return string(g.digits)
}

// Display returns the question followed by the typed answer, e.g. "3+4=7".
func (g *Gate) Display() string {
	var b strings.Builder

	b.WriteString(g.question.Text)
	b.WriteByte('=')
	b.Write(g.digits)

	return b.String()
}

// SubmitLabel returns the caption of the submit control.
func (g *Gate) SubmitLabel() string {
	if len(g.digits) == 0 {
		return LabelNext
	}

	return LabelOK
}

// Outcome returns the gate result.
func (g *Gate) Outcome() Outcome {
	return g.outcome
}

// AppendDigit adds d to the answer. It reports false when d is not a digit,
// the buffer is full or the gate is already passed.
func (g *Gate) AppendDigit(d int) bool {
	if g.outcome == OutcomeCorrect || d < 0 || d > 9 || len(g.digits) >= MaxDigits {
		return false
	}

	g.digits = append(g.digits, byte('0'+d))

	return true
}

// Backspace removes the last digit. Removing the only digit restores the
// empty answer and the NEXT caption.
func (g *Gate) Backspace() {
	switch len(g.digits) {
	case 0:
	case 1:
		g.Reset()
	default:
		g.digits = g.digits[:len(g.digits)-1]
	}
}

// Reset clears the typed answer.
func (g *Gate) Reset() {
	g.digits = g.digits[:0]
}

// Submit checks the typed answer. A wrong answer draws a new question and
// clears the buffer.
func (g *Gate) Submit() SubmitResult {
	if g.outcome == OutcomeCorrect || len(g.digits) == 0 {
		return SubmitIgnored
	}

	answer, err := strconv.Atoi(string(g.digits))
	if err == nil && answer == g.question.Answer {
		g.outcome = OutcomeCorrect

		return SubmitCorrect
	}

	g.question = g.generator.Next()
	g.Reset()

	return SubmitWrong
}
