package challenge

import (
	"fmt"
	"math/rand/v2"
)

// squared is the superscript two used in square templates.
const squared = "²"

// Template is one of the arithmetic question shapes.
type Template int

const (
	// TemplateSum is a+b with one-digit operands.
	TemplateSum Template = iota + 1
	// TemplateProduct is a*b with one-digit operands.
	TemplateProduct
	// TemplateProductPlusDigit is a*b+c with a one-digit addend.
	TemplateProductPlusDigit
	// TemplateSquare is a².
	TemplateSquare
	// TemplateProductPlusTens is a*b+cc with a two-digit addend.
	TemplateProductPlusTens
	// TemplateTensSum is aa+bb with two-digit operands.
	TemplateTensSum
	// TemplateTensProduct is aa*b.
	TemplateTensProduct
	// TemplateSquarePlusTens is a²+bb.
	TemplateSquarePlusTens
)

// templateCount is the number of templates drawn uniformly.
const templateCount = 8

// Question is a displayed expression and the answer it evaluates to.
type Question struct {
	Template Template
	Text     string
	Answer   int
}

// Generator produces random questions.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator returns a generator backed by rnd, or by a freshly seeded
// source when rnd is nil.
func NewGenerator(rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // Not used for security.
	}

	return &Generator{rnd: rnd}
}

// Next returns a question from a uniformly chosen template.
func (g *Generator) Next() Question {
	return g.Build(Template(g.between(1, templateCount)))
}

// Build returns a question for the given template with random operands.
func (g *Generator) Build(t Template) Question {
	switch t {
	case TemplateSum:
		a, b := g.between(0, 9), g.between(1, 9)
		return Question{Template: t, Text: fmt.Sprintf("%d+%d", a, b), Answer: a + b}
	case TemplateProduct:
		a, b := g.between(0, 9), g.between(1, 9)
		return Question{Template: t, Text: fmt.Sprintf("%d*%d", a, b), Answer: a * b}
	case TemplateProductPlusDigit:
		a, b, c := g.between(0, 9), g.between(1, 9), g.between(1, 9)
		return Question{Template: t, Text: fmt.Sprintf("%d*%d+%d", a, b, c), Answer: a*b + c}
	case TemplateSquare:
		a := g.between(0, 9)
		return Question{Template: t, Text: fmt.Sprintf("%d%s", a, squared), Answer: a * a}
	case TemplateProductPlusTens:
		a, b, c := g.between(0, 9), g.between(1, 9), g.between(10, 99)
		return Question{Template: t, Text: fmt.Sprintf("%d*%d+%d", a, b, c), Answer: a*b + c}
	case TemplateTensSum:
		a, b := g.between(10, 99), g.between(10, 99)
		return Question{Template: t, Text: fmt.Sprintf("%d+%d", a, b), Answer: a + b}
	case TemplateTensProduct:
		a, b := g.between(10, 99), g.between(0, 9)
		return Question{Template: t, Text: fmt.Sprintf("%d*%d", a, b), Answer: a * b}
	case TemplateSquarePlusTens:
		a, b := g.between(0, 9), g.between(10, 99)
		return Question{Template: t, Text: fmt.Sprintf("%d%s+%d", a, squared, b), Answer: a*a + b}
	default:
		return g.Build(TemplateSum)
	}
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rnd.IntN(hi-lo+1)
}
