// Package report renders prediction results as an HTML card, a PDF, a CSV
// table or a severity chart.
package report

import (
	"bytes"
	"embed"
	"html/template"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Skufu/healthpredict/internal/predictor"
	"github.com/Skufu/healthpredict/internal/reconcile"
	"github.com/Skufu/healthpredict/internal/risk"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var cardTmpl = template.Must(template.ParseFS(templateFS, "templates/card.html.tmpl"))

var hundred = decimal.NewFromInt(100)

// FormatPercent renders a probability as a percentage rounded half-up to
// two places, e.g. 0.65 -> "65.00%".
func FormatPercent(p float64) string {
	return decimal.NewFromFloat(p).Mul(hundred).StringFixed(2) + "%"
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type Input struct {
	Name  string
	Value string
}

// Card is the view model of a single prediction.
type Card struct {
	Title    string
	Result   string
	Percent  string
	Severity risk.Severity
	Inputs   []Input
}

func (c Card) Color() string { return c.Severity.Color() }

// CardFor pairs the outcome's vector with the display names of fields.
// fields must be in the same order as the vector.
func CardFor(out predictor.Outcome, fields []reconcile.Field) Card {
	c := Card{
		Title:    out.Title,
		Result:   out.LabelText,
		Percent:  FormatPercent(out.Probability),
		Severity: out.Severity,
		Inputs:   make([]Input, 0, len(out.Features.Values)),
	}
	for i, v := range out.Features.Values {
		name := out.Features.Names[i]
		if i < len(fields) {
			name = fields[i].DisplayName()
		}
		c.Inputs = append(c.Inputs, Input{Name: name, Value: formatValue(v)})
	}
	return c
}

// HTML renders the card as a standalone document.
func (c Card) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := cardTmpl.Execute(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
