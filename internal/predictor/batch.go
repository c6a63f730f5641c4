package predictor

import (
	"github.com/Skufu/healthpredict/internal/reconcile"
	"github.com/Skufu/healthpredict/internal/risk"
)

type BatchRow struct {
	Row         int           `json:"row"`
	Values      []float64     `json:"values"`
	Label       string        `json:"predictedLabel"`
	LabelText   string        `json:"result"`
	Probability float64       `json:"positiveClassProbability"`
	Percent     float64       `json:"probabilityPercent"`
	Severity    risk.Severity `json:"severity"`
}

type TierCount struct {
	Severity risk.Severity `json:"severity"`
	Count    int           `json:"count"`
}

// Batch is a fully classified table. It is never partially filled.
type Batch struct {
	Model    string      `json:"model"`
	Title    string      `json:"title"`
	Features []string    `json:"features"`
	Rows     []BatchRow  `json:"rows"`
	Summary  []TierCount `json:"summary"`
}

// PredictBatch classifies every row of t. Any reconciliation or model error
// aborts the whole batch.
func (p *Predictor) PredictBatch(t reconcile.Table) (*Batch, error) {
	vecs, err := reconcile.NormalizeTable(t, p.renames, p.spec)
	if err != nil {
		return nil, err
	}
	b := &Batch{
		Model:    p.profile.Key,
		Title:    p.profile.Title,
		Features: p.spec.Names(),
		Rows:     make([]BatchRow, 0, len(vecs)),
	}
	for i, vec := range vecs {
		out, err := p.classify(vec)
		if err != nil {
			return nil, err
		}
		b.Rows = append(b.Rows, BatchRow{
			Row:         i + 1,
			Values:      vec.Values,
			Label:       out.Label,
			LabelText:   out.LabelText,
			Probability: out.Probability,
			Percent:     out.Percent,
			Severity:    out.Severity,
		})
	}
	b.Summary = Summarize(b.Rows)
	return b, nil
}

// Summarize counts rows per tier in the fixed Low, Moderate, High order.
func Summarize(rows []BatchRow) []TierCount {
	counts := make(map[risk.Severity]int, 3)
	for _, r := range rows {
		counts[r.Severity]++
	}
	tiers := risk.Tiers()
	out := make([]TierCount, 0, len(tiers))
	for _, s := range tiers {
		out = append(out, TierCount{Severity: s, Count: counts[s]})
	}
	return out
}
