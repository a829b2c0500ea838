package dishdex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/evaluation"
	"github.com/kailas-cloud/dishdex/internal/repository/report"
)

// Evaluate ranks every image of a space against all others and returns mAP@k,
// overall for ks and per dish group for groupKs. Nil cutoffs use the defaults
// (1, 5, 10, 20 overall; 5, 25 per group). An empty space means the primary one.
func (c *Client) Evaluate(ctx context.Context, space string, ks, groupKs []int) (rep Report, err error) {
	start := time.Now()
	defer func() { c.obs.observe("evaluate", start, err) }()

	snap := c.holder.Current()
	if snap == nil {
		return Report{}, ErrEmptyStore
	}
	sp := snap.Primary()
	if space != "" {
		var ok bool
		if sp, ok = snap.Space(space); !ok {
			return Report{}, fmt.Errorf("%w: %s", domain.ErrUnknownSpace, space)
		}
	}
	if ks == nil {
		ks = evaluation.DefaultOverallKs
	}
	if groupKs == nil {
		groupKs = evaluation.DefaultGroupKs
	}

	r, err := c.evaluator.EvaluateStore(ctx, sp.Store, ks, groupKs)
	if err != nil {
		return Report{}, fmt.Errorf("evaluate %s: %w", sp.Name(), err)
	}
	return Report{
		Space:    sp.Name(),
		Overall:  r.Overall,
		PerGroup: r.PerGroup,
		Queries:  r.Queries,
		Skipped:  r.Skipped,
	}, nil
}

// WriteReport writes reports as CSV with columns model, k, group, map.
// Overall rows carry group "*".
func WriteReport(w io.Writer, reports ...Report) error {
	sections := make([]report.Section, len(reports))
	for i, r := range reports {
		sections[i] = report.Section{
			Model: r.Space,
			Report: evaluation.Report{
				Overall:  r.Overall,
				PerGroup: r.PerGroup,
				Queries:  r.Queries,
				Skipped:  r.Skipped,
			},
		}
	}
	return report.Write(w, sections...)
}
