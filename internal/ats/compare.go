package ats

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/spigell/ats-scorer/internal/report"
)

// compareLimit caps concurrent evaluations; each one may call the
// elaboration service.
const compareLimit = 4

// Job is one job description in a comparison.
type Job struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Rank is a job position in a comparison.
type Rank struct {
	Job     string        `json:"job"`
	Score   int           `json:"score"`
	Rating  report.Rating `json:"rating"`
	Missing int           `json:"missing"`
}

// Comparison holds one report per job in input order and the jobs ranked
// by score.
type Comparison struct {
	Reports []*report.Report `json:"reports"`
	Ranking []Rank           `json:"ranking"`
}

// Best returns the label of the highest ranked job.
func (c *Comparison) Best() string {
	if c == nil || len(c.Ranking) == 0 {
		return ""
	}
	return c.Ranking[0].Job
}

// Compare evaluates resume against every job concurrently.
func (e *Engine) Compare(ctx context.Context, resume string, jobs []Job) (*Comparison, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("at least one job description is required")
	}

	reports := make([]*report.Report, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(compareLimit)

	for i, job := range jobs {
		label := job.Label
		if label == "" {
			label = fmt.Sprintf("job-%d", i+1)
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := e.Evaluate(gctx, resume, job.Text)
			r.Job = label
			reports[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("comparing jobs: %w", err)
	}

	ranking := make([]Rank, len(reports))
	for i, r := range reports {
		ranking[i] = Rank{Job: r.Job, Score: r.OverallScore, Rating: r.Rating, Missing: len(r.Missing())}
	}
	sort.SliceStable(ranking, func(a, b int) bool {
		if ranking[a].Score != ranking[b].Score {
			return ranking[a].Score > ranking[b].Score
		}
		return ranking[a].Missing < ranking[b].Missing
	})

	return &Comparison{Reports: reports, Ranking: ranking}, nil
}
