package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spigell/ats-scorer/internal/ats"
	"github.com/spigell/ats-scorer/internal/report"
)

func writeReport(w io.Writer, r *report.Report) error {
	fmt.Fprintf(w, "%s\n", r.Job)
	fmt.Fprintf(w, "Score: %d (%s)\n", r.OverallScore, r.Rating)
	fmt.Fprintf(w, "Keyword coverage: %.1f%%  Section completeness: %.1f%%  Keyword density: %.1f%%\n",
		r.SubScores.KeywordCoverage, r.SubScores.SectionCompleteness, r.SubScores.KeywordDensity*100)

	sections := make([]string, 0, len(r.Sections))
	for _, s := range r.Sections {
		mark := "missing"
		if s.Present {
			mark = "ok"
			if s.Inferred {
				mark = "inferred"
			}
		}
		sections = append(sections, fmt.Sprintf("%s %s", s.Name, mark))
	}
	if len(sections) > 0 {
		fmt.Fprintf(w, "Sections: %s\n", strings.Join(sections, ", "))
	}

	fmt.Fprintln(w)
	return writeFindings(w, r)
}

func writeFindings(w io.Writer, r *report.Report) error {
	if len(r.Findings) == 0 {
		_, err := fmt.Fprintln(w, "No findings.")
		return err
	}

	for _, f := range r.Findings {
		fmt.Fprintf(w, "[%s] %s\n", f.Severity, f.Message)
		if f.Elaboration != "" {
			fmt.Fprintf(w, "    %s\n", f.Elaboration)
		}
	}
	return nil
}

func writeMatches(w io.Writer, r *report.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEYWORD\tWEIGHT\tVERDICT\tBASIS\tMATCHED")
	for _, m := range r.Matches {
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%s\t%s\n", m.Keyword, m.Weight, m.Verdict, m.Basis, strings.Join(m.MatchedTerms, ", "))
	}
	return tw.Flush()
}

func writeRanking(w io.Writer, cmp *ats.Comparison) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tJOB\tSCORE\tRATING\tMISSING")
	for i, rank := range cmp.Ranking {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\n", i+1, rank.Job, rank.Score, rank.Rating, rank.Missing)
	}
	return tw.Flush()
}
