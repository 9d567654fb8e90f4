package feedback

import (
	"strconv"
	"strings"

	"github.com/spigell/ats-scorer/internal/matching"
	"github.com/spigell/ats-scorer/internal/report"
)

const (
	CodeMissingKeyword   = "missing_keyword"
	CodeMissingSection   = "missing_section"
	CodePartialKeyword   = "partial_keyword"
	CodeKeywordStuffing  = "keyword_stuffing"
	CodeNoSectionHeaders = "no_section_headers"
	CodeBelowThreshold   = "below_threshold"
)

const (
	tmplMissingKeyword   = `The job description asks for "{keyword}". Add it to your {section} section.`
	tmplMissingSection   = `No {section} section was found. Add one under a standard heading.`
	tmplPartialKeyword   = `Use the exact phrase "{keyword}"; your resume only has "{found}".`
	tmplKeywordStuffing  = `Possible keyword stuffing: matched keywords cover {density}% of the resume, above the {ceiling}% ceiling.`
	tmplNoSectionHeaders = `Use standard section headings such as Work Experience, Education and Skills so ATS parsers can find your content.`
	tmplBelowThreshold   = `Overall score {score} is below the pass threshold of {threshold}.`
)

type missingKeywordRule struct{ toggle }

func (r *missingKeywordRule) Name() string { return CodeMissingKeyword }

func (r *missingKeywordRule) Apply(in Input) ([]report.Finding, Step) {
	var out []report.Finding
	step := Step{}
	for _, m := range in.Report.Matches {
		if m.Verdict != matching.Missing {
			continue
		}
		step.Checked++
		if m.Weight < in.Options.MinFindingWeight {
			continue
		}

		section := in.Dict.Advice(m.JobSection)
		out = append(out, report.Finding{
			Code:     CodeMissingKeyword,
			Severity: report.SeverityHigh,
			Template: tmplMissingKeyword,
			Message:  render(tmplMissingKeyword, map[string]string{"keyword": m.Keyword, "section": section}),
			Keywords: []string{m.Keyword},
			Section:  section,
		})
	}
	step.Emitted = len(out)
	return out, step
}

type missingSectionRule struct{ toggle }

func (r *missingSectionRule) Name() string { return CodeMissingSection }

func (r *missingSectionRule) Apply(in Input) ([]report.Finding, Step) {
	var out []report.Finding
	for _, s := range in.Report.Sections {
		if s.Present {
			continue
		}
		out = append(out, report.Finding{
			Code:     CodeMissingSection,
			Severity: report.SeverityHigh,
			Template: tmplMissingSection,
			Message:  render(tmplMissingSection, map[string]string{"section": s.Name}),
			Section:  s.Name,
		})
	}
	return out, Step{Checked: len(in.Report.Sections), Emitted: len(out)}
}

type partialKeywordRule struct{ toggle }

func (r *partialKeywordRule) Name() string { return CodePartialKeyword }

func (r *partialKeywordRule) Apply(in Input) ([]report.Finding, Step) {
	var out []report.Finding
	step := Step{}
	for _, m := range in.Report.Matches {
		if m.Verdict != matching.PartiallyMatched {
			continue
		}
		step.Checked++
		if m.Weight < in.Options.MinFindingWeight {
			continue
		}

		section := ""
		if len(m.Locations) > 0 {
			section = m.Locations[0].Section
		}
		out = append(out, report.Finding{
			Code:     CodePartialKeyword,
			Severity: report.SeverityMedium,
			Template: tmplPartialKeyword,
			Message: render(tmplPartialKeyword, map[string]string{
				"keyword": m.Keyword,
				"found":   strings.Join(m.MatchedTerms, `", "`),
			}),
			Keywords: append([]string{m.Keyword}, m.MatchedTerms...),
			Section:  section,
		})
	}
	step.Emitted = len(out)
	return out, step
}

type stuffingRule struct{ toggle }

func (r *stuffingRule) Name() string { return CodeKeywordStuffing }

func (r *stuffingRule) Apply(in Input) ([]report.Finding, Step) {
	sub := in.Report.SubScores
	if !sub.Stuffing {
		return nil, Step{Checked: 1}
	}

	var stuffed []string
	for _, m := range in.Report.Matches {
		if m.Verdict == matching.Matched && len(m.Locations) > 1 {
			stuffed = append(stuffed, m.Keyword)
		}
	}

	return []report.Finding{{
		Code:     CodeKeywordStuffing,
		Severity: report.SeverityMedium,
		Template: tmplKeywordStuffing,
		Message: render(tmplKeywordStuffing, map[string]string{
			"density": percent(sub.KeywordDensity),
			"ceiling": percent(sub.DensityCeiling),
		}),
		Keywords: stuffed,
	}}, Step{Checked: 1, Emitted: 1}
}

type headingsRule struct{ toggle }

func (r *headingsRule) Name() string { return CodeNoSectionHeaders }

func (r *headingsRule) Apply(in Input) ([]report.Finding, Step) {
	if in.Report.Segmented || in.Report.ResumeTokens == 0 {
		return nil, Step{Checked: 1}
	}
	return []report.Finding{{
		Code:     CodeNoSectionHeaders,
		Severity: report.SeverityInfo,
		Template: tmplNoSectionHeaders,
		Message:  tmplNoSectionHeaders,
	}}, Step{Checked: 1, Emitted: 1}
}

type thresholdRule struct{ toggle }

func (r *thresholdRule) Name() string { return CodeBelowThreshold }

func (r *thresholdRule) Apply(in Input) ([]report.Finding, Step) {
	if in.Report.OverallScore >= in.Options.PassThreshold {
		return nil, Step{Checked: 1}
	}
	return []report.Finding{{
		Code:     CodeBelowThreshold,
		Severity: report.SeverityInfo,
		Template: tmplBelowThreshold,
		Message: render(tmplBelowThreshold, map[string]string{
			"score":     strconv.Itoa(in.Report.OverallScore),
			"threshold": strconv.Itoa(in.Options.PassThreshold),
		}),
	}}, Step{Checked: 1, Emitted: 1}
}
