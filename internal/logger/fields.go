package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ats-scorer/internal/report"
)

const (
	FieldProvider          = "elaboration_provider"
	FieldModel             = "elaboration_model"
	FieldJob               = "job"
	FieldDictionaryVersion = "dictionary_version"
)

// Strings turns key, value pairs into zap string fields. Pairs with a blank
// key or value are dropped, as is a trailing key without a value.
func Strings(pairs ...string) []zap.Field {
	fields := make([]zap.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, value := strings.TrimSpace(pairs[i]), strings.TrimSpace(pairs[i+1])
		if key == "" || value == "" {
			continue
		}
		fields = append(fields, zap.String(key, value))
	}
	return fields
}

// With attaches fields to l, falling back to a no-op logger when l is nil.
func With(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// ForElaboration returns a logger tagged with the elaboration backend.
func ForElaboration(l *zap.Logger, provider, model string) *zap.Logger {
	return With(l, Strings(FieldProvider, provider, FieldModel, model)...)
}

// ReportFields returns the fields logged for a finished evaluation.
func ReportFields(r *report.Report) []zap.Field {
	if r == nil {
		return nil
	}
	counts := r.Counts()
	fields := []zap.Field{
		zap.Int("overall_score", r.OverallScore),
		zap.String("rating", string(r.Rating)),
		zap.Float64("keyword_coverage", r.SubScores.KeywordCoverage),
		zap.Float64("section_completeness", r.SubScores.SectionCompleteness),
		zap.Float64("keyword_density", r.SubScores.KeywordDensity),
		zap.Int("matched", counts.Matched),
		zap.Int("partial", counts.Partial),
		zap.Int("missing", counts.Missing),
		zap.Int("findings", len(r.Findings)),
	}
	return append(fields, Strings(FieldJob, r.Job, FieldDictionaryVersion, r.DictionaryVersion)...)
}
