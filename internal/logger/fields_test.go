package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/ats-scorer/internal/matching"
	"github.com/spigell/ats-scorer/internal/report"
)

func TestStrings(t *testing.T) {
	t.Parallel()

	fields := Strings("  provider  ", "  Gemini  ", "ignored", "   ", "   ", "empty key", "dangling")
	require.Len(t, fields, 1)
	assert.Equal(t, "provider", fields[0].Key)
	assert.Equal(t, "Gemini", fields[0].String)

	assert.Empty(t, Strings())
}

func TestWith(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	With(zap.New(core), zap.String("foo", "bar")).Info("test log")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "bar", entries[0].ContextMap()["foo"])

	l := zap.NewNop()
	assert.Same(t, l, With(l))

	fallback := With(nil, zap.String("baz", "qux"))
	require.NotNil(t, fallback)
	fallback.Info("does not panic")
}

func TestForElaboration(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	ForElaboration(zap.New(core), "gemini", "").Info("test log")

	ctx := observed.All()[0].ContextMap()
	assert.Equal(t, "gemini", ctx[FieldProvider])
	assert.NotContains(t, ctx, FieldModel)

	require.NotNil(t, ForElaboration(nil, "gemini", "model-x"))
}

func TestReportFields(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ReportFields(nil))

	core, observed := observer.New(zapcore.InfoLevel)
	r := &report.Report{
		Job:          "backend",
		OverallScore: 71,
		Rating:       report.RatingGood,
		Matches: []matching.Result{
			{Keyword: "go", Verdict: matching.Matched},
			{Keyword: "aws", Verdict: matching.Missing},
		},
		Findings: []report.Finding{{Code: "missing_keyword"}},
	}
	zap.New(core).Info("resume evaluated", ReportFields(r)...)

	ctx := observed.All()[0].ContextMap()
	assert.EqualValues(t, 71, ctx["overall_score"])
	assert.Equal(t, "good", ctx["rating"])
	assert.EqualValues(t, 1, ctx["matched"])
	assert.EqualValues(t, 1, ctx["missing"])
	assert.EqualValues(t, 1, ctx["findings"])
	assert.Equal(t, "backend", ctx[FieldJob])
	assert.NotContains(t, ctx, FieldDictionaryVersion)
}
