package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/spigell/ats-scorer/internal/ai"
	"github.com/spigell/ats-scorer/internal/report"
	"github.com/spigell/ats-scorer/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200

	systemInstruction = "You explain resume screening findings to candidates. Answer with JSON only."

	responseSchema = `{
  "type": "object",
  "required": ["elaborations"],
  "additionalProperties": false,
  "properties": {
    "elaborations": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    }
  }
}`
)

// Elaborator asks Gemini to explain findings in prose.
type Elaborator struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	schema    *gojsonschema.Schema
}

var _ ai.Elaborator = (*Elaborator)(nil)

func NewElaborator(generator contentGenerator, logger *zap.Logger, maxLogLength int) (*Elaborator, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(responseSchema))
	if err != nil {
		return nil, fmt.Errorf("load response schema: %w", err)
	}

	return &Elaborator{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
		schema:    schema,
	}, nil
}

// Model returns the model used by the underlying generator.
func (e *Elaborator) Model() string {
	return e.generator.Model()
}

// Elaborate returns one explanation per finding.
func (e *Elaborator) Elaborate(ctx context.Context, findings []report.Finding) ([]string, error) {
	if len(findings) == 0 {
		return []string{}, nil
	}

	findingsJSON, err := json.MarshalIndent(promptFindings(findings), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal findings: %w", err)
	}

	prompt := buildPrompt(string(findingsJSON), len(findings))

	e.logger.Debug("gemini elaboration request",
		zap.Int("findings", len(findings)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini elaboration response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	texts, err := e.parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if err := ai.CheckCount(texts, findings); err != nil {
		return nil, err
	}
	return texts, nil
}

type promptFinding struct {
	Index    int      `json:"index"`
	Code     string   `json:"code"`
	Severity string   `json:"severity"`
	Message  string   `json:"message"`
	Keywords []string `json:"keywords,omitempty"`
	Section  string   `json:"section,omitempty"`
}

func promptFindings(findings []report.Finding) []promptFinding {
	out := make([]promptFinding, len(findings))
	for i, f := range findings {
		out[i] = promptFinding{
			Index:    i + 1,
			Code:     f.Code,
			Severity: string(f.Severity),
			Message:  f.Message,
			Keywords: f.Keywords,
			Section:  f.Section,
		}
	}
	return out
}

func buildPrompt(findingsJSON string, count int) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Findings:\n{{FINDINGS_JSON}}\n\nReturn {{COUNT}} elaborations as JSON:"
	}
	prompt := strings.ReplaceAll(template, "{{FINDINGS_JSON}}", findingsJSON)
	return strings.ReplaceAll(prompt, "{{COUNT}}", strconv.Itoa(count))
}

func (e *Elaborator) parseResponse(raw string) ([]string, error) {
	cleaned := extractJSON(raw)

	result, err := e.schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, fmt.Errorf("gemini response does not match schema: %s", strings.Join(problems, "; "))
	}

	var payload struct {
		Elaborations []string `json:"elaborations"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	for i, text := range payload.Elaborations {
		payload.Elaborations[i] = strings.TrimSpace(text)
	}
	return payload.Elaborations, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
