package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/ats-scorer/internal/ai"
	"github.com/spigell/ats-scorer/internal/ats"
	"github.com/spigell/ats-scorer/internal/config"
	"github.com/spigell/ats-scorer/internal/dictionary"
	"github.com/spigell/ats-scorer/internal/feedback"
	"github.com/spigell/ats-scorer/internal/source"
)

const (
	defaultMaxJobs = 20
	maxTextLength  = 200000
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type EvaluateRequest struct {
	Resume         string         `json:"resume" validate:"max=200000"`
	JobDescription string         `json:"job_description" validate:"max=200000"`
	Config         map[string]any `json:"config,omitempty"`
}

type CompareRequest struct {
	Resume string         `json:"resume" validate:"max=200000"`
	Jobs   []ats.Job      `json:"jobs" validate:"required,min=1,dive"`
	Config map[string]any `json:"config,omitempty"`
}

type DictionaryResponse struct {
	Stats    dictionary.Stats  `json:"stats"`
	Sections []string          `json:"sections"`
	Rules    []feedback.Status `json:"rules"`
	Config   config.Scoring    `json:"config"`
}

type handler struct {
	engine     *ats.Engine
	dict       *dictionary.Dictionary
	elaborator ai.Elaborator
	maxJobs    int
	checks     []HealthCheck
	logger     *zap.Logger
}

func (h *handler) register(app *fiber.App) {
	app.Get("/health", h.health)

	v1 := app.Group("/v1")
	v1.Get("/dictionary", h.dictionary)
	v1.Post("/evaluate", h.evaluate)
	v1.Post("/evaluate/upload", h.evaluateUpload)
	v1.Post("/compare", h.compare)
}

func (h *handler) health(c fiber.Ctx) error {
	status := "ok"
	checks := make(map[string]string, len(h.checks))
	for _, chk := range h.checks {
		ctx, cancel := context.WithTimeout(c.Context(), healthTimeout)
		err := chk.Check(ctx)
		cancel()

		checks[chk.Name] = "ok"
		if err != nil {
			status = "degraded"
			checks[chk.Name] = err.Error()
		}
	}

	return success(c, fiber.Map{
		"status":             status,
		"dictionary_version": h.engine.Dictionary().Version(),
		"elaboration":        h.elaborator != nil,
		"checks":             checks,
	})
}

func (h *handler) dictionary(c fiber.Ctx) error {
	dict := h.engine.Dictionary()
	return success(c, DictionaryResponse{
		Stats:    dict.Stats(),
		Sections: dict.Sections(),
		Rules:    feedback.Describe(h.engine.Rules()),
		Config:   h.engine.Config(),
	})
}

func (h *handler) evaluate(c fiber.Ctx) error {
	var req EvaluateRequest
	if err := c.Bind().Body(&req); err != nil {
		return NewAppError(fiber.StatusBadRequest, "invalid request body", nil, err)
	}
	if err := validate.Struct(req); err != nil {
		return NewAppError(fiber.StatusBadRequest, "invalid request", validationDetails(err), err)
	}

	engine, err := h.engineFor(req.Config, c.Query("elaborate"))
	if err != nil {
		return err
	}

	return success(c, engine.Evaluate(c.Context(), req.Resume, req.JobDescription))
}

// evaluateUpload scores an uploaded resume document. The form carries the
// resume file, the job_description text and an optional JSON config.
func (h *handler) evaluateUpload(c fiber.Ctx) error {
	fh, err := c.FormFile("resume")
	if err != nil {
		return NewAppError(fiber.StatusBadRequest, "resume file is required", nil, err)
	}

	kind, err := source.KindFromMIME(fh.Header.Get(fiber.HeaderContentType))
	if err != nil || fh.Header.Get(fiber.HeaderContentType) == "" {
		kind, err = source.KindFromPath(fh.Filename)
	}
	if err != nil {
		return NewAppError(fiber.StatusUnsupportedMediaType, "unsupported resume format", nil, err)
	}

	f, err := fh.Open()
	if err != nil {
		return NewAppError(fiber.StatusBadRequest, "reading resume file", nil, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return NewAppError(fiber.StatusBadRequest, "reading resume file", nil, err)
	}

	resume, err := source.Extract(kind, data)
	if err != nil {
		return NewAppError(fiber.StatusUnprocessableEntity, "could not extract resume text", nil, err)
	}

	var overrides map[string]any
	if raw := c.FormValue("config"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			return NewAppError(fiber.StatusBadRequest, "config must be a JSON object", nil, err)
		}
	}

	req := EvaluateRequest{Resume: resume, JobDescription: c.FormValue("job_description"), Config: overrides}
	if err := validate.Struct(req); err != nil {
		return NewAppError(fiber.StatusBadRequest, "invalid request", validationDetails(err), err)
	}

	engine, err := h.engineFor(req.Config, c.Query("elaborate"))
	if err != nil {
		return err
	}

	h.logger.Debug("resume uploaded", zap.String("filename", fh.Filename), zap.String("kind", string(kind)), zap.Int("bytes", len(data)))
	return success(c, engine.Evaluate(c.Context(), req.Resume, req.JobDescription))
}

func (h *handler) compare(c fiber.Ctx) error {
	var req CompareRequest
	if err := c.Bind().Body(&req); err != nil {
		return NewAppError(fiber.StatusBadRequest, "invalid request body", nil, err)
	}
	if err := validate.Struct(req); err != nil {
		return NewAppError(fiber.StatusBadRequest, "invalid request", validationDetails(err), err)
	}
	if len(req.Jobs) > h.maxJobs {
		return NewAppError(fiber.StatusBadRequest, fmt.Sprintf("at most %d jobs can be compared", h.maxJobs), nil, nil)
	}
	for i, job := range req.Jobs {
		if len(job.Text) > maxTextLength {
			return NewAppError(fiber.StatusBadRequest, fmt.Sprintf("job %d exceeds %d characters", i+1, maxTextLength), nil, nil)
		}
	}

	engine, err := h.engineFor(req.Config, c.Query("elaborate"))
	if err != nil {
		return err
	}

	cmp, err := engine.Compare(c.Context(), req.Resume, req.Jobs)
	if err != nil {
		return NewAppError(fiber.StatusInternalServerError, "", nil, err)
	}
	return success(c, cmp)
}

// engineFor returns the shared engine unless the request overrides the
// configuration or opts out of elaboration.
func (h *handler) engineFor(overrides map[string]any, elaborate string) (*ats.Engine, error) {
	withElaboration := h.elaborator != nil
	if elaborate != "" {
		v, err := strconv.ParseBool(elaborate)
		if err != nil {
			return nil, NewAppError(fiber.StatusBadRequest, "elaborate must be a boolean", nil, err)
		}
		withElaboration = withElaboration && v
	}

	if len(overrides) == 0 && withElaboration == (h.elaborator != nil) {
		return h.engine, nil
	}

	cfg, err := decodeConfig(h.engine.Config(), overrides)
	if err != nil {
		return nil, NewAppError(fiber.StatusBadRequest, "invalid config", nil, err)
	}

	opts := []ats.Option{ats.WithLogger(h.logger)}
	if withElaboration {
		opts = append(opts, ats.WithElaborator(h.elaborator))
	}

	engine, err := ats.New(h.dict, cfg, opts...)
	if err != nil {
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			return nil, NewAppError(fiber.StatusBadRequest, "invalid config", ve.Errors, err)
		}
		return nil, NewAppError(fiber.StatusBadRequest, "invalid config", nil, err)
	}
	return engine, nil
}

// decodeConfig applies snake_case overrides on top of base. Lists and maps
// present in overrides replace the base values.
func decodeConfig(base config.Scoring, overrides map[string]any) (config.Scoring, error) {
	cfg := base
	if len(overrides) == 0 {
		return cfg, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		ZeroFields:  true,
		DecodeHook:  rejectFractionalInts,
		Result:      &cfg,
	})
	if err != nil {
		return base, err
	}
	if err := dec.Decode(overrides); err != nil {
		return base, err
	}
	return cfg, nil
}

// rejectFractionalInts refuses JSON numbers such as 70.5 for integer fields
// instead of letting the decoder truncate them.
func rejectFractionalInts(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 && from.Kind() != reflect.Float32 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f := reflect.ValueOf(data).Float()
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("expected an integer, got %v", f)
		}
	}
	return data, nil
}

func validationDetails(err error) []config.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]config.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, config.FieldError{Field: fe.Namespace(), Message: fmt.Sprintf("failed %q check", fe.Tag())})
	}
	return out
}
