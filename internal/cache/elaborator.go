package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/ats-scorer/internal/ai"
	"github.com/spigell/ats-scorer/internal/report"
)

const keyPrefix = "ats:elaboration:"

// Elaborator serves elaborations from a Store and only calls the wrapped
// elaborator on a miss.
type Elaborator struct {
	next   ai.Elaborator
	store  Store
	model  string
	logger *zap.Logger
}

var _ ai.Elaborator = (*Elaborator)(nil)

// NewElaborator wraps next. model is part of the key so switching models
// does not serve stale prose.
func NewElaborator(next ai.Elaborator, store Store, model string, logger *zap.Logger) *Elaborator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Elaborator{next: next, store: store, model: model, logger: logger}
}

func (e *Elaborator) Elaborate(ctx context.Context, findings []report.Finding) ([]string, error) {
	key, err := Key(e.model, findings)
	if err != nil {
		return e.next.Elaborate(ctx, findings)
	}

	var cached []string
	found, err := e.store.GetJSON(ctx, key, &cached)
	if err != nil {
		e.logger.Debug("elaboration cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found && ai.CheckCount(cached, findings) == nil {
		e.logger.Debug("elaboration cache hit", zap.String("key", key))
		return cached, nil
	}

	texts, err := e.next.Elaborate(ctx, findings)
	if err != nil {
		return nil, err
	}

	if err := e.store.SetJSON(ctx, key, texts, 0); err != nil {
		e.logger.Debug("elaboration cache write failed", zap.String("key", key), zap.Error(err))
	}
	return texts, nil
}

type keyFinding struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Keywords []string `json:"keywords"`
	Section  string   `json:"section"`
}

// Key derives the cache key for a model and an ordered list of findings.
func Key(model string, findings []report.Finding) (string, error) {
	parts := make([]keyFinding, len(findings))
	for i, f := range findings {
		parts[i] = keyFinding{Code: f.Code, Message: f.Message, Keywords: f.Keywords, Section: f.Section}
	}
	b, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("marshal findings: %w", err)
	}
	sum := sha256.Sum256(b)
	return keyPrefix + model + ":" + hex.EncodeToString(sum[:]), nil
}
