package categorize

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

const maxTermsLength = 4000

const (
	SourceGenAI    = "genai"
	SourceKeywords = "keywords"
)

// Result is an advisory label for quotation terms.
type Result struct {
	Label  Label  `json:"label"`
	Source string `json:"source"`
}

// Service suggests a label for free-text quotation terms.
type Service interface {
	Categorize(ctx context.Context, terms string) (*Result, error)
}

type modelClassifier interface {
	Classify(ctx context.Context, terms string) (Label, error)
}

// ServiceParams wires the categorization service. Model may be nil.
type ServiceParams struct {
	Model   modelClassifier
	Timeout time.Duration
	Logger  *logger.Logger
}

type service struct {
	model    modelClassifier
	keywords KeywordClassifier
	timeout  time.Duration
	logg     *logger.Logger
}

// NewService builds the categorizer. Without a model only keywords are used.
func NewService(params ServiceParams) Service {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &service{
		model:   params.Model,
		timeout: timeout,
		logg:    params.Logger,
	}
}

func (s *service) Categorize(ctx context.Context, terms string) (*Result, error) {
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return nil, pkgerrors.Validation("terms", "must not be empty")
	}
	if utf8.RuneCountInString(terms) > maxTermsLength {
		return nil, pkgerrors.Validation("terms", "is too long")
	}

	if s.model != nil {
		modelCtx, cancel := context.WithTimeout(ctx, s.timeout)
		label, err := s.model.Classify(modelCtx, terms)
		cancel()
		if err == nil {
			return &Result{Label: label, Source: SourceGenAI}, nil
		}
		if s.logg != nil {
			warnCtx := s.logg.WithFields(ctx, map[string]any{
				"fallback": SourceKeywords,
				"error":    err.Error(),
			})
			s.logg.Warn(warnCtx, "genai categorization failed")
		}
	}

	return &Result{Label: s.keywords.Classify(terms), Source: SourceKeywords}, nil
}
