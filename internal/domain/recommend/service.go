package recommend

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medbook/api/internal/platform/apperr"
)

var ErrSymptomsRequired = apperr.New(apperr.ErrInvalidInput, "Symptoms are required")

// Recorder counts recommendations by the method that produced them.
type Recorder interface {
	RecordRecommendation(method string)
}

type Request struct {
	Symptoms  string `json:"symptoms"`
	UseOpenAI bool   `json:"use_openai"`
}

type Recommendation struct {
	Specialty string `json:"specialty"`
	Method    string `json:"method"`
	Message   string `json:"message"`
	Symptoms  string `json:"symptoms"`
}

// Service answers with the external classifier when asked and configured,
// and with the keyword rules otherwise or when that fails.
type Service struct {
	external Classifier
	recorder Recorder
	logger   zerolog.Logger
}

// NewService builds a Service. external may be nil.
func NewService(external Classifier, recorder Recorder, logger zerolog.Logger) *Service {
	return &Service{external: external, recorder: recorder, logger: logger}
}

func (s *Service) Recommend(ctx context.Context, req Request) (*Recommendation, error) {
	if strings.TrimSpace(req.Symptoms) == "" {
		return nil, ErrSymptomsRequired
	}

	specialty, method := "", MethodRuleBased
	if req.UseOpenAI && s.external != nil {
		answer, err := s.external.Classify(ctx, req.Symptoms)
		if err != nil {
			s.logger.Warn().Err(err).Msg("external classifier failed, using rules")
		} else {
			specialty, method = answer, MethodOpenAI
		}
	}
	if specialty == "" {
		specialty = RuleBased(req.Symptoms)
	}
	s.recorder.RecordRecommendation(method)

	return &Recommendation{
		Specialty: specialty,
		Method:    method,
		Message:   "Based on your symptoms, we recommend consulting a " + specialty + ".",
		Symptoms:  req.Symptoms,
	}, nil
}
