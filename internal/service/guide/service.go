// Package guide turns raw OCR text into a structured study guide by
// prompting a generative model and parsing its JSON reply.
package guide

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"notivate/internal/logger"
	"notivate/internal/models"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// Creative parameters are fixed constants so the output shape stays
// stable across requests.
const (
	temperature     = 0.3
	maxOutputTokens = 2500
)

var (
	// ErrUnavailable is returned when the model cannot be reached or
	// refuses the request (network, quota, auth).
	ErrUnavailable = errors.New("study guide synthesis is unavailable")
	// ErrMalformed is returned when the model replied but the reply is
	// not a parsable study guide.
	ErrMalformed = errors.New("AI returned an invalid response format")
)

// Synthesizer produces a StudyGuide from non-empty raw text.
type Synthesizer interface {
	Synthesize(ctx context.Context, rawText string) (*models.StudyGuide, error)
}

// Service implements Synthesizer on top of an eino chat model.
type Service struct {
	model model.BaseChatModel
	log   zerolog.Logger
}

// New wraps the supplied chat model.
func New(chatModel model.BaseChatModel) *Service {
	return &Service{model: chatModel, log: logger.WithComponent("guide")}
}

// Synthesize prompts the model and parses the reply. It is
// all-or-nothing: on any parse problem the caller gets ErrMalformed and
// no partial guide.
func (s *Service) Synthesize(ctx context.Context, rawText string) (*models.StudyGuide, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, fmt.Errorf("%w: empty input text", ErrMalformed)
	}

	reply, err := s.model.Generate(ctx,
		[]*schema.Message{schema.UserMessage(buildPrompt(rawText))},
		model.WithTemperature(temperature),
		model.WithMaxTokens(maxOutputTokens),
	)
	if err != nil {
		s.log.Error().Err(err).Msg("model generation failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	studyGuide, err := parseStudyGuide(reply.Content)
	if err != nil {
		s.log.Error().Err(err).Int("reply_chars", len(reply.Content)).Msg("model reply did not parse")
		return nil, err
	}
	s.log.Info().Str("title", studyGuide.Title).Int("sections", len(studyGuide.Sections)).Msg("study guide synthesized")
	return studyGuide, nil
}

// parseStudyGuide decodes the model reply, tolerating a fenced code
// block wrapper around the JSON object.
func parseStudyGuide(reply string) (*models.StudyGuide, error) {
	cleaned := stripCodeFence(reply)

	var studyGuide models.StudyGuide
	if err := json.Unmarshal([]byte(cleaned), &studyGuide); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if strings.TrimSpace(studyGuide.Title) == "" || len(studyGuide.Sections) == 0 {
		return nil, fmt.Errorf("%w: missing title or sections", ErrMalformed)
	}
	return &studyGuide, nil
}

// stripCodeFence removes a ```json ... ``` (or bare ```) wrapper.
func stripCodeFence(s string) string {
	cleaned := strings.TrimSpace(s)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
