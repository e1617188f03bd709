// Package transform runs the upload-to-study-guide pipeline: quota
// check, OCR, synthesis, usage accounting, and guaranteed disposal of
// the staged image.
package transform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"notivate/internal/logger"
	"notivate/internal/models"
	"notivate/internal/service/guide"
	"notivate/internal/service/ocr"
	"notivate/internal/service/usage"
	"notivate/internal/upload"

	"github.com/rs/zerolog"
)

const (
	DefaultOCRTimeout       = 30 * time.Second
	DefaultSynthesisTimeout = 60 * time.Second
)

// Config bounds the two external adapter calls.
type Config struct {
	OCRTimeout       time.Duration
	SynthesisTimeout time.Duration
}

// Result is the successful pipeline output. RawText is returned to the
// caller alongside the guide for display and debugging.
type Result struct {
	RawText    string
	StudyGuide *models.StudyGuide
}

// Pipeline sequences one transform request. Adapters are injected so
// tests can substitute doubles.
type Pipeline struct {
	extractor   ocr.Extractor
	synthesizer guide.Synthesizer
	accounting  usage.Accountant
	cfg         Config
	log         zerolog.Logger
}

// New wires the pipeline from its collaborators.
func New(extractor ocr.Extractor, synthesizer guide.Synthesizer, accounting usage.Accountant, cfg Config) *Pipeline {
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = DefaultOCRTimeout
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = DefaultSynthesisTimeout
	}
	return &Pipeline{
		extractor:   extractor,
		synthesizer: synthesizer,
		accounting:  accounting,
		cfg:         cfg,
		log:         logger.WithComponent("transform"),
	}
}

// Run executes the pipeline for one staged image. Ordering is the
// correctness property of the billing-adjacent path: the quota check
// strictly precedes synthesis, and the usage increment happens only
// after synthesis succeeded. The staged image is disposed on every
// exit path, including panics.
func (p *Pipeline) Run(ctx context.Context, caller *models.Identity, img *upload.StagedImage) (*Result, error) {
	defer func() {
		if err := img.Remove(); err != nil {
			p.log.Error().Err(err).Str("path", img.Path).Msg("dispose staged image failed")
		}
	}()

	if caller == nil || caller.UserID == "" {
		return nil, fmt.Errorf("caller identity is required")
	}
	log := p.log.With().Str("user_id", caller.UserID).Str("file", img.OriginalName).Logger()

	// Quota gate before any paid external call. Accounting errors here
	// fail the request: an unmetered transform defeats the quota.
	check, err := p.accounting.Check(ctx, caller.UserID, caller.Tier)
	if err != nil {
		return nil, fmt.Errorf("check usage quota: %w", err)
	}
	if !check.Allowed {
		log.Info().Int("current", check.CurrentUsage).Int("limit", check.Limit).Msg("transform rejected, quota exhausted")
		return nil, &QuotaExceededError{CurrentUsage: check.CurrentUsage, Limit: check.Limit}
	}

	imageBytes, err := img.Bytes()
	if err != nil {
		return nil, fmt.Errorf("read staged image: %w", err)
	}

	rawText, err := p.extract(ctx, imageBytes)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rawText) == "" {
		log.Info().Msg("ocr found no text")
		return nil, ErrNoTextFound
	}
	log.Debug().Int("chars", len(rawText)).Msg("ocr extraction done")

	studyGuide, err := p.synthesize(ctx, rawText)
	if err != nil {
		return nil, err
	}

	// Increment strictly after synthesis success, free tier only. A
	// failure here is logged and swallowed: the user already has their
	// guide, and a failed transform must never have been charged.
	if !caller.Premium() {
		if err := p.accounting.Record(ctx, caller.UserID); err != nil {
			log.Error().Err(err).Msg("record usage failed after successful transform")
		}
	}

	log.Info().Str("title", studyGuide.Title).Msg("transform completed")
	return &Result{RawText: rawText, StudyGuide: studyGuide}, nil
}

func (p *Pipeline) extract(ctx context.Context, imageBytes []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.OCRTimeout)
	defer cancel()
	text, err := p.extractor.ExtractText(ctx, imageBytes)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}

func (p *Pipeline) synthesize(ctx context.Context, rawText string) (*models.StudyGuide, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.SynthesisTimeout)
	defer cancel()
	studyGuide, err := p.synthesizer.Synthesize(ctx, rawText)
	if err != nil {
		return nil, fmt.Errorf("synthesize guide: %w", err)
	}
	return studyGuide, nil
}
