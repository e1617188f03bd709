package upload

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultSweepInterval = time.Hour
	DefaultSweepMaxAge   = time.Hour
)

// StartSweeper launches a background loop that deletes staged files
// older than maxAge. The pipeline disposes its own files; the sweeper
// only catches files orphaned by a crash mid-request.
func (s *Staging) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultSweepMaxAge
	}
	go s.sweepLoop(ctx, interval, maxAge)
}

func (s *Staging) sweepLoop(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweepOnce(maxAge); err != nil {
				s.log.Error().Err(err).Msg("staging sweep failed")
			}
		}
	}
}

func (s *Staging) sweepOnce(maxAge time.Duration) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", path).Msg("remove orphaned staged file failed")
			continue
		}
		s.log.Debug().Str("path", path).Msg("removed orphaned staged file")
	}
	return nil
}
