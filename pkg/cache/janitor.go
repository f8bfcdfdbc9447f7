package cache

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LegacySentinel is a root-level file left behind by older clients. The
// janitor always removes it.
const LegacySentinel = ".adId"

// SweepReport summarizes one janitor sweep.
type SweepReport struct {
	Cutoff          time.Time
	FilesRemoved    int
	DirsRemoved     int
	Failures        int
	SentinelRemoved bool
}

// Janitor removes obsolete entries of the legacy per-template layout.
// It is not a size or unit bounded evictor.
type Janitor struct {
	store  *Store
	ttl    time.Duration
	logger zerolog.Logger

	mu   sync.Mutex
	last SweepReport
}

// NewJanitor creates a janitor for store and runs one sweep immediately.
// Negative ttlDays are treated as zero.
func NewJanitor(store *Store, ttlDays int, logger zerolog.Logger) *Janitor {
	if ttlDays < 0 {
		ttlDays = 0
	}
	j := &Janitor{
		store:  store,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		logger: logger.With().Str("component", "janitor").Logger(),
	}
	j.Sweep(time.Now())
	return j
}

// LastReport returns the result of the most recent sweep.
func (j *Janitor) LastReport() SweepReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

// Sweep deletes every file older than now-ttl inside the subdirectories of
// the template namespace, removes subdirectories this sweep emptied, and removes
// the legacy sentinel. A failed deletion never stops the sweep.
func (j *Janitor) Sweep(now time.Time) SweepReport {
	report := SweepReport{Cutoff: now.Add(-j.ttl)}

	templates, err := j.store.NamespaceDir(NamespaceTemplateMetadata)
	if err == nil {
		j.sweepTemplates(templates, &report)
	}

	sentinel := filepath.Join(j.store.Root(), LegacySentinel)
	removed, err := j.store.Delete(sentinel)
	switch {
	case err != nil:
		report.Failures++
		JanitorFailures.Inc()
	case removed:
		report.SentinelRemoved = true
		JanitorRemoved.WithLabelValues("sentinel").Inc()
	}

	j.logger.Info().
		Time("cutoff", report.Cutoff).
		Int("files_removed", report.FilesRemoved).
		Int("dirs_removed", report.DirsRemoved).
		Int("failures", report.Failures).
		Bool("sentinel_removed", report.SentinelRemoved).
		Msg("Legacy cache sweep complete")

	j.mu.Lock()
	j.last = report
	j.mu.Unlock()
	return report
}

func (j *Janitor) sweepTemplates(templates string, report *SweepReport) {
	dirs, err := os.ReadDir(templates)
	if err != nil {
		j.logger.Warn().Err(err).Str("path", templates).Msg("Cannot list template directory")
		report.Failures++
		JanitorFailures.Inc()
		return
	}

	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		sub := filepath.Join(templates, dir.Name())
		if j.sweepTemplateDir(sub, report) == 0 {
			continue
		}

		remaining, err := os.ReadDir(sub)
		if err != nil {
			j.logger.Warn().Err(err).Str("path", sub).Msg("Cannot list template subdirectory")
			report.Failures++
			JanitorFailures.Inc()
			continue
		}
		if len(remaining) > 0 {
			continue
		}
		if removed, err := j.store.Delete(sub); err != nil {
			report.Failures++
			JanitorFailures.Inc()
		} else if removed {
			report.DirsRemoved++
			JanitorRemoved.WithLabelValues("dir").Inc()
		}
	}
}

// sweepTemplateDir removes the expired files of sub and returns how many
// were removed. Directories already empty are left alone.
func (j *Janitor) sweepTemplateDir(sub string, report *SweepReport) int {
	files, err := os.ReadDir(sub)
	if err != nil {
		j.logger.Warn().Err(err).Str("path", sub).Msg("Cannot list template subdirectory")
		report.Failures++
		JanitorFailures.Inc()
		return 0
	}

	removedHere := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		path := filepath.Join(sub, file.Name())
		info, err := file.Info()
		if err != nil {
			j.logger.Warn().Err(err).Str("path", path).Msg("Cannot stat template file")
			report.Failures++
			JanitorFailures.Inc()
			continue
		}
		if !info.ModTime().Before(report.Cutoff) {
			continue
		}
		if removed, err := j.store.Delete(path); err != nil {
			report.Failures++
			JanitorFailures.Inc()
		} else if removed {
			removedHere++
			report.FilesRemoved++
			JanitorRemoved.WithLabelValues("file").Inc()
		}
	}
	return removedHere
}
