// Package jsonfile provides the primary report sink: one JSON artifact per run,
// written atomically under the configured output directory.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"dbhealth/internal/model"
	"dbhealth/internal/report/artifact"
)

const (
	extension = ".json"
	// maxCollisions bounds the _1, _2 ... suffix search.
	maxCollisions = 1000
)

// Writer implements report.ReportWriter for the JSON artifact format.
type Writer struct{}

// NewWriter creates a new JSON report writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() string {
	return "json"
}

// Extension returns the file extension of the artifact.
func (w *Writer) Extension() string {
	return extension
}

// Write serializes the report and atomically writes it to outputPath.
func (w *Writer) Write(r *model.MonitoringReport, outputPath string) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	return writeAtomic(outputPath, data)
}

// Marshal builds the artifact document and encodes it.
// The report is fully serialized in memory before anything touches disk.
func Marshal(r *model.MonitoringReport) ([]byte, error) {
	doc, err := artifact.Document(r)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSerialization, err)
	}
	return append(data, '\n'), nil
}

// Sink persists reports as uniquely named, timestamp-suffixed JSON files.
type Sink struct {
	dir      string
	template string
	logger   zerolog.Logger
}

// NewSink creates a Sink writing under dir. template is the filename template
// without extension (see artifact.Filename).
func NewSink(dir, template string, logger zerolog.Logger) *Sink {
	if dir == "" {
		dir = "."
	}
	return &Sink{
		dir:      dir,
		template: template,
		logger:   logger.With().Str("component", "json-sink").Logger(),
	}
}

// Save writes the report and returns the artifact path.
// On failure no partial artifact is left behind, and an existing artifact is
// never replaced.
func (s *Sink) Save(r *model.MonitoringReport) (string, error) {
	data, err := Marshal(r)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create output directory %s: %v", model.ErrSinkFailure, s.dir, err)
	}

	base := artifact.Filename(s.template, r.Timestamp)
	tmpPath, err := writeTemp(s.dir, base, data)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpPath)

	path, err := s.claim(tmpPath, base)
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("path", path).Int("bytes", len(data)).Msg("report artifact written")
	return path, nil
}

// claim links the finished temp file to dir/base.json, or to dir/base_N.json
// when that name is taken. The link fails if the name exists, so two runs
// never end up with the same artifact.
func (s *Sink) claim(tmpPath, base string) (string, error) {
	for i := 0; i < maxCollisions; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		path := filepath.Join(s.dir, name+extension)
		err := os.Link(tmpPath, path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: failed to link %s: %v", model.ErrSinkFailure, path, err)
		}
		s.logger.Debug().Str("path", path).Msg("artifact name taken")
	}
	return "", fmt.Errorf("%w: no free artifact name for %s after %d attempts", model.ErrSinkFailure, base, maxCollisions)
}

// Load reads an artifact back into its primitive structure.
func Load(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return doc, nil
}

// writeAtomic writes data to a temp file in the target directory and renames
// it into place.
func writeAtomic(path string, data []byte) error {
	tmpPath, err := writeTemp(filepath.Dir(path), strings.TrimSuffix(filepath.Base(path), extension), data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to rename %s: %v", model.ErrSinkFailure, tmpPath, err)
	}
	return nil
}

// writeTemp writes data to a synced, world-readable temp file in dir and
// returns its path. The temp file is removed on any failure.
func writeTemp(dir, base string, data []byte) (_ string, err error) {
	tmp, err := os.CreateTemp(dir, "."+base+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %v", model.ErrSinkFailure, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return "", fmt.Errorf("%w: failed to write %s: %v", model.ErrSinkFailure, tmpPath, err)
	}
	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("%w: failed to sync %s: %v", model.ErrSinkFailure, tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to close %s: %v", model.ErrSinkFailure, tmpPath, err)
	}
	if err = os.Chmod(tmpPath, 0644); err != nil {
		return "", fmt.Errorf("%w: failed to chmod %s: %v", model.ErrSinkFailure, tmpPath, err)
	}
	return tmpPath, nil
}
