// Package storage persists analysis results and model sidecars as flat
// JSON/CSV artifacts under two configured directories.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Store writes and reads analysis artifacts. Files are keyed by analysis id
// and overwritten on each run: only the latest result is kept.
type Store struct {
	resultDir string
	modelDir  string
	log       zerolog.Logger
	now       func() time.Time
}

func New(resultDir, modelDir string, logger zerolog.Logger) (*Store, error) {
	for _, dir := range []string{resultDir, modelDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return &Store{
		resultDir: resultDir,
		modelDir:  modelDir,
		log:       logger,
		now:       time.Now,
	}, nil
}

// WithClock overrides the timestamp source, used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// SaveResult persists a result in the given format and returns the file path.
// JSON results are wrapped in a metadata envelope; CSV results go through the
// tabular extraction cascade, which always produces some frame.
func (s *Store) SaveResult(analysisID string, data any, format string) (string, error) {
	switch format {
	case FormatJSON:
		path := filepath.Join(s.resultDir, analysisID+"_result.json")
		envelope := map[string]any{
			"analysis_id":  analysisID,
			"timestamp":    s.now().Format("20060102_150405"),
			"generated_at": s.now().Format(time.RFC3339),
			"data":         data,
		}
		if err := writeJSON(path, envelope); err != nil {
			return "", err
		}
		s.log.Info().Str("analysis_id", analysisID).Str("path", path).Msg("saved analysis result")
		return path, nil

	case FormatCSV:
		path := filepath.Join(s.resultDir, analysisID+"_result.csv")
		frame := s.extractFrame(analysisID, data)
		if err := writeCSV(path, frame); err != nil {
			return "", err
		}
		s.log.Info().Str("analysis_id", analysisID).Str("path", path).Msg("saved analysis result")
		return path, nil

	default:
		return "", fmt.Errorf("unsupported result format %q", format)
	}
}

// SaveModelData persists model parameters/diagnostics alongside the result.
func (s *Store) SaveModelData(analysisID string, modelData map[string]any) (string, error) {
	path := filepath.Join(s.modelDir, analysisID+"_model.json")
	envelope := map[string]any{
		"analysis_id":  analysisID,
		"timestamp":    s.now().Format("20060102_150405"),
		"generated_at": s.now().Format(time.RFC3339),
		"model_data":   modelData,
	}
	if err := writeJSON(path, envelope); err != nil {
		return "", err
	}
	s.log.Info().Str("analysis_id", analysisID).Str("path", path).Msg("saved model data")
	return path, nil
}

// LoadResult returns the latest stored result, preferring JSON over CSV.
// Returns nil with no error when neither exists.
func (s *Store) LoadResult(analysisID string) (map[string]any, error) {
	jsonPath := filepath.Join(s.resultDir, analysisID+"_result.json")
	if raw, err := os.ReadFile(jsonPath); err == nil {
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", jsonPath, err)
		}
		return out, nil
	}

	csvPath := filepath.Join(s.resultDir, analysisID+"_result.csv")
	records, err := readCSV(csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return map[string]any{
		"analysis_id": analysisID,
		"timestamp":   "unknown",
		"data":        records,
	}, nil
}

// LoadModelData returns the stored model sidecar, or nil when absent.
func (s *Store) LoadModelData(analysisID string) (map[string]any, error) {
	path := filepath.Join(s.modelDir, analysisID+"_model.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// FileInfo describes a stored artifact.
type FileInfo struct {
	Filename   string `json:"filename"`
	Path       string `json:"filepath"`
	SizeBytes  int64  `json:"size_bytes"`
	ModifiedAt string `json:"modified_at"`
	Format     string `json:"format,omitempty"`
}

// ListResults enumerates stored results keyed by analysis id.
func (s *Store) ListResults() (map[string]FileInfo, error) {
	out := map[string]FileInfo{}
	entries, err := os.ReadDir(s.resultDir)
	if err != nil {
		return nil, fmt.Errorf("read result dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		var id, format string
		switch {
		case strings.HasSuffix(name, "_result.json"):
			id, format = strings.TrimSuffix(name, "_result.json"), FormatJSON
		case strings.HasSuffix(name, "_result.csv"):
			id, format = strings.TrimSuffix(name, "_result.csv"), FormatCSV
		default:
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out[id] = FileInfo{
			Filename:   name,
			Path:       filepath.Join(s.resultDir, name),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().Format(time.RFC3339),
			Format:     format,
		}
	}
	return out, nil
}

// ListModels enumerates stored model sidecars keyed by analysis id.
func (s *Store) ListModels() (map[string]FileInfo, error) {
	out := map[string]FileInfo{}
	entries, err := os.ReadDir(s.modelDir)
	if err != nil {
		return nil, fmt.Errorf("read model dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, "_model.json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out[strings.TrimSuffix(name, "_model.json")] = FileInfo{
			Filename:   name,
			Path:       filepath.Join(s.modelDir, name),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().Format(time.RFC3339),
		}
	}
	return out, nil
}

// ModelDir exposes the model directory for binary model files.
func (s *Store) ModelDir() string { return s.modelDir }

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
