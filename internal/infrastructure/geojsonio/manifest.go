package geojsonio

import (
	"fmt"
	"os"
	"path/filepath"

	"conflation_service/internal/domain/model"

	"github.com/goccy/go-yaml"
)

const ManifestName = "summary.yaml"

// WriteManifest stores report as summary.yaml next to the result files.
func WriteManifest(dir string, report *model.RunReport) (string, error) {
	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to encode run summary: %w", err)
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return "", fmt.Errorf("failed to write run summary: %w", err)
	}
	return path, nil
}

// ReadManifest loads a summary written by WriteManifest.
func ReadManifest(path string) (*model.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run summary: %w", err)
	}
	var report model.RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse run summary: %w", err)
	}
	return &report, nil
}
