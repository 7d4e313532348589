package geojsonio

import (
	"context"
	"path/filepath"

	"conflation_service/internal/domain/model"
)

const (
	filePermissions = 0o644
	dirPermissions  = 0o755
)

// FileSink writes every result set as a file inside Dir.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

func (s *FileSink) Write(ctx context.Context, name string, fc model.FeatureCollection) (model.OutputFile, error) {
	if err := ctx.Err(); err != nil {
		return model.OutputFile{}, err
	}
	path := filepath.Join(s.Dir, name)
	if err := WriteFile(path, fc); err != nil {
		return model.OutputFile{}, err
	}
	return model.OutputFile{Name: name, Path: path, Features: fc.Len()}, nil
}
