package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/viant/afs/file"
	"github.com/viant/jobrunner/model/job"
)

// collect matches the declared outputs against the working directory and
// copies every match under outputs/. A declared output without a match is
// logged and skipped.
func (e *execution) collect(ctx context.Context) []*job.Output {
	fs := e.service.fs
	dir := e.job.WorkDir()
	root := os.DirFS(dir)
	var outputs []*job.Output
	for _, declared := range e.job.Request.Spec.ExpectedOutputs {
		matches, err := doublestar.Glob(root, declared.Path)
		if err != nil {
			e.service.logger.WarnContext(ctx, "invalid output pattern", "output", declared.ID, "pattern", declared.Path, "error", err)
			continue
		}
		matched := 0
		for _, match := range matches {
			if reserved[match] || match == OutputsDir || strings.HasPrefix(match, OutputsDir+"/") {
				continue
			}
			source := filepath.Join(dir, filepath.FromSlash(match))
			object, err := fs.Object(ctx, source)
			if err != nil || object.IsDir() {
				continue
			}
			dest := filepath.Join(dir, OutputsDir, filepath.FromSlash(match))
			if parent := filepath.Dir(dest); parent != filepath.Join(dir, OutputsDir) {
				if ok, _ := fs.Exists(ctx, parent); !ok {
					_ = fs.Create(ctx, parent, file.DefaultDirOsMode, true)
				}
			}
			if err = fs.Copy(ctx, source, dest); err != nil {
				e.service.logger.WarnContext(ctx, "failed to copy output", "output", declared.ID, "path", match, "error", err)
				continue
			}
			mimeType := declared.MimeType
			if mimeType == "" {
				if detected, err := mimetype.DetectFile(source); err == nil {
					mimeType = detected.String()
				}
			}
			outputs = append(outputs, &job.Output{
				ID:          declared.ID,
				Name:        declared.Name,
				Path:        match,
				Size:        object.Size(),
				MimeType:    mimeType,
				Description: declared.Description,
				Metadata:    declared.Metadata,
			})
			matched++
		}
		if matched == 0 {
			e.service.logger.WarnContext(ctx, "declared output was not produced", "output", declared.ID, "pattern", declared.Path)
		}
	}
	return outputs
}

func (e *execution) writeManifest(ctx context.Context, outputs []*job.Output) error {
	if outputs == nil {
		outputs = []*job.Output{}
	}
	data, err := json.MarshalIndent(outputs, "", "  ")
	if err != nil {
		return err
	}
	return e.service.fs.Upload(ctx, filepath.Join(e.job.WorkDir(), ManifestFile), file.DefaultFileOsMode, bytes.NewReader(data))
}
