package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
)

// Output receives a formatted http exchange under a unique id.
//
// note: fault injection point
type Output interface {
	Write(id string, contents string)
}

// FilesystemOutput writes each exchange to `<dir>/<id>.http`. The directory is
// recreated empty so that a run only holds its own dumps.
type FilesystemOutput struct {
	dir string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	if err := os.RemoveAll(dir); err != nil {
		return FilesystemOutput{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{dir: dir}, nil
}

func (o FilesystemOutput) Path(id string) string {
	return filepath.Join(o.dir, filepath.Base(id)+".http")
}

func (o FilesystemOutput) Write(id string, contents string) {
	if err := os.WriteFile(o.Path(id), []byte(contents), 0o600); err != nil {
		slog.Warn("write http dump", "id", id, "err", err.Error())
	}
}
