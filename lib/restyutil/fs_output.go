package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FilesystemOutput dumps one .http file per message under a directory. The
// directory is cleared on the first dump rather than at construction, so
// instrumenting a client that never fires leaves no residue on disk.
type FilesystemOutput struct {
	dir  string
	once *sync.Once
}

func NewFilesystemOutput(dir string) FilesystemOutput {
	return FilesystemOutput{dir: dir, once: new(sync.Once)}
}

func (o FilesystemOutput) Write(id string, contents string) {
	o.once.Do(func() {
		os.RemoveAll(o.dir)
		if err := os.MkdirAll(o.dir, 0777); err != nil {
			slog.Warn("failed to create instrument output directory", "dir", o.dir, "err", err)
		}
	})

	path := filepath.Join(o.dir, id+".http")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		slog.Warn("failed to write message dump", "path", path, "err", err)
	}
}
