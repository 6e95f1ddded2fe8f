package helpers

import (
	"io/fs"
	"os"
)

type mockDirEntry struct {
	name string
	dir  bool
}

func (m mockDirEntry) Name() string {
	return m.name
}

func (m mockDirEntry) IsDir() bool {
	return m.dir
}

func (m mockDirEntry) Type() fs.FileMode {
	if m.dir {
		return fs.ModeDir
	}
	return 0
}

func (m mockDirEntry) Info() (fs.FileInfo, error) {
	return nil, fs.ErrInvalid
}

var _ os.DirEntry = mockDirEntry{}

// MockDirEntry returns a directory entry with only a name and a kind.
func MockDirEntry(name string, dir bool) os.DirEntry {
	return mockDirEntry{name, dir}
}
