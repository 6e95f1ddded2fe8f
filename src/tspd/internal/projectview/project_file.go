package projectview

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/uber/tsp-lsp/src/tspd/internal/fs"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// FileName is the project file looked up at each workspace root.
const FileName = ".tspd.yaml"

// ProjectFile stores information in a .tspd.yaml file.
type ProjectFile struct {
	Path string
	// ModuleRoot is relative to the workspace root. Module names are computed from it.
	ModuleRoot string
	// Exclude holds slash separated globs, relative to the workspace root.
	Exclude []string
}

// Parse parses a .tspd.yaml file. Parsing is best effort: invalid entries are dropped and
// reported together while the valid remainder is returned.
func Parse(projectFile io.Reader) (project ProjectFile, err error) {
	var content struct {
		ModuleRoot string   `yaml:"moduleRoot"`
		Exclude    []string `yaml:"exclude"`
	}
	if e := yaml.NewDecoder(projectFile).Decode(&content); e != nil && !errors.Is(e, io.EOF) {
		return project, e
	}

	moduleRoot := strings.TrimSpace(content.ModuleRoot)
	switch {
	case moduleRoot == "":
	case path.IsAbs(moduleRoot) || filepath.IsAbs(moduleRoot):
		err = multierr.Append(err, fmt.Errorf("moduleRoot must be relative to the workspace root: %q", moduleRoot))
	case strings.HasPrefix(path.Clean(moduleRoot), ".."):
		err = multierr.Append(err, fmt.Errorf("moduleRoot must not leave the workspace root: %q", moduleRoot))
	default:
		project.ModuleRoot = path.Clean(moduleRoot)
	}

	for _, pattern := range content.Exclude {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			err = multierr.Append(err, errors.New("empty exclude pattern"))
			continue
		}
		if _, e := path.Match(pattern, ""); e != nil {
			err = multierr.Append(err, fmt.Errorf("invalid exclude pattern %q: %w", pattern, e))
			continue
		}
		project.Exclude = append(project.Exclude, strings.TrimSuffix(pattern, "/"))
	}
	return project, err
}

// Load reads the project file under the workspace root. A missing file yields an empty project.
func Load(fileSystem fs.FS, workspaceRoot string) (ProjectFile, error) {
	projectPath := filepath.Join(workspaceRoot, FileName)
	ok, err := fileSystem.FileExists(projectPath)
	if err != nil {
		return ProjectFile{}, err
	}
	if !ok {
		return ProjectFile{}, nil
	}

	content, err := fileSystem.ReadFile(projectPath)
	if err != nil {
		return ProjectFile{}, err
	}

	project, err := Parse(strings.NewReader(string(content)))
	project.Path = projectPath
	return project, err
}

// Excluded reports whether a slash separated path relative to the workspace root matches one of
// the exclude globs. A glob matches the path, any parent directory, or the name of either.
func (p ProjectFile) Excluded(relPath string) bool {
	relPath = path.Clean(filepath.ToSlash(relPath))
	for _, pattern := range p.Exclude {
		for candidate := relPath; candidate != "." && candidate != "/"; candidate = path.Dir(candidate) {
			if ok, _ := path.Match(pattern, candidate); ok {
				return true
			}
			if ok, _ := path.Match(pattern, path.Base(candidate)); ok {
				return true
			}
		}
	}
	return false
}

// ModulePath returns the path of a file relative to the module root, or false when the file is
// outside of it.
func (p ProjectFile) ModulePath(relPath string) (string, bool) {
	relPath = path.Clean(filepath.ToSlash(relPath))
	if p.ModuleRoot == "" || p.ModuleRoot == "." {
		return relPath, !strings.HasPrefix(relPath, "..")
	}
	if !strings.HasPrefix(relPath, p.ModuleRoot+"/") {
		return "", false
	}
	return strings.TrimPrefix(relPath, p.ModuleRoot+"/"), true
}
