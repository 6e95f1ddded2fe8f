package session

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/semantic"
	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/syntax"
	"github.com/uber/tsp-lsp/src/tspd/internal/errors"
	"github.com/uber/tsp-lsp/src/tspd/internal/fs"
	"github.com/uber/tsp-lsp/src/tspd/mapper"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

var _pythonSuffixes = []string{".py", ".pyi"}

// Snapshot is an immutable view of the Session at one revision. Parsed documents are cached,
// so a Snapshot is safe for concurrent use.
type Snapshot struct {
	revision   entity.Revision
	workspaces []entity.Workspace
	documents  map[protocol.DocumentURI]entity.Document
	fs         fs.FS

	mu     sync.Mutex
	parsed map[protocol.DocumentURI]*semantic.Document
}

var _ semantic.Loader = (*Snapshot)(nil)

func newSnapshot(revision entity.Revision, workspaces []entity.Workspace, documents map[protocol.DocumentURI]entity.Document, fileSystem fs.FS) *Snapshot {
	return &Snapshot{
		revision:   revision,
		workspaces: workspaces,
		documents:  documents,
		fs:         fileSystem,
		parsed:     make(map[protocol.DocumentURI]*semantic.Document),
	}
}

// Revision returns the revision the snapshot was taken at.
func (s *Snapshot) Revision() entity.Revision {
	return s.revision
}

// OpenDocuments returns the documents open at the snapshot, ordered by URI.
func (s *Snapshot) OpenDocuments() []entity.Document {
	docs := make([]entity.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs
}

// Document returns the parsed document. Documents that are not open are read from disk. Files
// excluded by a project file are not found.
func (s *Snapshot) Document(ctx context.Context, documentURI protocol.DocumentURI) (*semantic.Document, error) {
	s.mu.Lock()
	doc, ok := s.parsed[documentURI]
	s.mu.Unlock()
	if ok {
		return doc, nil
	}

	notFound := func(err error) error {
		return &errors.DocumentNotFoundError{Document: protocol.TextDocumentIdentifier{URI: documentURI}, Err: err}
	}

	filePath, hasPath := mapper.URIToPath(documentURI)
	var module string
	var pkg bool
	if hasPath {
		ws, rel, ok := workspaceFor(s.workspaces, filePath)
		if ok && ws.Project.Excluded(rel) {
			return nil, notFound(fmt.Errorf("excluded by %s", ws.Project.Path))
		}
		module, pkg = s.moduleName(filePath)
	}

	var src []byte
	if open, ok := s.documents[documentURI]; ok {
		src = []byte(open.Text)
	} else {
		if !hasPath {
			return nil, notFound(nil)
		}
		content, err := s.fs.ReadFile(filePath)
		if err != nil {
			return nil, notFound(err)
		}
		src = content
	}

	tree, err := syntax.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", documentURI, err)
	}
	doc = &semantic.Document{URI: documentURI, Module: module, Package: pkg, Tree: tree}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.parsed[documentURI]; ok {
		return cached, nil
	}
	s.parsed[documentURI] = doc
	return doc, nil
}

// Load resolves a dotted module name against the module root of every workspace. Open
// documents are preferred over files on disk.
func (s *Snapshot) Load(ctx context.Context, module string) (*semantic.Document, bool) {
	if module == "" {
		return nil, false
	}
	rel := strings.ReplaceAll(module, ".", "/")
	for _, ws := range s.workspaces {
		base := ws.Root
		if ws.Project.ModuleRoot != "" {
			base = filepath.Join(base, filepath.FromSlash(ws.Project.ModuleRoot))
		}
		var candidates []string
		for _, suffix := range _pythonSuffixes {
			candidates = append(candidates, filepath.Join(base, filepath.FromSlash(rel+suffix)))
		}
		for _, suffix := range _pythonSuffixes {
			candidates = append(candidates, filepath.Join(base, filepath.FromSlash(rel), "__init__"+suffix))
		}

		for _, candidate := range candidates {
			documentURI := uri.File(candidate)
			if _, open := s.documents[documentURI]; !open {
				if exists, err := s.fs.FileExists(candidate); err != nil || !exists {
					continue
				}
			}
			if doc, err := s.Document(ctx, documentURI); err == nil {
				return doc, true
			}
		}
	}
	return nil, false
}

// moduleName returns the dotted module name of a file and whether it is a package.
func (s *Snapshot) moduleName(filePath string) (string, bool) {
	ws, rel, ok := workspaceFor(s.workspaces, filePath)
	if !ok {
		return trimPythonSuffix(filepath.Base(filePath)), false
	}
	modulePath, ok := ws.Project.ModulePath(rel)
	if !ok {
		return "", false
	}

	modulePath = trimPythonSuffix(modulePath)
	pkg := false
	if path.Base(modulePath) == "__init__" {
		pkg = true
		modulePath = path.Dir(modulePath)
		if modulePath == "." {
			return "", true
		}
	}
	return strings.ReplaceAll(modulePath, "/", "."), pkg
}

func trimPythonSuffix(name string) string {
	for _, suffix := range _pythonSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}
