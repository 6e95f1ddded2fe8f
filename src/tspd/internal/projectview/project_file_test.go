package projectview

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/tsp-lsp/src/tspd/internal/fs/fsmock"
	"go.uber.org/mock/gomock"
	"go.uber.org/multierr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		expected  ProjectFile
		errorsLen int
	}{
		{
			name:     "empty",
			content:  "",
			expected: ProjectFile{},
		},
		{
			name: "full",
			content: `
moduleRoot: src/
exclude:
  - build
  - "*_pb2.py"
`,
			expected: ProjectFile{ModuleRoot: "src", Exclude: []string{"build", "*_pb2.py"}},
		},
		{
			name: "absolute module root",
			content: `
moduleRoot: /abs/src
exclude:
  - build/
`,
			expected:  ProjectFile{Exclude: []string{"build"}},
			errorsLen: 1,
		},
		{
			name: "invalid entries dropped",
			content: `
moduleRoot: ../outside
exclude:
  - "["
  - ""
  - vendor
`,
			expected:  ProjectFile{Exclude: []string{"vendor"}},
			errorsLen: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, err := Parse(strings.NewReader(tt.content))
			assert.Equal(t, tt.expected, project)
			assert.Len(t, multierr.Errors(err), tt.errorsLen)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse(strings.NewReader("moduleRoot: [unclosed"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fsMock := fsmock.NewMockFS(ctrl)
		fsMock.EXPECT().FileExists("/ws/.tspd.yaml").Return(false, nil)

		project, err := Load(fsMock, "/ws")
		require.NoError(t, err)
		assert.Equal(t, ProjectFile{}, project)
	})

	t.Run("present", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fsMock := fsmock.NewMockFS(ctrl)
		fsMock.EXPECT().FileExists("/ws/.tspd.yaml").Return(true, nil)
		fsMock.EXPECT().ReadFile("/ws/.tspd.yaml").Return([]byte("moduleRoot: lib\n"), nil)

		project, err := Load(fsMock, "/ws")
		require.NoError(t, err)
		assert.Equal(t, "lib", project.ModuleRoot)
		assert.Equal(t, "/ws/.tspd.yaml", project.Path)
	})

	t.Run("stat error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fsMock := fsmock.NewMockFS(ctrl)
		fsMock.EXPECT().FileExists(gomock.Any()).Return(false, errors.New("permission denied"))

		_, err := Load(fsMock, "/ws")
		assert.Error(t, err)
	})

	t.Run("read error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fsMock := fsmock.NewMockFS(ctrl)
		fsMock.EXPECT().FileExists(gomock.Any()).Return(true, nil)
		fsMock.EXPECT().ReadFile(gomock.Any()).Return(nil, errors.New("io"))

		_, err := Load(fsMock, "/ws")
		assert.Error(t, err)
	})
}

func TestExcluded(t *testing.T) {
	project := ProjectFile{Exclude: []string{"build", "*_pb2.py", "gen/*.py"}}

	tests := []struct {
		path     string
		expected bool
	}{
		{"build/out.py", true},
		{"pkg/build/out.py", true},
		{"api/service_pb2.py", true},
		{"gen/a.py", true},
		{"gen/sub/a.py", false},
		{"src/main.py", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, project.Excluded(tt.path))
		})
	}
}

func TestModulePath(t *testing.T) {
	tests := []struct {
		name       string
		moduleRoot string
		path       string
		expected   string
		ok         bool
	}{
		{"no module root", "", "pkg/mod.py", "pkg/mod.py", true},
		{"inside module root", "src", "src/pkg/mod.py", "pkg/mod.py", true},
		{"outside module root", "src", "tools/gen.py", "", false},
		{"prefix is not a directory", "src", "srcs/mod.py", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ProjectFile{ModuleRoot: tt.moduleRoot}.ModulePath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}
