package registry

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "1",
		"templates": [
			{"id": "nginx.conf", "file": "nginx.conf.tmpl", "format": "nginx"},
			{"id": "configmap.yaml", "file": "configmap.yaml.tmpl", "format": "yaml"}
		]
	}`), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "1", reg.Version)
	require.NotNil(t, reg.Find("configmap.yaml"))
	assert.Equal(t, FormatYAML, reg.Find("configmap.yaml").Format)
	assert.Nil(t, reg.Find("missing"))
}

func TestLoadRegistryFS_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"not json", `{`, "parse"},
		{"missing id", `{"templates":[{"file":"a","format":"nginx"}]}`, "id is required"},
		{"duplicate id", `{"templates":[{"id":"a","file":"a","format":"nginx"},{"id":"a","file":"b","format":"nginx"}]}`, "duplicate id a"},
		{"missing file", `{"templates":[{"id":"a","format":"nginx"}]}`, "file is required"},
		{"unknown format", `{"templates":[{"id":"a","file":"a","format":"toml"}]}`, "unknown format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{FileName: &fstest.MapFile{Data: []byte(tt.body)}}
			_, err := LoadRegistryFS(fsys, FileName)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRegistryFS_Missing(t *testing.T) {
	_, err := LoadRegistryFS(fstest.MapFS{}, FileName)
	require.Error(t, err)
}

func TestSaveRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set", FileName)
	reg := &TemplateRegistry{
		Version:   "2",
		Templates: []Template{{ID: "nginx.conf", File: "nginx.conf.tmpl", Format: FormatNginx}},
	}

	require.NoError(t, SaveRegistry(reg, path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, reg, loaded)
}
