package renderconfig

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"
)

func TestEscapeNginx(t *testing.T) {
	weight := 3
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"bare token", "example.com", "example.com"},
		{"variables stay bare", "$binary_remote_addr", "$binary_remote_addr"},
		{"regex stays bare", "^/api/(v1|v2)/", "^/api/(v1|v2)/"},
		{"directive terminator", "example.com; include /etc/shadow", `"example.com; include /etc/shadow"`},
		{"block open", "x { return 200", `"x { return 200"`},
		{"comment", "a#b", `"a#b"`},
		{"quote and backslash", `a"b\c`, `"a\"b\\c"`},
		{"newline", "a\nb", `"a\nb"`},
		{"empty", "", `""`},
		{"int", 429, "429"},
		{"int pointer", &weight, "3"},
		{"nil", nil, `""`},
		{"safe", Safe("proxy_set_header Host $host;"), "proxy_set_header Host $host;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeNginx(tt.in))
		})
	}
}

func TestEscapeYAML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"n1", "n1"},
		{"nginx.conf", "nginx.conf"},
		{"true", `"true"`},
		{"123", `"123"`},
		{"", `""`},
		{"a\nb", `"a\nb"`},
		{"n1.example", "n1.example"},
		{"v1.2.3", "v1.2.3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeYAML(tt.in), tt.in)
	}
}

func TestEscapeYAML_QuotesYAML11Literals(t *testing.T) {
	for _, s := range []string{
		"yes", "No", "ON", "off", "y", "N",
		"~", "null", "NULL", "<<", "=",
		"0x1F", "017", "0b101", "1_000", "1:30", "-7",
		"1.5", ".5", "1e3", "1.0e+3", ".inf", "-.Inf", ".NaN", "190:20:30.15",
		"2024-01-02", "2001-12-14t21:59:43.10-05:00",
	} {
		assert.Equal(t, `"`+s+`"`, escapeYAML(s), s)
	}
}

func TestEscapeYAML_RoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.StringMatching(`[ -~\t\n]{0,40}`).Draw(rt, "s")

		var out map[string]string
		doc := "k: " + escapeYAML(s) + "\n"
		require.NoError(rt, yaml.Unmarshal([]byte(doc), &out), doc)
		assert.Equal(rt, s, out["k"], doc)
	})
}

func TestYAMLBlock(t *testing.T) {
	t.Run("literal block with clip", func(t *testing.T) {
		got := yamlBlock(4, "events {\n    worker_connections 1024;\n}\n")
		assert.Equal(t, Safe("|\n    events {\n        worker_connections 1024;\n    }"), got)
	})

	t.Run("no trailing newline strips", func(t *testing.T) {
		assert.Equal(t, Safe("|-\n  a\n\n  b"), yamlBlock(2, "a\n\nb"))
	})

	t.Run("single line falls back to a scalar", func(t *testing.T) {
		assert.Equal(t, Safe("abc"), yamlBlock(4, "abc"))
	})

	t.Run("leading indentation falls back to a quoted scalar", func(t *testing.T) {
		assert.Equal(t, Safe(`"  a\nb"`), yamlBlock(4, "  a\nb"))
	})

	t.Run("round trips through a mapping", func(t *testing.T) {
		for _, s := range []string{"a\nb\n", "a\nb", "a\nb\n\n\n", "x:\n  - y\n# z\n"} {
			doc := "data:\n  f: " + string(yamlBlock(4, s)) + "\n"
			var out struct {
				Data map[string]string `yaml:"data"`
			}
			require.NoError(t, yaml.Unmarshal([]byte(doc), &out), doc)
			assert.Equal(t, s, out.Data["f"], doc)
		}
	})
}

func TestAutoescape(t *testing.T) {
	fsys := fstest.MapFS{
		"registry.json": &fstest.MapFile{Data: []byte(`{"templates":[
			{"id":"t","file":"t.tmpl","format":"nginx"},
			{"id":"y","file":"y.tmpl","format":"yaml"}
		]}`)},
		"t.tmpl": &fstest.MapFile{Data: []byte(
			`{{define "inner"}}[{{.}}]{{end}}` +
				`{{$x := .A}}{{$x}} {{if .B}}{{.A}}{{else}}no{{end}} {{range .L}}{{.}}{{end}} ` +
				`{{with .A}}{{.}}{{end}} {{raw .A}} {{template "inner" .A}}`)},
		"y.tmpl": &fstest.MapFile{Data: []byte(`name: {{.A}}`)},
	}
	e, err := NewEngine(fsys)
	require.NoError(t, err)

	data := struct {
		A string
		B bool
		L []string
	}{A: "a;b", B: true, L: []string{"c d"}}

	out, err := e.Render("t", data)
	require.NoError(t, err)
	assert.Equal(t, `"a;b" "a;b" "c d" "a;b" a;b ["a;b"]`, out)

	out, err = e.Render("y", data)
	require.NoError(t, err)
	assert.Equal(t, `name: a;b`, out)

	data.A = "yes"
	out, err = e.Render("y", data)
	require.NoError(t, err)
	assert.Equal(t, `name: "yes"`, out)
}
