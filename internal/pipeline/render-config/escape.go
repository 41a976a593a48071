package renderconfig

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"text/template/parse"
	"unicode"

	"gopkg.in/yaml.v3"

	"nginx-config-generator/pkg/registry"
)

// escapeFunc is the name of the function appended to every output action.
const escapeFunc = "_escape"

// Safe is text that is already valid in the output format and is written
// without escaping.
type Safe string

func funcMap(format string) template.FuncMap {
	fm := template.FuncMap{
		"raw":       func(s string) Safe { return Safe(s) },
		"yamlblock": yamlBlock,
	}
	switch format {
	case registry.FormatYAML:
		fm[escapeFunc] = escapeYAML
	default:
		fm[escapeFunc] = escapeNginx
	}
	return fm
}

// autoescape appends the escape function to the pipeline of every action
// that writes output, in every template associated with t.
func autoescape(t *template.Template) {
	for _, tt := range t.Templates() {
		if tt.Tree == nil || tt.Tree.Root == nil {
			continue
		}
		addEscaper(tt.Tree.Root)
	}
}

func addEscaper(node parse.Node) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			addEscaper(c)
		}
	case *parse.ActionNode:
		// {{$x := ...}} writes nothing.
		if len(n.Pipe.Decl) > 0 {
			return
		}
		n.Pipe.Cmds = append(n.Pipe.Cmds, &parse.CommandNode{
			NodeType: parse.NodeCommand,
			Pos:      n.Pos,
			Args:     []parse.Node{parse.NewIdentifier(escapeFunc).SetTree(nil).SetPos(n.Pos)},
		})
	case *parse.IfNode:
		addEscaper(n.List)
		addEscaper(n.ElseList)
	case *parse.RangeNode:
		addEscaper(n.List)
		addEscaper(n.ElseList)
	case *parse.WithNode:
		addEscaper(n.List)
		addEscaper(n.ElseList)
	}
}

// stringify returns the text form of a template value and whether it is Safe.
func stringify(v interface{}) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case Safe:
		return string(x), true
	case string:
		return x, false
	case fmt.Stringer:
		return x.String(), false
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String {
		return rv.String(), false
	}
	return fmt.Sprint(rv.Interface()), false
}

// nginxSpecial are the bytes that end a bare nginx token or start a comment.
const nginxSpecial = " \t\r\n\f\v;{}\"'#\\"

// escapeNginx renders v as a single nginx directive parameter. Values that
// could close the directive, open a block or start a comment are quoted.
func escapeNginx(v interface{}) string {
	s, safe := stringify(v)
	if safe {
		return s
	}
	if s != "" && !strings.ContainsAny(s, nginxSpecial) && !hasControl(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if unicode.IsControl(r) {
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// escapeYAML renders v as a single-line YAML scalar, quoted whenever a plain
// scalar would change its meaning.
func escapeYAML(v interface{}) string {
	s, safe := stringify(v)
	if safe {
		return s
	}
	out, err := yamlScalar(s)
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return out
}

func yamlScalar(s string) (string, error) {
	value := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if strings.ContainsAny(s, "\r\n") || hasControl(s) || yaml11Typed(s) {
		value.Style = yaml.DoubleQuotedStyle
	}
	// Encoded as a mapping value so the emitter never treats it as a
	// top-level document.
	doc := &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{{Kind: yaml.ScalarNode, Value: "v"}, value},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimPrefix(string(out), "v: "), "\n"), nil
}

// Plain scalars that a YAML 1.1 parser resolves to something other than a
// string. Kubernetes tooling decodes manifests with YAML 1.1 rules, where
// yes/no/on/off are booleans, so yaml.v3's 1.2 resolution is not enough.
var (
	yaml11Bool      = regexp.MustCompile(`^(?:y|Y|yes|Yes|YES|n|N|no|No|NO|true|True|TRUE|false|False|FALSE|on|On|ON|off|Off|OFF)$`)
	yaml11Null      = regexp.MustCompile(`^(?:~|null|Null|NULL)$`)
	yaml11Int       = regexp.MustCompile(`^[-+]?(?:0b[01_]+|0[0-7_]+|0|[1-9][0-9_]*|0x[0-9a-fA-F_]+|[1-9][0-9_]*(?::[0-5]?[0-9])+)$`)
	yaml11Float     = regexp.MustCompile(`^[-+]?(?:[0-9][0-9_]*)?\.[0-9._]*(?:[eE][-+]?[0-9]+)?$|^[-+]?[0-9][0-9_]*(?::[0-5]?[0-9])+\.[0-9_]*$|^[-+]?\.(?:inf|Inf|INF)$|^\.(?:nan|NaN|NAN)$`)
	yaml11Timestamp = regexp.MustCompile(`^[0-9]{4}-[0-9]{1,2}-[0-9]{1,2}`)
)

// yaml11Typed reports whether s, written as a plain scalar, would be read
// back as a bool, null, number, timestamp, merge key or value key.
func yaml11Typed(s string) bool {
	switch s {
	case "", "<<", "=":
		return true
	}
	if yaml11Bool.MatchString(s) || yaml11Null.MatchString(s) ||
		yaml11Int.MatchString(s) || yaml11Float.MatchString(s) ||
		yaml11Timestamp.MatchString(s) {
		return true
	}
	// Decoders that fall back to strconv accept a few more spellings (1e3).
	plain := strings.ReplaceAll(s, "_", "")
	if _, err := strconv.ParseFloat(plain, 64); err == nil {
		return true
	}
	_, err := strconv.ParseInt(plain, 0, 64)
	return err == nil
}

// yamlBlock renders s as a literal block scalar whose lines are indented by
// indent spaces. Text that a literal block cannot carry verbatim falls back
// to a double-quoted scalar.
func yamlBlock(indent int, s string) Safe {
	body := strings.TrimRight(s, "\n")
	trailing := len(s) - len(body)

	if !strings.Contains(body, "\n") || strings.ContainsRune(s, '\r') || hasBlockUnsafe(body) {
		return Safe(escapeYAML(s))
	}

	header := "|-"
	switch {
	case trailing == 1:
		header = "|"
	case trailing > 1:
		header = "|+"
	}

	pad := strings.Repeat(" ", indent)
	var b strings.Builder
	b.WriteString(header)
	for _, line := range strings.Split(body, "\n") {
		b.WriteByte('\n')
		if line != "" {
			b.WriteString(pad)
			b.WriteString(line)
		}
	}
	if trailing > 1 {
		b.WriteString(strings.Repeat("\n", trailing-1))
	}
	return Safe(b.String())
}

// hasBlockUnsafe reports text a literal block would not reproduce: leading
// whitespace on the first line breaks indentation detection, and control
// characters other than tab are not allowed in YAML.
func hasBlockUnsafe(body string) bool {
	first := strings.TrimLeft(body, "\n")
	if strings.HasPrefix(first, " ") || strings.HasPrefix(first, "\t") {
		return true
	}
	return strings.IndexFunc(body, func(r rune) bool {
		return r != '\n' && r != '\t' && unicode.IsControl(r)
	}) >= 0
}
