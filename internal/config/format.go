package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"

	"github.com/DeforaOS/libSystem/internal/config/keyfile"
)

// Format is an export and import format.
type Format string

// Supported formats.
const (
	FormatINI  Format = "ini"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{FormatINI, FormatTOML, FormatYAML, FormatJSON}

// ParseFormat returns the format named name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatINI, FormatTOML, FormatYAML, FormatJSON:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// String implements fmt.Stringer and pflag.Value.
func (f *Format) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

// Set implements pflag.Value.
func (f *Format) Set(name string) error {
	parsed, err := ParseFormat(name)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Type implements pflag.Value.
func (f *Format) Type() string {
	return "format"
}

// Export writes the store to w in format f.
//
// Nested formats put default-section variables at the top level and every
// other section in a table of its own; a default-section variable named
// like a section is reported as ErrConflict.
func (s *Store) Export(w io.Writer, f Format) error {
	doc := s.Document()

	var (
		data []byte
		err  error
	)
	switch f {
	case FormatINI:
		_, err = keyfile.Encode(w, doc)
		return err
	case FormatTOML:
		data, err = exportTOML(doc)
	case FormatYAML:
		data, err = exportYAML(doc)
	case FormatJSON:
		data, err = exportJSON(doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

// Import reads a document in format f from r and merges it into the store
// like Load. name is used in error messages.
func (s *Store) Import(name string, r io.Reader, f Format) error {
	if f == FormatINI {
		return s.LoadReader(name, r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return &IOError{Op: "read", Path: name, Err: err}
	}

	var doc *keyfile.Document
	switch f {
	case FormatTOML:
		doc, err = importTOML(name, data)
	case FormatYAML:
		doc, err = importYAML(name, data)
	case FormatJSON:
		doc, err = importJSON(name, data)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
	if err != nil {
		return err
	}
	if err := validateDocument(name, doc); err != nil {
		return err
	}

	s.merge(doc, name)
	return nil
}

func checkConflicts(doc *keyfile.Document) error {
	def, ok := doc.Lookup(DefaultSection)
	if !ok {
		return nil
	}
	for _, sec := range doc.Sections() {
		if sec.Name() == DefaultSection {
			continue
		}
		if _, clash := def.Get(sec.Name()); clash {
			return fmt.Errorf("%w: variable and section %q", ErrConflict, sec.Name())
		}
	}
	return nil
}

func validateDocument(name string, doc *keyfile.Document) error {
	for _, sec := range doc.Sections() {
		if err := validateSection(sec.Name()); err != nil {
			return &ParseError{Path: name, Message: err.Error(), Err: err}
		}
		for _, k := range sec.Keys() {
			v, _ := sec.Get(k)
			err := validateVariable(k)
			if err == nil {
				err = validateValue(v)
			}
			if err != nil {
				return &ParseError{Path: name, Message: err.Error(), Err: err}
			}
		}
	}
	return nil
}

func sectionMap(sec *keyfile.Section) map[string]string {
	m := make(map[string]string, sec.Len())
	for _, k := range sec.Keys() {
		m[k], _ = sec.Get(k)
	}
	return m
}

func exportTOML(doc *keyfile.Document) ([]byte, error) {
	if err := checkConflicts(doc); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if def, ok := doc.Lookup(DefaultSection); ok && def.Len() > 0 {
		data, err := toml.Marshal(sectionMap(def))
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}

	for _, sec := range doc.Sections() {
		if sec.Name() == DefaultSection {
			continue
		}
		data, err := toml.Marshal(map[string]map[string]string{
			sec.Name(): sectionMap(sec),
		})
		if err != nil {
			return nil, err
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(bytes.TrimLeft(data, "\n"))
	}

	return buf.Bytes(), nil
}

func importTOML(name string, data []byte) (*keyfile.Document, error) {
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, _ := derr.Position()
			return nil, &ParseError{Path: name, Line: row, Message: derr.Error(), Err: err}
		}
		return nil, &ParseError{Path: name, Message: err.Error(), Err: err}
	}

	doc := keyfile.NewDocument()
	keys := sortedKeys(m)

	// Scalars first so that they land in the default section.
	for _, k := range keys {
		if _, table := m[k].(map[string]any); table {
			continue
		}
		v, err := scalarString(m[k])
		if err != nil {
			return nil, &ParseError{Path: name, Message: fmt.Sprintf("%s: %v", k, err)}
		}
		doc.Set(DefaultSection, k, v)
	}

	for _, k := range keys {
		table, ok := m[k].(map[string]any)
		if !ok {
			continue
		}
		sec := doc.Section(k)
		for _, vk := range sortedKeys(table) {
			v, err := scalarString(table[vk])
			if err != nil {
				return nil, &ParseError{Path: name, Message: fmt.Sprintf("%s.%s: %v", k, vk, err)}
			}
			sec.Set(vk, v)
		}
	}

	return doc, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var errNested = errors.New("nested values are not supported")

func scalarString(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	case map[string]any, []any:
		return "", errNested
	default:
		return fmt.Sprint(v), nil
	}
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func exportYAML(doc *keyfile.Document) ([]byte, error) {
	if err := checkConflicts(doc); err != nil {
		return nil, err
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	if def, ok := doc.Lookup(DefaultSection); ok {
		for _, k := range def.Keys() {
			v, _ := def.Get(k)
			root.Content = append(root.Content, scalarNode(k), scalarNode(v))
		}
	}
	for _, sec := range doc.Sections() {
		if sec.Name() == DefaultSection {
			continue
		}
		table := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range sec.Keys() {
			v, _ := sec.Get(k)
			table.Content = append(table.Content, scalarNode(k), scalarNode(v))
		}
		root.Content = append(root.Content, scalarNode(sec.Name()), table)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func importYAML(name string, data []byte) (*keyfile.Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &ParseError{Path: name, Message: err.Error(), Err: err}
	}

	doc := keyfile.NewDocument()
	if node.Kind == 0 || len(node.Content) == 0 {
		return doc, nil
	}

	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Path: name, Line: root.Line, Message: "expected a mapping"}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		switch value.Kind {
		case yaml.ScalarNode:
			doc.Set(DefaultSection, key.Value, yamlScalar(value))
		case yaml.MappingNode:
			sec := doc.Section(key.Value)
			for j := 0; j+1 < len(value.Content); j += 2 {
				vk, vv := value.Content[j], value.Content[j+1]
				if vv.Kind != yaml.ScalarNode {
					return nil, &ParseError{Path: name, Line: vv.Line, Message: fmt.Sprintf("%s.%s: %v", key.Value, vk.Value, errNested)}
				}
				sec.Set(vk.Value, yamlScalar(vv))
			}
		default:
			return nil, &ParseError{Path: name, Line: value.Line, Message: fmt.Sprintf("%s: %v", key.Value, errNested)}
		}
	}

	return doc, nil
}

func yamlScalar(n *yaml.Node) string {
	if n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

// jsonPath escapes a key for use as a single sjson path component.
func jsonPath(key string) string {
	if key != "" && strings.Trim(key, "0123456789") == "" {
		return ":" + key
	}

	var b strings.Builder
	for i, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		case ':':
			if i == 0 {
				b.WriteByte('\\')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func exportJSON(doc *keyfile.Document) ([]byte, error) {
	if err := checkConflicts(doc); err != nil {
		return nil, err
	}

	out := []byte("{}")
	var err error
	if def, ok := doc.Lookup(DefaultSection); ok {
		for _, k := range def.Keys() {
			v, _ := def.Get(k)
			if out, err = sjson.SetBytes(out, jsonPath(k), v); err != nil {
				return nil, err
			}
		}
	}
	for _, sec := range doc.Sections() {
		if sec.Name() == DefaultSection {
			continue
		}
		path := jsonPath(sec.Name())
		if out, err = sjson.SetRawBytes(out, path, []byte("{}")); err != nil {
			return nil, err
		}
		for _, k := range sec.Keys() {
			v, _ := sec.Get(k)
			if out, err = sjson.SetBytes(out, path+"."+jsonPath(k), v); err != nil {
				return nil, err
			}
		}
	}

	return pretty.Pretty(out), nil
}

func importJSON(name string, data []byte) (*keyfile.Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Path: name, Message: "invalid JSON"}
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &ParseError{Path: name, Message: "expected an object"}
	}

	doc := keyfile.NewDocument()
	var perr error
	root.ForEach(func(key, value gjson.Result) bool {
		switch {
		case value.IsObject():
			sec := doc.Section(key.String())
			value.ForEach(func(vk, vv gjson.Result) bool {
				if vv.IsObject() || vv.IsArray() {
					perr = &ParseError{Path: name, Message: fmt.Sprintf("%s.%s: %v", key.String(), vk.String(), errNested)}
					return false
				}
				sec.Set(vk.String(), jsonScalar(vv))
				return true
			})
			return perr == nil
		case value.IsArray():
			perr = &ParseError{Path: name, Message: fmt.Sprintf("%s: %v", key.String(), errNested)}
			return false
		default:
			doc.Set(DefaultSection, key.String(), jsonScalar(value))
			return true
		}
	})
	if perr != nil {
		return nil, perr
	}

	return doc, nil
}

func jsonScalar(v gjson.Result) string {
	if v.Type == gjson.Null {
		return ""
	}
	return v.String()
}
