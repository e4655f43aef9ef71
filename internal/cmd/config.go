package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/vanilla-wiiu/govanilla/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit scaffolds a configuration file for a specific command.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to generate config for" enum:"server,sync,connect"`
	Format  string `help:"Output format" enum:"json,yaml,toml" default:"json"`
	Output  string `help:"Destination file path, or - for stdout (defaults to <command>.<format>)"`
	Force   bool   `help:"Overwrite if the file already exists"`

	stdout io.Writer
}

// configTargets lists the commands a template can be generated for.
var configTargets = map[string]reflect.Type{
	"server":  reflect.TypeOf(Server{}),
	"sync":    reflect.TypeOf(Sync{}),
	"connect": reflect.TypeOf(Connect{}),
}

// Run writes the defaults of every flag of the command, with their help text
// as comments where the format has them.
func (c *ConfigInit) Run() error {
	format := normalizeFormat(c.Format)
	if format == "" {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}
	typ, ok := configTargets[c.Command]
	if !ok {
		return fmt.Errorf("unknown command %q; expected server, sync or connect", c.Command)
	}

	data, err := encodeTemplate(templateFields(typ), format)
	if err != nil {
		return fmt.Errorf("encode %s template: %w", format, err)
	}

	if c.Output == "-" {
		out := c.stdout
		if out == nil {
			out = os.Stdout
		}
		_, err := out.Write(data)
		return err
	}

	dest := c.Output
	if dest == "" {
		dest = c.Command + "." + format
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("destination exists: %s; use --force to overwrite", dest)
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}

// templateField is one flag, or one prefixed group of flags, of a command.
type templateField struct {
	key      string
	help     string
	value    any
	children []templateField
}

func (f templateField) group() bool { return f.children != nil }

// templateFields walks the kong tags of a command struct. Positional
// arguments and hidden fields are left out; embedded structs with a prefix
// become groups, the others are flattened.
func templateFields(t reflect.Type) []templateField {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var out []templateField
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("kong") == "-" {
			continue
		}
		if _, ok := f.Tag.Lookup("arg"); ok {
			continue
		}
		if _, ok := f.Tag.Lookup("embed"); ok {
			sub := templateFields(f.Type)
			if name := strings.TrimSuffix(f.Tag.Get("prefix"), "."); name != "" {
				out = append(out, templateField{key: name, children: sub})
			} else {
				out = append(out, sub...)
			}
			continue
		}

		key := f.Tag.Get("name")
		if key == "" {
			key = lowerFirst(f.Name)
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && !isDuration(ft) {
			out = append(out, templateField{key: key, help: f.Tag.Get("help"), children: templateFields(ft)})
			continue
		}
		if v := defaultValue(ft, f.Tag.Get("default")); v != nil {
			out = append(out, templateField{key: key, help: f.Tag.Get("help"), value: v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return !out[i].group() && out[j].group() })
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func isDuration(t reflect.Type) bool { return t.PkgPath() == "time" && t.Name() == "Duration" }

// defaultValue converts a kong default tag to the value written to the
// template. Unsupported kinds yield nil and are skipped.
func defaultValue(t reflect.Type, def string) any {
	if isDuration(t) {
		if def == "" {
			return "0s"
		}
		return def
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := strconv.ParseInt(def, 10, 64)
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, _ := strconv.ParseUint(def, 10, 64)
		return n
	case reflect.Float32, reflect.Float64:
		f, _ := strconv.ParseFloat(def, 64)
		return f
	default:
		return nil
	}
}

func encodeTemplate(fields []templateField, format string) ([]byte, error) {
	switch format {
	case "yaml":
		node, err := yamlNode(fields)
		if err != nil {
			return nil, err
		}
		return yaml.Marshal(node)
	case "toml":
		tree, err := toml.TreeFromMap(map[string]any{})
		if err != nil {
			return nil, err
		}
		setTOML(tree, nil, fields)
		return tree.Marshal()
	default:
		data, err := json.MarshalIndent(templateMap(fields), "", "  ")
		return append(data, '\n'), err
	}
}

func templateMap(fields []templateField) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.group() {
			out[f.key] = templateMap(f.children)
			continue
		}
		out[f.key] = f.value
	}
	return out
}

func yamlNode(fields []templateField) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: f.key, HeadComment: f.help}
		var val *yaml.Node
		if f.group() {
			sub, err := yamlNode(f.children)
			if err != nil {
				return nil, err
			}
			val = sub
		} else {
			val = &yaml.Node{}
			if err := val.Encode(f.value); err != nil {
				return nil, fmt.Errorf("%s: %w", f.key, err)
			}
		}
		m.Content = append(m.Content, key, val)
	}
	return m, nil
}

func setTOML(tree *toml.Tree, path []string, fields []templateField) {
	for _, f := range fields {
		p := append(append([]string(nil), path...), f.key)
		if f.group() {
			setTOML(tree, p, f.children)
			continue
		}
		tree.SetPathWithComment(p, f.help, false, f.value)
	}
}
