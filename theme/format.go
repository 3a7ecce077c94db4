package theme

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// FormatYAML writes the table in the flat YAML shape accepted by [Load].
// An indent of zero writes flow style.
func (t *Table) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, t.Map(), opts...)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

// FormatJSON writes the table as a JSON object. An indent of zero writes
// compact JSON.
func (t *Table) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(t.Map(), "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(t.Map())
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// FormatCSS writes a :root rule declaring one custom property per token,
// named --<category>-<name>. Tokens whose value is a reference to the
// property being declared are skipped.
func (t *Table) FormatCSS(_ context.Context, w io.Writer, indent int) error {
	if indent <= 0 {
		indent = 2
	}

	pad := strings.Repeat(" ", indent)

	var sb strings.Builder

	sb.WriteString(":root {\n")

	for _, c := range t.Categories() {
		for _, name := range t.Names(c) {
			prop := CustomProperty(c, name)
			val, _ := t.Lookup(c, name)

			if val == "var("+prop+")" {
				continue
			}

			fmt.Fprintf(&sb, "%s%s: %s;\n", pad, prop, val)
		}
	}

	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())

	return err
}

// CustomProperty returns the custom property name declared for a token by
// [Table.FormatCSS], e.g. "--color-primary".
func CustomProperty(c Category, name string) string {
	return "--" + string(c) + "-" + name
}
