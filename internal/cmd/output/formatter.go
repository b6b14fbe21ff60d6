// Package output renders command results as a table, JSON or YAML.
//
// Commands build a table.Data for humans and pass the raw value alongside
// it; structured formats encode the raw value so no field is lost.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/bomsync/internal/cmd/table"
	"github.com/agentstation/bomsync/pkg/errors"
)

// Format names an output format.
type Format string

// Supported formats. The empty format renders as a table.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formatter writes a value in one format.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// NewFormatter returns the formatter for format, falling back to a table.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}
	case FormatYAML:
		return &YAMLFormatter{}
	}
	return &TableFormatter{}
}

// IsTable reports whether format renders as a table.
func IsTable(format Format) bool {
	return format == "" || format == FormatTable
}

// Write renders tableData for table formats and raw for the others.
func Write(w io.Writer, format Format, tableData table.Data, raw any) error {
	if IsTable(format) {
		return (&TableFormatter{}).Format(w, tableData)
	}
	return NewFormatter(format).Format(w, raw)
}

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", errors.NewValidationError("format", s, "must be one of: table, json, yaml")
}

// JSONFormatter encodes JSON, indented when Indent is set.
type JSONFormatter struct {
	Indent string
}

// Format implements Formatter.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", f.Indent)
	return enc.Encode(data)
}

// YAMLFormatter encodes YAML with two-space indentation.
type YAMLFormatter struct{}

// Format implements Formatter.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	out, err := yaml.MarshalWithOptions(data, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return errors.WrapParse("yaml", "output", err)
	}
	_, err = w.Write(out)
	return err
}

// TableFormatter draws a table.Data. A plain struct is drawn as a
// property/value table; anything else falls back to JSON.
type TableFormatter struct{}

// Format implements Formatter.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case table.Data:
		return render(w, v)
	case *table.Data:
		return render(w, *v)
	}
	if props, ok := properties(data); ok {
		return render(w, props)
	}
	return (&JSONFormatter{Indent: "  "}).Format(w, data)
}

var alignments = map[table.Align]tw.Align{
	table.AlignLeft:   tw.AlignLeft,
	table.AlignCenter: tw.AlignCenter,
	table.AlignRight:  tw.AlignRight,
}

func render(w io.Writer, data table.Data) error {
	var cfg tablewriter.Config
	if n := len(data.ColumnAlignment); n > 0 {
		perColumn := make([]tw.Align, n)
		for i, a := range data.ColumnAlignment {
			if mapped, ok := alignments[a]; ok {
				perColumn[i] = mapped
			} else {
				perColumn[i] = tw.Skip
			}
		}
		cfg.Header.Alignment = tw.CellAlignment{PerColumn: perColumn}
		cfg.Row.Alignment = tw.CellAlignment{PerColumn: perColumn}
	}

	tbl := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))
	if len(data.Headers) > 0 {
		tbl.Header(cells(data.Headers)...)
	}
	for _, row := range data.Rows {
		if err := tbl.Append(cells(row)...); err != nil {
			return err
		}
	}
	return tbl.Render()
}

func cells(row []string) []any {
	out := make([]any, len(row))
	for i, c := range row {
		out[i] = c
	}
	return out
}

// properties lists the exported fields of a struct (or pointer to one),
// titled from their json names. Fields tagged json:"-" are skipped.
func properties(data any) (table.Data, bool) {
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return table.Data{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return table.Data{}, false
	}

	title := cases.Title(language.English)
	props := table.Data{Headers: []string{"Property", "Value"}}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = field.Name
		default:
			name = title.String(strings.ReplaceAll(name, "_", " "))
		}
		props.Rows = append(props.Rows, []string{name, fmt.Sprint(v.Field(i).Interface())})
	}
	return props, true
}
