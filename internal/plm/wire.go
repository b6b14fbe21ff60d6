package plm

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/agentstation/bomsync/pkg/bom"
)

// record is a JSON object with case-folded keys. The PLM API returns the
// same field as "Number" in some payloads and "number" in others; every
// wire type decodes through record so the rest of the code sees one shape.
type record map[string]json.RawMessage

// UnmarshalJSON implements json.Unmarshaler.
func (r *record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(record, len(raw))
	for k, v := range raw {
		out[strings.ToLower(k)] = v
	}
	*r = out
	return nil
}

// raw returns the first present key.
func (r record) raw(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return v, true
		}
	}
	return nil, false
}

// text returns a string field. Nested objects yield their "name", numbers
// their literal text.
func (r record) text(keys ...string) string {
	v, ok := r.raw(keys...)
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	var nested record
	if json.Unmarshal(v, &nested) == nil {
		return nested.text("name", "value")
	}
	return strings.TrimSpace(string(v))
}

// number returns a numeric field; numeric strings are accepted.
func (r record) number(keys ...string) float64 {
	v, ok := r.raw(keys...)
	if !ok {
		return 0
	}
	var f float64
	if json.Unmarshal(v, &f) == nil {
		return f
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return 0
}

func (r record) object(keys ...string) record {
	v, ok := r.raw(keys...)
	if !ok {
		return record{}
	}
	var nested record
	if json.Unmarshal(v, &nested) != nil {
		return record{}
	}
	return nested
}

// attributes decodes either a {"name": "value"} object or a list of
// {"name": ..., "value": ...} entries.
func (r record) attributes(keys ...string) map[string]string {
	v, ok := r.raw(keys...)
	if !ok {
		return nil
	}
	out := make(map[string]string)
	var list []record
	if json.Unmarshal(v, &list) == nil {
		for _, a := range list {
			if name := a.text("name"); name != "" {
				out[name] = a.text("value")
			}
		}
	} else {
		var obj map[string]string
		if json.Unmarshal(v, &obj) == nil {
			for k, val := range obj {
				out[k] = val
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// wireItem decodes a PLM item into the canonical shape.
type wireItem struct {
	bom.Item
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *wireItem) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	w.Item = bom.Item{
		Ref:         r.text("guid", "id"),
		Number:      r.text("number"),
		Name:        r.text("name"),
		Description: r.text("description"),
		Category:    r.text("category"),
		Lifecycle:   r.text("lifecyclephase", "lifecycle"),
		Revision:    r.text("revisionnumber", "revision"),
	}
	return nil
}

// wireLine decodes a PLM BOM line. Item fields come from the nested item.
type wireLine struct {
	bom.RemoteLine
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *wireLine) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	item := r.object("item")
	w.RemoteLine = bom.RemoteLine{
		Ref:            r.text("guid", "id"),
		SequenceNumber: int(r.number("linenumber", "sequencenumber")),
		Line: bom.Line{
			Level:       int(r.number("level")),
			ItemNumber:  item.text("number"),
			ItemRef:     item.text("guid", "id"),
			Quantity:    r.number("quantity"),
			Category:    item.text("category"),
			Name:        item.text("name"),
			Description: item.text("description"),
			Lifecycle:   item.text("lifecyclephase", "lifecycle"),
			Attributes:  r.attributes("additionalattributes", "attributes"),
		},
	}
	return nil
}

// page is a paginated list response.
type page[T any] struct {
	Count   int
	Results []T
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *page[T]) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	p.Count = int(r.number("count"))
	if v, ok := r.raw("results"); ok {
		if err := json.Unmarshal(v, &p.Results); err != nil {
			return err
		}
	}
	return nil
}

// itemPayload is the create/update request body.
type itemPayload struct {
	Number      string           `json:"number,omitempty"`
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	Category    *named           `json:"category,omitempty"`
	Lifecycle   *named           `json:"lifecyclePhase,omitempty"`
	Attributes  []attributeValue `json:"additionalAttributes,omitempty"`
}

type named struct {
	Name string `json:"name"`
}

type attributeValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type refPayload struct {
	GUID string `json:"guid"`
}

// linePayload is the BOM line create body.
type linePayload struct {
	Item       refPayload       `json:"item"`
	Quantity   float64          `json:"quantity"`
	Level      int              `json:"level"`
	LineNumber int              `json:"lineNumber"`
	Attributes []attributeValue `json:"additionalAttributes,omitempty"`
}

func newItemPayload(f bom.ItemFields) itemPayload {
	p := itemPayload{
		Number:      f.Number,
		Name:        f.Name,
		Description: f.Description,
		Attributes:  attributeList(f.Attributes),
	}
	if f.Category != "" {
		p.Category = &named{Name: f.Category}
	}
	if f.Lifecycle != "" {
		p.Lifecycle = &named{Name: f.Lifecycle}
	}
	return p
}

func newLinePayload(in bom.LineInput) linePayload {
	return linePayload{
		Item:       refPayload{GUID: in.ItemRef},
		Quantity:   in.Quantity,
		Level:      in.Level,
		LineNumber: in.SequenceNumber,
		Attributes: attributeList(in.Attributes),
	}
}

// attributeList converts attributes to the wire list, sorted by name.
func attributeList(attrs map[string]string) []attributeValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attributeValue, 0, len(attrs))
	for k, v := range attrs {
		out = append(out, attributeValue{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
