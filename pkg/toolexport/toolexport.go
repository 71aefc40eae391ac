// Package toolexport writes the environment's tool schemas in the format used to
// register them as tools of the hosted dialogue agent.
package toolexport

import (
	"encoding/json"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/mb0/glob"
	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type ToolDoc struct {
	DisplayName  string             `json:"display_name"`
	Description  string             `json:"description"`
	InputSchema  *jsonschema.Schema `json:"input_schema"`
	OutputSchema *jsonschema.Schema `json:"output_schema"`
}

// OutputSchema is the schema of every tool result: a single string field "result".
func OutputSchema() *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("result", &jsonschema.Schema{Type: "string"})
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
	}
}

// Build converts function tools into tool docs. Non-function tools are skipped.
func Build(tools []go_openai.Tool) ([]ToolDoc, error) {
	ret := make([]ToolDoc, 0, len(tools))
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		input, err := toSchema(t.Function.Parameters)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid parameters for tool %s", t.Function.Name)
		}
		ret = append(ret, ToolDoc{
			DisplayName:  t.Function.Name,
			Description:  t.Function.Description,
			InputSchema:  input,
			OutputSchema: OutputSchema(),
		})
	}
	return ret, nil
}

// MatchName reports whether a tool name matches a glob pattern. An empty pattern matches everything.
func MatchName(pattern, name string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	ok, err := glob.Match(pattern, name)
	if err != nil {
		return false, errors.Wrapf(err, "invalid tool pattern %q", pattern)
	}
	return ok, nil
}

// Filter keeps the function tools whose name matches pattern.
func Filter(tools []go_openai.Tool, pattern string) ([]go_openai.Tool, error) {
	ret := make([]go_openai.Tool, 0, len(tools))
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		ok, err := MatchName(pattern, t.Function.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			ret = append(ret, t)
		}
	}
	return ret, nil
}

func toSchema(params any) (*jsonschema.Schema, error) {
	switch p := params.(type) {
	case nil:
		return &jsonschema.Schema{Type: "object"}, nil
	case *jsonschema.Schema:
		return p, nil
	}

	var b []byte
	switch p := params.(type) {
	case json.RawMessage:
		b = p
	case []byte:
		b = p
	case string:
		b = []byte(p)
	default:
		var err error
		b, err = json.Marshal(p)
		if err != nil {
			return nil, err
		}
	}
	ret := &jsonschema.Schema{}
	if err := json.Unmarshal(b, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func Marshal(docs []ToolDoc) ([]byte, error) {
	return json.MarshalIndent(docs, "", "  ")
}

func WriteFile(path string, docs []ToolDoc) error {
	b, err := Marshal(docs)
	if err != nil {
		return errors.Wrap(err, "could not marshal tool docs")
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return errors.Wrapf(err, "could not write %s", path)
	}
	return nil
}

// FileName is the name of the export file for an environment.
func FileName(envName string) string {
	return envName + "_tools_info.txt"
}
