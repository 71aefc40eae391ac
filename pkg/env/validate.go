package env

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/xeipuuv/gojsonschema"
)

// ValidatingTools checks tool arguments against the tool's parameter schema
// before invoking it. Unknown tools are passed through to the backend.
type ValidatingTools struct {
	ToolBackend
	schemas map[string]*gojsonschema.Schema
}

func NewValidatingTools(backend ToolBackend) *ValidatingTools {
	return &ValidatingTools{ToolBackend: backend}
}

func (v *ValidatingTools) Invoke(ctx context.Context, action Action) (string, error) {
	if v.schemas == nil {
		if err := v.load(ctx); err != nil {
			return "", err
		}
	}
	if schema, ok := v.schemas[action.Name]; ok {
		args := action.Arguments
		if args == nil {
			args = map[string]any{}
		}
		result, err := schema.Validate(gojsonschema.NewGoLoader(args))
		if err != nil {
			return "", errors.Wrapf(err, "could not validate arguments of %s", action.Name)
		}
		if !result.Valid() {
			descs := make([]string, 0, len(result.Errors()))
			for _, e := range result.Errors() {
				descs = append(descs, e.String())
			}
			return "", errors.Errorf("invalid arguments for %s: %s", action.Name, strings.Join(descs, "; "))
		}
	}
	return v.ToolBackend.Invoke(ctx, action)
}

func (v *ValidatingTools) load(ctx context.Context) error {
	tools, err := v.ToolBackend.Tools(ctx)
	if err != nil {
		return err
	}
	v.schemas = compileSchemas(tools)
	return nil
}

func compileSchemas(tools []go_openai.Tool) map[string]*gojsonschema.Schema {
	ret := map[string]*gojsonschema.Schema{}
	for _, t := range tools {
		if t.Function == nil || t.Function.Parameters == nil {
			continue
		}
		var loader gojsonschema.JSONLoader
		switch p := t.Function.Parameters.(type) {
		case json.RawMessage:
			loader = gojsonschema.NewBytesLoader(p)
		default:
			loader = gojsonschema.NewGoLoader(p)
		}
		schema, err := gojsonschema.NewSchema(loader)
		if err != nil {
			// a tool with a broken schema is invoked without validation
			continue
		}
		ret[t.Function.Name] = schema
	}
	return ret
}

var _ ToolBackend = (*ValidatingTools)(nil)
