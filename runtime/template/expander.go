package template

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/jobrunner/internal/idgen"
	"github.com/viant/jobrunner/model/input"
	"github.com/viant/jobrunner/model/spec"
)

// Context carries everything a template may reference.
type Context struct {
	Spec    *spec.Spec
	Inputs  input.Values
	JobID   string
	Name    string
	Owner   string
	WorkDir string
}

// Invocation is a fully resolved process invocation.
type Invocation struct {
	Argv  []string
	Stdin []byte
	// Files lists paths materialized by toFile/toFiles.
	Files []string
}

// Service expands spec execution templates.
type Service struct {
	fs afs.Service
}

// New creates a template service.
func New(fs afs.Service) *Service {
	if fs == nil {
		fs = afs.New()
	}
	return &Service{fs: fs}
}

// Expand resolves the application, arguments and stdin templates of c.Spec.
// Any failure aborts the whole expansion with *Error.
func (s *Service) Expand(ctx context.Context, c *Context) (*Invocation, error) {
	execution := c.Spec.Execution
	if execution == nil {
		return nil, &Error{Fragment: "", Err: fmt.Errorf("spec %q has no execution", c.Spec.ID)}
	}
	e := &evaluation{ctx: ctx, service: s, context: c, invocation: &Invocation{}}
	fragments := append([]string{execution.Application}, execution.Arguments...)
	for _, fragment := range fragments {
		arg, err := e.expand(fragment)
		if err != nil {
			return nil, err
		}
		e.invocation.Argv = append(e.invocation.Argv, arg)
	}
	if execution.Stdin != "" {
		stdin, err := e.expand(execution.Stdin)
		if err != nil {
			return nil, err
		}
		e.invocation.Stdin = []byte(stdin)
	}
	return e.invocation, nil
}

type evaluation struct {
	ctx        context.Context
	service    *Service
	context    *Context
	invocation *Invocation
}

func (e *evaluation) expand(fragment string) (string, error) {
	segments, err := parse(fragment)
	if err != nil {
		return "", &Error{Fragment: fragment, Err: err}
	}
	var sb strings.Builder
	for _, seg := range segments {
		if seg.expr == nil {
			sb.WriteString(seg.text)
			continue
		}
		value, err := e.eval(seg.expr)
		if err != nil {
			return "", &Error{Fragment: fragment, Err: err}
		}
		text, err := asText(seg.expr, value)
		if err != nil {
			return "", &Error{Fragment: fragment, Err: err}
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func (e *evaluation) eval(n node) (interface{}, error) {
	switch actual := n.(type) {
	case *literal:
		return actual.value, nil
	case *reference:
		return e.resolve(actual)
	case *call:
		fn, ok := functions[actual.name]
		if !ok {
			return nil, fmt.Errorf("unknown function %q", actual.name)
		}
		if len(actual.args) != fn.arity {
			return nil, fmt.Errorf("%s expects %d argument(s), but had %d", actual.name, fn.arity, len(actual.args))
		}
		args := make([]interface{}, len(actual.args))
		for i, arg := range actual.args {
			value, err := e.eval(arg)
			if err != nil {
				return nil, err
			}
			args[i] = value
		}
		ret, err := fn.apply(e, args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", actual.String(), err)
		}
		return ret, nil
	}
	return nil, fmt.Errorf("unsupported expression %v", n)
}

func (e *evaluation) resolve(p *reference) (interface{}, error) {
	c := e.context
	switch len(p.parts) {
	case 1:
		switch name := p.parts[0]; name {
		case "inputs":
			return c.Inputs, nil
		case "workdir":
			return c.WorkDir, nil
		default:
			if value, ok := c.Inputs[name]; ok {
				return value, nil
			}
		}
	case 2:
		switch p.parts[0] {
		case "inputs":
			if value, ok := c.Inputs[p.parts[1]]; ok {
				return value, nil
			}
		case "request":
			switch p.parts[1] {
			case "id":
				return c.JobID, nil
			case "name":
				return c.Name, nil
			case "owner":
				return c.Owner, nil
			case "spec":
				return c.Spec.ID, nil
			}
		}
	}
	return nil, fmt.Errorf("unresolved reference %q", p.String())
}

// writeFile materializes data in the working directory and returns its absolute path.
func (e *evaluation) writeFile(name string, data []byte) (string, error) {
	if e.context.WorkDir == "" {
		return "", fmt.Errorf("working directory was not set")
	}
	dir, err := filepath.Abs(e.context.WorkDir)
	if err != nil {
		return "", err
	}
	target := filepath.Join(dir, "input-"+idgen.New()+filepath.Ext(name))
	if err = e.service.fs.Upload(e.ctx, target, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to write %v: %w", target, err)
	}
	e.invocation.Files = append(e.invocation.Files, target)
	return target, nil
}

func asText(n node, value interface{}) (string, error) {
	switch actual := value.(type) {
	case string:
		return actual, nil
	case input.StringArray, input.FileArray, []string:
		return "", fmt.Errorf("%s evaluates to a list; use join or toJSON", n.String())
	case input.Values:
		return "", fmt.Errorf("%s evaluates to an object; use toJSON", n.String())
	case input.Value:
		return actual.Text(), nil
	}
	return "", fmt.Errorf("%s: unsupported value %T", n.String(), value)
}

func toJSON(value interface{}) (string, error) {
	var data []byte
	var err error
	switch actual := value.(type) {
	case input.Values:
		data, err = json.Marshal(actual.Interface())
	case input.Value:
		data, err = json.Marshal(actual.Interface())
	default:
		data, err = json.Marshal(actual)
	}
	return string(data), err
}
