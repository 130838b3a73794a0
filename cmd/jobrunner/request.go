package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/jobrunner"
	"github.com/viant/jobrunner/model/input"
	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/service/meta"
)

type requestFlags struct {
	request    string
	inputs     []string
	files      []string
	name       string
	credential string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.request, "request", "", "request document (YAML or JSON) with spec, name and inputs")
	cmd.Flags().StringArrayVarP(&f.inputs, "input", "i", nil, "input value as id=value, repeatable")
	cmd.Flags().StringArrayVarP(&f.files, "file", "f", nil, "file input as id=path, repeatable")
	cmd.Flags().StringVar(&f.name, "name", "", "job name")
	cmd.Flags().StringVar(&f.credential, "credential", os.Getenv("JOBRUNNER_CREDENTIAL"), "caller credential passed to the identity strategy")
}

// build assembles a request for specID from the request document and flags;
// flags take precedence over document values.
func (f *requestFlags) build(ctx context.Context, srv *jobrunner.Service, specID string) (*job.Request, error) {
	request := &job.Request{}
	if f.request != "" {
		if err := meta.New(nil, "").Load(ctx, f.request, request); err != nil {
			return nil, err
		}
	}
	if specID != "" {
		request.Spec = specID
	}
	if request.Spec == "" {
		return nil, fmt.Errorf("spec was not specified")
	}
	if f.name != "" {
		request.Name = f.name
	}
	if request.Inputs == nil {
		request.Inputs = map[string]interface{}{}
	}
	values, err := parseAssignments(f.inputs)
	if err != nil {
		return nil, err
	}
	for key, value := range values {
		request.Inputs[key] = value
	}
	if len(f.files) == 0 {
		return request, nil
	}
	aSpec, err := srv.Spec(ctx, request.Spec)
	if err != nil {
		return nil, err
	}
	files, err := readFiles(f.files)
	if err != nil {
		return nil, err
	}
	for id, items := range files {
		if expected := aSpec.Input(id); expected != nil && expected.Type == input.KindFileArray {
			request.Inputs[id] = items
			continue
		}
		if len(items) > 1 {
			return nil, fmt.Errorf("input %q: multiple files given for a single file input", id)
		}
		request.Inputs[id] = items[0]
	}
	return request, nil
}

// parseAssignments turns id=value pairs into a map; a repeated id yields a string list.
func parseAssignments(assignments []string) (map[string]interface{}, error) {
	ret := map[string]interface{}{}
	for _, assignment := range assignments {
		id, value, ok := strings.Cut(assignment, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid input %q, expected id=value", assignment)
		}
		switch prev := ret[id].(type) {
		case nil:
			ret[id] = value
		case string:
			ret[id] = []interface{}{prev, value}
		case []interface{}:
			ret[id] = append(prev, value)
		}
	}
	return ret, nil
}

func readFiles(assignments []string) (map[string][]input.File, error) {
	ret := map[string][]input.File{}
	for _, assignment := range assignments {
		id, location, ok := strings.Cut(assignment, "=")
		if !ok || id == "" || location == "" {
			return nil, fmt.Errorf("invalid file %q, expected id=path", assignment)
		}
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", id, err)
		}
		ret[id] = append(ret[id], input.File{Filename: filepath.Base(location), Data: data})
	}
	return ret, nil
}
