package template

import (
	"fmt"
	"strings"

	"github.com/viant/jobrunner/model/input"
)

type function struct {
	arity int
	apply func(e *evaluation, args []interface{}) (interface{}, error)
}

var functions map[string]*function

func init() {
	functions = map[string]*function{
		"toJSON": {arity: 1, apply: func(_ *evaluation, args []interface{}) (interface{}, error) {
			return toJSON(args[0])
		}},
		"toString": {arity: 1, apply: func(_ *evaluation, args []interface{}) (interface{}, error) {
			switch actual := args[0].(type) {
			case string:
				return actual, nil
			case input.StringArray, input.FileArray, input.Values, []string:
				return nil, fmt.Errorf("expected scalar, but had %T", actual)
			case input.Value:
				return actual.Text(), nil
			}
			return nil, fmt.Errorf("unsupported argument %T", args[0])
		}},
		"toFile": {arity: 1, apply: func(e *evaluation, args []interface{}) (interface{}, error) {
			switch actual := args[0].(type) {
			case input.File:
				return e.writeFile(actual.Filename, actual.Data)
			case string:
				return e.writeFile("", []byte(actual))
			case input.StringArray, input.FileArray, input.Values, []string:
				return nil, fmt.Errorf("expected scalar, but had %T; use toFiles for file arrays", actual)
			case input.Value:
				return e.writeFile("", []byte(actual.Text()))
			}
			return nil, fmt.Errorf("unsupported argument %T", args[0])
		}},
		"toFiles": {arity: 1, apply: func(e *evaluation, args []interface{}) (interface{}, error) {
			files, ok := args[0].(input.FileArray)
			if !ok {
				return nil, fmt.Errorf("expected %s, but had %T", input.KindFileArray, args[0])
			}
			ret := make([]string, 0, len(files))
			for _, item := range files {
				location, err := e.writeFile(item.Filename, item.Data)
				if err != nil {
					return nil, err
				}
				ret = append(ret, location)
			}
			return ret, nil
		}},
		"join": {arity: 2, apply: func(_ *evaluation, args []interface{}) (interface{}, error) {
			separator, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("separator: expected string, but had %T", args[0])
			}
			switch actual := args[1].(type) {
			case []string:
				return strings.Join(actual, separator), nil
			case input.StringArray:
				return strings.Join(actual, separator), nil
			}
			return nil, fmt.Errorf("expected list of strings, but had %T", args[1])
		}},
	}
}
