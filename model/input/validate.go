package input

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/viant/structology/conv"
	"github.com/viant/toolbox"
)

var converter = conv.NewConverter(conv.DefaultOptions())

// Validate checks raw submitted values against the declared inputs and returns
// typed values. A problem with any input yields ValidationErrors listing all of
// them; an undecodable payload aborts with *DecodeError. Validate has no side effects.
func Validate(expected []*Expected, raw map[string]interface{}, opts ...Option) (Values, error) {
	options := newOptions(opts)
	var errs ValidationErrors
	declared := make(map[string]bool, len(expected))
	values := make(Values, len(expected))
	for _, item := range expected {
		declared[item.ID] = true
		candidate, ok := raw[item.ID]
		if !ok || candidate == nil {
			if item.Default == nil {
				errs = append(errs, invalid(item.ID, "required input is missing"))
				continue
			}
			candidate = item.Default
		}
		value, err := parse(item, candidate)
		if err != nil {
			if decodeErr, ok := err.(*DecodeError); ok {
				return nil, decodeErr
			}
			errs = append(errs, err.(ValidationErrors)...)
			continue
		}
		values[item.ID] = value
	}
	if !options.allowUnknown {
		var unknown []string
		for key := range raw {
			if !declared[key] {
				unknown = append(unknown, key)
			}
		}
		sort.Strings(unknown)
		for _, key := range unknown {
			errs = append(errs, invalid(key, "unknown input"))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}

// New constructs a single value for the declared input.
func New(expected *Expected, raw interface{}) (Value, error) {
	return parse(expected, raw)
}

func parse(e *Expected, raw interface{}) (Value, error) {
	if v, ok := raw.(Value); ok {
		if v.Kind() != e.Type {
			return nil, ValidationErrors{invalid(e.ID, "expected %s, but had %s", e.Type, v.Kind())}
		}
		return v, nil
	}
	switch e.Type {
	case KindString:
		text, ok := raw.(string)
		if !ok {
			return nil, ValidationErrors{invalid(e.ID, "expected string, but had %T", raw)}
		}
		return String(text), nil
	case KindStringArray:
		return parseStringArray(e.ID, raw)
	case KindFile:
		file, err := parseFile(e.ID, raw)
		if err != nil {
			return nil, err
		}
		return file, nil
	case KindFileArray:
		return parseFileArray(e.ID, raw)
	case KindInt:
		i, err := toInt64(raw)
		if err != nil {
			return nil, ValidationErrors{invalid(e.ID, "expected int: %v", err)}
		}
		if i < math.MinInt32 || i > math.MaxInt32 {
			return nil, ValidationErrors{invalid(e.ID, "value %d out of int range", i)}
		}
		return Int32(i), nil
	case KindLong:
		i, err := toInt64(raw)
		if err != nil {
			return nil, ValidationErrors{invalid(e.ID, "expected long: %v", err)}
		}
		return Int64(i), nil
	case KindFloat:
		f, err := toFloat64(raw)
		if err != nil {
			return nil, ValidationErrors{invalid(e.ID, "expected float: %v", err)}
		}
		if math.Abs(f) > math.MaxFloat32 {
			return nil, ValidationErrors{invalid(e.ID, "value %v out of float range", f)}
		}
		return Float32(f), nil
	case KindDouble:
		f, err := toFloat64(raw)
		if err != nil {
			return nil, ValidationErrors{invalid(e.ID, "expected double: %v", err)}
		}
		return Float64(f), nil
	case KindSQL:
		return parseSQL(e, raw)
	default:
		return nil, ValidationErrors{invalid(e.ID, "unsupported type %q", e.Type)}
	}
}

func parseStringArray(id string, raw interface{}) (Value, error) {
	var items []interface{}
	switch actual := raw.(type) {
	case []string:
		return StringArray(append([]string(nil), actual...)), nil
	case []interface{}:
		items = actual
	default:
		return nil, ValidationErrors{invalid(id, "expected string array, but had %T", raw)}
	}
	var errs ValidationErrors
	for i, item := range items {
		if _, ok := item.(string); !ok {
			errs = append(errs, invalid(id, "element %d: expected string, but had %T", i, item))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	var ret []string
	if err := converter.Convert(items, &ret); err != nil {
		return nil, ValidationErrors{invalid(id, "expected string array: %v", err)}
	}
	if ret == nil {
		ret = []string{}
	}
	return StringArray(ret), nil
}

func parseFile(id string, raw interface{}) (File, error) {
	switch actual := raw.(type) {
	case File:
		return actual, nil
	case map[string]interface{}:
		file := File{Filename: UnnamedFile}
		if name, ok := actual["filename"]; ok && name != nil {
			text, ok := name.(string)
			if !ok {
				return file, ValidationErrors{invalid(id, "filename: expected string, but had %T", name)}
			}
			if text != "" {
				file.Filename = text
			}
		}
		data, ok := actual["data"]
		if !ok || data == nil {
			return file, ValidationErrors{invalid(id, "file data is required")}
		}
		encoded, ok := data.(string)
		if !ok {
			return file, ValidationErrors{invalid(id, "data: expected base64 string, but had %T", data)}
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return file, &DecodeError{Input: id, Err: err}
		}
		file.Data = decoded
		return file, nil
	default:
		return File{}, ValidationErrors{invalid(id, "expected file object, but had %T", raw)}
	}
}

func parseFileArray(id string, raw interface{}) (Value, error) {
	if files, ok := raw.([]File); ok {
		return FileArray(append([]File(nil), files...)), nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, ValidationErrors{invalid(id, "expected file array, but had %T", raw)}
	}
	ret := make(FileArray, 0, len(items))
	var errs ValidationErrors
	for i, item := range items {
		file, err := parseFile(fmt.Sprintf("%s[%d]", id, i), item)
		if err != nil {
			if decodeErr, ok := err.(*DecodeError); ok {
				return nil, decodeErr
			}
			errs = append(errs, err.(ValidationErrors)...)
			continue
		}
		ret = append(ret, file)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return ret, nil
}

func parseSQL(e *Expected, raw interface{}) (Value, error) {
	query, ok := raw.(string)
	if !ok {
		return nil, ValidationErrors{invalid(e.ID, "expected sql string, but had %T", raw)}
	}
	stmt, err := ParseSQL(query)
	if err != nil {
		return nil, ValidationErrors{invalid(e.ID, "syntax error: %v", err)}
	}
	if e.Schema != nil {
		var errs ValidationErrors
		for _, problem := range e.Schema.Check(stmt) {
			errs = append(errs, invalid(e.ID, "%s", problem))
		}
		if len(errs) > 0 {
			return nil, errs
		}
	}
	return SQL{Query: query, Statement: stmt}, nil
}

func toInt64(raw interface{}) (int64, error) {
	switch actual := raw.(type) {
	case bool, nil:
		return 0, fmt.Errorf("unsupported value %v", raw)
	case int:
		return int64(actual), nil
	case int32:
		return int64(actual), nil
	case int64:
		return actual, nil
	case float64:
		return integral(actual)
	case float32:
		return integral(float64(actual))
	case json.Number:
		return actual.Int64()
	}
	i, err := toolbox.ToInt(raw)
	if err != nil {
		return 0, err
	}
	return int64(i), nil
}

func integral(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows", f)
	}
	return int64(f), nil
}

func toFloat64(raw interface{}) (float64, error) {
	switch actual := raw.(type) {
	case bool, nil:
		return 0, fmt.Errorf("unsupported value %v", raw)
	case float64:
		return actual, nil
	case float32:
		return float64(actual), nil
	case json.Number:
		return actual.Float64()
	}
	return toolbox.ToFloat(raw)
}
