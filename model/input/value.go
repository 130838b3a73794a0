package input

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// Value is a validated, typed input. The set of implementations is closed:
// String, StringArray, File, FileArray, Int32, Int64, Float32, Float64 and SQL.
type Value interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Text returns the canonical text form used by templates.
	Text() string
	// Interface returns a JSON friendly representation.
	Interface() interface{}

	sealed()
}

type (
	String      string
	StringArray []string
	Int32       int32
	Int64       int64
	Float32     float32
	Float64     float64
	FileArray   []File
)

// UnnamedFile is assigned to file inputs submitted without a filename.
const UnnamedFile = "unnamed"

// File carries an uploaded payload.
type File struct {
	Filename string
	Data     []byte
}

// SQL is a query that passed parsing and schema checks.
type SQL struct {
	Query     string
	Statement *Statement
}

func (String) Kind() Kind      { return KindString }
func (StringArray) Kind() Kind { return KindStringArray }
func (File) Kind() Kind        { return KindFile }
func (FileArray) Kind() Kind   { return KindFileArray }
func (Int32) Kind() Kind       { return KindInt }
func (Int64) Kind() Kind       { return KindLong }
func (Float32) Kind() Kind     { return KindFloat }
func (Float64) Kind() Kind     { return KindDouble }
func (SQL) Kind() Kind         { return KindSQL }

func (v String) Text() string      { return string(v) }
func (v StringArray) Text() string { return strings.Join(v, ",") }
func (v File) Text() string        { return string(v.Data) }
func (v Int32) Text() string       { return strconv.FormatInt(int64(v), 10) }
func (v Int64) Text() string       { return strconv.FormatInt(int64(v), 10) }
func (v Float32) Text() string     { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
func (v Float64) Text() string     { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v SQL) Text() string         { return v.Query }

func (v FileArray) Text() string {
	names := make([]string, len(v))
	for i := range v {
		names[i] = v[i].Filename
	}
	return strings.Join(names, ",")
}

func (v String) Interface() interface{}      { return string(v) }
func (v StringArray) Interface() interface{} { return []string(v) }
func (v Int32) Interface() interface{}       { return int32(v) }
func (v Int64) Interface() interface{}       { return int64(v) }
func (v Float32) Interface() interface{}     { return float32(v) }
func (v Float64) Interface() interface{}     { return float64(v) }
func (v SQL) Interface() interface{}         { return v.Query }

func (v File) Interface() interface{} {
	return map[string]interface{}{
		"filename": v.Filename,
		"data":     base64.StdEncoding.EncodeToString(v.Data),
	}
}

func (v FileArray) Interface() interface{} {
	ret := make([]interface{}, len(v))
	for i := range v {
		ret[i] = v[i].Interface()
	}
	return ret
}

func (String) sealed()      {}
func (StringArray) sealed() {}
func (File) sealed()        {}
func (FileArray) sealed()   {}
func (Int32) sealed()       {}
func (Int64) sealed()       {}
func (Float32) sealed()     {}
func (Float64) sealed()     {}
func (SQL) sealed()         {}

// Values maps expected input ids to validated values.
type Values map[string]Value

// Interface returns a JSON friendly copy of the values.
func (v Values) Interface() map[string]interface{} {
	ret := make(map[string]interface{}, len(v))
	for k, value := range v {
		ret[k] = value.Interface()
	}
	return ret
}
