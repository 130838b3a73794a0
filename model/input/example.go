package input

import "fmt"

// Example returns a representative value for the declared input, preferring
// its default when one is declared.
func Example(e *Expected) Value {
	if e.Default != nil {
		if value, err := parse(e, e.Default); err == nil {
			return value
		}
	}
	switch e.Type {
	case KindString:
		return String("example")
	case KindStringArray:
		return StringArray{"first", "second"}
	case KindFile:
		return File{Filename: "example.txt", Data: []byte("example")}
	case KindFileArray:
		return FileArray{
			{Filename: "first.txt", Data: []byte("first")},
			{Filename: "second.txt", Data: []byte("second")},
		}
	case KindInt:
		return Int32(1)
	case KindLong:
		return Int64(1)
	case KindFloat:
		return Float32(1.5)
	case KindDouble:
		return Float64(1.5)
	case KindSQL:
		table := "example"
		if e.Schema != nil && len(e.Schema.Tables) > 0 {
			table = e.Schema.Tables[0].Name
		}
		query := fmt.Sprintf("SELECT * FROM %s", table)
		stmt, _ := ParseSQL(query)
		return SQL{Query: query, Statement: stmt}
	default:
		panic(fmt.Sprintf("unsupported input kind %q", e.Type))
	}
}

// Examples returns a raw request payload that would pass Validate.
func Examples(expected []*Expected) map[string]interface{} {
	ret := make(map[string]interface{}, len(expected))
	for _, item := range expected {
		ret[item.ID] = Example(item).Interface()
	}
	return ret
}
