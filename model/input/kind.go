package input

// Kind tags one of the supported input variants.
type Kind string

const (
	KindString      Kind = "string"
	KindStringArray Kind = "string[]"
	KindFile        Kind = "file"
	KindFileArray   Kind = "file[]"
	KindInt         Kind = "int"
	KindLong        Kind = "long"
	KindFloat       Kind = "float"
	KindDouble      Kind = "double"
	KindSQL         Kind = "sql"
)

var kinds = []Kind{
	KindString, KindStringArray, KindFile, KindFileArray,
	KindInt, KindLong, KindFloat, KindDouble, KindSQL,
}

// Kinds returns all supported kinds in declaration order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	for _, candidate := range kinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// IsArray reports whether k holds a sequence of values.
func (k Kind) IsArray() bool {
	return k == KindStringArray || k == KindFileArray
}
