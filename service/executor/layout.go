package executor

// Working directory layout.
const (
	RequestFile  = "request.json"
	SpecFile     = "spec.json"
	StdoutFile   = "stdout"
	StderrFile   = "stderr"
	OutputsDir   = "outputs"
	ManifestFile = "outputs.json"
)

var reserved = map[string]bool{
	RequestFile:  true,
	SpecFile:     true,
	StdoutFile:   true,
	StderrFile:   true,
	ManifestFile: true,
}
