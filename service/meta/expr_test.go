package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("JR_FOO", "bar")
	t.Setenv("JR_A", "1")
	t.Setenv("JR_B", "2")
	testCases := []struct {
		description string
		input       string
		expected    string
	}{
		{description: "no expressions", input: "just a plain string", expected: "just a plain string"},
		{description: "single expression", input: "value is ${env.JR_FOO}", expected: "value is bar"},
		{description: "multiple expressions", input: "${env.JR_A}-${env.JR_B}-${env.JR_A}", expected: "1-2-1"},
		{description: "unset variable", input: "unset=${env.JR_NOT_SET}-end", expected: "unset=-end"},
		{description: "invalid name kept", input: "a ${env.X Y} ${env.JR_A}", expected: "a ${env.X Y} 1"},
		{description: "unterminated", input: "start ${env.JR_FOO", expected: "start ${env.JR_FOO"},
		{description: "empty name", input: "oops ${env.} done", expected: "oops  done"},
		{description: "template untouched", input: "{{toFile(doc)}} $HOME", expected: "{{toFile(doc)}} $HOME"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExpandEnv(tc.input))
		})
	}
}
