// Package idgen issues job identifiers. Callers treat them as opaque strings;
// tests replace NewFunc to get predictable values.
package idgen
