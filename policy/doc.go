// Package policy restricts which specs may be submitted.
package policy
