// Package identity establishes the session identity under which evidence
// is recorded. Establishment walks a fixed fallback chain once per process:
// a pre-issued token, then an anonymous session, then a locally generated id.
package identity

import "time"

// Method records which path produced a session.
type Method string

const (
	MethodCustomToken   Method = "custom-token"
	MethodAnonymous     Method = "anonymous"
	MethodLocalFallback Method = "local-fallback"
)

// Session is an established identity. It is immutable once returned.
type Session struct {
	ID            string    `json:"id"`
	Method        Method    `json:"establishedVia"`
	Ready         bool      `json:"ready"`
	EstablishedAt time.Time `json:"establishedAt"`
}
