// Package apterrors defines the error taxonomy shared across the apt-look
// client library. Every fatal error returned across a package boundary is
// wrapped in an *Error carrying a Kind so callers can branch with errors.As
// instead of string matching.
package apterrors

import "fmt"

// Kind classifies a fatal error. Recoverable per-field failures are never
// wrapped in a Kind; they're accumulated as plain errors on the owning
// record's Issues slice instead (see the deb822 and aptindex packages).
type Kind string

const (
	Transport                Kind = "transport"
	Signature                Kind = "signature"
	ReleaseGrammar            Kind = "release_grammar"
	PolicyViolation           Kind = "policy_violation"
	PackageGrammar            Kind = "package_grammar"
	SourceGrammar             Kind = "source_grammar"
	UnknownArchitecture       Kind = "unknown_architecture"
	ArchitectureNotSupported  Kind = "architecture_not_supported"
	UnknownPriority           Kind = "unknown_priority"
	UnknownVersionRelation    Kind = "unknown_version_relation"
	VersionSyntax             Kind = "version_syntax"
	DigestMismatch            Kind = "digest_mismatch"
	ReferenceSyntax           Kind = "reference_syntax"
	CallerMisuse              Kind = "caller_misuse"
)

// Error is a fatal, kind-tagged error. It wraps an underlying cause where
// one exists, so errors.Is/As against both the Error and its cause work.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is(err, apterrors.New(kind, "")) style matching on
// Kind alone, ignoring Message and Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
