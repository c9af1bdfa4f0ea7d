package deb822

import (
	"strconv"
	"strings"

	"github.com/nicwaller/apt-look/pkg/apterrors"
)

// Architecture is a closed set of known Debian architecture tags, with an
// Other fallback for anything outside that set. A leading "linux-" prefix
// (seen on some kernel-specific architecture tags) is stripped before
// classification.
type Architecture struct {
	tag   string
	other string
}

const (
	archAmd64   = "amd64"
	archArm64   = "arm64"
	archArmhf   = "armhf"
	archI386    = "i386"
	archPpc64el = "ppc64el"
	archRiscv64 = "riscv64"
	archS390x   = "s390x"
	archAll     = "all"
	archSource  = "source"
	archAny     = "any"
	archX32     = "x32"
	archOther   = "other"
)

var knownArchTags = map[string]bool{
	archAmd64: true, archArm64: true, archArmhf: true, archI386: true,
	archPpc64el: true, archRiscv64: true, archS390x: true, archAll: true,
	archSource: true, archAny: true, archX32: true,
}

// ParseArchitecture classifies s into one of the known architecture tags,
// or Other(s) when it isn't recognized. It never fails.
func ParseArchitecture(s string) Architecture {
	a := strings.ToLower(strings.TrimSpace(s))
	a = strings.TrimPrefix(a, "linux-")
	if knownArchTags[a] {
		return Architecture{tag: a}
	}
	return Architecture{tag: archOther, other: a}
}

// String returns the lowercase tag form, or the original unrecognized value
// for Other.
func (a Architecture) String() string {
	if a.tag == archOther {
		return a.other
	}
	return a.tag
}

// IsKnown reports whether this is one of the fixed closed-set tags rather
// than an Other fallback.
func (a Architecture) IsKnown() bool {
	return a.tag != archOther
}

func (a Architecture) Equal(o Architecture) bool {
	return a.String() == o.String()
}

// Priority is a binary/source package's archive subsection priority.
type Priority string

const (
	PriorityRequired  Priority = "required"
	PriorityImportant Priority = "important"
	PriorityStandard  Priority = "standard"
	PriorityOptional  Priority = "optional"
	PriorityExtra     Priority = "extra"
)

// String returns the priority's lowercase control-field spelling.
func (p Priority) String() string {
	return string(p)
}

// ParsePriority parses the Priority control field. Malformed or unrecognized
// values are reported as an error rather than guessed at.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "required":
		return PriorityRequired, nil
	case "important":
		return PriorityImportant, nil
	case "standard":
		return PriorityStandard, nil
	case "optional":
		return PriorityOptional, nil
	case "extra":
		return PriorityExtra, nil
	default:
		return "", apterrors.New(apterrors.UnknownPriority, "unknown priority "+strconv.Quote(s))
	}
}
