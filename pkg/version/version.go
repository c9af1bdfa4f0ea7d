// Package version implements Debian's package-version comparison algorithm:
// parsing an "[epoch:]upstream[-revision]" string and a total order over
// the resulting triples built on dpkg's tokenized comparator. Within
// non-digit runs, characters other than '~' compare by byte value; dpkg's
// letters-before-punctuation rule is not applied.
package version

import (
	"strconv"
	"strings"

	"github.com/nicwaller/apt-look/pkg/apterrors"
)

// Version is a parsed Debian package version.
type Version struct {
	// Epoch is nil when absent from the input; for ordering purposes a
	// missing epoch behaves identically to epoch zero.
	Epoch    *uint64
	Upstream string
	Revision string // empty string when absent

	hasRevision bool
}

// HasRevision reports whether the parsed string carried a "-revision" part.
func (v Version) HasRevision() bool {
	return v.hasRevision
}

// Parse splits a Debian version string into epoch, upstream and revision.
//
// Epoch, if present, is everything before the first ':' and must parse as
// an unsigned integer. The revision is everything after the last '-'; if no
// '-' is present the revision is absent. Upstream is whatever remains.
func Parse(s string) (Version, error) {
	rest := s
	var epoch *uint64
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		epochStr := rest[:i]
		rest = rest[i+1:]
		e, err := strconv.ParseUint(epochStr, 10, 64)
		if err != nil {
			return Version{}, apterrors.Wrap(apterrors.VersionSyntax, "invalid epoch in version "+strconv.Quote(s), err)
		}
		epoch = &e
	}

	upstream := rest
	revision := ""
	hasRevision := false
	if i := strings.LastIndexByte(rest, '-'); i >= 0 {
		upstream = rest[:i]
		revision = rest[i+1:]
		hasRevision = true
	}

	return Version{
		Epoch:       epoch,
		Upstream:    upstream,
		Revision:    revision,
		hasRevision: hasRevision,
	}, nil
}

// MustParse is Parse but panics on error; useful for literal test fixtures.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders v back into "[epoch:]upstream[-revision]" form.
func (v Version) String() string {
	var sb strings.Builder
	if v.Epoch != nil {
		sb.WriteString(strconv.FormatUint(*v.Epoch, 10))
		sb.WriteByte(':')
	}
	sb.WriteString(v.Upstream)
	if v.hasRevision {
		sb.WriteByte('-')
		sb.WriteString(v.Revision)
	}
	return sb.String()
}

func (v Version) epochValue() uint64 {
	if v.Epoch == nil {
		return 0
	}
	return *v.Epoch
}

// Equal reports structural equality (epoch, upstream, revision all equal).
func (v Version) Equal(o Version) bool {
	return v.epochValue() == o.epochValue() && v.Upstream == o.Upstream && v.Revision == o.Revision
}

// Compare returns -1, 0, or 1 per the usual comparator convention,
// comparing epoch, then upstream, then revision, each via the Debian
// tokenized run comparator.
func Compare(a, b Version) int {
	if ae, be := a.epochValue(), b.epochValue(); ae != be {
		if ae < be {
			return -1
		}
		return 1
	}
	if c := compareRuns(a.Upstream, b.Upstream); c != 0 {
		return c
	}
	return compareRuns(a.Revision, b.Revision)
}

// Less reports whether a sorts strictly before b.
func Less(a, b Version) bool {
	return Compare(a, b) < 0
}

// splitRuns breaks s into a sequence alternating between non-digit runs and
// digit runs, starting with whichever kind the first character belongs to
// (a leading digit run is permitted). Empty input yields no runs.
func splitRuns(s string) []string {
	if s == "" {
		return nil
	}
	var runs []string
	var cur strings.Builder
	digit := isDigit(s[0])
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isDigit(c) == digit {
			cur.WriteByte(c)
			continue
		}
		runs = append(runs, cur.String())
		digit = !digit
		cur.Reset()
		cur.WriteByte(c)
	}
	runs = append(runs, cur.String())
	return runs
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// compareRuns splits both strings into alternating digit/non-digit runs,
// pads the shorter run-list out with an empty string so both lists have
// equal length, then compares the runs pairwise: digit runs numerically,
// non-digit runs character-by-character with '~' sorting before everything
// else. A padding entry is compared against its real counterpart directly
// (not via compareNonDigitRun's within-run padding) since it represents the
// end of a shorter version string, not a literal character.
func compareRuns(a, b string) int {
	if a == b {
		return 0
	}

	as := splitRuns(a)
	bs := splitRuns(b)
	for len(as) < len(bs) {
		as = append(as, "")
	}
	for len(bs) < len(as) {
		bs = append(bs, "")
	}

	for i := range as {
		s, o := as[i], bs[i]
		if s == o {
			continue
		}

		// splitRuns never produces a genuinely empty run; an empty entry
		// here only ever comes from padding the shorter run-list out to
		// the longer one's length. That's a different rule from padding
		// within a same-length non-digit run pair: the missing run sorts
		// after a '~'-leading real run but before everything else,
		// matching a real run against the implicit end of a shorter
		// version string rather than against a literal trailing '~'.
		if s == "" || o == "" {
			sIsPad := s == ""
			real := s
			if sIsPad {
				real = o
			}

			_, realIsNum := parseUintRun(real)
			var c int // cmp(pad, real)
			switch {
			case realIsNum:
				c = -1
			case real[0] == '~':
				c = 1
			default:
				c = -1
			}
			if sIsPad {
				return c
			}
			return -c
		}

		sn, sIsNum := parseUintRun(s)
		on, oIsNum := parseUintRun(o)

		switch {
		case sIsNum && oIsNum:
			if sn != on {
				if sn < on {
					return -1
				}
				return 1
			}
			continue
		case sIsNum && !oIsNum:
			return 1
		case !sIsNum && oIsNum:
			return -1
		default:
			if c := compareNonDigitRun(s, o); c != 0 {
				return c
			}
			continue
		}
	}
	return 0
}

// compareNonDigitRun compares two non-digit runs. When the runs differ in
// length, a single '~' is appended to the shorter one before comparing
// character by character over the shorter (now possibly extended) length —
// '~' sorts before everything else, including the position just past the
// end of a string. When the runs agree over that whole span, the longer
// run continues with a '~' exactly where the shorter one ends, so the
// longer run sorts first.
func compareNonDigitRun(s, o string) int {
	sPadded, oPadded := false, false
	if len(s) < len(o) {
		s += "~"
		sPadded = true
	} else if len(o) < len(s) {
		o += "~"
		oPadded = true
	}

	n := len(s)
	if len(o) < n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		sc, oc := s[i], o[i]
		if sc == oc {
			continue
		}
		if sc == '~' {
			return -1
		}
		if oc == '~' {
			return 1
		}
		if sc < oc {
			return -1
		}
		return 1
	}
	switch {
	case sPadded:
		return 1
	case oPadded:
		return -1
	}
	return 0
}

// parseUintRun reports whether s is a non-empty digit run, and its numeric
// value if so. An empty string is not numeric; compareRuns handles the
// empty padding entries itself before calling this.
func parseUintRun(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

