package deb822

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nicwaller/apt-look/pkg/apterrors"
	"github.com/nicwaller/apt-look/pkg/aptdistro"
	"github.com/nicwaller/apt-look/pkg/rfc822"
)

// hashFieldKind maps a release document's hash-block field name to the
// aptdistro.HashKind it declares. The Release parser's state machine
// expresses this as field dispatch: a non-continuation line names the
// field (resetting to the Keywords state); when that field is one of
// these four names, every following continuation line belongs to that
// hash block until the next field line resets the state.
var hashFieldKind = map[string]aptdistro.HashKind{
	"MD5Sum": aptdistro.MD5,
	"SHA1":   aptdistro.SHA1,
	"SHA256": aptdistro.SHA256,
	"SHA512": aptdistro.SHA512,
}

// Release is a repository's top-level metadata: the parsed InRelease/
// Release fields plus the map of every file link it declares, keyed by
// absolute URL, and a back-reference to the Distro it was fetched from.
type Release struct {
	Distro *aptdistro.Distro

	Origin      string
	Label       string
	Suite       string
	Version     string
	Codename    string
	Description string

	Date      time.Time
	HasDate   bool
	ValidUntil *time.Time

	NotAutomatic                 bool
	ButAutomaticUpgrades         bool
	AcquireByHash                bool
	NoSupportForArchitectureAll  bool
	PackagesRequireAuthorization string
	Changelogs                   string
	Snapshots                    string

	Components    []string
	Architectures []string
	SignedBy      []string

	Links map[string]*aptdistro.Link
}

// ParseRelease parses a signed-payload InRelease document (or an unsigned
// Release document) against its owning Distro.
func ParseRelease(distro *aptdistro.Distro, signedText string) (*Release, error) {
	body := stripPGPFraming(signedText)

	header, err := rfc822.NewParser().ParseHeader(strings.NewReader(body))
	if err != nil {
		return nil, apterrors.Wrap(apterrors.ReleaseGrammar, "parsing release document", err)
	}
	if len(header) == 0 {
		return nil, apterrors.New(apterrors.ReleaseGrammar, "release document has no fields")
	}

	rel := &Release{Distro: distro, Links: map[string]*aptdistro.Link{}}
	if err := rel.parseFields(header); err != nil {
		return nil, err
	}
	return rel, nil
}

// stripPGPFraming removes a clearsign wrapper's "-----BEGIN PGP SIGNED
// MESSAGE-----" preamble (and its Hash: header line) and truncates at the
// "-----BEGIN PGP SIGNATURE-----" boundary, leaving only the signed
// fields. A document with no PGP framing at all passes through unchanged.
func stripPGPFraming(text string) string {
	lines := strings.Split(text, "\n")
	start := 0
	for i, line := range lines {
		if strings.HasPrefix(line, "-----BEGIN PGP SIGNED MESSAGE-----") {
			start = i + 1
			// skip clearsign's "Hash: ..." header and the blank line after it
			for start < len(lines) && strings.TrimSpace(lines[start]) != "" {
				start++
			}
			if start < len(lines) {
				start++
			}
			break
		}
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "-----BEGIN PGP SIGNATURE-----") {
			end = i
			break
		}
	}

	return strings.Join(lines[start:end], "\n")
}

func (r *Release) parseFields(header rfc822.Header) error {
	r.Suite = header.Get("Suite")
	r.Codename = header.Get("Codename")
	if r.Suite == "" && r.Codename == "" {
		return apterrors.New(apterrors.ReleaseGrammar, "release document has neither Suite nor Codename")
	}

	archField := header.Get("Architectures")
	if archField == "" {
		return apterrors.New(apterrors.ReleaseGrammar, "release document is missing Architectures")
	}
	r.Architectures = strings.Fields(archField)

	if compField := header.Get("Components"); compField != "" {
		r.Components = strings.Fields(compField)
	}

	dateField := header.Get("Date")
	if dateField == "" {
		return apterrors.New(apterrors.ReleaseGrammar, "release document is missing Date")
	}
	date, err := parseRFC1123(dateField)
	if err != nil {
		log.Warn().Str("date", dateField).Err(err).Msg("deb822: unparseable release Date")
	} else {
		r.Date = date
		r.HasDate = true
	}

	r.Origin = header.Get("Origin")
	r.Label = header.Get("Label")
	r.Version = header.Get("Version")
	r.Description = header.Get("Description")

	if validUntilField := header.Get("Valid-Until"); validUntilField != "" {
		if validUntil, err := parseRFC1123(validUntilField); err == nil {
			r.ValidUntil = &validUntil
		} else {
			log.Warn().Str("valid_until", validUntilField).Err(err).Msg("deb822: unparseable Valid-Until")
		}
	}

	r.NotAutomatic = parseBoolField(header.Get("NotAutomatic"))
	r.ButAutomaticUpgrades = parseBoolField(header.Get("ButAutomaticUpgrades"))
	r.AcquireByHash = strings.ToLower(strings.TrimSpace(header.Get("Acquire-By-Hash"))) == "yes"
	r.NoSupportForArchitectureAll = parseBoolField(header.Get("No-Support-for-Architecture-all"))

	if signedByField := header.Get("Signed-By"); signedByField != "" {
		for _, id := range strings.Split(signedByField, ",") {
			r.SignedBy = append(r.SignedBy, strings.TrimSpace(id))
		}
	}

	r.PackagesRequireAuthorization = header.Get("Packages-Require-Authorization")
	r.Changelogs = header.Get("Changelogs")
	r.Snapshots = header.Get("Snapshots")

	for fieldName, kind := range hashFieldKind {
		lines := header.GetLines(fieldName)
		if len(lines) == 0 {
			continue
		}
		if err := r.assembleLinks(lines, kind); err != nil {
			return apterrors.Wrap(apterrors.ReleaseGrammar, "parsing "+fieldName, err)
		}
	}

	for _, name := range header.Fields() {
		if _, known := hashFieldKind[name]; known {
			continue
		}
		if !knownReleaseField[strings.ToLower(name)] {
			log.Warn().Str("field", name).Msg("deb822: unknown release keyword ignored")
		}
	}

	return nil
}

var knownReleaseField = map[string]bool{
	"suite": true, "codename": true, "architectures": true, "components": true,
	"date": true, "origin": true, "label": true, "version": true, "description": true,
	"valid-until": true, "notautomatic": true, "butautomaticupgrades": true,
	"acquire-by-hash": true, "no-support-for-architecture-all": true,
	"packages-require-authorization": true, "changelogs": true, "snapshots": true,
	"signed-by": true,
}

// assembleLinks parses a hash block's "HEX SIZE PATH" lines, resolving
// each path via the index-path builder and recording the digest on the
// corresponding Link (creating it on first observation).
func (r *Release) assembleLinks(lines []string, kind aptdistro.HashKind) error {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return apterrors.New(apterrors.ReferenceSyntax, fmt.Sprintf("malformed hash entry %q", line))
		}
		hexDigest, sizeStr, path := fields[0], fields[1], fields[2]
		size, err := strconv.ParseInt(sizeStr, 10, 64)
		if err != nil {
			return apterrors.Wrap(apterrors.ReferenceSyntax, fmt.Sprintf("invalid size in %q", line), err)
		}

		url := r.Distro.IndexURL(path)
		link, ok := r.Links[url]
		if !ok {
			link = aptdistro.NewLink(url)
			r.Links[url] = link
		}
		if mismatch := link.SetSize(size); mismatch {
			log.Warn().Str("url", url).Int64("declared", size).Int64("stored", link.Size).
				Msg("deb822: conflicting declared size for link")
		}
		link.SetHash(kind, hexDigest)
	}
	return nil
}

// CheckCompliance reports the first violated precondition a Release must
// satisfy before it can be trusted for index selection, or nil if it
// satisfies all of them: at least one component, at least one
// architecture, a suite or codename, a Date, and a SHA256 digest for
// every declared link.
func (r *Release) CheckCompliance() error {
	if len(r.Components) == 0 {
		return apterrors.New(apterrors.PolicyViolation, "release has no components")
	}
	if len(r.Architectures) == 0 {
		return apterrors.New(apterrors.PolicyViolation, "release has no architectures")
	}
	if r.Suite == "" && r.Codename == "" {
		return apterrors.New(apterrors.PolicyViolation, "release has neither suite nor codename")
	}
	if !r.HasDate {
		return apterrors.New(apterrors.PolicyViolation, "release has no date")
	}
	for url, link := range r.Links {
		if link.Hashes[aptdistro.SHA256] == "" {
			return apterrors.New(apterrors.PolicyViolation, "link "+url+" has no SHA256 digest")
		}
	}
	return nil
}

// headProber is the slice of Fetcher select_index_link needs: a liveness
// probe. Kept as a local interface so this package does not depend on
// apttransport.
type headProber interface {
	Head(ctx context.Context, url string) (string, error)
}

// indexSuffixes are tried in order when selecting an index link: compressed
// forms before the uncompressed fallback.
var indexSuffixes = []string{".xz", ".gz", ""}

// SelectIndexLink computes the declared index path for component and
// architecture (using "source" for the source index), and returns the
// first candidate suffix that both appears in Links and answers a
// successful HEAD probe.
func (r *Release) SelectIndexLink(ctx context.Context, prober headProber, component, architecture string) (*aptdistro.Link, error) {
	var basePath string
	if architecture == "source" {
		basePath = component + "/source/Sources"
	} else {
		basePath = component + "/binary-" + architecture + "/Packages"
	}

	for _, suffix := range indexSuffixes {
		candidate := r.Distro.IndexURL(basePath + suffix)
		link, ok := r.Links[candidate]
		if !ok {
			continue
		}
		if _, err := prober.Head(ctx, candidate); err != nil {
			continue
		}
		return link, nil
	}

	return nil, apterrors.New(apterrors.Transport, fmt.Sprintf("no index link found for component=%s architecture=%s", component, architecture))
}

// parseRFC1123 parses APT's Date/Valid-Until fields: RFC-2822-family dates
// with a UTC -> +0000 pre-normalization and a handful of variant layouts
// seen in the wild.
func parseRFC1123(dateStr string) (time.Time, error) {
	dateStr = strings.Replace(dateStr, "UTC", "+0000", 1)

	layouts := []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"02 Jan 2006 15:04:05 -0700",
		"02 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 -0700",
		"2 Jan 2006 15:04:05 MST",
		"Mon Jan 2 15:04:05 2006",
		time.ANSIC,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q with any known APT date format", dateStr)
}

// parseBoolField parses APT's boolean fields: "yes", "true" and "1" (in any
// case) are truthy, anything else is false. Acquire-By-Hash does not use
// it; that field is truthy only for "yes".
func parseBoolField(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "1":
		return true
	default:
		return false
	}
}
