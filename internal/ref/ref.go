// Package ref parses symbolic content references of the form
// <app-slug>/<entity-slug>[@<tag>].
package ref

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nebari-dev/refstore/internal/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidSlug reports whether s may be used as an app or entity slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// TagKind discriminates the three tag forms.
type TagKind int

const (
	TagLatest TagKind = iota
	TagStatus
	TagPinned
)

// Tag selects one version of an entity. Status is set only for TagStatus,
// Version only for TagPinned.
type Tag struct {
	Kind    TagKind
	Status  models.VersionStatus
	Version int
}

// Latest is the tag used when a reference carries none.
var Latest = Tag{Kind: TagLatest}

// StatusTag returns a tag selecting the current holder of s.
func StatusTag(s models.VersionStatus) Tag {
	return Tag{Kind: TagStatus, Status: s}
}

// PinnedTag returns a tag selecting version n.
func PinnedTag(n int) Tag {
	return Tag{Kind: TagPinned, Version: n}
}

func (t Tag) String() string {
	switch t.Kind {
	case TagStatus:
		return string(t.Status)
	case TagPinned:
		return "v" + strconv.Itoa(t.Version)
	default:
		return "latest"
	}
}

// Reference is a parsed address.
type Reference struct {
	App    string
	Entity string
	Tag    Tag
}

// String formats the reference with an explicit tag.
func (r Reference) String() string {
	return r.App + "/" + r.Entity + "@" + r.Tag.String()
}

// Pinned returns the canonical form of r resolved to version n.
func (r Reference) Pinned(n int) string {
	return Reference{App: r.App, Entity: r.Entity, Tag: PinnedTag(n)}.String()
}

// ParseError describes why a reference was rejected. Reason is safe to show
// to callers.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid reference %q: %s", e.Input, e.Reason)
}

// Parse turns s into a Reference. A missing tag means latest.
func Parse(s string) (Reference, error) {
	fail := func(format string, args ...interface{}) (Reference, error) {
		return Reference{}, &ParseError{Input: s, Reason: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(s) == "" {
		return fail("reference is empty")
	}

	path, rawTag, hasTag := strings.Cut(s, "@")
	if hasTag && rawTag == "" {
		return fail("tag after '@' is empty")
	}

	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		return fail("expected <app>/<entity>, got %d path segment(s)", len(parts))
	}
	app, entity := parts[0], parts[1]
	if !slugPattern.MatchString(app) {
		return fail("app slug %q must match [a-z0-9-]+", app)
	}
	if !slugPattern.MatchString(entity) {
		return fail("entity slug %q must match [a-z0-9-]+", entity)
	}

	tag := Latest
	if hasTag {
		t, reason := parseTag(rawTag)
		if reason != "" {
			return fail("%s", reason)
		}
		tag = t
	}

	return Reference{App: app, Entity: entity, Tag: tag}, nil
}

func parseTag(raw string) (Tag, string) {
	if raw == "latest" {
		return Latest, ""
	}
	if st, ok := models.ParseStatus(raw); ok {
		return StatusTag(st), ""
	}
	if digits, ok := strings.CutPrefix(raw, "v"); ok {
		n, err := strconv.Atoi(digits)
		if err != nil || strings.HasPrefix(digits, "+") {
			return Tag{}, fmt.Sprintf("pinned version %q is not a number", raw)
		}
		if n < 1 {
			return Tag{}, fmt.Sprintf("pinned version must be >= 1, got %d", n)
		}
		return PinnedTag(n), ""
	}
	return Tag{}, fmt.Sprintf("unknown tag %q: use latest, a status (draft, active, stable, deprecated) or v<number>", raw)
}
