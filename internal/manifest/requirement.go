package manifest

import (
	"strings"

	"go.trai.ch/zerr"
)

// Holds one dependency declaration from the manifest.
type Requirement struct {
	Name       string // Normalized distribution name.
	Raw        string // Declaration as written in the manifest.
	Constraint string // Version constraint or URL portion, if any.
}

// Parses a dependency declaration as written in pyproject.toml.
//
// Supported forms are the usual PEP 508 shapes: a bare name, a name with
// extras, a name with a version constraint, and a name with a direct URL.
// An environment marker after ";" is accepted and discarded; marker
// evaluation is the installer's job.
func ParseRequirement(raw string) (Requirement, error) {
	spec := strings.TrimSpace(raw)
	if i := strings.IndexByte(spec, ';'); i >= 0 {
		spec = strings.TrimSpace(spec[:i])
	}
	if spec == "" {
		return Requirement{}, zerr.With(ErrRequirement, "requirement", raw)
	}

	name := spec
	rest := ""
	for i := 0; i < len(spec); i++ {
		if !isNameByte(spec[i]) {
			name, rest = spec[:i], strings.TrimSpace(spec[i:])
			break
		}
	}

	if !validName(name) {
		return Requirement{}, zerr.With(ErrRequirement, "requirement", raw)
	}

	// Skip the extras list. Its contents only select optional features and
	// never change the distribution name.
	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return Requirement{}, zerr.With(ErrRequirement, "requirement", raw)
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	if rest != "" && !validConstraint(rest) {
		return Requirement{}, zerr.With(ErrRequirement, "requirement", raw)
	}

	return Requirement{
		Name:       NormalizeName(name),
		Raw:        raw,
		Constraint: rest,
	}, nil
}

// Normalizes a distribution name: lowercased, with runs of dots,
// underscores, and hyphens collapsed into a single hyphen.
func NormalizeName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	b.Grow(len(lower))

	pendingSep := false
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c == '-' || c == '_' || c == '.' {
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingSep = false
		b.WriteByte(c)
	}

	return b.String()
}

// Whether b may appear inside a distribution name.
func isNameByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '-', b == '_', b == '.':
		return true
	}
	return false
}

// Whether name is a well-formed distribution name. Names must start and end
// with an alphanumeric byte.
func validName(name string) bool {
	if name == "" {
		return false
	}
	return isAlnum(name[0]) && isAlnum(name[len(name)-1])
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// Whether rest is a plausible constraint tail: a version specifier, a
// parenthesized specifier, or a direct URL reference.
func validConstraint(rest string) bool {
	switch rest[0] {
	case '<', '>', '=', '!', '~', '(', '@':
		return true
	}
	return false
}
