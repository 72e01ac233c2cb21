package nodeid

import (
	"errors"
	"strings"
)

const (
	// Root is the identifier of the folder holding every country.
	Root = "Countries"

	prefix    = Root + "."
	codeLen   = 2
	separator = '.'
)

var (
	// ErrNotApplicable is returned for identifiers outside the Countries tree.
	ErrNotApplicable = errors.New("identifier not managed by resolver")
	// ErrLocationUnresolved is returned when no known location name matches the
	// identifier. Path.Country is still populated.
	ErrLocationUnresolved = errors.New("location name could not be resolved")
)

// Path is a decoded identifier. An empty Country denotes the root folder.
type Path struct {
	Country     string
	Location    string
	Variable    string
	HasLocation bool
	HasVariable bool
}

// IsRoot reports whether the path addresses the Countries folder itself.
func (p Path) IsRoot() bool {
	return p.Country == ""
}

// Decode splits id into country, location and variable segments.
//
// Location names may contain the separator, so the boundary between location
// and variable is ambiguous. When known is nil the first separator is used.
// Otherwise every separator position (and the end of the identifier) is a
// candidate, and the longest candidate naming a known location wins.
func Decode(id string, known func(name string) bool) (Path, error) {
	if id == Root {
		return Path{}, nil
	}
	if !strings.HasPrefix(id, prefix) || len(id) < len(prefix)+codeLen {
		return Path{}, ErrNotApplicable
	}

	p := Path{Country: id[len(prefix) : len(prefix)+codeLen]}
	if len(id) == len(prefix)+codeLen {
		return p, nil
	}
	if id[len(prefix)+codeLen] != separator {
		return Path{}, ErrNotApplicable
	}

	rest := id[len(prefix)+codeLen+1:]
	if rest == "" {
		return p, nil
	}

	if known == nil {
		p.HasLocation = true
		if i := strings.IndexByte(rest, separator); i >= 0 {
			p.Location = rest[:i]
			p.Variable = rest[i+1:]
			p.HasVariable = true
		} else {
			p.Location = rest
		}
		return p, nil
	}

	if known(rest) {
		p.Location = rest
		p.HasLocation = true
		return p, nil
	}
	for i := len(rest) - 1; i > 0; i-- {
		if rest[i] != separator {
			continue
		}
		if known(rest[:i]) {
			p.Location = rest[:i]
			p.Variable = rest[i+1:]
			p.HasLocation = true
			p.HasVariable = true
			return p, nil
		}
	}

	return p, ErrLocationUnresolved
}

// Encode builds an identifier. Empty trailing segments are omitted.
func Encode(country, location, variable string) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(country) + len(location) + len(variable) + 2)
	b.WriteString(Root)
	if country == "" {
		return b.String()
	}
	b.WriteByte(separator)
	b.WriteString(country)
	if location == "" {
		return b.String()
	}
	b.WriteByte(separator)
	b.WriteString(location)
	if variable != "" {
		b.WriteByte(separator)
		b.WriteString(variable)
	}
	return b.String()
}
