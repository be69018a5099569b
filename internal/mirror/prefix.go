package mirror

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PrefixList is an ordered ranking of path prefixes, earlier = more
// preferred. The dedup resolver keeps the duplicate whose path matches the
// earliest prefix.
type PrefixList []string

// ParsePrefixes builds a PrefixList from a comma separated string. Entries
// are whitespace trimmed and given a trailing "/" so that "/foo" cannot
// accidentally match "/foobar/x".
func ParsePrefixes(csv string) (PrefixList, error) {
	var prefixes PrefixList
	for _, raw := range strings.Split(csv, ",") {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		if !strings.HasSuffix(p, "/") {
			p += "/"
		}
		prefixes = append(prefixes, p)
	}
	if len(prefixes) == 0 {
		return nil, ErrEmptyPrefixList
	}
	return prefixes, nil
}

// prefixFile is the on-disk shape of a ranked prefix file.
type prefixFile struct {
	Prefixes []string `yaml:"prefixes"`
}

// LoadPrefixFile reads a YAML file with a ranked `prefixes:` list.
func LoadPrefixFile(path string) (PrefixList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefix file %s: %w", path, err)
	}

	var pf prefixFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse prefix file %s: %w", path, err)
	}

	return ParsePrefixes(strings.Join(pf.Prefixes, ","))
}

// Rank returns the index of the first prefix matching the path. Paths that
// match no prefix rank at len(p), below every explicit prefix.
func (p PrefixList) Rank(path string) int {
	for i, prefix := range p {
		if strings.HasPrefix(path, prefix) {
			return i
		}
	}
	return len(p)
}
