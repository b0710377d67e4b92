package bcd

import "strings"

// DefaultTruthy are the trailing tokens that mark a flag as set. bcdedit
// localizes its output, so the set is configurable.
var DefaultTruthy = []string{"on", "yes", "true", "1", "enabled"}

// Parser extracts flag values from bcdedit /enum output.
type Parser struct {
	truthy map[string]struct{}
}

// NewParser returns a Parser matching the given tokens case-insensitively.
// An empty list selects DefaultTruthy.
func NewParser(truthy []string) *Parser {
	p := &Parser{truthy: map[string]struct{}{}}
	for _, t := range truthy {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			p.truthy[t] = struct{}{}
		}
	}
	if len(p.truthy) == 0 {
		for _, t := range DefaultTruthy {
			p.truthy[t] = struct{}{}
		}
	}
	return p
}

// Truthy reports whether token marks a flag as set.
func (p *Parser) Truthy(token string) bool {
	_, ok := p.truthy[strings.ToLower(token)]
	return ok
}

// Parse reads every managed flag from output. The first line containing
// the flag name decides its value from the line's last field; a flag that
// never appears is false.
func (p *Parser) Parse(output string) State {
	lines := strings.Split(strings.ToLower(output), "\n")

	var s State
	for _, f := range Flags {
		s.Set(f, p.lookup(lines, f.String()))
	}
	return s
}

func (p *Parser) lookup(lines []string, keyword string) bool {
	for _, line := range lines {
		if !strings.Contains(line, keyword) {
			continue
		}
		fields := strings.Fields(line)
		return p.Truthy(fields[len(fields)-1])
	}
	return false
}
