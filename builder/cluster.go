package builder

import "regexp"

var (
	clusterHeaderRe = regexp.MustCompile(`subgraph\s+"([^"]+)"\s*\{`)
	defaultAttrRe   = regexp.MustCompile(`^\s*(\w+)\s*=\s*"([^"]*)"\s*;?\s*$`)
)

// extractClusterNodes finds `subgraph "Name" { ... }` blocks and returns
// the default (bare, not attached to a node) attribute statements
// declared directly inside each — primarily the cluster's own
// `instance=` attribute. gonum's dot.Unmarshal parses and propagates
// default attributes onto member nodes declared within the same scope,
// but flowmesh's graph format additionally treats the cluster name
// itself as an edge-addressable node (spec.md §4.6's "clusters become
// nodes for graph-level edges") — a convenience gonum's DOT dialect has
// no equivalent for, since standard Graphviz subgraphs aren't
// themselves graph-theoretic nodes. This scanner supplies only that one
// piece; everything else about node/edge parsing goes through
// dot.Unmarshal.
func extractClusterNodes(text string) (map[string]map[string]string, error) {
	result := make(map[string]map[string]string)

	headers := clusterHeaderRe.FindAllStringSubmatchIndex(text, -1)
	for _, loc := range headers {
		name := text[loc[2]:loc[3]]
		bodyStart := loc[1]
		bodyEnd := matchingBrace(text, bodyStart-1)
		if bodyEnd < 0 {
			continue
		}
		body := text[bodyStart:bodyEnd]

		attrs := make(map[string]string)
		for _, line := range splitStatements(body) {
			if m := defaultAttrRe.FindStringSubmatch(line); m != nil {
				attrs[m[1]] = m[2]
			}
		}
		result[name] = attrs
	}
	return result, nil
}

// matchingBrace returns the index of the "}" matching the "{" at
// openIdx, or -1 if unbalanced.
func matchingBrace(text string, openIdx int) int {
	depth := 0
	for i := openIdx; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitStatements is a line-oriented split sufficient for picking out
// bare `key="value";` default-attribute statements; it doesn't need to
// understand full DOT syntax since nested node/edge statements (which
// always attach to a quoted id) simply fail to match defaultAttrRe and
// are ignored here — they're handled by dot.Unmarshal instead.
func splitStatements(body string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(body); i++ {
		if body[i] == '\n' || body[i] == ';' {
			lines = append(lines, body[start:i])
			start = i + 1
		}
	}
	if start < len(body) {
		lines = append(lines, body[start:])
	}
	return lines
}
