package shader

import "regexp"

var uniformPattern = regexp.MustCompile(`uniform (\w+) (\w+)`)

// Uniform is a declaration found in shader source.
type Uniform struct {
	Type string
	Name string
}

// Uniforms scans the given sources for uniform declarations. Names declared in
// more than one source are reported once, in first-seen order.
func Uniforms(sources ...string) []Uniform {
	seen := make(map[string]bool)
	var out []Uniform
	for _, src := range sources {
		for _, m := range uniformPattern.FindAllStringSubmatch(src, -1) {
			if seen[m[2]] {
				continue
			}
			seen[m[2]] = true
			out = append(out, Uniform{Type: m[1], Name: m[2]})
		}
	}
	return out
}
