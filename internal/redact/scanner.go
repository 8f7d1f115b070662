package redact

// Result is the outcome of scanning one string for secrets.
type Result struct {
	Text    string
	Counts  map[Kind]int
	Changed bool
}

// Text scans s for high-sensitivity secret patterns and returns a copy with
// every match replaced by a fixed mask, along with a per-kind count for
// logging. It never returns an error: a pattern that fails to match simply
// contributes nothing.
func Text(s string) Result {
	counts := make(map[Kind]int)
	out := s
	for _, spec := range patterns {
		n := 0
		out = spec.pattern.ReplaceAllStringFunc(out, func(match string) string {
			n++
			if spec.group == 0 {
				return mask
			}
			sub := spec.pattern.FindStringSubmatchIndex(match)
			if sub == nil || spec.group*2+1 >= len(sub) {
				return mask
			}
			start, end := sub[spec.group*2], sub[spec.group*2+1]
			return match[:start] + mask + match[end:]
		})
		if n > 0 {
			counts[spec.kind] += n
		}
	}
	return Result{
		Text:    out,
		Counts:  counts,
		Changed: len(counts) > 0,
	}
}
