package highlight

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

type Result struct {
	Text  string
	Count int
	Lines []int
}

// Apply marks every case-insensitive occurrence of query in rendered
// terminal text, leaving escape sequences untouched. A match that spans
// a style boundary is skipped rather than corrupting the sequence.
func Apply(input, query string, mark func(string) string) Result {
	query = strings.TrimSpace(query)
	if query == "" || input == "" {
		return Result{Text: input}
	}
	if mark == nil {
		mark = func(s string) string { return s }
	}

	q := strings.ToLower(query)
	lines := strings.Split(input, "\n")
	var matched []int
	total := 0

	for i, line := range lines {
		if !strings.Contains(strings.ToLower(ansi.Strip(line)), q) {
			continue
		}
		rewritten, n := markLine(line, query, mark)
		if n == 0 {
			continue
		}
		lines[i] = rewritten
		matched = append(matched, i)
		total += n
	}

	return Result{Text: strings.Join(lines, "\n"), Count: total, Lines: matched}
}

func markLine(line, query string, mark func(string) string) (string, int) {
	var out strings.Builder
	count := 0

	for len(line) > 0 {
		esc := strings.IndexByte(line, '\x1b')
		if esc < 0 {
			s, n := markPlain(line, query, mark)
			out.WriteString(s)
			count += n
			break
		}

		s, n := markPlain(line[:esc], query, mark)
		out.WriteString(s)
		count += n

		seq := escapeLen(line[esc:])
		out.WriteString(line[esc : esc+seq])
		line = line[esc+seq:]
	}
	return out.String(), count
}

// escapeLen returns the byte length of the escape sequence at the start
// of s, which must begin with ESC.
func escapeLen(s string) int {
	if len(s) < 2 {
		return len(s)
	}
	switch s[1] {
	case '[': // CSI, terminated by a byte in @-~
		for i := 2; i < len(s); i++ {
			if s[i] >= '@' && s[i] <= '~' {
				return i + 1
			}
		}
		return len(s)
	case ']': // OSC, terminated by BEL or ST
		for i := 2; i < len(s); i++ {
			if s[i] == '\a' {
				return i + 1
			}
			if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '\\' {
				return i + 2
			}
		}
		return len(s)
	default:
		return 2
	}
}

func markPlain(s, query string, mark func(string) string) (string, int) {
	if s == "" {
		return s, 0
	}
	lower := strings.ToLower(s)
	q := strings.ToLower(query)

	var out strings.Builder
	count := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], q)
		if rel < 0 {
			out.WriteString(s[pos:])
			break
		}
		start := pos + rel
		end := start + len(q)
		out.WriteString(s[pos:start])
		out.WriteString(mark(s[start:end]))
		count++
		pos = end
	}
	return out.String(), count
}
