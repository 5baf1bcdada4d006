package chat

// HistoryLimit caps how many prior transcript entries are sent back to
// the backend as conversation context.
const HistoryLimit = 10

type HistoryEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func HistoryWindow(transcript []Message, max int) []HistoryEntry {
	if max <= 0 || len(transcript) == 0 {
		return []HistoryEntry{}
	}
	start := 0
	if len(transcript) > max {
		start = len(transcript) - max
	}
	out := make([]HistoryEntry, 0, len(transcript)-start)
	for _, m := range transcript[start:] {
		out = append(out, HistoryEntry{Role: string(m.Role), Text: m.Text})
	}
	return out
}
