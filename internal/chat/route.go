package chat

// Route is the resolved dispatch plan for one submission: where to send
// the request, what to send, and how to turn the response into a Reply.
type Route struct {
	Endpoint  string
	Body      any
	Normalize func(data []byte) (Reply, error)
}

type askPayload struct {
	IndexName string         `json:"index_name"`
	Question  string         `json:"question"`
	History   []HistoryEntry `json:"history"`
}

type generatePayload struct {
	Query   string         `json:"query"`
	Index   string         `json:"index"`
	History []HistoryEntry `json:"history"`
}

// Resolve maps the active mode to its endpoint, payload shape and
// normalization rule. Unknown modes fall back to plain chat.
func Resolve(mode Mode, utterance, index string, history []HistoryEntry) Route {
	switch mode {
	case ModeVisuals:
		return Route{
			Endpoint:  "/visuals",
			Body:      generatePayload{Query: utterance, Index: index, History: history},
			Normalize: normalizeVisuals,
		}
	case ModeExcel:
		return Route{
			Endpoint:  "/excel",
			Body:      generatePayload{Query: utterance, Index: index, History: history},
			Normalize: normalizeExcel,
		}
	default:
		return Route{
			Endpoint:  "/ask",
			Body:      askPayload{IndexName: index, Question: utterance, History: history},
			Normalize: normalizeAsk,
		}
	}
}
