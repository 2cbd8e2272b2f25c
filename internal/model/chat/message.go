package chat

// Message is one question/answer turn of a session transcript.
// Answer carries the completion output, or a placeholder when the
// completion service produced nothing usable.
type Message struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Preview returns the short list-display summary for a message.
func (m Message) Preview() string {
	const limit = 80
	runes := []rune(m.Question)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return m.Question
}
