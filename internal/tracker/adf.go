package tracker

// Atlassian Document Format nodes, just enough for a plain paragraph.

type adfDoc struct {
	Version int       `json:"version"`
	Type    string    `json:"type"`
	Content []adfNode `json:"content"`
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text,omitempty"`
	Content []adfNode `json:"content,omitempty"`
}

// paragraphDoc wraps text as a single-paragraph document.
func paragraphDoc(text string) adfDoc {
	return adfDoc{
		Version: 1,
		Type:    "doc",
		Content: []adfNode{{
			Type:    "paragraph",
			Content: []adfNode{{Type: "text", Text: text}},
		}},
	}
}
