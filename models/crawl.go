package models

// CrawlRequest is the payload for POST /crawl.
type CrawlRequest struct {
	// Keywords is the search query. Required.
	Keywords string `json:"keywords" binding:"required"`

	// NoteLimit is the number of notes to save. Default: 5.
	NoteLimit int `json:"note_limit,omitempty" binding:"omitempty,min=0,max=100"`

	// CommentLimit caps the comments kept per note. Default: 1.
	CommentLimit int `json:"comment_limit,omitempty" binding:"omitempty,min=0,max=200"`
}

// Defaults applies default values to unset fields.
func (r *CrawlRequest) Defaults() {
	if r.NoteLimit == 0 {
		r.NoteLimit = 5
	}
	if r.CommentLimit == 0 {
		r.CommentLimit = 1
	}
}

// CardStatus is the outcome of one card in a click-through crawl.
type CardStatus string

const (
	CardSuccess CardStatus = "success"
	CardSkipped CardStatus = "skipped"
	CardFailed  CardStatus = "failed"
)

// CardResult records what happened to a single result card.
type CardResult struct {
	Title  string     `json:"title"`
	Status CardStatus `json:"status"`

	// Files are the persisted record and image names, set on success.
	Files []string `json:"files,omitempty"`

	// NearDuplicateOf names an earlier card in the same run whose body is
	// nearly identical. Informational only.
	NearDuplicateOf string `json:"near_duplicate_of,omitempty"`

	Error string `json:"error,omitempty"`
}

// CrawlReport aggregates a click-through crawl run.
type CrawlReport struct {
	Keywords  string       `json:"keywords"`
	Target    int          `json:"target"`
	Succeeded int          `json:"succeeded"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Cards     []CardResult `json:"cards"`
}

// Add appends a card result and updates the counters.
func (r *CrawlReport) Add(c CardResult) {
	switch c.Status {
	case CardSuccess:
		r.Succeeded++
	case CardSkipped:
		r.Skipped++
	case CardFailed:
		r.Failed++
	}
	r.Cards = append(r.Cards, c)
}

// CrawlResponse is the response for POST /crawl.
// On failure Report holds whatever the run finished before stopping.
type CrawlResponse struct {
	Status string       `json:"status"`
	Msg    string       `json:"msg"`
	Report *CrawlReport `json:"report,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}
