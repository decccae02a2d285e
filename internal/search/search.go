package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultBoard   ResultType = "board"
	ResultCard    ResultType = "card"
	ResultComment ResultType = "comment"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	CardID  string     `json:"cardId,omitempty"`
	BoardID string     `json:"boardId"`
}

// Query describes a search request. BoardIDs limits results to boards the
// requester can see; an empty slice means no boards are visible.
type Query struct {
	Text          string
	FilterType    ResultType // empty = all types
	FilterBoardID string
	BoardIDs      []string
	Limit         int
	Offset        int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexBoard(b BoardRecord) error
	IndexCard(c CardRecord) error
	IndexComment(c CommentRecord) error
	DeleteBoard(id string) error
	DeleteCard(id string) error
	DeleteComment(id string) error
}

// BoardRecord is the data we index for a board.
type BoardRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CardRecord is the data we index for a card.
type CardRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ListID      string `json:"listId"`
	BoardID     string `json:"boardId"`
	IsCompleted bool   `json:"isCompleted"`
}

// CommentRecord is the data we index for a comment.
type CommentRecord struct {
	ID         string `json:"id"`
	Body       string `json:"body"`
	AuthorName string `json:"authorName"`
	CardID     string `json:"cardId"`
	BoardID    string `json:"boardId"`
}
