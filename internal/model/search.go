package model

// SearchParams are the extracted parameters for an event search against the
// EventGo backend. From/To are millisecond timestamps.
type SearchParams struct {
	Query   string `json:"query,omitempty"`
	City    string `json:"city,omitempty"`
	From    int64  `json:"from,omitempty"`
	To      int64  `json:"to,omitempty"`
	Type    string `json:"type,omitempty"`
	TimeKey string `json:"timeKey,omitempty"`
	Sort    string `json:"sort,omitempty"`
	Asc     bool   `json:"asc"`
	Num     int    `json:"num,omitempty"`
	Page    int    `json:"p,omitempty"`
}

// Event is one event returned by the search backend.
type Event struct {
	Name      string `json:"name"`
	URL       string `json:"url,omitempty"`
	City      string `json:"city,omitempty"`
	Location  string `json:"location,omitempty"`
	Category  string `json:"category,omitempty"`
	StartTime int64  `json:"start_time,omitempty"`
	EndTime   int64  `json:"end_time,omitempty"`
}

// Pagination describes the search result paging.
type Pagination struct {
	TotalEvents int `json:"total_events"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}

// SearchResult is the decoded search backend response.
type SearchResult struct {
	Events     []Event    `json:"events"`
	Pagination Pagination `json:"pagination"`
}

// Entity is a single extracted entity from a user message. Entities whose
// Value is empty are treated as ambiguous and drive clarifying questions.
type Entity struct {
	Entity string `json:"entity"`
	Type   string `json:"type"`
	Value  string `json:"value,omitempty"`
}

// TurnContext carries the per-turn working state consumed by the proactive
// engine: the live history window plus any structured payload the handler
// produced.
type TurnContext struct {
	History           []Message
	CurrentSearch     *SearchParams
	LastResultCount   int
	HasSearchResults  bool
	AmbiguousEntities []Entity
}
