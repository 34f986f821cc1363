package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// Prefilter is an FT query expression restricting the candidate pool
	// ("*" for none), e.g. "@visibility:{latest|latest_approved}".
	Prefilter    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
