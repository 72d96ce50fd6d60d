package dto

// AnalyzeRequest previews classification of free text.
type AnalyzeRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// KBSearchRequest previews knowledge-base matching.
type KBSearchRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Limit       int    `json:"limit"`
}
