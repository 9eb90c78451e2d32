package domain

import "context"

// Correction is a rewritten query with the provider usage it cost.
type Correction struct {
	Text         string
	PromptTokens int
	TotalTokens  int
}

// Corrector rewrites a raw search query, e.g. fixing its spelling.
type Corrector interface {
	Correct(ctx context.Context, text string) (Correction, error)
}
