package product

import "context"

// StubExtractor returns fixed extraction results (for development and
// tests).
type StubExtractor struct{}

var _ Extractor = (*StubExtractor)(nil)

func (e *StubExtractor) Extract(_ context.Context, url string) (*PageContent, error) {
	return &PageContent{
		Title: "Stub product page",
		Text:  "Stub product description for " + url + ". Keeps drinks hot for 12 hours. Shock resistant body.",
		SellingPoints: []string{
			"Keeps drinks hot for 12 hours",
			"Shock resistant body",
		},
		WordCount: 14,
	}, nil
}
