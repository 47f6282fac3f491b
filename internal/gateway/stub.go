package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/liuwen/promptreel/internal/model"
)

// Stub is a deterministic offline Client used when no backend URL is
// configured. Every operation succeeds with reproducible content so the
// workflow stays usable end to end without a network.
type Stub struct{}

var _ Client = (*Stub)(nil)

func (s *Stub) Generate(_ context.Context, req GenerateRequest) ([]RawResult, error) {
	count := req.OutputCount
	if count < 1 {
		count = 1
	}
	results := make([]RawResult, 0, count)
	for i := 0; i < count; i++ {
		results = append(results, RawResult{
			ID:          fmt.Sprintf("offline-%s-%d", slug(req.ProductName), i+1),
			Audit:       []byte(`{"image":"OFFLINE"}`),
			Tradeoff:    "Offline placeholder trade-off",
			AVPlan:      "Offline placeholder AV plan",
			FinalPrompt: model.StubPrompt(req.ProductName),
			Tags:        []string{"offline", "sample"},
		})
	}
	return results, nil
}

func (s *Stub) Regenerate(_ context.Context, req RegenerateRequest) (*RawResult, error) {
	return &RawResult{
		ID:          req.ResultID,
		FinalPrompt: req.OriginalPrompt + "\n\n# Regenerated (variant: " + req.AdjustmentType + ")",
		Note:        req.Note,
	}, nil
}

func (s *Stub) Optimize(_ context.Context, prompt string) (string, error) {
	return strings.TrimSpace(prompt), nil
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "product"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
