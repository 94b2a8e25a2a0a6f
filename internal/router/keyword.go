package router

import "context"

// QuantitativeDetector reports whether a query asks for tabular computation.
type QuantitativeDetector interface {
	IsQuantitative(query string) bool
}

// KeywordStrategy sends quantitative queries to the tables when any are loaded and everything
// else to the document index. The two routes are exclusive.
type KeywordStrategy struct {
	detector QuantitativeDetector
}

func NewKeywordStrategy(detector QuantitativeDetector) *KeywordStrategy {
	return &KeywordStrategy{detector: detector}
}

func (s *KeywordStrategy) Route(_ context.Context, query string, avail Availability) (Decision, error) {
	switch {
	case avail.NoSources():
		return general(), nil
	case avail.Tables && s.detector != nil && s.detector.IsQuantitative(query):
		return Decision{Route: RouteExcel, Tools: []string{ToolTabular}}, nil
	case avail.Index:
		return Decision{Route: RouteRAG, Tools: []string{ToolDocuments}}, nil
	default:
		return general(), nil
	}
}
