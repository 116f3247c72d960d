package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/proplens/rankd/internal/domain"
	"github.com/proplens/rankd/internal/domain/subquery"
	"github.com/proplens/rankd/internal/domain/tag"
)

// decomposition mirrors the JSON payload the LLM is asked to produce.
type decomposition struct {
	SubQueries []subQueryDTO `json:"sub_queries"`
}

type subQueryDTO struct {
	Feature     string  `json:"feature"`
	Query       string  `json:"query"`
	Weight      float64 `json:"weight"`
	Aggregation string  `json:"aggregation"`
}

// ParseDecomposition parses an LLM completion into subqueries. The model
// sometimes prefixes prose ("Here is the JSON response:"), so everything
// outside the first '{' and the last '}' is discarded before unmarshaling.
// All failures wrap domain.ErrDecompositionParse so the caller can fall back
// to the deterministic templates.
func ParseDecomposition(raw string) ([]subquery.Subquery, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var dec decomposition
	if err := json.Unmarshal([]byte(payload), &dec); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDecompositionParse, err.Error())
	}
	if len(dec.SubQueries) == 0 {
		return nil, fmt.Errorf("%w: no sub_queries in payload", domain.ErrDecompositionParse)
	}

	subs := make([]subquery.Subquery, 0, len(dec.SubQueries))
	for i, dto := range dec.SubQueries {
		if dto.Feature == "" || dto.Query == "" {
			return nil, fmt.Errorf("%w: sub_query %d missing feature or query", domain.ErrDecompositionParse, i)
		}
		sq, err := subquery.New(tag.Normalize(dto.Feature), dto.Query, dto.Weight, subquery.Aggregation(dto.Aggregation))
		if err != nil {
			return nil, fmt.Errorf("%w: sub_query %d: %s", domain.ErrDecompositionParse, i, err.Error())
		}
		subs = append(subs, sq)
		if len(subs) == subquery.MaxPerQuery {
			break
		}
	}
	return subs, nil
}

// extractJSON returns the substring between the first '{' and the last '}'.
func extractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON object in completion", domain.ErrDecompositionParse)
	}
	return raw[start : end+1], nil
}
