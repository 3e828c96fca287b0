package mountstore

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// answerQuery validates query and turns it into the QueryResult to dispatch.
func (s *Store) answerQuery(query Query) (QueryResult, error) {
	if strings.TrimSpace(query.Path) == "" {
		return QueryResult{}, fmt.Errorf("%w: query actions must specify a path", ErrConfiguration)
	}
	if query.Query == nil {
		return QueryResult{}, fmt.Errorf("%w: query actions must specify a query", ErrConfiguration)
	}

	if s.cfg.queryHandler != nil {
		result, handled, err := s.cfg.queryHandler(query)
		if err != nil {
			return QueryResult{}, err
		}
		if handled {
			s.logger.Debug("query answered by handler", zap.String("path", query.Path), zap.Int("aliases", len(result)))
			return QueryResult{Path: query.Path, Result: copyStrings(result)}, nil
		}
	}

	s.logger.Debug("query granted", zap.String("path", query.Path), zap.Int("aliases", len(query.Query)))
	return QueryResult{Path: query.Path, Result: copyStrings(query.Query)}, nil
}

func copyStrings(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}
