package monitor

import (
	"fmt"
	"strings"
)

// queryTemplates are the question shapes expanded for each keyword.
// Order is stable so repeated runs replace the same query rows.
var queryTemplates = []string{
	"what is %s",
	"%s vs alternatives",
	"%s features and benefits",
	"best %s",
	"%s reviews",
}

// ExpandQueries turns a tracked keyword into the set of natural
// language queries submitted to each provider.
func ExpandQueries(keyword string) []string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}
	queries := make([]string, 0, len(queryTemplates))
	for _, tpl := range queryTemplates {
		queries = append(queries, fmt.Sprintf(tpl, keyword))
	}
	return queries
}
