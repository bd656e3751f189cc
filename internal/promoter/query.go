package promoter

import (
	"fmt"
	"strings"
)

// pendingProjectsSQL selects the ids of projects still waiting for data
func pendingProjectsSQL(projectView, statusField, pendingStatus string) string {
	return fmt.Sprintf("SELECT id FROM %s WHERE %s = %s", projectView, statusField, quote(pendingStatus))
}

// qualifyingCountsSQL counts files per project, ignoring files created by excluded
// accounts. projectIDs must not be empty: an empty IN list is not valid SQL.
func qualifyingCountsSQL(fileView string, projectIDs, excludedCreators []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT projectId, count(*) AS N FROM %s WHERE type = 'file'", fileView)
	if len(excludedCreators) > 0 {
		fmt.Fprintf(&b, " AND createdBy NOT IN %s", quoteList(excludedCreators))
	}
	fmt.Fprintf(&b, " AND projectId IN %s GROUP BY projectId", quoteList(projectIDs))
	return b.String()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}
