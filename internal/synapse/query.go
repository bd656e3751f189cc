package synapse

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	queryBundleRequestType = "org.sagebionetworks.repo.model.table.QueryBundleRequest"
	nextPageTokenType      = "org.sagebionetworks.repo.model.table.QueryNextPageToken"

	partQueryResults = 0x1
)

// Header describes one column of a query result
type Header struct {
	Name       string `json:"name"`
	ColumnType string `json:"columnType"`
}

// Row is one query result row; Values are ordered like RowSet.Headers
type Row struct {
	RowID  int64    `json:"rowId"`
	Values []string `json:"values"`
}

// RowSet is the result of a table query
type RowSet struct {
	TableID string   `json:"tableId"`
	Headers []Header `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// Column returns the index of the named column, or -1
func (rs *RowSet) Column(name string) int {
	for i, h := range rs.Headers {
		if h.Name == name {
			return i
		}
	}
	return -1
}

// Value returns the named column of row i
func (rs *RowSet) Value(i int, name string) (string, bool) {
	col := rs.Column(name)
	if col < 0 || i < 0 || i >= len(rs.Rows) || col >= len(rs.Rows[i].Values) {
		return "", false
	}
	return rs.Rows[i].Values[col], true
}

type queryRequest struct {
	ConcreteType string `json:"concreteType"`
	EntityID     string `json:"entityId"`
	PartMask     int    `json:"partMask"`
	Query        struct {
		SQL string `json:"sql"`
	} `json:"query"`
}

type nextPageToken struct {
	ConcreteType string `json:"concreteType,omitempty"`
	EntityID     string `json:"entityId"`
	Token        string `json:"token"`
}

type queryResult struct {
	QueryResults  RowSet         `json:"queryResults"`
	NextPageToken *nextPageToken `json:"nextPageToken"`
}

type queryResultBundle struct {
	QueryResult queryResult `json:"queryResult"`
}

// Query runs sql against tableID and returns every page of results
func (c *Client) Query(ctx context.Context, tableID, sql string) (*RowSet, error) {
	c.logger.Debug("Running table query",
		slog.String("table_id", tableID),
		slog.String("sql", sql),
	)

	req := queryRequest{
		ConcreteType: queryBundleRequestType,
		EntityID:     tableID,
		PartMask:     partQueryResults,
	}
	req.Query.SQL = sql

	var bundle queryResultBundle
	base := "/entity/" + tableID + "/table/query"
	if err := c.runAsync(ctx, base+"/async/start", base+"/async/get", req, &bundle); err != nil {
		return nil, fmt.Errorf("query %s: %w", tableID, err)
	}

	result := bundle.QueryResult.QueryResults
	next := bundle.QueryResult.NextPageToken

	for next != nil && next.Token != "" {
		if next.ConcreteType == "" {
			next.ConcreteType = nextPageTokenType
		}
		if next.EntityID == "" {
			next.EntityID = tableID
		}

		var page queryResult
		if err := c.runAsync(ctx, base+"/nextPage/async/start", base+"/nextPage/async/get", next, &page); err != nil {
			return nil, fmt.Errorf("query %s next page: %w", tableID, err)
		}

		result.Rows = append(result.Rows, page.QueryResults.Rows...)
		next = page.NextPageToken
	}

	return &result, nil
}
