// Package troe reshapes temporal representations of entities into a
// flat columnar table, one row per observation timestamp.
package troe

import (
	"strings"
	"time"

	"github.com/contextsource/ngsild-client/pkg/ngsild/errors"
	"github.com/contextsource/ngsild-client/pkg/ngsild/iso8601"
	"github.com/contextsource/ngsild-client/pkg/ngsild/types"
)

//Table is the merged result: a named column set and the rows in
//document order
type Table struct {
	columns []string
	rows    [][]any
}

func (t *Table) Columns() []string {
	return t.columns
}

func (t *Table) NumRows() int {
	return len(t.rows)
}

//Row returns the values of a single row in column order
func (t *Table) Row(i int) []any {
	return t.rows[i]
}

//Column returns all values of the named column
func (t *Table) Column(name string) ([]any, bool) {
	for i, column := range t.columns {
		if column == name {
			values := make([]any, 0, len(t.rows))
			for _, row := range t.rows {
				values = append(values, row[i])
			}
			return values, true
		}
	}

	return nil, false
}

//MergeTemporalEntities flattens one or more temporal entity documents
//into a single table. The first document fixes the column set: the
//entity type (holding the short entity id), observed (the decoded
//observation instant) and one column per attribute. Within each
//document every attribute must carry the identical sequence of
//observation timestamps, and every document must carry the same
//attribute names as the first.
func MergeTemporalEntities(docs []types.EntityTemporal) (*Table, error) {
	if len(docs) == 0 {
		return nil, errors.NewFormatError("no temporal entities to merge")
	}

	first := docs[0].Attributes()
	if len(first) == 0 {
		return nil, errors.NewFormatError("temporal entity " + docs[0].ID() + " has no attributes")
	}

	columns := make([]string, 0, len(first)+2)
	columns = append(columns, docs[0].Type(), "observed")
	for _, attr := range first {
		columns = append(columns, attr.Name())
	}

	table := &Table{columns: columns}

	for _, doc := range docs {
		rows, err := flatten(doc, columns[2:])
		if err != nil {
			return nil, err
		}

		table.rows = append(table.rows, rows...)
	}

	return table, nil
}

//flatten turns one document into rows, validating that its attributes
//agree on the observation timestamps
func flatten(doc types.EntityTemporal, attributeNames []string) ([][]any, error) {
	attrs := doc.Attributes()
	if len(attrs) == 0 {
		return nil, errors.NewFormatError("temporal entity " + doc.ID() + " has no attributes")
	}

	byName := map[string]types.TemporalAttribute{}
	for _, attr := range attrs {
		byName[attr.Name()] = attr
	}

	ordered := make([]types.TemporalAttribute, 0, len(attributeNames))
	for _, name := range attributeNames {
		attr, ok := byName[name]
		if !ok {
			return nil, errors.NewConsistencyError("temporal entity " + doc.ID() + " has no attribute " + name)
		}
		ordered = append(ordered, attr)
	}

	reference := observationTimestamps(ordered[0])

	for _, attr := range ordered[1:] {
		if !equalTimestamps(reference, observationTimestamps(attr)) {
			return nil, errors.NewConsistencyError("attributes have distinct observedAt values")
		}
	}

	observed := make([]time.Time, 0, len(reference))
	for _, ts := range reference {
		decoded, err := iso8601.Decode(ts)
		if err != nil {
			return nil, err
		}
		observed = append(observed, decoded.Time())
	}

	shortID := shortEntityID(doc.ID())

	rows := make([][]any, 0, len(reference))

	for i := range reference {
		row := make([]any, 0, len(ordered)+2)
		row = append(row, shortID, observed[i])
		for _, attr := range ordered {
			row = append(row, attr.Instances()[i].Value)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func observationTimestamps(attr types.TemporalAttribute) []string {
	timestamps := make([]string, 0, len(attr.Instances()))
	for _, instance := range attr.Instances() {
		timestamps = append(timestamps, instance.ObservedAt)
	}
	return timestamps
}

func equalTimestamps(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

//shortEntityID returns the segment after the last colon
func shortEntityID(entityID string) string {
	if idx := strings.LastIndex(entityID, ":"); idx >= 0 {
		return entityID[idx+1:]
	}
	return entityID
}
