package provider

import (
	"fmt"
	"strings"

	"github.com/nickyhof/ADOBridge/core"
)

// restrictionColumns lists, per schema rowset, the columns that the
// positional OpenSchema criteria restrict.
var restrictionColumns = map[core.SchemaType][]string{
	core.SchemaCatalogs:    {"CATALOG_NAME"},
	core.SchemaColumns:     {"TABLE_CATALOG", "TABLE_SCHEMA", "TABLE_NAME", "COLUMN_NAME"},
	core.SchemaIndexes:     {"TABLE_CATALOG", "TABLE_SCHEMA", "INDEX_NAME", "TYPE", "TABLE_NAME"},
	core.SchemaSchemata:    {"CATALOG_NAME", "SCHEMA_NAME", "SCHEMA_OWNER"},
	core.SchemaTables:      {"TABLE_CATALOG", "TABLE_SCHEMA", "TABLE_NAME", "TABLE_TYPE"},
	core.SchemaViews:       {"TABLE_CATALOG", "TABLE_SCHEMA", "TABLE_NAME"},
	core.SchemaForeignKeys: {"PK_TABLE_CATALOG", "PK_TABLE_SCHEMA", "PK_TABLE_NAME", "FK_TABLE_CATALOG", "FK_TABLE_SCHEMA", "FK_TABLE_NAME"},
	core.SchemaPrimaryKeys: {"TABLE_CATALOG", "TABLE_SCHEMA", "TABLE_NAME"},
}

// restrict drops the rows of a materialized schema cursor that do not
// match the query's criteria. Names compare case-insensitively, as Jet
// identifiers do. Rowsets without known restriction columns are left
// unfiltered.
func restrict(cursor *StaticCursor, query core.SchemaQuery) error {
	if !query.HasCriteria || len(query.Criteria) == 0 {
		return nil
	}

	names, ok := restrictionColumns[query.Type]
	if !ok {
		return nil
	}
	if len(query.Criteria) > len(names) {
		return core.NewProviderError(core.CodeWrongType, "Schema %d accepts at most %d restrictions.", query.Type, len(names))
	}

	type check struct {
		column int
		want   string
	}
	var checks []check
	for i := range query.Criteria {
		want := query.Restriction(i)
		if want == "" {
			continue
		}
		column := -1
		for j, col := range cursor.Columns() {
			if strings.EqualFold(col.Name, names[i]) {
				column = j
				break
			}
		}
		if column < 0 {
			return core.NewProviderError(core.CodeItemNotFound, "Schema %d has no %s column.", query.Type, names[i])
		}
		checks = append(checks, check{column: column, want: want})
	}

	cursor.filter(func(row []any) bool {
		for _, c := range checks {
			if c.column >= len(row) || row[c.column] == nil {
				return false
			}
			if !strings.EqualFold(fmt.Sprint(row[c.column]), c.want) {
				return false
			}
		}
		return true
	})
	return nil
}
