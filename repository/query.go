package repository

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/emzola/circulation/data"
)

var dialect = goqu.Dialect("postgres")

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains returns an ILIKE pattern matching value as a literal substring.
func contains(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}

// totalRecords selects the size of the unpaged result alongside each row.
func totalRecords() exp.AliasedExpression {
	return goqu.L("count(*) OVER()").As("total_records")
}

// orderAndPage applies the requested sort, any secondary columns in the
// same direction, a stable id tie-breaker and the page window.
func orderAndPage(ds *goqu.SelectDataset, table string, filters data.Filters, secondary ...string) *goqu.SelectDataset {
	columns := append([]string{filters.SortColumn()}, secondary...)
	order := make([]exp.OrderedExpression, 0, len(columns)+1)
	for _, c := range columns {
		col := goqu.T(table).Col(c)
		if filters.SortDescending() {
			order = append(order, col.Desc().NullsLast())
		} else {
			order = append(order, col.Asc().NullsLast())
		}
	}
	order = append(order, goqu.T(table).Col("id").Asc())
	return ds.Order(order...).
		Limit(uint(filters.Limit())).
		Offset(uint(filters.Offset()))
}
