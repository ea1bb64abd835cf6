package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dismod47/GroupChatProject/core"
)

var orderingParam = "ordering"

// Ordering binds `?ordering=field,-other` where a leading "-" means descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind maps the public field names to columns with `fields`. Unknown fields are skipped.
func (ord *Ordering) Bind(ctx echo.Context, fields map[string]string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if column, ok := fields[field]; ok {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: column, Ascending: !descending})
		}
	}
}
