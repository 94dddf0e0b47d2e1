package agent

import (
	"context"
	"log/slog"
	"strings"

	"orderwatch/lib/scrapers/portal"
)

// Criteria selects the orders this operator is willing to take.
type Criteria struct {
	Zipcode  string `json:"zipcode"`
	Category string `json:"category"`
}

// Filter keeps orders whose postal code starts with the zipcode prefix
// and whose category contains the category substring (categories on the
// portal are comma-joined compounds). Input order is preserved.
func Filter(ctx context.Context, orders []portal.Order, criteria Criteria) []portal.Order {
	matched := []portal.Order{}
	for _, order := range orders {
		if strings.HasPrefix(order.PostalCode, criteria.Zipcode) &&
			strings.Contains(order.Category, criteria.Category) {
			slog.InfoContext(ctx, "order matched",
				"work_id", order.WorkID,
				"postal_code", order.PostalCode,
				"category", order.Category,
			)
			matched = append(matched, order)
			continue
		}
		slog.InfoContext(ctx, "order skipped",
			"work_id", order.WorkID,
			"postal_code", order.PostalCode,
			"category", order.Category,
		)
	}
	slog.InfoContext(ctx, "filtered orders",
		"zipcode", criteria.Zipcode,
		"category", criteria.Category,
		"total", len(orders),
		"matched", len(matched),
	)
	return matched
}
