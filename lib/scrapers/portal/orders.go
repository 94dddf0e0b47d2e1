package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"orderwatch/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// Order is one work item scraped from the listing table. Orders are
// read-only once created.
type Order struct {
	ID          string
	URL         string
	Property    string
	Priority    string
	City        string
	PostalCode  string
	Category    string
	Subcategory string
	Summary     string
	WorkHref    string
	WorkID      string
	Cm          string
	ViewID      string
}

const orderTableSelector = "table[data-table=record-list]"

// ExtractOrders parses the signed-in landing page. A missing listing
// table means an empty listing (or moved markup), never a failed run. A
// malformed row is skipped without affecting the rows after it.
func (c *Client) ExtractOrders(ctx context.Context, content string) ([]Order, error) {
	ctx, span := tracer.Start(ctx, "client:ExtractOrders")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse landing page html")
		return nil, err
	}

	table := doc.Find(orderTableSelector).First()
	if table.Length() == 0 {
		slog.WarnContext(ctx, "order table not found, treating the listing as empty")
		return []Order{}, nil
	}

	rows := table.Find("tr")
	slog.InfoContext(ctx, "scraping order table", "rows", rows.Length())

	orders := []Order{}
	rows.Each(func(i int, row *goquery.Selection) {
		// row 0 is always the header
		if i == 0 {
			return
		}
		order, err := c.parseRow(row)
		if err != nil {
			slog.WarnContext(ctx, "cannot process row", "row", i, "err", err)
			return
		}
		slog.DebugContext(ctx, "row data", "id", order.ID, "work_id", order.WorkID)
		orders = append(orders, order)
	})
	return orders, nil
}

func (c *Client) parseRow(row *goquery.Selection) (Order, error) {
	anchor, ok := htmlutil.FirstAnchor(row)
	if !ok {
		return Order{}, fmt.Errorf("row has no work link")
	}
	link, err := c.BaseUrl.Parse(anchor.Href)
	if err != nil {
		return Order{}, fmt.Errorf("parse work link %q: %w", anchor.Href, err)
	}

	query := link.Query()
	workID := query.Get("id")
	cm := query.Get("cm")
	viewID := query.Get("viewid")
	if workID == "" || cm == "" || viewID == "" {
		return Order{}, fmt.Errorf("work link %q is missing id/cm/viewid", anchor.Href)
	}

	cells := row.Find("td")
	if cells.Length() < 9 {
		return Order{}, fmt.Errorf("expected at least 9 cells, got %d", cells.Length())
	}
	cell := func(i int) string {
		return htmlutil.CleanText(cells.Eq(i).Text())
	}

	return Order{
		ID:          cell(1),
		URL:         link.String(),
		Property:    cell(2),
		Priority:    cell(3),
		City:        cell(4),
		PostalCode:  cell(5),
		Category:    cell(6),
		Subcategory: cell(7),
		Summary:     cell(8),
		WorkHref:    anchor.Href,
		WorkID:      workID,
		Cm:          cm,
		ViewID:      viewID,
	}, nil
}
