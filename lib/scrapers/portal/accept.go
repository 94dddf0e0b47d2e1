package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AcceptanceResult carries the status the portal answered the final
// acceptance call with, success or not.
type AcceptanceResult struct {
	Order      Order
	StatusCode int
}

// the record service speaks FetchXML; only the work order id and the
// requester identity vary between calls
const vendorFetchTemplate = "<fetch version='1.0' output-format='xml-platform' mapping='logical' distinct='false'>" +
	"<entity name='vendor'><attribute name='vendorid'/>" +
	"<filter type='and'>" +
	"<condition attribute='workorderid' operator='eq' value='%s'/>" +
	"<condition attribute='requester' operator='eq' value='%s'/>" +
	"</filter></entity></fetch>"

const requesterIdentity = "uuid"

type recordColumn struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Id    string `json:"id"`
}

type record struct {
	Columns []recordColumn `json:"Columns"`
}

func (c *Client) lookupVendorId(ctx context.Context, order Order) (string, error) {
	ctx, span := tracer.Start(ctx, "client:lookupVendorId")
	defer span.End()
	span.SetAttributes(attribute.String("work_id", order.WorkID))

	payload := map[string]string{
		"fetch": fmt.Sprintf(vendorFetchTemplate, order.WorkID, requesterIdentity),
	}
	res, err := c.Http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.opts.VendorLookupUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to post vendor lookup")
		return "", err
	}
	slog.InfoContext(ctx, "vendor lookup response", "status", res.StatusCode())
	if res.IsError() {
		span.SetStatus(codes.Error, "unexpected vendor lookup status")
		return "", fmt.Errorf("vendor lookup: status %d", res.StatusCode())
	}

	var records []record
	err = json.Unmarshal(res.Body(), &records)
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode vendor lookup response")
		return "", fmt.Errorf("decode vendor lookup response: %w", err)
	}
	if len(records) == 0 || len(records[0].Columns) == 0 || records[0].Columns[0].Value == "" {
		span.SetStatus(codes.Error, "vendor lookup returned no usable id")
		return "", fmt.Errorf("vendor lookup returned no usable id for work order %s", order.WorkID)
	}
	return records[0].Columns[0].Value, nil
}

// Accept resolves the vendor id for the order and submits the
// acceptance, both over this session. The final status code is returned
// as-is, a non-2xx acceptance is reported rather than treated as fatal.
// The acceptance POST is not idempotent at the portal, callers must not
// blindly retry it.
func (c *Client) Accept(ctx context.Context, order Order) (AcceptanceResult, error) {
	ctx, span := tracer.Start(ctx, "client:Accept")
	defer span.End()
	span.SetAttributes(attribute.String("work_id", order.WorkID))

	vendorId, err := c.lookupVendorId(ctx, order)
	if err != nil {
		return AcceptanceResult{}, err
	}

	slog.InfoContext(ctx, "accepting work order", "work_id", order.WorkID, "vendor_id", vendorId)
	payload := record{
		Columns: []recordColumn{
			{Key: "vendor id", Value: vendorId, Id: ""},
		},
	}
	res, err := c.Http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.opts.AcceptUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to post acceptance")
		return AcceptanceResult{}, err
	}

	slog.InfoContext(ctx, "work order acceptance response", "work_id", order.WorkID, "status", res.StatusCode())
	return AcceptanceResult{Order: order, StatusCode: res.StatusCode()}, nil
}
