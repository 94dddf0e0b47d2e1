package portal

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"orderwatch/lib/restyutil"
	"orderwatch/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/portal")

var ErrInvalidCredentials = fmt.Errorf("Incorrect username or password.")

// the portal renders this string only on a signed-in page
const defaultSuccessMarker = "TEXT FOR SUCCESS AUTH"

const logoutPath = "Logout.aspx"

type Options struct {
	BaseUrl         string `json:"url"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	VendorLookupUrl string `json:"vendor_lookup_url"`
	AcceptUrl       string `json:"accept_url"`
	SuccessMarker   string `json:"success_marker"`
}

// Client holds one authenticated portal session: a cookie jar plus the
// transport it lives on. It must not be shared between runs.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
	opts    Options
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if opts.SuccessMarker == "" {
		opts.SuccessMarker = defaultSuccessMarker
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/portal/http")

	c := &Client{
		BaseUrl: baseUrl,
		Http:    client,
		opts:    opts,
	}
	return c, nil
}

// SetHTTPDumpOutput writes every exchange the session performs to the
// output, for diagnosing portal markup drift.
func (c *Client) SetHTTPDumpOutput(output restyutil.DumpOutput) {
	restyutil.DumpExchanges(c.Http, output)
}

type HiddenField struct {
	Name  string
	Value string
}

// FetchHiddenFields loads the anonymous login page and collects its
// hidden inputs in document order. A page without hidden inputs yields
// an empty slice, not an error.
func (c *Client) FetchHiddenFields(ctx context.Context) ([]HiddenField, error) {
	ctx, span := tracer.Start(ctx, "client:FetchHiddenFields")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.BaseUrl.String())
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return nil, err
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "unexpected login page status")
		return nil, fmt.Errorf("fetch login page: status %d", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page html")
		return nil, err
	}

	fields := []HiddenField{}
	doc.Find("input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		value := s.AttrOr("value", "")
		slog.DebugContext(ctx, "hidden field found", "name", name)
		fields = append(fields, HiddenField{Name: name, Value: value})
	})
	return fields, nil
}

// credential/submit keys always win over portal-supplied hidden fields
// that happen to share a name
var fixedFormKeys = map[string]bool{
	"txtUsername":  true,
	"txtPassword":  true,
	"btnSubmit":    true,
	"txtEmailSend": true,
}

// Login posts the credentials along with every hidden field and checks
// the response body for the signed-in marker. The landing page HTML is
// returned on success so the caller can scrape it without a second
// round trip.
func (c *Client) Login(ctx context.Context, hidden []HiddenField) (string, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	values := url.Values{}
	for _, f := range hidden {
		if fixedFormKeys[f.Name] {
			continue
		}
		values.Set(f.Name, f.Value)
	}
	values.Set("txtUsername", c.opts.Username)
	values.Set("txtPassword", c.opts.Password)
	values.Set("btnSubmit", "Sign In")
	values.Set("txtEmailSend", "")

	res, err := c.Http.R().
		SetContext(ctx).
		SetBody(values.Encode()).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		Post(c.BaseUrl.String())
	if err != nil {
		span.SetStatus(codes.Error, "failed to post login request")
		return "", err
	}
	slog.InfoContext(ctx, "auth response", "status", res.StatusCode())
	if res.IsError() {
		span.SetStatus(codes.Error, "unexpected login status")
		return "", fmt.Errorf("login: status %d", res.StatusCode())
	}

	content := res.String()
	if !strings.Contains(content, c.opts.SuccessMarker) {
		span.SetStatus(codes.Error, ErrInvalidCredentials.Error())
		return "", ErrInvalidCredentials
	}
	return content, nil
}

// Logout invalidates the session server-side. Failures are logged and
// swallowed, a stuck logout must never stall the caller.
func (c *Client) Logout(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "client:Logout")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.BaseUrl.JoinPath(logoutPath).String())
	if err != nil {
		span.SetStatus(codes.Error, "failed to log out")
		slog.WarnContext(ctx, "logout failed", "err", err)
		return
	}
	slog.DebugContext(ctx, "logged out", "status", res.StatusCode())
}
