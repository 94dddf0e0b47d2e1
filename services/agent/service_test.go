package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"orderwatch/lib/scrapers/portal"
	"orderwatch/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	hidden     []portal.HiddenField
	loginErr   error
	content    string
	extractErr error
	orders     []portal.Order
	acceptErr  map[string]error
	status     int

	accepted  []string
	loggedOut bool
}

func (f *fakeSession) FetchHiddenFields(ctx context.Context) ([]portal.HiddenField, error) {
	return f.hidden, nil
}

func (f *fakeSession) Login(ctx context.Context, hidden []portal.HiddenField) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.content, nil
}

func (f *fakeSession) ExtractOrders(ctx context.Context, content string) ([]portal.Order, error) {
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.orders, nil
}

func (f *fakeSession) Accept(ctx context.Context, order portal.Order) (portal.AcceptanceResult, error) {
	if err := f.acceptErr[order.WorkID]; err != nil {
		return portal.AcceptanceResult{}, err
	}
	f.accepted = append(f.accepted, order.WorkID)
	return portal.AcceptanceResult{Order: order, StatusCode: f.status}, nil
}

func (f *fakeSession) Logout(ctx context.Context) {
	f.loggedOut = true
}

type notification struct {
	workID string
	status int
}

type fakeNotifier struct {
	mu       sync.Mutex
	err      error
	received []notification
}

func (n *fakeNotifier) Notify(ctx context.Context, order portal.Order, acceptStatus int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, notification{workID: order.WorkID, status: acceptStatus})
	return n.err
}

func newFakeService(sess *fakeSession, notifier Notifier) *Service {
	svc := NewService(Config{
		Search: Criteria{Zipcode: "9", Category: "Plumbing"},
	})
	svc.SetNotifier(notifier)
	svc.OpenSession = func(ctx context.Context) (PortalSession, error) {
		return sess, nil
	}
	return svc
}

func TestRunOnceAcceptsMatches(t *testing.T) {
	sess := &fakeSession{
		orders: []portal.Order{
			{WorkID: "W-100", PostalCode: "90210", Category: "Plumbing,Repair"},
			{WorkID: "W-101", PostalCode: "10001", Category: "Electrical"},
		},
		status: http.StatusOK,
	}
	notifier := &fakeNotifier{}

	err := newFakeService(sess, notifier).RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"W-100"}, sess.accepted)
	require.Equal(t, []notification{{workID: "W-100", status: http.StatusOK}}, notifier.received)
	require.True(t, sess.loggedOut)
}

func TestRunOnceAuthFailureStopsEverything(t *testing.T) {
	sess := &fakeSession{
		loginErr: portal.ErrInvalidCredentials,
		orders: []portal.Order{
			{WorkID: "W-100", PostalCode: "90210", Category: "Plumbing"},
		},
	}
	notifier := &fakeNotifier{}

	err := newFakeService(sess, notifier).RunOnce(context.Background())
	require.ErrorIs(t, err, portal.ErrInvalidCredentials)

	require.Empty(t, sess.accepted)
	require.Empty(t, notifier.received)
	// no session was established, so there is nothing to log out of
	require.False(t, sess.loggedOut)
}

func TestRunOnceLogsOutAfterExtractFailure(t *testing.T) {
	sess := &fakeSession{
		extractErr: context.DeadlineExceeded,
	}

	err := newFakeService(sess, &fakeNotifier{}).RunOnce(context.Background())
	require.Error(t, err)
	require.True(t, sess.loggedOut)
}

func TestRunOnceContinuesPastFailedOrder(t *testing.T) {
	sess := &fakeSession{
		orders: []portal.Order{
			{WorkID: "W-100", PostalCode: "90210", Category: "Plumbing"},
			{WorkID: "W-104", PostalCode: "98101", Category: "Plumbing"},
		},
		acceptErr: map[string]error{"W-100": context.DeadlineExceeded},
		status:    http.StatusOK,
	}
	notifier := &fakeNotifier{}

	err := newFakeService(sess, notifier).RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"W-104"}, sess.accepted)
	require.Equal(t, []notification{{workID: "W-104", status: http.StatusOK}}, notifier.received)
}

func TestRunOnceNotifierFailureDoesNotFailRun(t *testing.T) {
	sess := &fakeSession{
		orders: []portal.Order{
			{WorkID: "W-100", PostalCode: "90210", Category: "Plumbing"},
		},
		status: http.StatusOK,
	}
	notifier := &fakeNotifier{err: context.DeadlineExceeded}

	err := newFakeService(sess, notifier).RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"W-100"}, sess.accepted)
}

const portalLandingPage = `<html><body>
<p>Signed in as ACME Maintenance</p>
<table data-table="record-list">
<tr><th>Link</th><th>ID</th><th>Property</th><th>Priority</th><th>City</th><th>Postal Code</th><th>Category</th><th>Subcategory</th><th>Summary</th></tr>
<tr><td><a href="WorkOrder.aspx?id=W-100&amp;cm=5&amp;viewid=77">Open</a></td><td>100</td><td>Maple Court</td><td>High</td><td>Los Angeles</td><td>90210</td><td>Plumbing,Repair</td><td>Leak</td><td>Kitchen sink is leaking</td></tr>
<tr><td><a href="WorkOrder.aspx?id=W-101&amp;cm=5&amp;viewid=77">Open</a></td><td>101</td><td>Oak Plaza</td><td>Low</td><td>New York</td><td>10001</td><td>Electrical</td><td>Lighting</td><td>Hallway light flickering</td></tr>
</table>
</body></html>`

const portalLoginPage = `<html><body><form method="post">
<input type="hidden" name="__VIEWSTATE" value="dDwtMTQ4OTIyNDApO" />
<input type="text" name="txtUsername" /><input type="password" name="txtPassword" />
</form></body></html>`

// drives a full run against an in-process portal
func TestRunOnceEndToEnd(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/agent")
	defer cleanup()

	var acceptCalls, logoutCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			require.NoError(t, r.ParseForm())
			require.Equal(t, "acme", r.PostForm.Get("txtUsername"))
			require.Equal(t, "dDwtMTQ4OTIyNDApO", r.PostForm.Get("__VIEWSTATE"))
			w.Write([]byte(portalLandingPage))
			return
		}
		w.Write([]byte(portalLoginPage))
	})
	mux.HandleFunc("/api/vendor", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"Columns":[{"key":"vendorid","value":"VND-42","id":""}]}]`))
	})
	mux.HandleFunc("/api/accept", func(w http.ResponseWriter, r *http.Request) {
		acceptCalls++
	})
	mux.HandleFunc("/Logout.aspx", func(w http.ResponseWriter, r *http.Request) {
		logoutCalls++
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	notifier := &fakeNotifier{}
	svc := NewService(Config{
		Portal: portal.Options{
			BaseUrl:         srv.URL,
			Username:        "acme",
			Password:        "hunter2",
			VendorLookupUrl: srv.URL + "/api/vendor",
			AcceptUrl:       srv.URL + "/api/accept",
			SuccessMarker:   "Signed in as",
		},
		Search: Criteria{Zipcode: "9", Category: "Plumbing"},
	})
	svc.SetNotifier(notifier)

	err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, acceptCalls)
	require.Equal(t, 1, logoutCalls)
	require.Equal(t, []notification{{workID: "W-100", status: http.StatusOK}}, notifier.received)
}
