package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"order-reconciliation/internal/domain"
)

// fakeDeliveryPortal imitates the delivery portal: a form login that
// redirects away on success, a warm-up endpoint and the table query.
type fakeDeliveryPortal struct {
	mu          sync.Mutex
	password    string
	logins      int
	sessions    int
	inits       int
	queries     []*http.Request
	expiredUpTo int
	respond     func(session int, search string) (int, string)
}

func newFakeDeliveryPortal(t *testing.T, respond func(session int, search string) (int, string)) (*fakeDeliveryPortal, *httptest.Server) {
	p := &fakeDeliveryPortal{password: "secret", respond: respond}

	mux := http.NewServeMux()
	mux.HandleFunc("/User/Login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			_, _ = w.Write([]byte("<form>Login</form>"))
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("bad login form: %v", err)
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		p.logins++
		if r.PostForm.Get("UserName") != "agent" || r.PostForm.Get("Password") != p.password || r.PostForm.Get("RememberMe") != "false" {
			_, _ = w.Write([]byte("<form>Login</form>"))
			return
		}
		p.sessions++
		http.SetCookie(w, &http.Cookie{Name: "session", Value: strconv.Itoa(p.sessions), Path: "/"})
		http.Redirect(w, r, "/Delivery", http.StatusFound)
	})
	mux.HandleFunc("/Delivery", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>Delivery</html>"))
	})
	mux.HandleFunc("/Delivery/ShowData", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("_") == "" {
			t.Errorf("warm-up request without cache buster")
		}
		p.mu.Lock()
		p.inits++
		p.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/Delivery/AjaxHandler", func(w http.ResponseWriter, r *http.Request) {
		session := 0
		if c, err := r.Cookie("session"); err == nil {
			session, _ = strconv.Atoi(c.Value)
		}

		p.mu.Lock()
		p.queries = append(p.queries, r.Clone(context.Background()))
		expired := session == 0 || session <= p.expiredUpTo
		respond := p.respond
		p.mu.Unlock()

		if expired {
			http.Redirect(w, r, "/User/Login", http.StatusFound)
			return
		}
		status, body := respond(session, r.URL.Query().Get("sSearch"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return p, server
}

func (p *fakeDeliveryPortal) counts() (logins, queries int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logins, len(p.queries)
}

func (p *fakeDeliveryPortal) warmUps() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inits
}

func (p *fakeDeliveryPortal) query(i int) *http.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[i]
}

func (p *fakeDeliveryPortal) rotatePassword() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.password = "rotated"
}

// expireSessions makes every session issued so far bounce to the login page.
func (p *fakeDeliveryPortal) expireSessions() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expiredUpTo = p.sessions
}

func (p *fakeDeliveryPortal) setRespond(fn func(session int, search string) (int, string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.respond = fn
}

func records(n int) func(int, string) (int, string) {
	return func(int, string) (int, string) {
		return http.StatusOK, `{"sEcho":2,"iTotalRecords":5000,"iTotalDisplayRecords":` + strconv.Itoa(n) + `,"aaData":[]}`
	}
}

// failing fails the next n queries with status, then delegates to next.
func failing(n, status int, next func(int, string) (int, string)) func(int, string) (int, string) {
	var mu sync.Mutex
	return func(session int, search string) (int, string) {
		mu.Lock()
		defer mu.Unlock()
		if n > 0 {
			n--
			return status, "unavailable"
		}
		return next(session, search)
	}
}

func newTestDeliveryClient(baseURL string) *DeliveryClient {
	return NewDeliveryClient(DeliveryOptions{
		BaseURL:  baseURL,
		Username: "agent",
		Password: "secret",
		Timeout:  5 * time.Second,
		Retries:  3,
	}, prometheus.NewRegistry(), nil)
}

func TestDeliveryClient_Lookup(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      domain.LookupStatus
		wantCount int
	}{
		{name: "single match", body: `{"iTotalDisplayRecords":1}`, want: domain.LookupFound, wantCount: 1},
		{name: "no match", body: `{"iTotalDisplayRecords":0}`, want: domain.LookupNotFound},
		{name: "count as string", body: `{"iTotalDisplayRecords":"1"}`, want: domain.LookupFound, wantCount: 1},
		{name: "several matches", body: `{"iTotalDisplayRecords":2}`, want: domain.LookupNotFound, wantCount: 2},
		{name: "missing field", body: `{"aaData":[]}`, want: domain.LookupNotFound},
		{name: "malformed", body: `<html>oops</html>`, want: domain.LookupNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portal, server := newFakeDeliveryPortal(t, func(int, string) (int, string) {
				return http.StatusOK, tt.body
			})
			client := newTestDeliveryClient(server.URL)

			assert.NoError(t, client.Connect(context.Background()))
			assert.Equal(t, StateActive, client.State())

			got, err := client.Lookup(context.Background(), "HOSORD1")
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.wantCount, got.Count)
			assert.Equal(t, tt.body, string(got.Payload))

			logins, queries := portal.counts()
			assert.Equal(t, 1, logins)
			assert.Equal(t, 1, queries)
			assert.Equal(t, 1, portal.warmUps())
		})
	}
}

func TestDeliveryClient_QueryShape(t *testing.T) {
	portal, server := newFakeDeliveryPortal(t, records(1))
	client := newTestDeliveryClient(server.URL)
	assert.NoError(t, client.Connect(context.Background()))

	_, err := client.Lookup(context.Background(), "MOSORD77")
	assert.NoError(t, err)

	req := portal.query(0)
	q := req.URL.Query()
	assert.Equal(t, "MOSORD77", q.Get("sSearch"))
	assert.Equal(t, "19", q.Get("iColumns"))
	assert.Equal(t, ",,,,,,,,,,,,,,,,,,", q.Get("sColumns"))
	assert.Equal(t, "18", q.Get("mDataProp_18"))
	assert.Equal(t, "false", q.Get("bSortable_0"))
	assert.Equal(t, "false", q.Get("bSortable_12"))
	assert.Equal(t, "false", q.Get("bSortable_13"))
	assert.Equal(t, "true", q.Get("bSortable_14"))
	assert.Equal(t, "1", q.Get("Category"))
	assert.Equal(t, "0", q.Get("WildCard"))
	assert.Equal(t, "XMLHttpRequest", req.Header.Get("X-Requested-With"))

	tz, err := req.Cookie("CLIENT_TIMEZONE")
	if assert.NoError(t, err) {
		assert.Equal(t, "-480", tz.Value)
	}
}

func TestDeliveryClient_RetryRecreatesSession(t *testing.T) {
	portal, server := newFakeDeliveryPortal(t, failing(2, http.StatusServiceUnavailable, records(1)))
	client := newTestDeliveryClient(server.URL)
	assert.NoError(t, client.Connect(context.Background()))

	got, err := client.Lookup(context.Background(), "HOSORD1")
	assert.NoError(t, err)
	assert.Equal(t, domain.LookupFound, got.Status)

	logins, queries := portal.counts()
	assert.Equal(t, 3, logins)
	assert.Equal(t, 3, queries)
	assert.Equal(t, 2.0, testutil.ToFloat64(client.reauths))

	// A second lookup gets a full set of attempts again.
	portal.setRespond(failing(2, http.StatusBadGateway, records(0)))
	got, err = client.Lookup(context.Background(), "HOSORD2")
	assert.NoError(t, err)
	assert.Equal(t, domain.LookupNotFound, got.Status)
}

func TestDeliveryClient_ExhaustedRetriesAreUnknown(t *testing.T) {
	portal, server := newFakeDeliveryPortal(t, failing(1000, http.StatusInternalServerError, records(1)))
	client := newTestDeliveryClient(server.URL)
	assert.NoError(t, client.Connect(context.Background()))

	got, err := client.Lookup(context.Background(), "HOSORD1")
	assert.NoError(t, err)
	assert.Equal(t, domain.LookupUnknown, got.Status)

	logins, queries := portal.counts()
	assert.Equal(t, 3, queries)
	assert.Equal(t, 3, logins)
	assert.Equal(t, StateActive, client.State())

	portal.setRespond(failing(2, http.StatusTooManyRequests, records(1)))
	got, err = client.Lookup(context.Background(), "HOSORD2")
	assert.NoError(t, err)
	assert.Equal(t, domain.LookupFound, got.Status)
}

func TestDeliveryClient_ClientErrorStatusIsTransient(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "forbidden", status: http.StatusForbidden},
		{name: "not found", status: http.StatusNotFound},
		{name: "bad request", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portal, server := newFakeDeliveryPortal(t, failing(1, tt.status, records(1)))
			client := newTestDeliveryClient(server.URL)
			assert.NoError(t, client.Connect(context.Background()))

			got, err := client.Lookup(context.Background(), "HOSORD1")
			assert.NoError(t, err)
			assert.Equal(t, domain.LookupFound, got.Status)

			logins, queries := portal.counts()
			assert.Equal(t, 2, logins)
			assert.Equal(t, 2, queries)
		})
	}
}

func TestDeliveryClient_LoginRejected(t *testing.T) {
	portal, server := newFakeDeliveryPortal(t, records(1))
	portal.rotatePassword()
	client := newTestDeliveryClient(server.URL)

	err := client.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthRejected)
	assert.Equal(t, StateFailed, client.State())

	assert.ErrorIs(t, client.Connect(context.Background()), domain.ErrAuthRejected)
	logins, _ := portal.counts()
	assert.Equal(t, 1, logins)
}

func TestDeliveryClient_RejectedReauthenticationIsFatal(t *testing.T) {
	portal, server := newFakeDeliveryPortal(t, records(1))
	client := newTestDeliveryClient(server.URL)
	assert.NoError(t, client.Connect(context.Background()))

	portal.rotatePassword()
	portal.expireSessions()

	_, err := client.Lookup(context.Background(), "HOSORD1")
	assert.ErrorIs(t, err, domain.ErrAuthRejected)
	assert.Equal(t, StateFailed, client.State())

	_, err = client.Lookup(context.Background(), "HOSORD2")
	assert.ErrorIs(t, err, domain.ErrAuthRejected)
}

func TestDeliveryClient_ExpiredSessionIsTransient(t *testing.T) {
	portal, server := newFakeDeliveryPortal(t, records(1))
	client := newTestDeliveryClient(server.URL)
	assert.NoError(t, client.Connect(context.Background()))
	portal.expireSessions()

	got, err := client.Lookup(context.Background(), "HOSORD1")
	assert.NoError(t, err)
	assert.Equal(t, domain.LookupFound, got.Status)

	logins, _ := portal.counts()
	assert.Equal(t, 2, logins)
}

func TestDeliveryClient_ConcurrentFailuresReauthenticateOnce(t *testing.T) {
	portal, server := newFakeDeliveryPortal(t, records(1))
	client := newTestDeliveryClient(server.URL)
	assert.NoError(t, client.Connect(context.Background()))
	portal.expireSessions()

	var wg sync.WaitGroup
	results := make([]domain.LookupResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := client.Lookup(context.Background(), "HOSORD"+strconv.Itoa(i))
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		assert.Equal(t, domain.LookupFound, res.Status)
	}
	logins, _ := portal.counts()
	assert.Equal(t, 2, logins)
	assert.Equal(t, 1.0, testutil.ToFloat64(client.reauths))
}

func TestDeliveryClient_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, server := newFakeDeliveryPortal(t, func(int, string) (int, string) {
		cancel()
		return http.StatusInternalServerError, "down"
	})
	client := NewDeliveryClient(DeliveryOptions{
		BaseURL:  server.URL,
		Username: "agent",
		Password: "secret",
		Backoff:  time.Hour,
	}, nil, nil)
	assert.NoError(t, client.Connect(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := client.Lookup(ctx, "HOSORD1")
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("lookup did not stop after cancellation")
	}
}

func TestDeliveryClient_LookupBeforeConnect(t *testing.T) {
	client := newTestDeliveryClient("http://127.0.0.1:1")
	_, err := client.Lookup(context.Background(), "HOSORD1")
	assert.Error(t, err)
	assert.Equal(t, StateUnauthenticated, client.State())
}

func TestDeliveryClient_RateLimit(t *testing.T) {
	_, server := newFakeDeliveryPortal(t, records(1))
	client := NewDeliveryClient(DeliveryOptions{
		BaseURL:   server.URL,
		Username:  "agent",
		Password:  "secret",
		RateLimit: 50,
	}, nil, nil)
	assert.NoError(t, client.Connect(context.Background()))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Lookup(context.Background(), "HOSORD1")
		assert.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestSearchParams(t *testing.T) {
	v := searchParams("HOSORD1")
	assert.Len(t, v, 12+5*searchColumns)
	assert.Equal(t, "HOSORD1", v.Get("sSearch"))
	assert.Equal(t, "", v.Get("sSearch_3"))
	assert.Equal(t, "true", v.Get("bSearchable_0"))
}
