package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"order-reconciliation/internal/domain"
)

// SessionState is the lifecycle of the delivery portal session.
type SessionState string

const (
	StateUnauthenticated  SessionState = "UNAUTHENTICATED"
	StateAuthenticating   SessionState = "AUTHENTICATING"
	StateActive           SessionState = "ACTIVE"
	StateReauthenticating SessionState = "REAUTHENTICATING"
	StateFailed           SessionState = "FAILED"
)

// DeliveryOptions configures DeliveryClient.
type DeliveryOptions struct {
	BaseURL   string
	Username  string
	Password  string
	LoginPath string
	InitPath  string
	QueryPath string
	// Timezone is sent as the CLIENT_TIMEZONE cookie, in minutes.
	Timezone string
	Timeout  time.Duration
	// Retries is the number of attempts one lookup may make.
	Retries int
	// Backoff is the wait before re-authenticating after a failed attempt.
	Backoff time.Duration
	// RateLimit paces queries in requests per second. Zero disables pacing.
	RateLimit float64
}

func (o *DeliveryOptions) applyDefaults() {
	if o.LoginPath == "" {
		o.LoginPath = "/User/Login"
	}
	if o.InitPath == "" {
		o.InitPath = "/Delivery/ShowData"
	}
	if o.QueryPath == "" {
		o.QueryPath = "/Delivery/AjaxHandler"
	}
	if o.Timezone == "" {
		o.Timezone = "-480"
	}
	if o.Retries < 1 {
		o.Retries = 3
	}
}

type deliverySession struct {
	client     *http.Client
	generation uint64
}

// DeliveryClient looks orders up on the delivery portal. A lookup that keeps
// failing is retried on a brand new session until its attempts run out, and
// then reported as unknown rather than failing the run.
type DeliveryClient struct {
	opts    DeliveryOptions
	logger  *zap.Logger
	limiter *rate.Limiter
	reauths prometheus.Counter

	mu         sync.Mutex
	state      SessionState
	session    *deliverySession
	generation uint64
}

// NewDeliveryClient creates an unauthenticated client. Call Connect before Lookup.
func NewDeliveryClient(opts DeliveryOptions, reg prometheus.Registerer, logger *zap.Logger) *DeliveryClient {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &DeliveryClient{
		opts:    opts,
		logger:  logger.With(zap.String("portal", "delivery")),
		limiter: limiter,
		reauths: registerCounter(reg, prometheus.CounterOpts{
			Name: "reconciler_reauth_total",
			Help: "Delivery portal sessions recreated after a failed lookup.",
		}),
		state: StateUnauthenticated,
	}
}

func registerCounter(reg prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
	}
	return c
}

// State returns the current session state.
func (c *DeliveryClient) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect logs in and warms the session up. A rejected login moves the
// client to FAILED and returns domain.ErrAuthRejected.
func (c *DeliveryClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateFailed {
		return fmt.Errorf("delivery portal: %w", domain.ErrAuthRejected)
	}
	c.state = StateAuthenticating
	return c.openLocked(ctx)
}

// openLocked replaces the session with a fresh one. c.mu must be held.
func (c *DeliveryClient) openLocked(ctx context.Context) error {
	client, err := newSessionClient(c.opts.Timeout)
	if err != nil {
		c.state = StateFailed
		return err
	}

	if err := c.login(ctx, client); err != nil {
		if errors.Is(err, domain.ErrAuthRejected) {
			c.state = StateFailed
		} else if c.session != nil {
			c.state = StateActive
		} else {
			c.state = StateUnauthenticated
		}
		return err
	}
	c.initialize(ctx, client)

	if base, err := url.Parse(c.opts.BaseURL); err == nil {
		client.Jar.SetCookies(base, []*http.Cookie{{Name: "CLIENT_TIMEZONE", Value: c.opts.Timezone, Path: "/"}})
	}

	c.generation++
	c.session = &deliverySession{client: client, generation: c.generation}
	c.state = StateActive
	return nil
}

func (c *DeliveryClient) login(ctx context.Context, client *http.Client) error {
	loginURL, err := joinURL(c.opts.BaseURL, c.opts.LoginPath)
	if err != nil {
		return err
	}

	form := url.Values{
		"UserName":   {c.opts.Username},
		"Password":   {c.opts.Password},
		"RememberMe": {"false"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Origin", strings.TrimRight(c.opts.BaseURL, "/"))
	req.Header.Set("Referer", loginURL)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: login: %w", domain.ErrTransient, err)
	}
	defer drain(resp)
	c.logger.Info("Login response",
		zap.String("url", resp.Request.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: login: %w", domain.ErrTransient, statusError(resp))
	}
	if c.onLoginPage(resp) {
		c.logger.Error("Could not authenticate")
		return fmt.Errorf("delivery portal login bounced: %w", domain.ErrAuthRejected)
	}
	c.logger.Info("Login success")
	return nil
}

// initialize performs the warm-up request the portal expects after login.
// Failures are logged only.
func (c *DeliveryClient) initialize(ctx context.Context, client *http.Client) {
	initURL, err := joinURL(c.opts.BaseURL, c.opts.InitPath)
	if err != nil {
		c.logger.Error("Initialization failed", zap.Error(err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, initURL, nil)
	if err != nil {
		c.logger.Error("Initialization failed", zap.Error(err))
		return
	}
	req.URL.RawQuery = url.Values{"_": {strconv.FormatInt(time.Now().UnixMilli(), 10)}}.Encode()
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := client.Do(req)
	if err != nil {
		c.logger.Error("Initialization failed", zap.Error(err))
		return
	}
	defer drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Initialization failed", zap.Error(statusError(resp)))
		return
	}
	c.logger.Info("Initialization is success")
}

func (c *DeliveryClient) onLoginPage(resp *http.Response) bool {
	return strings.Contains(resp.Request.URL.Path, c.opts.LoginPath)
}

func (c *DeliveryClient) current() *deliverySession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// reauthenticate recreates the session unless another caller already
// replaced the one seen by the failed attempt.
func (c *DeliveryClient) reauthenticate(ctx context.Context, seen uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateFailed {
		return fmt.Errorf("delivery portal: %w", domain.ErrAuthRejected)
	}
	if c.generation != seen {
		return nil
	}
	c.state = StateReauthenticating
	c.reauths.Inc()
	c.logger.Info("Recreating session")
	return c.openLocked(ctx)
}

// Lookup implements usecase.OrderLookup. Every call starts with a full
// budget of attempts. Only domain.ErrAuthRejected and cancellation are
// returned as errors.
func (c *DeliveryClient) Lookup(ctx context.Context, externalID string) (domain.LookupResult, error) {
	budget := c.opts.Retries
	for {
		sess := c.current()
		if sess == nil {
			return domain.LookupResult{}, errors.New("delivery portal: lookup before connect")
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return domain.LookupResult{}, err
			}
		}

		res, err := c.query(ctx, sess.client, externalID)
		if err == nil {
			return res, nil
		}

		budget--
		c.logger.Warn("Lookup attempt failed",
			zap.String("order_id", externalID),
			zap.Int("attempts_left", budget),
			zap.Error(err),
		)
		if budget <= 0 {
			c.logger.Error("Could not get order details", zap.String("order_id", externalID))
			return domain.LookupResult{Status: domain.LookupUnknown}, nil
		}

		c.logger.Info("Waiting before retry", zap.Duration("wait", c.opts.Backoff), zap.String("order_id", externalID))
		if err := sleepContext(ctx, c.opts.Backoff); err != nil {
			return domain.LookupResult{}, err
		}

		if err := c.reauthenticate(ctx, sess.generation); err != nil {
			if errors.Is(err, domain.ErrAuthRejected) || ctx.Err() != nil {
				return domain.LookupResult{}, err
			}
			c.logger.Warn("Could not recreate session", zap.Error(err))
		}
	}
}

// query runs one search. Transport failures, non-2xx statuses and bounces to
// the login page are transient. An in-flight query is not cut short by
// cancellation.
func (c *DeliveryClient) query(ctx context.Context, client *http.Client, externalID string) (domain.LookupResult, error) {
	queryURL, err := joinURL(c.opts.BaseURL, c.opts.QueryPath)
	if err != nil {
		return domain.LookupResult{}, err
	}
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, queryURL, nil)
	if err != nil {
		return domain.LookupResult{}, err
	}
	req.URL.RawQuery = searchParams(externalID).Encode()
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("User-Agent", browserUserAgent)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return domain.LookupResult{}, fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	c.logger.Debug("Lookup response",
		zap.String("order_id", externalID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drain(resp)
		return domain.LookupResult{}, fmt.Errorf("%w: %w", domain.ErrTransient, statusError(resp))
	}
	if c.onLoginPage(resp) {
		drain(resp)
		return domain.LookupResult{}, fmt.Errorf("%w: session expired", domain.ErrTransient)
	}

	body, err := readBody(resp)
	if err != nil {
		return domain.LookupResult{}, fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}

	count, ok := displayRecords(body)
	if !ok {
		c.logger.Warn("Malformed lookup response", zap.String("order_id", externalID))
		return domain.LookupResult{Status: domain.LookupNotFound, Payload: body}, nil
	}
	status := domain.LookupNotFound
	if count == 1 {
		status = domain.LookupFound
	}
	return domain.LookupResult{Status: status, Count: count, Payload: body}, nil
}

// displayRecords reads iTotalDisplayRecords, which the portal sends either
// as a number or as a string.
func displayRecords(body []byte) (int, bool) {
	var payload struct {
		Total json.RawMessage `json:"iTotalDisplayRecords"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Total) == 0 {
		return 0, false
	}

	var n int
	if err := json.Unmarshal(payload.Total, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(payload.Total, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}
	return 0, false
}

const searchColumns = 19

// searchParams builds the portal's table query: every column searchable with
// an empty filter, sorted by the first column, and a free-text search for
// the order id.
func searchParams(externalID string) url.Values {
	v := url.Values{
		"sEcho":          {"2"},
		"iColumns":       {strconv.Itoa(searchColumns)},
		"sColumns":       {strings.Repeat(",", searchColumns-1)},
		"iDisplayStart":  {"0"},
		"iDisplayLength": {"10"},
		"iSortCol_0":     {"0"},
		"sSortDir_0":     {"asc"},
		"sSearch":        {externalID},
		"bRegex":         {"false"},
		"iSortingCols":   {"1"},
		"Category":       {"1"},
		"WildCard":       {"0"},
	}
	for i := 0; i < searchColumns; i++ {
		n := strconv.Itoa(i)
		sortable := "true"
		if i == 0 || i == 12 || i == 13 {
			sortable = "false"
		}
		v.Set("mDataProp_"+n, n)
		v.Set("sSearch_"+n, "")
		v.Set("bRegex_"+n, "false")
		v.Set("bSearchable_"+n, "true")
		v.Set("bSortable_"+n, sortable)
	}
	return v
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
