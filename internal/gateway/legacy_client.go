package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"order-reconciliation/internal/domain"
)

const (
	legacyForm    = "jsfwmp7517:defaultForm"
	legacyPortlet = "/meta/default/maxis_opf_support___opfdetails/0000007517"
)

// LegacyOptions configures LegacyClient.
type LegacyOptions struct {
	BaseURL       string
	Username      string
	Password      string
	LoginPath     string
	BootstrapPath string
	DetailsPath   string
	Timeout       time.Duration
	// Retries is the number of attempts for a request that fails with a
	// transport error or a 429/5xx status.
	Retries int
	Backoff time.Duration
}

func (o *LegacyOptions) applyDefaults() {
	if o.LoginPath == "" {
		o.LoginPath = "/user.current.start.page"
	}
	if o.BootstrapPath == "" {
		o.BootstrapPath = "/opf.orderdetails"
	}
	if o.DetailsPath == "" {
		o.DetailsPath = legacyPortlet
	}
	if o.Retries < 1 {
		o.Retries = 5
	}
}

// LegacyClient replays the legacy portal's order details form and scrapes
// the result table.
type LegacyClient struct {
	opts   LegacyOptions
	parser LegacyResultParser
	logger *zap.Logger

	mu     sync.RWMutex
	client *http.Client
	token  string
}

// NewLegacyClient creates a client. A nil parser uses TableResultParser.
func NewLegacyClient(opts LegacyOptions, parser LegacyResultParser, logger *zap.Logger) *LegacyClient {
	opts.applyDefaults()
	if parser == nil {
		parser = TableResultParser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LegacyClient{
		opts:   opts,
		parser: parser,
		logger: logger.With(zap.String("portal", "legacy")),
	}
}

// Connect logs in and reads the form token from the bootstrap page. Login
// failures are only logged; a missing token is a *domain.ParseError.
func (c *LegacyClient) Connect(ctx context.Context) error {
	client, err := newSessionClient(c.opts.Timeout)
	if err != nil {
		return err
	}

	c.login(ctx, client)

	token, err := c.bootstrap(ctx, client)
	if err != nil {
		return err
	}
	c.logger.Info("Received form token")

	c.mu.Lock()
	c.client, c.token = client, token
	c.mu.Unlock()
	return nil
}

func (c *LegacyClient) login(ctx context.Context, client *http.Client) {
	form := url.Values{
		"username": {c.opts.Username},
		"password": {c.opts.Password},
	}
	resp, err := c.do(ctx, client, func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodPost, c.opts.LoginPath, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return req, nil
	})
	if err != nil {
		c.logger.Error("Login failed", zap.Error(err))
		return
	}
	drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Login failed", zap.Error(statusError(resp)))
		return
	}
	c.logger.Info("Login successful")
}

func (c *LegacyClient) bootstrap(ctx context.Context, client *http.Client) (string, error) {
	c.logger.Info("Fetching form data", zap.String("form", legacyForm))
	resp, err := c.do(ctx, client, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, c.opts.BootstrapPath, nil)
	})
	if err != nil {
		return "", fmt.Errorf("legacy portal bootstrap: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return "", fmt.Errorf("legacy portal bootstrap: %w", err)
	}
	return extractFormToken(body)
}

// Fetch implements usecase.LegacyOrderFetcher.
func (c *LegacyClient) Fetch(ctx context.Context, orderID string) (domain.LegacyOrder, error) {
	c.mu.RLock()
	client, token := c.client, c.token
	c.mu.RUnlock()
	if client == nil {
		return domain.LegacyOrder{}, fmt.Errorf("legacy portal: fetch before connect")
	}

	form := detailsForm(token, orderID)
	resp, err := c.do(ctx, client, func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodPost, c.opts.DetailsPath, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = url.Values{
			"wmp_tc": {"7517"},
			"wmp_rt": {"action"},
			"wmp_tv": {"/OpfDetails/default.view"},
			"__ns":   {"wmp7517"},
		}.Encode()
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		req.Header.Set("Accept", "text/javascript, text/html, application/xml, text/xml, */*")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		req.Header.Set("X-Prototype-Version", "1.7.1")
		return req, nil
	})
	if err != nil {
		return domain.LegacyOrder{}, err
	}
	body, err := readBody(resp)
	if err != nil {
		return domain.LegacyOrder{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.LegacyOrder{}, statusError(resp)
	}

	order, err := c.parser.Parse(orderID, body)
	if err != nil {
		return domain.LegacyOrder{}, err
	}
	c.logger.Debug("Order details",
		zap.String("order_id", order.OrderID),
		zap.String("interface_log_id", order.InterfaceLogID),
	)
	return order, nil
}

func detailsForm(token, orderID string) url.Values {
	f := url.Values{}
	f.Set(legacyForm, token)
	f.Set(legacyForm+":htmlInputText", orderID)
	f.Set(legacyForm+":asyncTable__update", "__row0,__row1,__row2,__row3,__row4,__row5")
	f.Set(legacyForm+":asyncTable__firstByID", "")
	f.Set(legacyForm+":asyncTable__first", "0")
	f.Set(legacyForm+":asyncTable__rows", "10")
	f.Set("javax.faces.ViewState", "")
	f.Set("__forms", legacyForm)
	f.Set("__fc", legacyForm+":button")
	f.Set("__vf", legacyForm)
	f.Set("wms.layout", "tabulaRasa")
	f.Set("wms.portlet", legacyPortlet)
	f.Set("wms.hiddenRequest", "true")
	f.Set("wms.shell", "shell.blank")
	f.Set("wms.replaceForNextUrl", "hiddenRequest=&shell=&layout=&portlet=")
	return f
}

func (c *LegacyClient) newRequest(ctx context.Context, method, path string, body *strings.Reader) (*http.Request, error) {
	target, err := joinURL(c.opts.BaseURL, path)
	if err != nil {
		return nil, err
	}
	var req *http.Request
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, body)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Origin", strings.TrimRight(c.opts.BaseURL, "/"))
	return req, nil
}

// do sends the request built by build, retrying transport errors and
// 429/5xx statuses with a fixed backoff.
func (c *LegacyClient) do(ctx context.Context, client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.opts.Retries; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, c.opts.Backoff); err != nil {
				return nil, err
			}
		}

		req, err := build()
		if err != nil {
			return nil, err
		}
		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %w", domain.ErrTransient, err)
			c.logger.Warn("Request failed", zap.String("path", req.URL.Path), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		c.logger.Debug("Response",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
		)
		if retryableStatus(resp.StatusCode) && attempt < c.opts.Retries {
			drain(resp)
			lastErr = statusError(resp)
			c.logger.Warn("Request failed", zap.String("path", req.URL.Path), zap.Int("attempt", attempt), zap.Error(lastErr))
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
