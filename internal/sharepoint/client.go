package sharepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/atendimento-dp/feedbackform/internal/config"
	"github.com/atendimento-dp/feedbackform/internal/feedback"
	"github.com/atendimento-dp/feedbackform/internal/logging"
	"github.com/atendimento-dp/feedbackform/internal/metrics"
	"github.com/atendimento-dp/feedbackform/internal/version"
)

const (
	// ODataVerbose is the media type SharePoint REST expects for list writes.
	ODataVerbose = "application/json;odata=verbose"

	// maxErrorBody limits how much of an error response is kept for logging.
	maxErrorBody = 2048
)

// Client validates feedback records and writes them to a SharePoint list,
// authenticating with an application token obtained through the
// client-credentials flow.
type Client struct {
	cfg config.SharePoint

	// HTTPClient is the underlying HTTP client.
	HTTPClient *http.Client

	// Metrics records submission outcomes (nil disables instrumentation).
	Metrics *metrics.Metrics

	// OnStep, when set, is called as SubmitFeedback enters and leaves each
	// step. It runs on the submitting goroutine.
	OnStep StepFunc
}

// Step names one stage of a submission.
type Step int

const (
	StepValidate Step = iota + 1
	StepToken
	StepCreate
)

// Steps lists the submission stages in execution order.
var Steps = []Step{StepValidate, StepToken, StepCreate}

func (s Step) String() string {
	switch s {
	case StepValidate:
		return "Validating fields"
	case StepToken:
		return "Acquiring access token"
	case StepCreate:
		return "Creating list item"
	default:
		return "unknown"
	}
}

// StepFunc observes submission progress. done is false when the step starts
// and true when it ends, with err holding its outcome.
type StepFunc func(step Step, done bool, err error)

// NewClient creates a client for the given SharePoint configuration.
// The configuration is copied; later changes to cfg have no effect.
func NewClient(cfg config.SharePoint) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	if cfg.Authority == "" {
		cfg.Authority = config.DefaultAuthority
	}
	if cfg.Scope == "" {
		cfg.Scope = config.DefaultScope
	}

	return &Client{
		cfg:        cfg,
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: userAgentTransport{base: http.DefaultTransport},
		},
	}
}

// userAgentTransport stamps every outgoing request with the product
// User-Agent, including the token request issued by the oauth2 package.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", version.UserAgent())
	return t.base.RoundTrip(req)
}

// SetTimeout sets the HTTP request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// TokenURL returns the client-credentials token endpoint for the tenant.
func (c *Client) TokenURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token",
		strings.TrimRight(c.cfg.Authority, "/"), url.PathEscape(c.cfg.TenantID))
}

// ListItemsURL returns the REST endpoint creating items in the configured list.
func (c *Client) ListItemsURL() string {
	// OData string literals escape a single quote by doubling it
	title := strings.ReplaceAll(c.cfg.ListName, "'", "''")
	return fmt.Sprintf("%s/_api/web/lists/getbytitle('%s')/items",
		strings.TrimRight(c.cfg.SiteURL, "/"), url.PathEscape(title))
}

// Validate checks that every field of the record is filled.
// Validation is all-or-nothing: one empty field rejects the record.
func Validate(record feedback.Record) error {
	if missing := record.MissingFields(); len(missing) > 0 {
		return NewValidationError(missing)
	}
	return nil
}

// Validate checks that every field of the record is filled.
func (c *Client) Validate(record feedback.Record) error {
	return Validate(record)
}

// credentials describes the client-credentials exchange for the tenant.
// The id and secret travel in the form body, not in a Basic header.
func (c *Client) credentials() *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		TokenURL:     c.TokenURL(),
		Scopes:       []string{c.cfg.Scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
}

// AcquireToken performs the client-credentials exchange and returns the
// bearer token. Every failure is logged with its detail and returned as a
// generic authentication error.
func (c *Client) AcquireToken(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)

	token, err := c.credentials().Token(ctx)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if !errors.As(err, &rErr) {
			return "", c.authFailure(0, "token request failed", err)
		}

		statusCode := 0
		if rErr.Response != nil {
			statusCode = rErr.Response.StatusCode
		}
		logging.Error("Token endpoint rejected client credentials",
			zap.Int("status_code", statusCode),
			zap.String("tenant_id", c.cfg.TenantID),
			zap.String("client_id", c.cfg.ClientID),
			zap.String("error", rErr.ErrorCode),
			zap.String("error_description", rErr.ErrorDescription),
		)
		return "", NewAuthError(statusCode,
			fmt.Errorf("token endpoint returned %d (%s): %w", statusCode, rErr.ErrorCode, rErr))
	}

	logging.Debug("Access token acquired",
		zap.String("token_type", token.Type()),
		zap.Time("expiry", token.Expiry),
		zap.String("access_token", logging.MaskSecret(token.AccessToken)),
	)

	return token.AccessToken, nil
}

func (c *Client) authFailure(statusCode int, msg string, err error) error {
	logging.Error("Failed to acquire access token",
		zap.String("reason", msg),
		zap.Int("status_code", statusCode),
		zap.String("tenant_id", c.cfg.TenantID),
		zap.String("client_id", c.cfg.ClientID),
		zap.Error(err),
	)
	return NewAuthError(statusCode, fmt.Errorf("%s: %w", msg, err))
}

// CreateListItem creates one item in the configured list with the record
// fields as columns, authenticated with the bearer token.
func (c *Client) CreateListItem(ctx context.Context, token string, record feedback.Record) error {
	payload, err := json.Marshal(record.ListItem())
	if err != nil {
		return NewSubmissionError(0, "failed to encode list item", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ListItemsURL(), bytes.NewReader(payload))
	if err != nil {
		return NewSubmissionError(0, "failed to create list item request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", ODataVerbose)
	req.Header.Set("Content-Type", ODataVerbose)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return NewSubmissionError(0, "list item request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return NewSubmissionError(resp.StatusCode,
			fmt.Sprintf("list item creation failed with status %d", resp.StatusCode),
			fmt.Errorf("response body: %s", strings.TrimSpace(string(body))))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// SubmitFeedback validates the record, acquires a token and creates the
// list item, in that order, stopping at the first failure. Nothing is retried.
func (c *Client) SubmitFeedback(ctx context.Context, record feedback.Record) error {
	submissionID := uuid.NewString()
	log := logging.GetLogger().With(zap.String("submission_id", submissionID))
	done := c.Metrics.SubmissionStarted()

	err := c.submit(ctx, record)
	if err != nil {
		kind := KindOf(err)
		done(kind.Label())
		log.Error("Feedback submission failed",
			zap.String("kind", kind.String()),
			zap.Int("status_code", StatusCodeOf(err)),
			zap.Strings("missing", MissingOf(err)),
			zap.NamedError("cause", causeOf(err)),
		)
		return err
	}

	done(metrics.ResultSuccess)
	log.Info("Feedback submitted",
		zap.String("list", c.cfg.ListName),
		zap.String("matricula", record.Matricula),
	)
	return nil
}

func (c *Client) submit(ctx context.Context, record feedback.Record) error {
	if err := c.step(StepValidate, func() error { return c.Validate(record) }); err != nil {
		return err
	}

	var token string
	err := c.step(StepToken, func() (err error) {
		token, err = c.AcquireToken(ctx)
		return err
	})
	if err != nil {
		return err
	}

	return c.step(StepCreate, func() error { return c.CreateListItem(ctx, token, record) })
}

func (c *Client) step(step Step, fn func() error) error {
	if c.OnStep != nil {
		c.OnStep(step, false, nil)
	}
	err := fn()
	if c.OnStep != nil {
		c.OnStep(step, true, err)
	}
	return err
}

func causeOf(err error) error {
	if spErr, ok := err.(*Error); ok && spErr.Err != nil {
		return spErr.Err
	}
	return err
}
