package sharepoint

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/oauth2"

	"github.com/atendimento-dp/feedbackform/internal/config"
	"github.com/atendimento-dp/feedbackform/internal/feedback"
	"github.com/atendimento-dp/feedbackform/internal/metrics"
	"github.com/atendimento-dp/feedbackform/internal/version"
)

const (
	testTenant   = "contoso-tenant"
	testListPath = "/sites/DP/_api/web/lists/getbytitle('Atendimento - DP')/items"
)

func sampleRecord() feedback.Record {
	return feedback.Record{
		Matricula:      "123",
		Nome:           "Ana",
		Funcao:         "Analista",
		Lider:          "Bia",
		DuvidaProblema: "Férias",
		Data:           "2024-01-01",
	}
}

// fakeSharePoint serves both the token endpoint and the list endpoint and
// counts the calls made to each.
type fakeSharePoint struct {
	server      *httptest.Server
	tokenCalls  atomic.Int32
	listCalls   atomic.Int32
	tokenStatus int
	listStatus  int
	token       string

	mu             sync.Mutex
	lastTokenForm  map[string]string
	lastTokenAgent string
	lastListHeader http.Header
	lastListBody   map[string]string
}

func newFakeSharePoint(t *testing.T) *fakeSharePoint {
	t.Helper()

	f := &fakeSharePoint{
		tokenStatus: http.StatusOK,
		listStatus:  http.StatusCreated,
		token:       "tok1",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/"+testTenant+"/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		f.mu.Lock()
		f.lastTokenForm = map[string]string{}
		f.lastTokenAgent = r.UserAgent()
		for k := range r.PostForm {
			f.lastTokenForm[k] = r.PostForm.Get(k)
		}
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"AADSTS7000215: Invalid client secret provided."}`))
			return
		}
		_, _ = w.Write([]byte(`{"token_type":"Bearer","expires_in":3599,"access_token":"` + f.token + `"}`))
	})
	mux.HandleFunc("/sites/DP/_api/web/lists/", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls.Add(1)
		if r.URL.Path != testListPath {
			t.Errorf("list path = %s, want %s", r.URL.Path, testListPath)
		}
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.lastListHeader = r.Header.Clone()
		f.lastListBody = map[string]string{}
		if err := json.Unmarshal(body, &f.lastListBody); err != nil {
			t.Errorf("list body is not a JSON object: %v", err)
		}
		f.mu.Unlock()
		w.WriteHeader(f.listStatus)
		if f.listStatus >= 300 {
			_, _ = w.Write([]byte(`{"error":{"code":"-1, Microsoft.SharePoint.SPException","message":{"value":"boom"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"d":{"Id":1}}`))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSharePoint) config() config.SharePoint {
	return config.SharePoint{
		TenantID:     testTenant,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Authority:    f.server.URL,
		Scope:        config.DefaultScope,
		SiteURL:      f.server.URL + "/sites/DP/",
		ListName:     config.DefaultListName,
		Timeout:      5 * time.Second,
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(config.SharePoint{TenantID: "t"})

	if client.HTTPClient == nil {
		t.Fatal("HTTPClient should not be nil")
	}
	if client.HTTPClient.Timeout != config.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", client.HTTPClient.Timeout, config.DefaultTimeout)
	}
	if want := config.DefaultAuthority + "/t/oauth2/v2.0/token"; client.TokenURL() != want {
		t.Errorf("TokenURL() = %s, want %s", client.TokenURL(), want)
	}
}

func TestSetTimeout(t *testing.T) {
	client := NewClient(config.SharePoint{})
	client.SetTimeout(5 * time.Second)

	if client.HTTPClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.HTTPClient.Timeout)
	}
}

func TestListItemsURL(t *testing.T) {
	tests := []struct {
		name     string
		siteURL  string
		listName string
		want     string
	}{
		{
			name:     "trailing slash trimmed",
			siteURL:  "https://contoso.sharepoint.com/sites/DP/",
			listName: "Atendimento - DP",
			want:     "https://contoso.sharepoint.com/sites/DP/_api/web/lists/getbytitle('Atendimento%20-%20DP')/items",
		},
		{
			name:     "single quote doubled",
			siteURL:  "https://contoso.sharepoint.com/sites/DP",
			listName: "Dúvidas d'Água",
			want:     "https://contoso.sharepoint.com/sites/DP/_api/web/lists/getbytitle('D%C3%BAvidas%20d%27%27%C3%81gua')/items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(config.SharePoint{SiteURL: tt.siteURL, ListName: tt.listName})
			if got := client.ListItemsURL(); got != tt.want {
				t.Errorf("ListItemsURL() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(sampleRecord()); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}

	for _, f := range feedback.Fields {
		t.Run(f.Name, func(t *testing.T) {
			r := sampleRecord()
			if err := r.Set(f.Name, ""); err != nil {
				t.Fatal(err)
			}

			err := Validate(r)
			if !IsValidationError(err) {
				t.Fatalf("Validate() error = %v, want validation error", err)
			}

			var spErr *Error
			if !errors.As(err, &spErr) {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if len(spErr.Missing) != 1 || spErr.Missing[0] != f.Name {
				t.Errorf("Missing = %v, want [%s]", spErr.Missing, f.Name)
			}
			if spErr.Message != requiredMessage {
				t.Errorf("Message = %q, want %q", spErr.Message, requiredMessage)
			}
		})
	}
}

func TestSubmitFeedback_ValidationMakesNoNetworkCall(t *testing.T) {
	fake := newFakeSharePoint(t)
	client := NewClient(fake.config())

	for _, f := range feedback.Fields {
		r := sampleRecord()
		if err := r.Set(f.Name, ""); err != nil {
			t.Fatal(err)
		}

		err := client.SubmitFeedback(context.Background(), r)
		if !IsValidationError(err) {
			t.Errorf("SubmitFeedback() with empty %s error = %v, want validation error", f.Name, err)
		}
	}

	if n := fake.tokenCalls.Load(); n != 0 {
		t.Errorf("token endpoint called %d times, want 0", n)
	}
	if n := fake.listCalls.Load(); n != 0 {
		t.Errorf("list endpoint called %d times, want 0", n)
	}
}

func TestAcquireToken_RequestContract(t *testing.T) {
	fake := newFakeSharePoint(t)
	client := NewClient(fake.config())

	token, err := client.AcquireToken(context.Background())
	if err != nil {
		t.Fatalf("AcquireToken() error = %v", err)
	}
	if token != "tok1" {
		t.Errorf("token = %s, want tok1", token)
	}

	want := map[string]string{
		"client_id":     "client-id",
		"client_secret": "client-secret",
		"scope":         "https://graph.microsoft.com/.default",
		"grant_type":    "client_credentials",
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	for k, v := range want {
		if fake.lastTokenForm[k] != v {
			t.Errorf("form[%s] = %q, want %q", k, fake.lastTokenForm[k], v)
		}
	}
	if fake.lastTokenAgent != version.UserAgent() {
		t.Errorf("User-Agent = %q, want %q", fake.lastTokenAgent, version.UserAgent())
	}
}

func TestAcquireToken_Rejected(t *testing.T) {
	fake := newFakeSharePoint(t)
	fake.tokenStatus = http.StatusUnauthorized
	client := NewClient(fake.config())

	_, err := client.AcquireToken(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("AcquireToken() error = %v, want auth error", err)
	}
	if StatusCodeOf(err) != http.StatusUnauthorized {
		t.Errorf("StatusCodeOf() = %d, want 401", StatusCodeOf(err))
	}
	if strings.Contains(err.Error(), "AADSTS") || strings.Contains(err.Error(), "client-secret") {
		t.Errorf("error message leaks detail: %s", err.Error())
	}
	if !strings.Contains(err.Error(), authFailedMessage) {
		t.Errorf("error = %q, want generic message", err.Error())
	}
	if errors.Unwrap(err) == nil {
		t.Error("cause should be available through errors.Unwrap")
	}

	var rErr *oauth2.RetrieveError
	if !errors.As(err, &rErr) {
		t.Fatalf("cause = %v, want *oauth2.RetrieveError", errors.Unwrap(err))
	}
	if rErr.ErrorCode != "invalid_client" {
		t.Errorf("ErrorCode = %q, want invalid_client", rErr.ErrorCode)
	}
}

func TestAcquireToken_EmptyToken(t *testing.T) {
	fake := newFakeSharePoint(t)
	fake.token = ""
	client := NewClient(fake.config())

	if _, err := client.AcquireToken(context.Background()); !IsAuthError(err) {
		t.Errorf("AcquireToken() error = %v, want auth error", err)
	}
}

func TestAcquireToken_NetworkFailure(t *testing.T) {
	fake := newFakeSharePoint(t)
	cfg := fake.config()
	fake.server.Close()
	client := NewClient(cfg)

	if _, err := client.AcquireToken(context.Background()); !IsAuthError(err) {
		t.Errorf("AcquireToken() error = %v, want auth error", err)
	}
}

func TestCreateListItem_RequestContract(t *testing.T) {
	fake := newFakeSharePoint(t)
	client := NewClient(fake.config())

	if err := client.CreateListItem(context.Background(), "tok1", sampleRecord()); err != nil {
		t.Fatalf("CreateListItem() error = %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	h := fake.lastListHeader
	if got := h.Get("Authorization"); got != "Bearer tok1" {
		t.Errorf("Authorization = %q, want Bearer tok1", got)
	}
	if got := h.Get("Accept"); got != ODataVerbose {
		t.Errorf("Accept = %q, want %q", got, ODataVerbose)
	}
	if got := h.Get("Content-Type"); got != ODataVerbose {
		t.Errorf("Content-Type = %q, want %q", got, ODataVerbose)
	}
	if got := h.Get("User-Agent"); got != version.UserAgent() {
		t.Errorf("User-Agent = %q, want %q", got, version.UserAgent())
	}

	body := fake.lastListBody
	if body["Dúvida/Problema"] != "Férias" {
		t.Errorf("body[Dúvida/Problema] = %q, want Férias", body["Dúvida/Problema"])
	}
	if _, ok := body["duvidaProblema"]; ok {
		t.Error("body should not carry duvidaProblema")
	}
	if body["matricula"] != "123" || body["nome"] != "Ana" || body["data"] != "2024-01-01" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestCreateListItem_ServerError(t *testing.T) {
	fake := newFakeSharePoint(t)
	fake.listStatus = http.StatusInternalServerError
	client := NewClient(fake.config())

	err := client.CreateListItem(context.Background(), "tok1", sampleRecord())
	if !IsSubmissionError(err) {
		t.Fatalf("CreateListItem() error = %v, want submission error", err)
	}
	if StatusCodeOf(err) != http.StatusInternalServerError {
		t.Errorf("StatusCodeOf() = %d, want 500", StatusCodeOf(err))
	}
}

func TestSubmitFeedback_Success(t *testing.T) {
	fake := newFakeSharePoint(t)
	client := NewClient(fake.config())
	client.Metrics = metrics.New(prometheus.NewRegistry())

	if err := client.SubmitFeedback(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("SubmitFeedback() error = %v", err)
	}

	if fake.tokenCalls.Load() != 1 || fake.listCalls.Load() != 1 {
		t.Errorf("calls = token %d, list %d, want 1 each", fake.tokenCalls.Load(), fake.listCalls.Load())
	}
}

func TestSubmitFeedback_AuthFailureSkipsList(t *testing.T) {
	fake := newFakeSharePoint(t)
	fake.tokenStatus = http.StatusBadRequest
	client := NewClient(fake.config())

	err := client.SubmitFeedback(context.Background(), sampleRecord())
	if !IsAuthError(err) {
		t.Fatalf("SubmitFeedback() error = %v, want auth error", err)
	}
	if n := fake.listCalls.Load(); n != 0 {
		t.Errorf("list endpoint called %d times, want 0", n)
	}
}

func TestSubmitFeedback_NoRetry(t *testing.T) {
	fake := newFakeSharePoint(t)
	fake.listStatus = http.StatusServiceUnavailable
	client := NewClient(fake.config())

	if err := client.SubmitFeedback(context.Background(), sampleRecord()); !IsSubmissionError(err) {
		t.Fatalf("SubmitFeedback() error = %v, want submission error", err)
	}
	if fake.tokenCalls.Load() != 1 || fake.listCalls.Load() != 1 {
		t.Errorf("calls = token %d, list %d, want 1 each", fake.tokenCalls.Load(), fake.listCalls.Load())
	}
}

func TestSubmitFeedback_RecordsMetrics(t *testing.T) {
	fake := newFakeSharePoint(t)
	fake.listStatus = http.StatusInternalServerError
	client := NewClient(fake.config())
	reg := prometheus.NewRegistry()
	client.Metrics = metrics.New(reg)

	_ = client.SubmitFeedback(context.Background(), sampleRecord())
	fake.listStatus = http.StatusCreated
	_ = client.SubmitFeedback(context.Background(), sampleRecord())

	expected := `
# HELP feedback_submissions_total Feedback submissions by result (success, validation, auth, submission, unknown)
# TYPE feedback_submissions_total counter
feedback_submissions_total{result="submission"} 1
feedback_submissions_total{result="success"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "feedback_submissions_total"); err != nil {
		t.Errorf("metrics mismatch: %v", err)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{NewValidationError([]string{"nome"}), KindValidation},
		{NewAuthError(401, nil), KindAuth},
		{NewSubmissionError(500, "x", nil), KindSubmission},
		{errors.New("plain"), KindUnknown},
		{nil, KindUnknown},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestSubmitFeedback_ReportsSteps(t *testing.T) {
	fake := newFakeSharePoint(t)
	fake.tokenStatus = http.StatusUnauthorized
	client := NewClient(fake.config())

	var events []string
	client.OnStep = func(step Step, done bool, err error) {
		switch {
		case !done:
			events = append(events, "start "+step.String())
		case err != nil:
			events = append(events, "fail "+step.String())
		default:
			events = append(events, "done "+step.String())
		}
	}

	_ = client.SubmitFeedback(context.Background(), sampleRecord())

	want := []string{
		"start Validating fields",
		"done Validating fields",
		"start Acquiring access token",
		"fail Acquiring access token",
	}
	if strings.Join(events, "|") != strings.Join(want, "|") {
		t.Errorf("steps = %v, want %v", events, want)
	}
}
