// Package e2e drives a running badge issuer over HTTP with godog scenarios.
package e2e

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext holds per-scenario state shared by every step package.
type TestContext struct {
	BaseURL    string
	AdminToken string
	HTTPClient *http.Client

	lastStatus int
	lastBody   []byte
	lastHeader http.Header

	component string
	resource  string
	owner     string
	bearer    string
}

func NewTestContext(baseURL, adminToken string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AdminToken: adminToken,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears scenario state.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeader = nil
	tc.component = ""
	tc.resource = ""
	tc.owner = ""
	tc.bearer = ""
}

func (tc *TestContext) POST(path string, body any, headers map[string]string) error {
	return tc.do(http.MethodPost, path, body, headers)
}

func (tc *TestContext) PUT(path string, body any, headers map[string]string) error {
	return tc.do(http.MethodPut, path, body, headers)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

// GetResponseField reads a top-level field from the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var m map[string]any
	if err := json.Unmarshal(tc.lastBody, &m); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := m[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return v, nil
}

func (tc *TestContext) GetLastResponseStatus() int         { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte        { return tc.lastBody }
func (tc *TestContext) GetLastResponseHeader() http.Header { return tc.lastHeader }
func (tc *TestContext) GetAdminToken() string              { return tc.AdminToken }

func (tc *TestContext) GetComponent() string  { return tc.component }
func (tc *TestContext) SetComponent(a string) { tc.component = a }
func (tc *TestContext) GetResource() string   { return tc.resource }
func (tc *TestContext) SetResource(a string)  { tc.resource = a }
func (tc *TestContext) GetOwner() string      { return tc.owner }
func (tc *TestContext) SetOwner(a string)     { tc.owner = a }
func (tc *TestContext) GetBearer() string     { return tc.bearer }
func (tc *TestContext) SetBearer(t string)    { tc.bearer = t }

// NewAddress returns a random address of the given entity kind.
func (tc *TestContext) NewAddress(kind string) string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return kind + "_" + hex.EncodeToString(buf)
}
