// Package rateapi is a client for the invoice backend: vendor rate cards,
// rate card uploads and invoice parsing.
package rateapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-agent/internal/invoice"
	"github.com/sells-group/invoice-agent/internal/ratecard"
	"github.com/sells-group/invoice-agent/internal/resilience"
)

const defaultBaseURL = "http://localhost:8080"

// Client defines the backend operations.
type Client interface {
	ListVendors(ctx context.Context) ([]Vendor, error)
	GetVendor(ctx context.Context, vendorCode string) (*VendorDetail, error)
	GetVersion(ctx context.Context, vendorCode, versionID string) (*ratecard.RateCard, error)
	UploadRateCard(ctx context.Context, filename string, r io.Reader) (*UploadResult, error)
	ParseInvoice(ctx context.Context, req ParseInvoiceRequest) (*invoice.Report, error)
}

// Vendor is a vendor with at least one uploaded rate card.
type Vendor struct {
	VendorCode string `json:"vendor_code"`
	VendorName string `json:"vendor_name"`
}

// Version is one uploaded rate card version.
type Version struct {
	VersionID  string `json:"version_id"`
	UploadedAt string `json:"uploaded_at"`
}

// VendorDetail lists a vendor's rate card versions, newest first.
type VendorDetail struct {
	VendorCode        string    `json:"vendor_code"`
	VendorName        string    `json:"vendor_name"`
	AvailableVersions []Version `json:"available_versions"`
}

// UploadResult identifies the rate card version created by an upload.
type UploadResult struct {
	VendorCode string `json:"vendor_code,omitempty"`
	VendorName string `json:"vendor_name"`
	VersionID  string `json:"version_id"`
}

// ParseInvoiceRequest is an invoice PDF to check against a rate card
// version.
type ParseInvoiceRequest struct {
	Filename   string
	File       io.Reader
	VendorCode string
	VersionID  string
	// EnableOCR turns on OCR-based tamper detection.
	EnableOCR bool
}

// BackendError is a request the backend answered with success=false.
type BackendError struct {
	Op      string
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rateapi: %s: backend reported failure", e.Op)
	}
	return fmt.Sprintf("rateapi: %s: %s", e.Op, e.Message)
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default backend URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry sets the retry policy for read requests. Uploads are never
// retried.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a backend client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ListVendors(ctx context.Context) ([]Vendor, error) {
	var resp struct {
		envelope
		Vendors []Vendor `json:"vendors"`
	}
	if err := c.get(ctx, "list vendors", "/api/rates", &resp, &resp.envelope); err != nil {
		return nil, err
	}
	return resp.Vendors, nil
}

func (c *httpClient) GetVendor(ctx context.Context, vendorCode string) (*VendorDetail, error) {
	var resp struct {
		envelope
		VendorDetail
	}
	path := "/api/rates/" + url.PathEscape(vendorCode)
	if err := c.get(ctx, "get vendor", path, &resp, &resp.envelope); err != nil {
		return nil, err
	}
	if resp.VendorCode == "" {
		resp.VendorCode = vendorCode
	}
	return &resp.VendorDetail, nil
}

func (c *httpClient) GetVersion(ctx context.Context, vendorCode, versionID string) (*ratecard.RateCard, error) {
	var resp struct {
		envelope
		ratecard.RateCard
	}
	path := "/api/rates/" + url.PathEscape(vendorCode) + "/versions/" + url.PathEscape(versionID)
	if err := c.get(ctx, "get version", path, &resp, &resp.envelope); err != nil {
		return nil, err
	}
	return &resp.RateCard, nil
}

func (c *httpClient) UploadRateCard(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	body, contentType, err := buildForm(func(w *multipart.Writer) error {
		return writeFile(w, "rate_file", filename, r)
	})
	if err != nil {
		return nil, eris.Wrap(err, "rateapi: build upload form")
	}

	var resp struct {
		envelope
		UploadResult
	}
	if err := c.post(ctx, "upload rate card", "/api/rates/upload", body, contentType, &resp, &resp.envelope); err != nil {
		return nil, err
	}
	return &resp.UploadResult, nil
}

func (c *httpClient) ParseInvoice(ctx context.Context, req ParseInvoiceRequest) (*invoice.Report, error) {
	body, contentType, err := buildForm(func(w *multipart.Writer) error {
		if err := writeFile(w, "invoice_file", req.Filename, req.File); err != nil {
			return err
		}
		fields := [][2]string{
			{"vendor_code", req.VendorCode},
			{"version_id", req.VersionID},
			{"enable_ocr", strconv.FormatBool(req.EnableOCR)},
		}
		for _, f := range fields {
			if err := w.WriteField(f[0], f[1]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "rateapi: build invoice form")
	}

	var resp struct {
		envelope
		Data *invoice.Report `json:"data"`
	}
	if err := c.post(ctx, "parse invoice", "/api/invoices/parse", body, contentType, &resp, &resp.envelope); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &BackendError{Op: "parse invoice", Message: "response has no data"}
	}
	return resp.Data, nil
}

func (c *httpClient) get(ctx context.Context, op, path string, out any, env *envelope) error {
	retry := c.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("rateapi", op)
	}
	return resilience.Do(ctx, retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return eris.Wrapf(err, "rateapi: %s: create request", op)
		}
		return c.do(req, op, out, env)
	})
}

func (c *httpClient) post(ctx context.Context, op, path string, body []byte, contentType string, out any, env *envelope) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrapf(err, "rateapi: %s: create request", op)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, op, out, env)
}

func (c *httpClient) do(req *http.Request, op string, out any, env *envelope) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "rateapi: %s: send request", op)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "rateapi: %s: read response", op)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		var e envelope
		if json.Unmarshal(respBody, &e) == nil && e.Message != "" {
			msg = e.Message
		}
		return eris.Wrapf(&resilience.StatusError{Service: "rateapi", StatusCode: resp.StatusCode, Body: msg}, "rateapi: %s", op)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrapf(err, "rateapi: %s: decode response", op)
	}
	if !env.Success {
		return &BackendError{Op: op, Message: env.Message}
	}
	return nil
}

func buildForm(fill func(w *multipart.Writer) error) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := fill(w); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field, filename string, r io.Reader) error {
	if r == nil {
		return eris.Errorf("%s: no file", field)
	}
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}
