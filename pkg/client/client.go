// Package client is a Go client for the docsign HTTP API.
package client

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

	"docsign/internal/domain"
)

const apiPrefix = "/api/v1"

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	// Compositor renders placements locally for SignAndReplace.
	Compositor domain.PDFCompositor
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = client
	}
}

func WithToken(token string) Option {
	return func(c *Client) {
		c.Token = token
	}
}

func WithCompositor(compositor domain.PDFCompositor) Option {
	return func(c *Client) {
		c.Compositor = compositor
	}
}

func New(baseURL string, opts ...Option) *Client {
	client := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Errors     []string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("docsign: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("docsign: %d: %s", e.StatusCode, e.Message)
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Code       string          `json:"code"`
	Errors     []string        `json:"errors"`
}

type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Tokens struct {
	User         *User  `json:"user,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Document struct {
	ID         string `json:"id"`
	Owner      string `json:"owner"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	FileSize   int64  `json:"fileSize"`
	MimeType   string `json:"mimeType"`
	PageCount  int    `json:"pageCount"`
	Checksum   string `json:"checksum"`
	UploadedAt string `json:"uploadedAt"`
}

type DocumentURL struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	FileSize int64  `json:"fileSize"`
}

type Signature struct {
	ID                string   `json:"id"`
	DocumentID        string   `json:"documentId"`
	UserID            string   `json:"userId"`
	User              *UserRef `json:"user,omitempty"`
	X                 float64  `json:"x"`
	Y                 float64  `json:"y"`
	Page              int      `json:"page"`
	Width             float64  `json:"width"`
	Height            float64  `json:"height"`
	Status            string   `json:"status"`
	Reason            string   `json:"reason"`
	SignatureImageURL string   `json:"signatureImageUrl"`
	RenderedAt        string   `json:"renderedAt,omitempty"`
	CreatedAt         string   `json:"createdAt"`
	UpdatedAt         string   `json:"updatedAt"`
}

// FinalizeResult.RenderError is set when the signatures were finalized but
// the server could not render them into the document.
type FinalizeResult struct {
	MatchedCount  int64     `json:"matchedCount"`
	ModifiedCount int64     `json:"modifiedCount"`
	Document      *Document `json:"document,omitempty"`
	RenderError   string    `json:"renderError,omitempty"`
}

type AuditEntry struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"documentId"`
	User       UserRef `json:"user"`
	Action     string  `json:"action"`
	IP         string  `json:"ip"`
	Timestamp  string  `json:"timestamp"`
}

// Placement is one signature image positioned on a page. X and Y are
// fractions of the page from its top-left corner.
type Placement struct {
	Page   int
	X      float64
	Y      float64
	Width  float64
	Height float64
	Status string
	Reason string
	Image  []byte
	// ImageName defaults to signature.png.
	ImageName string
}

type multipartFile struct {
	field    string
	filename string
	content  []byte
}

func (c *Client) Register(ctx context.Context, name, email, password, role string) (User, error) {
	var user User
	err := c.doJSON(ctx, http.MethodPost, "/users/register", map[string]string{
		"name": name, "email": email, "password": password, "role": role,
	}, &user)
	return user, err
}

// Login stores the returned access token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (Tokens, error) {
	var tokens Tokens
	if err := c.doJSON(ctx, http.MethodPost, "/users/login", map[string]string{
		"email": email, "password": password,
	}, &tokens); err != nil {
		return Tokens{}, err
	}
	c.Token = tokens.AccessToken
	return tokens, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	var tokens Tokens
	if err := c.doJSON(ctx, http.MethodPost, "/users/refresh-token", map[string]string{
		"refreshToken": refreshToken,
	}, &tokens); err != nil {
		return Tokens{}, err
	}
	c.Token = tokens.AccessToken
	return tokens, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodPost, "/users/logout", nil, nil); err != nil {
		return err
	}
	c.Token = ""
	return nil
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.doJSON(ctx, http.MethodGet, "/users/me", nil, &user)
	return user, err
}

func (c *Client) UploadDocument(ctx context.Context, filename string, content []byte) (Document, error) {
	var doc Document
	err := c.doMultipart(ctx, http.MethodPost, "/documents", nil, multipartFile{field: "file", filename: filename, content: content}, &doc)
	return doc, err
}

func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := c.doJSON(ctx, http.MethodGet, "/documents", nil, &docs)
	return docs, err
}

func (c *Client) GetDocument(ctx context.Context, id string) (Document, error) {
	var doc Document
	err := c.doJSON(ctx, http.MethodGet, "/documents/"+url.PathEscape(id), nil, &doc)
	return doc, err
}

func (c *Client) DocumentURL(ctx context.Context, id string) (DocumentURL, error) {
	var loc DocumentURL
	err := c.doJSON(ctx, http.MethodGet, "/documents/"+url.PathEscape(id)+"/url", nil, &loc)
	return loc, err
}

// DownloadDocument returns the stored PDF bytes.
func (c *Client) DownloadDocument(ctx context.Context, id string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/documents/"+url.PathEscape(id)+"/file", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("download document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ReplaceSigned(ctx context.Context, id, filename string, content []byte) (Document, error) {
	var doc Document
	err := c.doMultipart(ctx, http.MethodPatch, "/documents/"+url.PathEscape(id)+"/signed", nil,
		multipartFile{field: "file", filename: filename, content: content}, &doc)
	return doc, err
}

func (c *Client) PlaceSignature(ctx context.Context, documentID string, p Placement) (Signature, error) {
	fields := map[string]string{
		"documentId": documentID,
		"x":          strconv.FormatFloat(p.X, 'f', -1, 64),
		"y":          strconv.FormatFloat(p.Y, 'f', -1, 64),
		"page":       strconv.Itoa(p.Page),
	}
	if p.Width > 0 {
		fields["width"] = strconv.FormatFloat(p.Width, 'f', -1, 64)
	}
	if p.Height > 0 {
		fields["height"] = strconv.FormatFloat(p.Height, 'f', -1, 64)
	}
	if p.Status != "" {
		fields["status"] = p.Status
	}
	if p.Reason != "" {
		fields["reason"] = p.Reason
	}
	name := p.ImageName
	if name == "" {
		name = "signature.png"
	}
	var sig Signature
	err := c.doMultipart(ctx, http.MethodPost, "/signatures", fields, multipartFile{field: "signatureImage", filename: name, content: p.Image}, &sig)
	return sig, err
}

func (c *Client) ListSignatures(ctx context.Context, documentID string) ([]Signature, error) {
	var sigs []Signature
	err := c.doJSON(ctx, http.MethodGet, "/signatures/"+url.PathEscape(documentID), nil, &sigs)
	return sigs, err
}

// Finalize marks every pending placement signed. With render set the server
// also burns the signed placements into the stored PDF.
func (c *Client) Finalize(ctx context.Context, documentID string, render bool) (FinalizeResult, error) {
	var result FinalizeResult
	err := c.doJSON(ctx, http.MethodPost, "/signatures/finalize", map[string]any{
		"documentId": documentID,
		"render":     render,
	}, &result)
	return result, err
}

func (c *Client) AuditLog(ctx context.Context, documentID string) ([]AuditEntry, error) {
	var entries []AuditEntry
	err := c.doJSON(ctx, http.MethodGet, "/audit/"+url.PathEscape(documentID), nil, &entries)
	return entries, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path string, fields map[string]string, file multipartFile, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile(file.field, file.filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(file.content); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c == nil {
		return nil, fmt.Errorf("docsign client is nil")
	}
	if c.BaseURL == "" {
		return nil, fmt.Errorf("docsign base URL is required")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+apiPrefix+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		apiErr.Code = env.Code
		apiErr.Message = env.Message
		apiErr.Errors = env.Errors
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
