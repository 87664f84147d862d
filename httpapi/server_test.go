package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/smart-shop/catalog"
	"github.com/bububa/smart-shop/inventory"
	"github.com/bububa/smart-shop/matcher"
	"github.com/bububa/smart-shop/receipt"
	"github.com/bububa/smart-shop/reconcile"
	"github.com/bububa/smart-shop/schema"
)

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type stubExtractor struct {
	receipt *receipt.Receipt
	err     error
}

func (s stubExtractor) Extract(context.Context, schema.Image) (*receipt.Receipt, error) {
	return s.receipt, s.err
}

type stubOracle struct{}

func (stubOracle) Ask(_ context.Context, name string, _ []matcher.Candidate) (string, error) {
	if strings.Contains(strings.ToLower(name), "milk") {
		return "dairy_eggs:milk", nil
	}
	return matcher.NewItemAnswer, nil
}

func newTestServer(t *testing.T, extractor receipt.Extractor, opts ...Option) *httptest.Server {
	t.Helper()
	tpl, err := catalog.DefaultTemplate()
	require.NoError(t, err)
	store := catalog.NewStore(catalog.NewFile(filepath.Join(t.TempDir(), "grocery_list.json")), tpl)
	t.Cleanup(store.Close)
	svc := inventory.New(store, reconcile.New(store, matcher.New(stubOracle{})), inventory.WithExtractor(extractor))
	srv := httptest.NewServer(New(svc, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func upload(t *testing.T, url string, field string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "receipt.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	resp, err := http.Post(url+"/api/process-inventory", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func TestHomeAndHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	var info map[string]any
	decode(t, resp, &info)
	assert.Equal(t, ServiceName, info["service"])

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var health map[string]string
	decode(t, resp, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.NotEmpty(t, health["timestamp"])

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProcessInventory(t *testing.T) {
	srv := newTestServer(t, stubExtractor{receipt: &receipt.Receipt{
		Date:  "2026-05-01",
		Items: []receipt.LineItem{{Item: "2% Milk", Quantity: 2, Price: 7.98}, {Item: "Kombucha", Quantity: 1, Price: 3.5}},
	}})

	resp := upload(t, srv.URL, "image", pngImage)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got processResponse
	decode(t, resp, &got)
	assert.Equal(t, "2026-05-01", got.Date)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "2 @ $7.98", got.Items[0].Quantity)
	assert.Equal(t, "dairy_eggs", got.Items[0].Category)
	assert.Equal(t, catalog.CustomCategory, got.Items[1].Category)
	require.NotNil(t, got.Reconciliation)
	assert.Equal(t, 1, got.Reconciliation.Matched)
	assert.Equal(t, 1, got.Reconciliation.Created)

	// alternate field name
	resp = upload(t, srv.URL, "file", pngImage)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProcessInventoryErrors(t *testing.T) {
	srv := newTestServer(t, stubExtractor{err: receipt.ErrNoItems}, WithMaxUploadSize(64))

	resp := upload(t, srv.URL, "photo", pngImage)
	var e errorResponse
	decode(t, resp, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No image file provided", e.Error)

	resp = upload(t, srv.URL, "image", []byte("plain text"))
	decode(t, resp, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid image file", e.Error)

	resp = upload(t, srv.URL, "image", bytes.Repeat(pngImage, 3))
	decode(t, resp, &e)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = upload(t, srv.URL, "image", pngImage)
	var got processResponse
	decode(t, resp, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, got.Items)
	assert.NotEmpty(t, got.Note)
	assert.Nil(t, got.Reconciliation)
}

func TestProcessInventoryExtractionFailure(t *testing.T) {
	srv := newTestServer(t, stubExtractor{err: receipt.ErrExtraction})
	resp := upload(t, srv.URL, "image", pngImage)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestReconcileAndShoppingList(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/reconcile", "application/json", strings.NewReader(`{"items":[{"item":"2% Milk","quantity":1,"price":3.99}]}`))
	require.NoError(t, err)
	var report reconcile.Report
	decode(t, resp, &report)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, report.Matched)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req, err := http.NewRequest(method, srv.URL+"/api/generate-shopping-list", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		var got struct {
			CurrentInventory struct {
				Items []struct {
					Name       string `json:"name"`
					Quantity   string `json:"quantity"`
					Percentage int    `json:"percentage"`
				} `json:"items"`
				Total int `json:"total"`
			} `json:"current_inventory"`
		}
		decode(t, resp, &got)
		require.Equal(t, 1, got.CurrentInventory.Total, method)
		assert.Equal(t, "1 gallon", got.CurrentInventory.Items[0].Quantity)
		assert.Equal(t, 25, got.CurrentInventory.Items[0].Percentage)
	}

	resp, err = http.Post(srv.URL+"/api/reconcile", "application/json", strings.NewReader(`{"items":[]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/reconcile", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGroceryListLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/get-grocery-list")
	require.NoError(t, err)
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)
	var doc map[string]json.RawMessage
	decode(t, resp, &doc)
	assert.Contains(t, doc, "categories")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/get-grocery-list", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", etag)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/upload-grocery-list", "application/json", strings.NewReader(`{"items":{}}`))
	require.NoError(t, err)
	var e errorResponse
	decode(t, resp, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, e.Error, "categories")

	resp, err = http.Post(srv.URL+"/api/upload-grocery-list", "application/json", strings.NewReader(`{"categories":{"pantry":{"rice":{"quantity":1,"max_per_week":2}}}}`))
	require.NoError(t, err)
	var ok successResponse
	decode(t, resp, &ok)
	assert.Equal(t, "success", ok.Status)

	resp, err = http.Get(srv.URL + "/api/get-grocery-list")
	require.NoError(t, err)
	assert.NotEqual(t, etag, resp.Header.Get("ETag"))
	var c catalog.Catalog
	decode(t, resp, &c)
	assert.Equal(t, 1, c.Len())

	resp, err = http.Post(srv.URL+"/api/reset-grocery-list", "application/json", nil)
	require.NoError(t, err)
	decode(t, resp, &ok)
	assert.Equal(t, "success", ok.Status)

	resp, err = http.Get(srv.URL + "/api/get-grocery-list")
	require.NoError(t, err)
	var reset catalog.Catalog
	decode(t, resp, &reset)
	_, found := reset.Get("dairy_eggs", "milk")
	assert.True(t, found)
}

func TestExportShoppingList(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/api/export-shopping-list")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, nil, WithAllowedOrigins("https://shop.example.com"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/process-inventory", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://shop.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/api/reset-grocery-list")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
