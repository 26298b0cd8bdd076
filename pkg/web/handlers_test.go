package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/flowsmith/pkg/compiler"
	"github.com/dukex/flowsmith/pkg/content"
	"github.com/dukex/flowsmith/pkg/contracts"
	"github.com/dukex/flowsmith/pkg/ledger"
	"github.com/dukex/flowsmith/pkg/log"
	"github.com/dukex/flowsmith/pkg/mocks"
	"github.com/dukex/flowsmith/pkg/persistence/file"
	"github.com/dukex/flowsmith/pkg/push"
	"github.com/dukex/flowsmith/pkg/services"
	"github.com/dukex/flowsmith/pkg/testutil"
	"github.com/dukex/flowsmith/pkg/validation"
	"github.com/dukex/flowsmith/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	app      *fiber.App
	flows    string
	boundary *mocks.MockBoundary
}

func setupTestApp(t *testing.T) *testAPI {
	t.Helper()

	dir := t.TempDir()
	flows := filepath.Join(dir, "flows")
	repository := file.NewDocumentRepository(flows)
	changes := ledger.New(ledger.NewFileStore(filepath.Join(dir, ledger.DefaultPath)), flows, log.Discard())
	pipeline := services.NewPipeline(
		compiler.New(content.NewRoot(filepath.Join(dir, "content")), log.Discard()),
		validation.New(validation.DefaultConfig()),
		contracts.Default(),
		true,
		log.Discard(),
	)
	boundary := &mocks.MockBoundary{}
	deployer := services.NewDeployer(repository, changes, pipeline, boundary, nil, nil, services.DeployerConfig{
		Timeout:     time.Second,
		ArtifactDir: t.TempDir(),
	}, log.Discard())

	handlers := web.NewAPIHandlers(repository, changes, pipeline, deployer, web.NewValidator())

	return &testAPI{app: web.NewApp(handlers), flows: flows, boundary: boundary}
}

func (a *testAPI) do(t *testing.T, method, target string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

func TestAPI_RootAndHealth(t *testing.T) {
	api := setupTestApp(t)

	status, body := api.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "flowsmith", string(body))

	status, body = api.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"healthy"`)
}

func TestAPI_GetDocuments(t *testing.T) {
	api := setupTestApp(t)
	testutil.WriteDocument(t, api.flows, "orders.json", testutil.CreateTestDocumentWithNodes("Orders"))

	status, body := api.do(t, http.MethodGet, "/documents", nil)
	require.Equal(t, http.StatusOK, status)

	var response struct {
		Documents  []web.DocumentStatus `json:"documents"`
		TotalCount int                  `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &response))
	require.Equal(t, 1, response.TotalCount)
	assert.Equal(t, "orders.json", response.Documents[0].Path)
	assert.Equal(t, "new", response.Documents[0].State)
	assert.NotEmpty(t, response.Documents[0].Fingerprint)
}

func TestAPI_GetCompiled(t *testing.T) {
	api := setupTestApp(t)
	testutil.WriteDocument(t, api.flows, "orders.json", testutil.CreateTestDocumentWithNodes("Orders"))

	broken := testutil.CreateTestDocumentWithNodes("Broken")
	broken.Nodes[1].Type = "core.mockResponse"
	testutil.WriteDocument(t, api.flows, "broken.json", broken)

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedBody   string
	}{
		{name: "compiled", target: "/compiled?document=orders", expectedStatus: http.StatusOK, expectedBody: `"name":"Orders"`},
		{name: "missing parameter", target: "/compiled", expectedStatus: http.StatusBadRequest, expectedBody: "bad_request"},
		{name: "unknown document", target: "/compiled?document=nope", expectedStatus: http.StatusNotFound, expectedBody: "document_not_found"},
		{name: "structural error", target: "/compiled?document=broken.json", expectedStatus: http.StatusUnprocessableEntity, expectedBody: "structural_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := api.do(t, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.expectedStatus, status)
			assert.Contains(t, string(body), tt.expectedBody)
		})
	}
}

func TestAPI_Validate(t *testing.T) {
	api := setupTestApp(t)
	testutil.WriteDocument(t, api.flows, "orders.json", testutil.CreateTestDocumentWithNodes("Orders"))

	status, body := api.do(t, http.MethodPost, "/validate", nil)
	require.Equal(t, http.StatusOK, status)

	var response struct {
		Documents []web.ValidationResponse `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(body, &response))
	require.Len(t, response.Documents, 1)
	assert.True(t, response.Documents[0].Valid)

	status, _ = api.do(t, http.MethodPost, "/validate", web.ValidateRequest{Documents: []string{""}})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_ValidateFixableError(t *testing.T) {
	api := setupTestApp(t)

	doc := testutil.CreateTestDocumentWithNodes("Merge")
	doc.Nodes = append(doc.Nodes, testutil.CreateTestNode(
		testutil.WithName("Merge"),
		testutil.WithType("core.merge"),
		testutil.WithParameters(map[string]any{"mode": "mergeByIndex"}),
	))
	testutil.Connect(doc, "Transform", "Merge")
	testutil.WriteDocument(t, api.flows, "merge.json", doc)

	var response struct {
		Documents []web.ValidationResponse `json:"documents"`
	}

	status, body := api.do(t, http.MethodPost, "/validate", web.ValidateRequest{Fix: false})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &response))
	require.Len(t, response.Documents, 1)
	assert.False(t, response.Documents[0].Valid)
	assert.NotEmpty(t, response.Documents[0].Issues)
	assert.Empty(t, response.Documents[0].Fixes)

	status, body = api.do(t, http.MethodPost, "/validate", web.ValidateRequest{Fix: true})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &response))
	require.Len(t, response.Documents, 1)
	assert.True(t, response.Documents[0].Valid)
	assert.NotEmpty(t, response.Documents[0].Fixes)
}

func TestAPI_Deploy(t *testing.T) {
	api := setupTestApp(t)
	testutil.WriteDocument(t, api.flows, "orders.json", testutil.CreateTestDocumentWithNodes("Orders"))

	api.boundary.On("Push", mock.Anything, mock.Anything).Return(push.Outcome{Success: true}, nil)

	status, body := api.do(t, http.MethodPost, "/deploy", nil)
	require.Equal(t, http.StatusOK, status)

	var response web.DeployResponse
	require.NoError(t, json.Unmarshal(body, &response))
	assert.Equal(t, 1, response.Succeeded)
	require.Len(t, response.Results, 1)
	assert.True(t, response.Results[0].Deployed)

	status, body = api.do(t, http.MethodPost, "/deploy", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &response))
	assert.Empty(t, response.Results)

	status, body = api.do(t, http.MethodPost, "/deploy", web.DeployRequest{All: true})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &response))
	assert.Len(t, response.Results, 1)

	api.boundary.AssertNumberOfCalls(t, "Push", 2)
}
