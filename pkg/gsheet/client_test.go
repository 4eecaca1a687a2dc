package gsheet

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// recordedCall is one request the fake Google backend served.
type recordedCall struct {
	method string
	path   string
	body   string
}

type fakeBackend struct {
	calls []recordedCall

	// respond overrides the default 200 {} response. Keys are matched as
	// substrings of "METHOD path".
	respond map[string]func(w http.ResponseWriter)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{respond: make(map[string]func(http.ResponseWriter))}
}

func (f *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.calls = append(f.calls, recordedCall{
			method: r.Method,
			path:   r.URL.Path,
			body:   string(body),
		})

		key := r.Method + " " + r.URL.Path
		for fragment, respond := range f.respond {
			if strings.Contains(key, fragment) {
				respond(w)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})
}

func (f *fakeBackend) paths() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.path
	}
	return out
}

func newTestClient(t *testing.T, backend *fakeBackend) Publisher {
	t.Helper()

	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	ctx := context.Background()
	sheetsSvc, err := sheets.NewService(ctx,
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	driveSvc, err := drive.NewService(ctx,
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	return NewClientWithServices(sheetsSvc, driveSvc)
}

func existingSheetsResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{
		"sheets": [
			{"properties": {"sheetId": 0, "title": "Leads"}},
			{"properties": {"sheetId": 1, "title": "Opportunities"}}
		]
	}`))
}

func TestPublish_ClearsBeforeWriting(t *testing.T) {
	backend := newFakeBackend()
	backend.respond["GET /v4/spreadsheets/sheet-1"] = existingSheetsResponse

	pub := newTestClient(t, backend)

	leadGrid := [][]string{{"Display Name"}, {"Acme"}}
	oppGrid := [][]string{{"Lead Name"}}
	require.NoError(t, pub.Publish(context.Background(), "sheet-1", leadGrid, oppGrid))

	var clears, batchWrite []int
	for i, c := range backend.calls {
		switch {
		case strings.HasSuffix(c.path, ":clear"):
			clears = append(clears, i)
		case strings.HasSuffix(c.path, "/values:batchUpdate"):
			batchWrite = append(batchWrite, i)
		}
	}
	require.Len(t, clears, 2, "one clear per sheet, got %v", backend.paths())
	require.Len(t, batchWrite, 1)
	for _, ci := range clears {
		assert.Less(t, ci, batchWrite[0], "clears happen before the write")
	}

	var req sheets.BatchUpdateValuesRequest
	require.NoError(t, json.Unmarshal([]byte(backend.calls[batchWrite[0]].body), &req))
	assert.Equal(t, "RAW", req.ValueInputOption)
	require.Len(t, req.Data, 2)
	assert.Equal(t, "Leads!A1", req.Data[0].Range)
	assert.Equal(t, "Opportunities!A1", req.Data[1].Range)
	assert.Equal(t, "Acme", req.Data[0].Values[1][0])
}

func TestPublish_AddsMissingSheets(t *testing.T) {
	backend := newFakeBackend()
	// The document only carries the default Sheet1.
	backend.respond["GET /v4/spreadsheets/sheet-1"] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sheets": [{"properties": {"sheetId": 0, "title": "Sheet1"}}]}`))
	}

	pub := newTestClient(t, backend)
	require.NoError(t, pub.Publish(context.Background(), "sheet-1", [][]string{{"h"}}, [][]string{{"h"}}))

	var addSheetBody string
	for _, c := range backend.calls {
		if strings.HasSuffix(c.path, "/spreadsheets/sheet-1:batchUpdate") &&
			strings.Contains(c.body, "addSheet") {
			addSheetBody = c.body
			break
		}
	}
	require.NotEmpty(t, addSheetBody, "expected an addSheet batch update, got %v", backend.paths())
	assert.Contains(t, addSheetBody, `"Leads"`)
	assert.Contains(t, addSheetBody, `"Opportunities"`)
}

func TestPublish_ClearFailureFailsTheRun(t *testing.T) {
	backend := newFakeBackend()
	backend.respond["GET /v4/spreadsheets/sheet-1"] = existingSheetsResponse
	backend.respond[":clear"] = func(w http.ResponseWriter) {
		http.Error(w, `{"error": {"code": 500}}`, http.StatusInternalServerError)
	}

	pub := newTestClient(t, backend)
	err := pub.Publish(context.Background(), "sheet-1", [][]string{{"h"}}, [][]string{{"h"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear")
}

func TestPublish_CosmeticFailureIsSwallowed(t *testing.T) {
	backend := newFakeBackend()
	backend.respond["GET /v4/spreadsheets/sheet-1"] = existingSheetsResponse
	// Auto-resize and formatting batches fail; the publish must not.
	backend.respond["POST /v4/spreadsheets/sheet-1:batchUpdate"] = func(w http.ResponseWriter) {
		http.Error(w, `{"error": {"code": 400}}`, http.StatusBadRequest)
	}

	pub := newTestClient(t, backend)
	err := pub.Publish(context.Background(), "sheet-1", [][]string{{"h"}}, [][]string{{"h"}})

	assert.NoError(t, err)
}

func TestCreate(t *testing.T) {
	backend := newFakeBackend()
	backend.respond["POST /v4/spreadsheets"] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId": "new-sheet"}`))
	}

	pub := newTestClient(t, backend)
	id, err := pub.Create(context.Background(), "Close Leads - 2024-05-01")

	require.NoError(t, err)
	assert.Equal(t, "new-sheet", id)

	require.NotEmpty(t, backend.calls)
	created := backend.calls[0]
	assert.Contains(t, created.body, `"Close Leads - 2024-05-01"`)
	assert.Contains(t, created.body, `"frozenRowCount":1`)
	assert.Contains(t, created.body, `"Leads"`)
	assert.Contains(t, created.body, `"Opportunities"`)

	// Link access for anyone with the URL.
	last := backend.calls[len(backend.calls)-1]
	assert.Contains(t, last.path, "/files/new-sheet/permissions")
	assert.Contains(t, last.body, `"anyone"`)
	assert.Contains(t, last.body, `"writer"`)
}

func TestShare(t *testing.T) {
	backend := newFakeBackend()

	pub := newTestClient(t, backend)
	require.NoError(t, pub.Share(context.Background(), "sheet-1", "ops@example.com"))

	require.Len(t, backend.calls, 1)
	call := backend.calls[0]
	assert.Contains(t, call.path, "/files/sheet-1/permissions")

	var perm drive.Permission
	require.NoError(t, json.Unmarshal([]byte(call.body), &perm))
	assert.Equal(t, "user", perm.Type)
	assert.Equal(t, "writer", perm.Role)
	assert.Equal(t, "ops@example.com", perm.EmailAddress)
}

func TestURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"https://docs.google.com/spreadsheets/d/abc123/edit",
		URL("abc123"),
	)
}
