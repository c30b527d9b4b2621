package google_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/digitaldrywood/timeexport/internal/google"
)

func TestSheetsClient_ReadRows(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"range": "Sheet1!A1:Z3",
			"majorDimension": "ROWS",
			"values": [
				["Project", "Duration"],
				["Website", "01:30:00", 2.5],
				["Ops"]
			]
		}`)
	}))
	defer srv.Close()

	srvc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	rows, err := google.NewSheetsClient(srvc).ReadRows(context.Background(), "sheet-id", "")
	require.NoError(t, err)

	assert.Contains(t, gotPath, "sheet-id")
	assert.Equal(t, [][]string{
		{"Project", "Duration"},
		{"Website", "01:30:00", "2.5"},
		{"Ops"},
	}, rows)
}

func TestSheetsClient_ReadRowsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"Requested entity was not found."}}`)
	}))
	defer srv.Close()

	srvc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	_, err = google.NewSheetsClient(srvc).ReadRows(context.Background(), "missing", "A:Z")
	assert.Error(t, err)
}
