package forge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/argusverify/argus/internal/credential"
	"github.com/argusverify/argus/internal/model"
	"github.com/argusverify/argus/internal/report"
)

func sampleReports(verdict model.Verdict) []report.FileReport {
	return []report.FileReport{{Filename: "accounts.py", Verdict: verdict, Engine: model.EngineLean}}
}

func TestPublishSkipsWhenNotConfigured(t *testing.T) {
	adapter := New("", "", "", "", nil)
	result := adapter.Publish(context.Background(), sampleReports(model.VerdictVerified), false)

	require.False(t, result.Posted)
	require.Contains(t, result.Reason, "not configured")
}

func TestPublishDryRunNeverCallsNetwork(t *testing.T) {
	secret, err := credential.Guard("token")
	require.NoError(t, err)
	adapter := New("https://gitlab.example.com", "42", "7", "deadbeef", secret)

	result := adapter.Publish(context.Background(), sampleReports(model.VerdictVulnerable), true)

	require.False(t, result.Posted)
	require.Equal(t, []string{"argus:vulnerable"}, result.LabelsApplied)
	require.Contains(t, result.Reason, "Dry run")
}

func TestPublishPostsNoteAndRelabelsMergeRequest(t *testing.T) {
	var sawNote, sawLabelPut bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/42/merge_requests/7", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"labels": []string{"team:payments", "argus:verified"}})
		case http.MethodPut:
			sawLabelPut = true
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			labels, _ := body["labels"].([]any)
			require.Contains(t, labels, "team:payments")
			require.Contains(t, labels, "argus:vulnerable")
			require.NotContains(t, labels, "argus:verified")
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	})
	mux.HandleFunc("/api/v4/projects/42/merge_requests/7/notes", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		sawNote = true
		w.WriteHeader(http.StatusCreated)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	secret, err := credential.Guard("token")
	require.NoError(t, err)
	adapter := New(server.URL, "42", "7", "deadbeefcafef00d", secret)

	result := adapter.Publish(context.Background(), sampleReports(model.VerdictVulnerable), false)

	require.True(t, result.Posted)
	require.True(t, sawNote)
	require.True(t, sawLabelPut)
	require.Equal(t, []string{"argus:vulnerable"}, result.LabelsApplied)
}

func TestConfiguredRequiresEveryField(t *testing.T) {
	secret, err := credential.Guard("token")
	require.NoError(t, err)
	require.False(t, New("", "42", "7", "", secret).Configured())
	require.False(t, New("https://gitlab.example.com", "", "7", "", secret).Configured())
	require.True(t, New("https://gitlab.example.com", "42", "7", "", secret).Configured())
}
