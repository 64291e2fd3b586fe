// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-orchestrator/internal/orchestrator"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

type MockResearcher struct {
	mock.Mock
}

func (m *MockResearcher) ConductResearch(ctx context.Context, plan string) (*types.Result, error) {
	args := m.Called(ctx, plan)
	res, _ := args.Get(0).(*types.Result)
	return res, args.Error(1)
}

func (m *MockResearcher) AnswerQuestion(ctx context.Context, question string) (*types.Answer, error) {
	args := m.Called(ctx, question)
	ans, _ := args.Get(0).(*types.Answer)
	return ans, args.Error(1)
}

func newTestServer(t *testing.T, researcher Researcher) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewServer(researcher, 0, nil).Router())
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, &MockResearcher{})

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "ok", payload["status"])
}

func TestMetrics(t *testing.T) {
	server := newTestServer(t, &MockResearcher{})

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), "go_goroutines")
}

func TestResearch(t *testing.T) {
	t.Run("returns the report", func(t *testing.T) {
		m := &MockResearcher{}
		m.On("ConductResearch", mock.Anything, "Solar adoption").Return(&types.Result{
			Report:   &types.Report{ContentPlan: "Solar adoption", Critique: types.Critique{OverallQuality: 8.5}},
			Markdown: "# Executive Summary\n",
		}, nil).Once()
		server := newTestServer(t, m)

		resp, raw := post(t, server.URL+"/v1/research", `{"content_plan": "Solar adoption"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var got types.Result
		require.NoError(t, json.Unmarshal(raw, &got))
		require.Equal(t, "# Executive Summary\n", got.Markdown)
		require.Equal(t, 8.5, got.Report.Critique.OverallQuality)
		m.AssertExpectations(t)
	})

	t.Run("rejects bad requests", func(t *testing.T) {
		m := &MockResearcher{}
		server := newTestServer(t, m)

		for _, body := range []string{`{"content_plan": "  "}`, `{}`, `not json`} {
			resp, raw := post(t, server.URL+"/v1/research", body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
			var e errorResponse
			require.NoError(t, json.Unmarshal(raw, &e))
			require.NotEmpty(t, e.Error)
		}
		m.AssertNotCalled(t, "ConductResearch", mock.Anything, mock.Anything)
	})

	t.Run("orchestrator failure is a 500", func(t *testing.T) {
		m := &MockResearcher{}
		m.On("ConductResearch", mock.Anything, "Solar").Return(nil, errors.New("rendering report: boom")).Once()
		server := newTestServer(t, m)

		resp, raw := post(t, server.URL+"/v1/research", `{"content_plan": "Solar"}`)
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		require.JSONEq(t, `{"error": "rendering report: boom"}`, string(raw))
	})
}

func TestAnswer(t *testing.T) {
	t.Run("returns the answer", func(t *testing.T) {
		m := &MockResearcher{}
		m.On("AnswerQuestion", mock.Anything, "Capital of France?").Return(&types.Answer{
			Question:           "Capital of France?",
			Answer:             "Paris.",
			Sources:            []string{"https://a.example"},
			Confidence:         0.9,
			VerificationStatus: types.StatusVerified,
		}, nil).Once()
		server := newTestServer(t, m)

		resp, raw := post(t, server.URL+"/v1/answer", `{"question": "Capital of France?"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got types.Answer
		require.NoError(t, json.Unmarshal(raw, &got))
		require.Equal(t, "Paris.", got.Answer)
		require.Equal(t, types.StatusVerified, got.VerificationStatus)
		m.AssertExpectations(t)
	})

	t.Run("empty question", func(t *testing.T) {
		server := newTestServer(t, &MockResearcher{})
		resp, _ := post(t, server.URL+"/v1/answer", `{"question": ""}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("sentinel errors map to 400", func(t *testing.T) {
		m := &MockResearcher{}
		m.On("AnswerQuestion", mock.Anything, "x").Return(nil, orchestrator.ErrEmptyQuestion).Once()
		server := newTestServer(t, m)
		resp, _ := post(t, server.URL+"/v1/answer", `{"question": "x"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

// headerCounter records how often a handler writes the status line.
type headerCounter struct {
	*httptest.ResponseRecorder
	writes int
}

func (h *headerCounter) WriteHeader(status int) {
	h.writes++
	h.ResponseRecorder.WriteHeader(status)
}

func TestResearchDeadline(t *testing.T) {
	researcher := &MockResearcher{}
	researcher.On("ConductResearch", mock.Anything, "slow plan").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	handler := NewServer(researcher, 20*time.Millisecond, nil).Router()
	rec := &headerCounter{ResponseRecorder: httptest.NewRecorder()}
	req := httptest.NewRequest(http.MethodPost, "/v1/research", strings.NewReader(`{"content_plan": "slow plan"}`))
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	require.Equal(t, 1, rec.writes, "status written once")
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Contains(t, payload["error"], "deadline exceeded")
	researcher.AssertExpectations(t)
}
