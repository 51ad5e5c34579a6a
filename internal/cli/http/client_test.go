package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"solvebox/pkg/api"
	appErr "solvebox/pkg/errors"
	"solvebox/pkg/testutil"
)

func TestRunPostsSubmission(t *testing.T) {
	var got api.RunRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/run" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request failed: %v", err)
		}
		_, _ = w.Write([]byte(`{"passed": true, "details": [{"index": 1, "status": "passed"}]}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	raw, err := client.Run(context.Background(), api.RunRequest{Code: "def solve(x):\n    return x", ProblemID: "day1_echo"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	testutil.AssertEqual(t, got.ProblemID, "day1_echo")
	testutil.AssertEqual(t, got.Code, "def solve(x):\n    return x")
	testutil.AssertTrue(t, raw.Passed != nil && *raw.Passed, "passed should be decoded")
	testutil.AssertEqual(t, len(raw.Details), 1)
}

func TestRunNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := New(base, time.Second).Run(context.Background(), api.RunRequest{Code: "x", ProblemID: "p"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	testutil.AssertTrue(t, appErr.Is(err, appErr.TransportFailed), "error should carry TransportFailed")
}

func TestRunMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Run(context.Background(), api.RunRequest{Code: "x", ProblemID: "p"})
	testutil.AssertTrue(t, appErr.Is(err, appErr.MalformedResponse), "error should carry MalformedResponse")
}

func TestRunUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code": 12000, "message": "problem nope not found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Run(context.Background(), api.RunRequest{Code: "x", ProblemID: "nope"})
	if err == nil {
		t.Fatal("expected status error")
	}
	testutil.AssertTrue(t, appErr.Is(err, appErr.UnexpectedStatus), "error should carry UnexpectedStatus")
	testutil.AssertContains(t, err.Error(), "404")
	testutil.AssertContains(t, err.Error(), "problem nope not found")
}

func TestRunNonSuccessStatusWithRunBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"passed": false, "details": [{"index": 1, "status": "error", "error": "boom"}]}`))
	}))
	defer srv.Close()

	raw, err := New(srv.URL, time.Second).Run(context.Background(), api.RunRequest{Code: "x", ProblemID: "p"})
	if err != nil {
		t.Fatalf("run body on a 500 should be returned, got %v", err)
	}
	if raw.Passed == nil {
		t.Fatal("passed should be decoded")
	}
	testutil.AssertFalse(t, *raw.Passed, "aggregate should be failure")
	testutil.AssertEqual(t, len(raw.Details), 1)
	testutil.AssertContains(t, string(raw.Details[0]), `"boom"`)
}

func TestRunNonSuccessStatusWithPartialBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"passed": false}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Run(context.Background(), api.RunRequest{Code: "x", ProblemID: "p"})
	if err == nil {
		t.Fatal("expected status error")
	}
	testutil.AssertTrue(t, appErr.Is(err, appErr.UnexpectedStatus), "body without details should stay a status error")
	testutil.AssertContains(t, err.Error(), "502")
}

func TestRunTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, 50*time.Millisecond).Run(context.Background(), api.RunRequest{Code: "x", ProblemID: "p"})
	testutil.AssertTrue(t, appErr.Is(err, appErr.TransportFailed), "timeout should surface as TransportFailed")
}

func TestFetchIndexAndProblem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/problems":
			_, _ = w.Write([]byte(`{"code": 10000, "message": "Success", "data": [{"day": "Day 1", "problems": [{"id": "day1_echo", "title": "Echo"}]}]}`))
		case strings.HasPrefix(r.URL.Path, "/api/problems/"):
			_, _ = w.Write([]byte(`{"code": 10000, "message": "Success", "data": {"id": "day1_echo", "title": "Echo", "starter_code": "def solve(x):\n    pass\n", "solved": true}}`))
		case r.URL.Path == "/api/progress":
			_, _ = w.Write([]byte(`{"code": 10000, "message": "Success", "data": {"solved": ["day1_echo"]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	ctx := context.Background()

	days, err := client.FetchIndex(ctx)
	if err != nil {
		t.Fatalf("fetch index failed: %v", err)
	}
	testutil.AssertEqual(t, days, []api.IndexDay{{Day: "Day 1", Problems: []api.ProblemSummary{{ID: "day1_echo", Title: "Echo"}}}})

	view, err := client.FetchProblem(ctx, "day1_echo")
	if err != nil {
		t.Fatalf("fetch problem failed: %v", err)
	}
	testutil.AssertEqual(t, view.StarterCode, "def solve(x):\n    pass\n")
	testutil.AssertTrue(t, view.Solved, "solved flag should be decoded")

	progress, err := client.FetchProgress(ctx)
	if err != nil {
		t.Fatalf("fetch progress failed: %v", err)
	}
	testutil.AssertEqual(t, progress.Solved, []string{"day1_echo"})
}

func TestFetchMissingData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 10000, "message": "Success"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).FetchProgress(context.Background())
	testutil.AssertTrue(t, appErr.Is(err, appErr.MalformedResponse), "missing data should be malformed")
}

func TestSetters(t *testing.T) {
	client := New("http://a", time.Second)
	client.SetBaseURL("http://b")
	client.SetTimeout(0)
	testutil.AssertEqual(t, client.BaseURL(), "http://b")
	testutil.AssertEqual(t, client.Timeout(), time.Second)
	client.SetTimeout(3 * time.Second)
	testutil.AssertEqual(t, client.Timeout(), 3*time.Second)
}

func TestSettersDuringInFlightRun(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		_, _ = w.Write([]byte(`{"passed": true, "details": []}`))
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	done := make(chan error, 1)
	go func() {
		_, err := client.Run(context.Background(), api.RunRequest{Code: "x", ProblemID: "p"})
		done <- err
	}()

	<-arrived
	client.SetBaseURL("http://127.0.0.1:1")
	client.SetTimeout(time.Millisecond)
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("in-flight run should keep its original target: %v", err)
	}
	testutil.AssertEqual(t, client.BaseURL(), "http://127.0.0.1:1")
	testutil.AssertEqual(t, client.Timeout(), time.Millisecond)
}
