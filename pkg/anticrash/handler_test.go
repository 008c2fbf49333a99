package anticrash

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCapture(t *testing.T) {
	err := Capture(func() error { panic("boom") })
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Capture() = %v, want panic error", err)
	}

	want := errors.New("plain")
	if got := Capture(func() error { return want }); got != want {
		t.Errorf("Capture() = %v, want %v", got, want)
	}
}

func TestRecover(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer Recover()()
		panic("recovered")
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected goroutine to recover and finish")
	}
}

func TestHandlePanicCounts(t *testing.T) {
	h := NewHandler("", nil)
	h.maxErrors = 2

	for range 3 {
		h.HandlePanic("x")
	}
	if got := h.ErrorCount(); got != 3 {
		t.Errorf("ErrorCount() = %d, want 3", got)
	}
	if !h.Exceeded() {
		t.Error("Expected Exceeded() after passing maxErrors")
	}
}

func TestCrashRunsShutdown(t *testing.T) {
	shutdown := make(chan struct{})
	exited := make(chan int, 1)

	h := NewHandler("", func() { close(shutdown) })
	h.maxErrors = 0
	h.checkInterval = 10 * time.Millisecond
	h.resetInterval = time.Hour
	h.exitFunc = func(code int) { exited <- code }
	h.Start()
	defer h.Stop()

	h.IncrementError()

	select {
	case code := <-exited:
		if code != 1 {
			t.Errorf("exit code = %d, want 1", code)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected handler to exit after too many errors")
	}
	select {
	case <-shutdown:
	default:
		t.Error("Expected shutdown function to run before exit")
	}
}

func TestReport(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h := NewHandler(srv.URL, nil)
	h.Report(ReportOptions{Error: "Test", Message: "something broke"})

	if !strings.Contains(body, "something broke") || !strings.Contains(body, "Error Test") {
		t.Errorf("webhook body = %s, want report embed", body)
	}
}
