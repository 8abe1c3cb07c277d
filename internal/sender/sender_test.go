package sender

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSend_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := New(5 * time.Second)
	out := s.Send(context.Background(), srv.URL, []byte(`{}`), http.Header{})

	if !out.Success() {
		t.Fatalf("expected success, got %+v", out)
	}
	if *out.StatusCode != 200 {
		t.Errorf("status = %d, want 200", *out.StatusCode)
	}
}

func TestSend_NonTwoxx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(5 * time.Second)
	out := s.Send(context.Background(), srv.URL, []byte(`{}`), http.Header{})

	if out.Success() {
		t.Fatal("500 should not be a success")
	}
	if out.StatusCode == nil || *out.StatusCode != 500 {
		t.Errorf("expected status 500, got %+v", out.StatusCode)
	}
}

func TestSend_TransportError(t *testing.T) {
	s := New(time.Second)
	out := s.Send(context.Background(), "http://127.0.0.1:1", []byte(`{}`), http.Header{})

	if out.Success() {
		t.Fatal("connection refused should not be a success")
	}
	if out.Err == "" {
		t.Error("expected a transport error message")
	}
	if out.StatusCode != nil {
		t.Error("expected no status code on transport error")
	}
}

func TestSend_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(20 * time.Millisecond)
	out := s.Send(context.Background(), srv.URL, []byte(`{}`), http.Header{})

	if out.Success() {
		t.Fatal("slow endpoint past the timeout should not succeed")
	}
	if out.Err == "" {
		t.Error("expected a timeout error message")
	}
}

func TestSend_BodyTruncated(t *testing.T) {
	huge := strings.Repeat("x", ResponseBodyLimit*4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(huge))
	}))
	defer srv.Close()

	s := New(5 * time.Second)
	out := s.Send(context.Background(), srv.URL, []byte(`{}`), http.Header{})

	if len(out.Body) != ResponseBodyLimit {
		t.Errorf("expected body truncated to %d bytes, got %d", ResponseBodyLimit, len(out.Body))
	}
}

func TestSend_HeadersForwarded(t *testing.T) {
	var gotSig, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Webhook-Signature")
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("X-Webhook-Signature", "deadbeef")

	s := New(5 * time.Second)
	s.Send(context.Background(), srv.URL, []byte(`{}`), headers)

	if gotSig != "deadbeef" {
		t.Errorf("signature header = %q, want deadbeef", gotSig)
	}
	if gotType != "application/json" {
		t.Errorf("content-type header = %q, want application/json", gotType)
	}
}
