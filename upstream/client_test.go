package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestForward_PassesBodyAndHeaders(t *testing.T) {
	var gotSig, gotCT string
	var gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotCT = r.Header.Get("Content-Type")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		_, _ = w.Write([]byte(`{"balance":70}`))
	}))
	defer ts.Close()

	c := New(2 * time.Second)
	resp, err := c.Forward(context.Background(), ts.URL, []byte(`{"action":"bet"}`), "application/json", "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if string(resp) != `{"balance":70}` {
		t.Errorf("response = %s", resp)
	}
	if gotSig != "abc123" {
		t.Errorf("signature header = %q", gotSig)
	}
	if gotCT != "application/json" {
		t.Errorf("content type = %q", gotCT)
	}
	if gotBody != `{"action":"bet"}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestForward_NonOKBodyIsRelayed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"insufficient funds"}`))
	}))
	defer ts.Close()

	c := New(2 * time.Second)
	resp, err := c.Forward(context.Background(), ts.URL, nil, "application/json", "")
	if err != nil {
		t.Fatalf("non-2xx with body should not error: %v", err)
	}
	if string(resp) != `{"error":"insufficient funds"}` {
		t.Errorf("response = %s", resp)
	}
}

func TestForward_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer ts.Close()

	c := New(50 * time.Millisecond)
	_, err := c.Forward(context.Background(), ts.URL, nil, "application/json", "")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestForward_EmptyResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := New(2 * time.Second)
	_, err := c.Forward(context.Background(), ts.URL, nil, "application/json", "")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestForward_TransportError(t *testing.T) {
	c := New(time.Second)
	_, err := c.Forward(context.Background(), "http://127.0.0.1:1", nil, "application/json", "")
	if err == nil {
		t.Fatal("expected error for unreachable upstream")
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrEmptyResponse) {
		t.Errorf("connection refused misclassified: %v", err)
	}
}
