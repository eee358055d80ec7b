package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ivall/sifo/testutil"
)

func TestVerifyDisabledAcceptsEverything(t *testing.T) {
	v := &Verifier{}
	if v.Enabled() {
		t.Error("verifier without secret should report disabled")
	}
	if !v.Verify(context.Background(), "") {
		t.Error("disabled verifier must accept empty token")
	}
	if !v.Verify(context.Background(), "anything") {
		t.Error("disabled verifier must accept any token")
	}
}

func TestVerifyTokenOutcomes(t *testing.T) {
	srv := testutil.NewCaptchaServer(t, "good-token")
	v := &Verifier{Secret: "secret", VerifyURL: srv.URL}

	if !v.Verify(context.Background(), "good-token") {
		t.Error("expected valid token to pass")
	}
	if v.Verify(context.Background(), "bad-token") {
		t.Error("expected invalid token to fail")
	}
}

func TestVerifyEmptyTokenFailsWithoutCallout(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	v := &Verifier{Secret: "secret", VerifyURL: srv.URL}
	if v.Verify(context.Background(), "") {
		t.Error("expected empty token to fail")
	}
	if called {
		t.Error("empty token should not reach the verify endpoint")
	}
}

func TestVerifyUpstreamFailureFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	v := &Verifier{Secret: "secret", VerifyURL: srv.URL}
	if v.Verify(context.Background(), "token") {
		t.Error("malformed upstream response must not count as a pass")
	}

	srv.Close()
	if v.Verify(context.Background(), "token") {
		t.Error("unreachable upstream must not count as a pass")
	}
}
