package apierrors

import (
	"net/http"
	"testing"
)

func TestRegisteredCodes(t *testing.T) {
	tests := []struct {
		code       string
		wantStatus int
	}{
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeTicketNotFound, http.StatusNotFound},
		{CodeTicketResolved, http.StatusConflict},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeMessageRejected, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e, ok := Registry.Get(tt.code)
			if !ok {
				t.Fatalf("code %s not registered", tt.code)
			}
			if e.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", e.HTTPStatus, tt.wantStatus)
			}
			if e.Message == "" {
				t.Error("registered code has empty message")
			}
		})
	}
}

func TestUnknownCodeFallback(t *testing.T) {
	if got := Registry.HTTPStatus("nope:missing"); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus for unknown code = %d, want 500", got)
	}
	if got := Registry.Message("nope:missing"); got != "nope:missing" {
		t.Errorf("Message for unknown code = %q, want the code itself", got)
	}
}
