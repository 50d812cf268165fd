package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantMsg    string
	}{
		{"unauthorized", Unauthorized, http.StatusUnauthorized, MsgUnauthenticated},
		{"forbidden", Forbidden, http.StatusForbidden, MsgForbidden},
		{"not found", func(w http.ResponseWriter) { NotFound(w, MsgNotFound) }, http.StatusNotFound, MsgNotFound},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, MsgImageFormat) }, http.StatusBadRequest, MsgImageFormat},
		{"too large", TooLarge, http.StatusRequestEntityTooLarge, MsgTooLarge},
		{"internal", InternalError, http.StatusInternalServerError, MsgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var body Status
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != "error" || body.Message != tt.wantMsg {
				t.Errorf("body = %+v, want error/%q", body, tt.wantMsg)
			}
		})
	}
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, "Barang updated")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != `{"status":"success","message":"Barang updated"}`+"\n" {
		t.Errorf("body = %q", got)
	}
}

func TestOK_RawPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, []int{})

	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want []", got)
	}
}
