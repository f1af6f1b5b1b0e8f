package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mthorne/provincia/api/pkg/combat"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	data := map[string]string{"name": "test", "value": "42"}
	writeJSON(rec, http.StatusOK, data)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	ct := rec.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("expected Content-Type=application/json, got %s", ct)
	}

	var result map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result["name"] != "test" || result["value"] != "42" {
		t.Errorf("unexpected body: %v", result)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, "missing field")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var result map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result["error"] != "missing field" {
		t.Errorf("expected error=missing field, got %s", result["error"])
	}
}

func TestWriteDenial(t *testing.T) {
	tests := []struct {
		name       string
		denial     *combat.Denial
		wantStatus int
	}{
		{"validation denial", &combat.Denial{Reason: combat.DenyOutOfRange, Detail: "too big"}, http.StatusUnprocessableEntity},
		{"protected target", &combat.Denial{Reason: combat.DenyTargetProtected}, http.StatusUnprocessableEntity},
		{"concurrent modification", &combat.Denial{Reason: combat.DenyConcurrentModification}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDenial(rec, tt.denial)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var result struct {
				Rejected bool   `json:"rejected"`
				Reason   string `json:"reason"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if !result.Rejected {
				t.Error("expected rejected=true")
			}
			if result.Reason != string(tt.denial.Reason) {
				t.Errorf("expected reason %s, got %s", tt.denial.Reason, result.Reason)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	body := `{"target_id":"prov-1","spies_sent":30}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var data struct {
		TargetID  string `json:"target_id"`
		SpiesSent int    `json:"spies_sent"`
	}
	if err := decodeJSON(req, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.TargetID != "prov-1" {
		t.Errorf("expected target_id=prov-1, got %s", data.TargetID)
	}
	if data.SpiesSent != 30 {
		t.Errorf("expected spies_sent=30, got %d", data.SpiesSent)
	}
}

func TestDecodeJSONInvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not json"))
	var data struct{}
	if err := decodeJSON(req, &data); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestWriteJSONEmptySlice(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, []struct{}{})

	body := strings.TrimSpace(rec.Body.String())
	if body != "[]" {
		t.Errorf("expected [], got %s", body)
	}
}
