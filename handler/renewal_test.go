package handler

import (
	"net/http"
	"testing"
)

func TestRenewalHandlerFlow(t *testing.T) {
	srv := newTestServer(t)
	bdm := srv.token("BDM")
	id := srv.createActive(srv.token("SalesManager"), 40, 60)

	w := srv.do("POST", "/api/contracts/"+id+"/renewals", bdm, map[string]any{"notes": "price uplift"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	renewal := decode(t, w)
	renewalID := renewal["id"].(string)
	if renewal["status"] != "pending" {
		t.Errorf("Expected status pending, got %v", renewal["status"])
	}

	w = srv.do("POST", "/api/contracts/"+id+"/renewals", bdm, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409 for a second open renewal, got %d", w.Code)
	}
	resp := decode(t, w)
	if resp["code"] != "conflicting_renewal" {
		t.Errorf("Expected code conflicting_renewal, got %v", resp["code"])
	}
	if resp["existing_renewal_id"] != renewalID {
		t.Errorf("Expected existing renewal %s, got %v", renewalID, resp["existing_renewal_id"])
	}

	if w := srv.do("POST", "/api/renewals/"+renewalID+"/start", bdm, nil); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	w = srv.do("GET", "/api/renewals/"+renewalID, srv.token("SalesRep"), nil)
	if status := decode(t, w)["status"]; status != "in_progress" {
		t.Errorf("Expected status in_progress, got %v", status)
	}

	if w := srv.do("POST", "/api/renewals/"+renewalID+"/complete", srv.token("SalesRep"), nil); w.Code != http.StatusForbidden {
		t.Errorf("Expected sales rep to be denied, got %d", w.Code)
	}

	w = srv.do("POST", "/api/renewals/"+renewalID+"/complete", bdm, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if status := decode(t, w)["status"]; status != "completed" {
		t.Errorf("Expected status completed, got %v", status)
	}

	w = srv.do("GET", "/api/contracts/"+id, bdm, nil)
	if status := decode(t, w)["status"]; status != "renewed" {
		t.Errorf("Expected contract renewed, got %v", status)
	}

	w = srv.do("POST", "/api/renewals/"+renewalID+"/cancel", bdm, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 cancelling a completed renewal, got %d", w.Code)
	}

	w = srv.do("GET", "/api/contracts/"+id+"/renewals", bdm, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if renewals := decode(t, w)["renewals"].([]any); len(renewals) != 1 {
		t.Errorf("Expected 1 renewal, got %d", len(renewals))
	}
}

func TestRenewalHandlerRequiresActiveContract(t *testing.T) {
	srv := newTestServer(t)
	manager := srv.token("SalesManager")

	w := srv.do("POST", "/api/contracts", manager, contractBody("Draft", 40, 60))
	id := decode(t, w)["id"].(string)

	w = srv.do("POST", "/api/contracts/"+id+"/renewals", manager, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", w.Code)
	}
	if code := decode(t, w)["code"]; code != "invalid_state" {
		t.Errorf("Expected code invalid_state, got %v", code)
	}

	if w := srv.do("POST", "/api/contracts/missing/renewals", manager, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w := srv.do("GET", "/api/renewals/missing", manager, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
