package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestHandler(t *testing.T, fs *fakeStore) (http.Handler, *Service) {
	t.Helper()
	svc := newTestService(fs)
	return NewHTTPServer(svc, "*").Handler(), svc
}

func bearerFor(t *testing.T, svc *Service, userID string) string {
	t.Helper()
	session, err := svc.CreateSession(context.Background(), userID)
	if err != nil {
		t.Fatalf("CreateSession(%s): %v", userID, err)
	}
	return "Bearer " + session.Token
}

func doRequest(handler http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response not JSON: %v: %s", err, rec.Body.String())
	}
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t, newFakeStore())
	rec := doRequest(handler, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if id := rec.Header().Get("X-Request-ID"); id == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestRequestsWithoutTokenAreUnauthorized(t *testing.T) {
	fs := newFakeStore()
	_, cardID := seedCard(fs)
	handler, _ := newTestHandler(t, fs)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/boards"},
		{http.MethodPut, "/api/cards/" + cardID},
		{http.MethodDelete, "/api/cards/" + cardID},
		{http.MethodGet, "/api/search?q=x"},
	} {
		rec := doRequest(handler, tc.method, tc.path, "", `{"title":"x"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", tc.method, tc.path, rec.Code)
		}
	}
	if fs.applyCardCalls != 0 || fs.deleteCardCalls != 0 {
		t.Errorf("unauthenticated request reached storage: applies=%d deletes=%d", fs.applyCardCalls, fs.deleteCardCalls)
	}
}

func TestGarbageTokenIsUnauthorized(t *testing.T) {
	fs := newFakeStore()
	seedCard(fs)
	handler, _ := newTestHandler(t, fs)

	rec := doRequest(handler, http.MethodGet, "/api/boards", "Bearer not.a.token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCardUpdateRejectsBadBody(t *testing.T) {
	fs := newFakeStore()
	_, cardID := seedCard(fs)
	handler, svc := newTestHandler(t, fs)
	token := bearerFor(t, svc, "usr_owner")

	for _, body := range []string{"", "not json", `"just a string"`} {
		rec := doRequest(handler, http.MethodPut, "/api/cards/"+cardID, token, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
		payload := decodeResponse(t, rec)
		if payload["code"] != "INVALID_BODY" {
			t.Errorf("body %q: code = %v, want INVALID_BODY", body, payload["code"])
		}
	}
	if fs.applyCardCalls != 0 {
		t.Errorf("bad body reached storage: applies=%d", fs.applyCardCalls)
	}
}

func TestCardUpdateRoundTrip(t *testing.T) {
	fs := newFakeStore()
	_, cardID := seedCard(fs)
	handler, svc := newTestHandler(t, fs)
	token := bearerFor(t, svc, "usr_owner")

	rec := doRequest(handler, http.MethodPut, "/api/cards/"+cardID, token, `{"title":"Ship it","isCompleted":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeResponse(t, rec)
	if payload["title"] != "Ship it" {
		t.Errorf("title = %v, want Ship it", payload["title"])
	}
	if payload["isCompleted"] != true {
		t.Errorf("isCompleted = %v, want true", payload["isCompleted"])
	}
	if _, ok := payload["duplicateImages"]; ok {
		t.Error("duplicateImages present without any skipped media")
	}
}

func TestCardUpdateByNonMemberForbidden(t *testing.T) {
	fs := newFakeStore()
	_, cardID := seedCard(fs)
	handler, svc := newTestHandler(t, fs)
	token := bearerFor(t, svc, "usr_other")

	rec := doRequest(handler, http.MethodPut, "/api/cards/"+cardID, token, `{"title":"Hijacked"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if fs.cards[cardID].Title != "Launch" {
		t.Errorf("card title = %q, want unchanged", fs.cards[cardID].Title)
	}
}

func TestCardUpdateMissingCardNotFound(t *testing.T) {
	fs := newFakeStore()
	seedCard(fs)
	handler, svc := newTestHandler(t, fs)
	token := bearerFor(t, svc, "usr_owner")

	rec := doRequest(handler, http.MethodPut, "/api/cards/crd_nope", token, `{"title":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSessionEndpointWithoutToken(t *testing.T) {
	handler, _ := newTestHandler(t, newFakeStore())

	rec := doRequest(handler, http.MethodGet, "/api/session", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["authenticated"] != false {
		t.Errorf("authenticated = %v, want false", payload["authenticated"])
	}
}

func TestSessionRefreshRotation(t *testing.T) {
	fs := newFakeStore()
	seedCard(fs)
	handler, svc := newTestHandler(t, fs)

	session, err := svc.CreateSession(context.Background(), "usr_owner")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	rec := doRequest(handler, http.MethodPost, "/api/session/refresh", "", `{"refreshToken":"`+session.RefreshToken+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeResponse(t, rec)
	if payload["refreshToken"] == session.RefreshToken {
		t.Error("refresh token not rotated")
	}

	rec = doRequest(handler, http.MethodPost, "/api/session/refresh", "", `{"refreshToken":"`+session.RefreshToken+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("stale refresh: status = %d, want 401", rec.Code)
	}
}

func TestBoardLifecycleOverHTTP(t *testing.T) {
	fs := newFakeStore()
	seedCard(fs)
	handler, svc := newTestHandler(t, fs)
	token := bearerFor(t, svc, "usr_owner")

	rec := doRequest(handler, http.MethodPost, "/api/boards", token, `{"title":"Q4 Planning"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeResponse(t, rec)
	boardID, _ := created["id"].(string)
	if boardID == "" {
		t.Fatal("create returned no board id")
	}

	rec = doRequest(handler, http.MethodGet, "/api/boards/"+boardID, token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}

	rec = doRequest(handler, http.MethodDelete, "/api/boards/"+boardID, token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", rec.Code)
	}

	rec = doRequest(handler, http.MethodGet, "/api/boards/"+boardID, token, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", rec.Code)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	fs := newFakeStore()
	seedCard(fs)
	handler, svc := newTestHandler(t, fs)
	token := bearerFor(t, svc, "usr_owner")

	rec := doRequest(handler, http.MethodGet, "/api/widgets/w1", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSearchRejectsBadLimit(t *testing.T) {
	fs := newFakeStore()
	seedCard(fs)
	handler, svc := newTestHandler(t, fs)
	token := bearerFor(t, svc, "usr_owner")

	rec := doRequest(handler, http.MethodGet, "/api/search?q=x&limit=lots", token, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}
