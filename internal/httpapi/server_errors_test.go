package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

var errBackendDown = errors.New("backend down")

type failingStore struct {
	readErr  error
	writeErr error
}

func (store *failingStore) ReadAll(context.Context, []string) (map[string]string, error) {
	if store.readErr != nil {
		return nil, store.readErr
	}
	return map[string]string{}, nil
}

func (store *failingStore) WriteAll(context.Context, map[string]string) error {
	return store.writeErr
}

func TestStateReturnsBadGatewayWhenStoreFails(t *testing.T) {
	environment := newTestEnvironment(t, &failingStore{readErr: errBackendDown}, nil)
	ctx, recorder := newTestContext(http.MethodGet, "/api/state", nil)

	environment.handler.handleState(ctx)

	assertErrorCode(t, recorder, http.StatusBadGateway, "store_error")
}

func TestSubmitReturnsBadGatewayWhenWriteFails(t *testing.T) {
	environment := newTestEnvironment(t, &failingStore{writeErr: errBackendDown}, nil)
	ctx, recorder := newTestContext(http.MethodPost, "/api/reflections", map[string]any{"text": "lost"})

	environment.handler.handleSubmit(ctx)

	assertErrorCode(t, recorder, http.StatusBadGateway, "store_error")
}

func TestPurchaseReturnsBadGatewayWhenWriteFails(t *testing.T) {
	environment := newTestEnvironment(t, &failingStore{writeErr: errBackendDown}, nil)
	ctx, recorder := newTestContext(http.MethodPost, "/api/purchases", map[string]any{"itemId": "blue"})

	environment.handler.handlePurchase(ctx)

	assertErrorCode(t, recorder, http.StatusBadGateway, "store_error")
}

func TestEquipRejectsUnknownItem(t *testing.T) {
	environment := newTestEnvironment(t, &failingStore{}, nil)
	ctx, recorder := newTestContext(http.MethodPost, "/api/equip", map[string]any{"itemId": "plaid"})

	environment.handler.handleEquip(ctx)

	assertErrorCode(t, recorder, http.StatusNotFound, "unknown_item")
}

func TestSubmitRejectsMalformedBody(t *testing.T) {
	environment := newTestEnvironment(t, &failingStore{}, nil)
	ctx, recorder := newTestContext(http.MethodPost, "/api/reflections", nil)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/api/reflections", bytes.NewBufferString("{"))

	environment.handler.handleSubmit(ctx)

	assertErrorCode(t, recorder, http.StatusBadRequest, "invalid_payload")
}

func TestEventHubDropsForSlowSubscribers(t *testing.T) {
	hub := newEventHub()
	events, unsubscribe := hub.subscribe()
	for index := 0; index < subscriberBufferSize+3; index++ {
		hub.publish(snapshotPayload{Display: displayPayload{EntryCount: index}})
	}
	if len(events) != subscriberBufferSize {
		t.Fatalf("expected %d buffered snapshots, got %d", subscriberBufferSize, len(events))
	}
	if first := <-events; first.Display.EntryCount != 0 {
		t.Fatalf("expected oldest snapshot first, got %d", first.Display.EntryCount)
	}
	unsubscribe()
	unsubscribe()
	if hub.subscriberCount() != 0 {
		t.Fatalf("expected no subscribers after unsubscribe")
	}
	hub.publish(snapshotPayload{})
}

func TestNewHTTPHandlerRequiresDependencies(t *testing.T) {
	if _, err := newHTTPHandler(Config{}, Dependencies{}); !errors.Is(err, errMissingDependency) {
		t.Fatalf("expected missing dependency error, got %v", err)
	}
}

func newTestContext(method, path string, payload map[string]any) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(method, path, payloadReader(payload))
	ctx.Request.Header.Set("Content-Type", "application/json")
	return ctx, recorder
}

func payloadReader(payload map[string]any) io.Reader {
	if payload == nil {
		return http.NoBody
	}
	data, _ := json.Marshal(payload)
	return bytes.NewReader(data)
}

func assertErrorCode(t *testing.T, recorder *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if recorder.Code != wantStatus {
		t.Fatalf("expected status %d, got %d: %s", wantStatus, recorder.Code, recorder.Body.String())
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != wantCode {
		t.Fatalf("expected code %q, got %q", wantCode, body.Error.Code)
	}
}
