package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/http/middleware"
	"github.com/tbourn/gym-realtime/internal/services"
)

func callRoutes(h *Handlers) func(api *gin.RouterGroup) {
	return func(api *gin.RouterGroup) {
		api.POST("/calls", h.PlaceCall)
		api.GET("/calls", h.ListCalls)
		api.GET("/calls/:id", h.GetCall)
		api.POST("/calls/:id/accept", h.AcceptCall)
		api.POST("/calls/:id/reject", h.RejectCall)
		api.POST("/calls/:id/end", h.EndCall)
	}
}

func TestPlaceCall_PassesCallerAndDefaultsKind(t *testing.T) {
	var got services.PlaceCallParams
	h := New(Deps{Calls: stubCalls{place: func(_ context.Context, p services.PlaceCallParams) (*domain.Call, error) {
		got = p
		return &domain.Call{CallID: "c1", CallerID: p.CallerID, RecipientID: p.RecipientID, Kind: p.Kind, Status: domain.CallRinging}, nil
	}}})
	r := newTestAPI(callRoutes(h))

	w := do(t, r, http.MethodPost, "/api/v1/calls", "member-1", PlaceCallRequest{RecipientID: "coach-1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if got.CallerID != "member-1" || got.Kind != domain.CallVoice {
		t.Fatalf("params = %+v", got)
	}
	if c := decode[domain.Call](t, w); c.CallID != "c1" || c.Status != domain.CallRinging {
		t.Fatalf("body = %+v", c)
	}

	do(t, r, http.MethodPost, "/api/v1/calls", "member-1", PlaceCallRequest{RecipientID: "coach-1", Kind: " VIDEO "})
	if got.Kind != domain.CallVideo {
		t.Fatalf("kind = %q", got.Kind)
	}
	if w := do(t, r, http.MethodPost, "/api/v1/calls", "member-1", `{"kind":"voice"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing recipient: %d", w.Code)
	}
}

func TestPlaceCall_ConflictCarriesBusyState(t *testing.T) {
	h := New(Deps{Calls: stubCalls{place: func(context.Context, services.PlaceCallParams) (*domain.Call, error) {
		return nil, &services.CallStateError{Kind: services.ErrConflict, CallID: "live-1", Status: domain.CallAccepted, UserID: "coach-1"}
	}}})
	r := newTestAPI(callRoutes(h))
	w := do(t, r, http.MethodPost, "/api/v1/calls", "member-1", PlaceCallRequest{RecipientID: "coach-1"})
	resp := decode[ErrorResponse](t, w)
	if w.Code != http.StatusConflict || resp.Code != ErrCodeConflict || resp.State == nil || resp.State.CallID != "live-1" {
		t.Fatalf("%d %+v", w.Code, resp)
	}
	if resp.RequestID != "rid-test" {
		t.Fatalf("request id not echoed: %+v", resp)
	}
}

func TestPlaceCall_IdempotentReplay(t *testing.T) {
	db := newHandlerDB(t)
	calls := &services.CallService{DB: db}
	var placed int32
	h := New(Deps{DB: db, Calls: stubCalls{place: func(ctx context.Context, p services.PlaceCallParams) (*domain.Call, error) {
		atomic.AddInt32(&placed, 1)
		return calls.PlaceCall(ctx, p)
	}}})
	r := newTestAPI(callRoutes(h))
	key := withHeader(middleware.HeaderIdempotencyKey, "call-key-1")

	first := do(t, r, http.MethodPost, "/api/v1/calls", "member-1", PlaceCallRequest{RecipientID: "coach-1"}, key)
	if first.Code != http.StatusCreated {
		t.Fatalf("first: %d %s", first.Code, first.Body.String())
	}
	second := do(t, r, http.MethodPost, "/api/v1/calls", "member-1", PlaceCallRequest{RecipientID: "coach-1"}, key)
	if second.Code != http.StatusCreated || second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay: %d %v", second.Code, second.Header())
	}
	if decode[domain.Call](t, first).CallID != decode[domain.Call](t, second).CallID {
		t.Fatalf("replay returned a different call")
	}
	if n := atomic.LoadInt32(&placed); n != 1 {
		t.Fatalf("PlaceCall ran %d times", n)
	}

	// Without the key the single-live-call rule applies.
	if w := do(t, r, http.MethodPost, "/api/v1/calls", "member-1", PlaceCallRequest{RecipientID: "coach-1"}); w.Code != http.StatusConflict {
		t.Fatalf("second call without key: %d", w.Code)
	}
}

func TestCallTransitions(t *testing.T) {
	ended := time.Date(2025, 6, 1, 9, 2, 5, 0, time.UTC)
	h := New(Deps{Calls: stubCalls{
		accept: func(_ context.Context, id, uid string) (*domain.Call, error) {
			if uid != "coach-1" {
				return nil, services.ErrNotCallRecipient
			}
			return &domain.Call{CallID: id, Status: domain.CallAccepted}, nil
		},
		reject: func(_ context.Context, id, _ string) error {
			return &services.CallStateError{Kind: services.ErrInvalidState, CallID: id, Status: domain.CallAccepted}
		},
		end: func(_ context.Context, id, _ string) (*domain.Call, error) {
			return &domain.Call{CallID: id, Status: domain.CallEnded, EndedAt: &ended, DurationSec: 125}, nil
		},
		get: func(_ context.Context, id, _ string) (*domain.Call, error) {
			if id == "missing" {
				return nil, services.ErrCallNotFound
			}
			return &domain.Call{CallID: id, Status: domain.CallRinging}, nil
		},
	}})
	r := newTestAPI(callRoutes(h))

	if w := do(t, r, http.MethodPost, "/api/v1/calls/c1/accept", "member-1", nil); w.Code != http.StatusForbidden {
		t.Fatalf("caller accept: %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/v1/calls/c1/accept", "coach-1", nil); w.Code != http.StatusOK {
		t.Fatalf("accept: %d", w.Code)
	}
	w := do(t, r, http.MethodPost, "/api/v1/calls/c1/reject", "coach-1", nil)
	if resp := decode[ErrorResponse](t, w); w.Code != http.StatusConflict || resp.State == nil || resp.State.Status != "accepted" {
		t.Fatalf("reject after accept: %d %+v", w.Code, resp)
	}
	w = do(t, r, http.MethodPost, "/api/v1/calls/c1/end", "member-1", nil)
	if c := decode[domain.Call](t, w); w.Code != http.StatusOK || c.DurationSec != 125 {
		t.Fatalf("end: %d %+v", w.Code, c)
	}
	if w := do(t, r, http.MethodGet, "/api/v1/calls/missing", "member-1", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get missing: %d", w.Code)
	}
}

func TestRejectCall_NoContent(t *testing.T) {
	h := New(Deps{Calls: stubCalls{reject: func(context.Context, string, string) error { return nil }}})
	r := newTestAPI(callRoutes(h))
	if w := do(t, r, http.MethodPost, "/api/v1/calls/c1/reject", "coach-1", nil); w.Code != http.StatusNoContent {
		t.Fatalf("reject: %d", w.Code)
	}
}

func TestListCalls_Paginates(t *testing.T) {
	h := New(Deps{Calls: stubCalls{history: func(_ context.Context, uid string, page, pageSize int) ([]domain.Call, int64, error) {
		if uid != "member-1" || page != 2 || pageSize != 1 {
			t.Fatalf("history args %q %d %d", uid, page, pageSize)
		}
		return []domain.Call{{CallID: "c2"}}, 3, nil
	}}})
	r := newTestAPI(callRoutes(h))
	w := do(t, r, http.MethodGet, "/api/v1/calls?page=2&page_size=1", "member-1", nil)
	resp := decode[ListCallsResponse](t, w)
	if w.Code != http.StatusOK || len(resp.Calls) != 1 || resp.Pagination.TotalPages != 3 || !resp.Pagination.HasNext {
		t.Fatalf("%d %+v", w.Code, resp)
	}
}
