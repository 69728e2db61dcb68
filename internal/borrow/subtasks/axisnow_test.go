package subtasks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/libshelf/borrowd/internal/accounts"
	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/drm"
	"github.com/libshelf/borrowd/internal/opds"
)

type fakeAxisNow struct {
	fulfill func(ctx context.Context, token *drm.AxisNowToken) (*drm.AxisNowFulfillment, error)
}

func (f *fakeAxisNow) Fulfill(ctx context.Context, token *drm.AxisNowToken) (*drm.AxisNowFulfillment, error) {
	return f.fulfill(ctx, token)
}

func axisNowTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", opds.TypeAxisNow)
		io.WriteString(w, `{"book_vault_uuid":"vault-1","isbn":"9780000000001"}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func runAxisNow(bc *borrow.Context, uri string) borrow.Outcome {
	bc.SetPath(borrow.Path{Elements: []borrow.PathElement{
		{Type: opds.TypeAxisNow, Target: uri},
		{Type: opds.TypeEPUB},
	}})
	elem, _ := bc.NextElement()
	return (&AxisNow{}).Execute(bc, elem)
}

func TestAxisNow(t *testing.T) {
	server := axisNowTokenServer(t)

	bc, _, handle := newTestContext(t, testAccount(accounts.AuthBasic))
	bc.AxisNow = &fakeAxisNow{
		fulfill: func(_ context.Context, token *drm.AxisNowToken) (*drm.AxisNowFulfillment, error) {
			if token.BookVaultUUID != "vault-1" || token.ISBN != "9780000000001" {
				t.Errorf("connector saw token %+v", token)
			}
			return &drm.AxisNowFulfillment{
				License: []byte(`{"license":1}`),
				UserKey: []byte(`{"key":1}`),
				Book:    []byte("axisnow epub"),
			}, nil
		},
	}

	outcome := runAxisNow(bc, server.URL+"/token")

	if outcome.Kind != borrow.OutcomeContinue {
		t.Fatalf("outcome %+v, want continue", outcome)
	}
	if string(handle.bookBytes()) != "axisnow epub" {
		t.Fatal("book payload was not stored")
	}
	handle.mu.Lock()
	license, userKey := handle.license, handle.userKey
	handle.mu.Unlock()
	if len(license) == 0 || len(userKey) == 0 {
		t.Fatal("license and user key were not stored")
	}
	if !bc.Fulfilled() {
		t.Fatal("context not marked fulfilled")
	}
}

func TestAxisNow_NoConnector(t *testing.T) {
	bc, _, _ := newTestContext(t, testAccount(accounts.AuthBasic))

	outcome := runAxisNow(bc, "https://example.com/token")
	if outcome.Kind != borrow.OutcomeFailed || outcome.Code != borrow.CodeAxisNowNotSupported {
		t.Fatalf("outcome %+v, want failure with %s", outcome, borrow.CodeAxisNowNotSupported)
	}
}

func TestAxisNow_BadToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", opds.TypeAxisNow)
		io.WriteString(w, `{"isbn":"9780000000001"}`)
	}))
	t.Cleanup(server.Close)

	bc, _, _ := newTestContext(t, testAccount(accounts.AuthBasic))
	bc.AxisNow = &fakeAxisNow{
		fulfill: func(context.Context, *drm.AxisNowToken) (*drm.AxisNowFulfillment, error) {
			t.Error("connector must not be called for a bad token")
			return nil, nil
		},
	}

	outcome := runAxisNow(bc, server.URL+"/token")
	if outcome.Code != borrow.CodeAxisNowFulfillmentFailed {
		t.Fatalf("error code %s, want %s", outcome.Code, borrow.CodeAxisNowFulfillmentFailed)
	}
}

func TestAxisNow_FulfillmentError(t *testing.T) {
	server := axisNowTokenServer(t)

	bc, _, _ := newTestContext(t, testAccount(accounts.AuthBasic))
	bc.AxisNow = &fakeAxisNow{
		fulfill: func(context.Context, *drm.AxisNowToken) (*drm.AxisNowFulfillment, error) {
			return nil, context.DeadlineExceeded
		},
	}

	outcome := runAxisNow(bc, server.URL+"/token")
	if outcome.Code != borrow.CodeAxisNowFulfillmentFailed {
		t.Fatalf("error code %s, want %s", outcome.Code, borrow.CodeAxisNowFulfillmentFailed)
	}
}
