package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"recharge-platform/internal/domain"
	"recharge-platform/internal/domain/model"
	"recharge-platform/internal/usecase"
)

// ---- use case fakes ----

type fakeInventoryUC struct {
	ImportCodesFunc        func(ctx context.Context, planID string, rawCodes []string) (*usecase.ImportResult, error)
	CountByStatusFunc      func(ctx context.Context, planID string) (map[model.CodeStatus]int, error)
	ExpireOverdueCodesFunc func(ctx context.Context) (int, error)
}

var _ usecase.InventoryUseCase = (*fakeInventoryUC)(nil)

func (f *fakeInventoryUC) ImportCodes(ctx context.Context, planID string, rawCodes []string) (*usecase.ImportResult, error) {
	return f.ImportCodesFunc(ctx, planID, rawCodes)
}

func (f *fakeInventoryUC) CountByStatus(ctx context.Context, planID string) (map[model.CodeStatus]int, error) {
	return f.CountByStatusFunc(ctx, planID)
}

func (f *fakeInventoryUC) ExpireOverdueCodes(ctx context.Context) (int, error) {
	if f.ExpireOverdueCodesFunc == nil {
		return 0, nil
	}
	return f.ExpireOverdueCodesFunc(ctx)
}

type fakeSaleUC struct {
	SellFunc                func(ctx context.Context, req usecase.SellRequest) (*usecase.SaleResult, error)
	AssignCodeFunc          func(ctx context.Context, purchaseID, codeID string) (*model.Purchase, error)
	ListPendingDeliveryFunc func(ctx context.Context) ([]*model.Purchase, error)
}

var _ usecase.SaleUseCase = (*fakeSaleUC)(nil)

func (f *fakeSaleUC) Sell(ctx context.Context, req usecase.SellRequest) (*usecase.SaleResult, error) {
	return f.SellFunc(ctx, req)
}

func (f *fakeSaleUC) AssignCode(ctx context.Context, purchaseID, codeID string) (*model.Purchase, error) {
	return f.AssignCodeFunc(ctx, purchaseID, codeID)
}

func (f *fakeSaleUC) ListPendingDelivery(ctx context.Context) ([]*model.Purchase, error) {
	return f.ListPendingDeliveryFunc(ctx)
}

// ---- harness ----

type testServer struct {
	handler http.Handler
	token   string
}

func newTestServer(t *testing.T, inv *fakeInventoryUC, sale *fakeSaleUC) *testServer {
	t.Helper()
	logger := zerolog.New(io.Discard)
	auth := NewAuthManager("test-secret", false, "", time.Hour)
	token, err := auth.Mint(httptest.NewRecorder())
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	srv := NewServer(inv, sale, "test-admin-key", auth, &logger)
	return &testServer{handler: srv.Router(), token: token}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if authed {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// ---- tests ----

func TestRouter_Health(t *testing.T) {
	ts := newTestServer(t, &fakeInventoryUC{}, &fakeSaleUC{})
	rec := ts.do(t, http.MethodGet, "/health", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	ts := newTestServer(t, &fakeInventoryUC{}, &fakeSaleUC{})
	for _, ep := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/codes/import"},
		{http.MethodGet, "/api/v1/plans/p1/inventory"},
		{http.MethodPost, "/api/v1/sales"},
		{http.MethodGet, "/api/v1/purchases/pending"},
		{http.MethodPost, "/api/v1/purchases/x/assign"},
	} {
		rec := ts.do(t, ep.method, ep.path, nil, false)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", ep.method, ep.path, rec.Code)
		}
	}
}

func TestHandleImportCodes(t *testing.T) {
	t.Run("accepts a raw pasted block", func(t *testing.T) {
		var gotRaws []string
		inv := &fakeInventoryUC{
			ImportCodesFunc: func(ctx context.Context, planID string, rawCodes []string) (*usecase.ImportResult, error) {
				gotRaws = rawCodes
				return &usecase.ImportResult{
					Inserted:      []*model.RechargeCode{{Code: "AAAA 0000"}},
					InsertedCount: 1,
					TotalCount:    2,
				}, nil
			},
		}
		ts := newTestServer(t, inv, &fakeSaleUC{})

		rec := ts.do(t, http.MethodPost, "/api/v1/codes/import", map[string]string{
			"plan_id": "p1",
			"raw":     "aaaa-0000\n\nbbbb-1111\n",
		}, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		if len(gotRaws) != 2 {
			t.Fatalf("raw block not split into lines: %v", gotRaws)
		}

		var resp importResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.InsertedCount != 1 || resp.TotalCount != 2 || resp.Duplicates != 1 {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("oversized batch maps to 400", func(t *testing.T) {
		inv := &fakeInventoryUC{
			ImportCodesFunc: func(ctx context.Context, planID string, rawCodes []string) (*usecase.ImportResult, error) {
				return nil, domain.ErrBatchTooLarge
			},
		}
		ts := newTestServer(t, inv, &fakeSaleUC{})
		rec := ts.do(t, http.MethodPost, "/api/v1/codes/import", map[string]any{"plan_id": "p1", "codes": []string{"x"}}, true)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown plan maps to 404", func(t *testing.T) {
		inv := &fakeInventoryUC{
			ImportCodesFunc: func(ctx context.Context, planID string, rawCodes []string) (*usecase.ImportResult, error) {
				return nil, domain.ErrPlanNotFound
			},
		}
		ts := newTestServer(t, inv, &fakeSaleUC{})
		rec := ts.do(t, http.MethodPost, "/api/v1/codes/import", map[string]any{"plan_id": "ghost", "codes": []string{"x"}}, true)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("malformed body maps to 400", func(t *testing.T) {
		ts := newTestServer(t, &fakeInventoryUC{}, &fakeSaleUC{})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/codes/import", strings.NewReader("{not json"))
		req.Header.Set("Authorization", "Bearer "+ts.token)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandleSell(t *testing.T) {
	sale := &fakeSaleUC{
		SellFunc: func(ctx context.Context, req usecase.SellRequest) (*usecase.SaleResult, error) {
			if req.PlanID != "p1" || req.Customer.Phone != "+1555" {
				t.Errorf("request not mapped: %+v", req)
			}
			return &usecase.SaleResult{
				Outcome:  usecase.SaleOutcomeApproved,
				Purchase: &model.Purchase{ID: "pur-1", RechargeCode: "AAAA 0000"},
			}, nil
		},
	}
	ts := newTestServer(t, &fakeInventoryUC{}, sale)

	rec := ts.do(t, http.MethodPost, "/api/v1/sales", map[string]string{
		"plan_id":        "p1",
		"customer_id":    "c1",
		"customer_phone": "+1555",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp sellResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Outcome != string(usecase.SaleOutcomeApproved) || resp.RechargeCode != "AAAA 0000" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleListPending(t *testing.T) {
	sale := &fakeSaleUC{
		ListPendingDeliveryFunc: func(ctx context.Context) ([]*model.Purchase, error) {
			return []*model.Purchase{{
				ID:                        "pur-1",
				PlanID:                    "p1",
				CustomerID:                "c1",
				Customer:                  model.CustomerInfo{Name: "Dana"},
				CodeDeliveryFailureReason: "no_available_codes",
				CreatedAt:                 time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
			}}, nil
		},
	}
	ts := newTestServer(t, &fakeInventoryUC{}, sale)

	rec := ts.do(t, http.MethodGet, "/api/v1/purchases/pending", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp []pendingPurchase
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].FailureReason != "no_available_codes" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleAssignCode(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		sale := &fakeSaleUC{
			AssignCodeFunc: func(ctx context.Context, purchaseID, codeID string) (*model.Purchase, error) {
				if purchaseID != "pur-1" || codeID != "code-9" {
					t.Errorf("ids not mapped: %s %s", purchaseID, codeID)
				}
				return &model.Purchase{ID: purchaseID, Status: model.PurchaseStatusApproved, RechargeCode: "BBBB 1111"}, nil
			},
		}
		ts := newTestServer(t, &fakeInventoryUC{}, sale)
		rec := ts.do(t, http.MethodPost, "/api/v1/purchases/pur-1/assign", map[string]string{"code_id": "code-9"}, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("conflict outcomes map to 409", func(t *testing.T) {
		for _, sentinel := range []error{domain.ErrPurchaseNotPending, domain.ErrCodeNotAvailable, domain.ErrPlanMismatch} {
			sale := &fakeSaleUC{
				AssignCodeFunc: func(ctx context.Context, purchaseID, codeID string) (*model.Purchase, error) {
					return nil, sentinel
				},
			}
			ts := newTestServer(t, &fakeInventoryUC{}, sale)
			rec := ts.do(t, http.MethodPost, "/api/v1/purchases/pur-1/assign", map[string]string{"code_id": "x"}, true)
			if rec.Code != http.StatusConflict {
				t.Errorf("%v: status = %d, want 409", sentinel, rec.Code)
			}
		}
	})
}

func TestHandleInventoryCounts(t *testing.T) {
	inv := &fakeInventoryUC{
		CountByStatusFunc: func(ctx context.Context, planID string) (map[model.CodeStatus]int, error) {
			if planID != "p1" {
				t.Errorf("planID = %q", planID)
			}
			return map[model.CodeStatus]int{model.CodeStatusAvailable: 5, model.CodeStatusSold: 2}, nil
		},
	}
	ts := newTestServer(t, inv, &fakeSaleUC{})

	rec := ts.do(t, http.MethodGet, "/api/v1/plans/p1/inventory", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var counts map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if counts["available"] != 5 || counts["sold"] != 2 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
