package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recharge-platform/internal/domain"
	"recharge-platform/internal/domain/model"
	"recharge-platform/internal/usecase"
)

type importRequest struct {
	PlanID string   `json:"plan_id"`
	Codes  []string `json:"codes"`
	// Raw accepts a pasted block, one code per non-blank line, as an
	// alternative to the Codes list.
	Raw string `json:"raw"`
}

type importResponse struct {
	InsertedCount int      `json:"inserted_count"`
	TotalCount    int      `json:"total_count"`
	Duplicates    int      `json:"duplicates"`
	InsertedCodes []string `json:"inserted_codes"`
}

func (s *Server) handleImportCodes(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	raws := req.Codes
	if len(raws) == 0 && req.Raw != "" {
		raws = model.ParseCodeBlock(req.Raw)
	}

	res, err := s.inventoryUC.ImportCodes(r.Context(), req.PlanID, raws)
	if err != nil {
		s.writeError(w, err)
		return
	}
	codes := make([]string, 0, len(res.Inserted))
	for _, c := range res.Inserted {
		codes = append(codes, c.Code)
	}
	s.writeJSON(w, http.StatusOK, importResponse{
		InsertedCount: res.InsertedCount,
		TotalCount:    res.TotalCount,
		Duplicates:    res.TotalCount - res.InsertedCount,
		InsertedCodes: codes,
	})
}

func (s *Server) handleInventoryCounts(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	counts, err := s.inventoryUC.CountByStatus(r.Context(), planID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, counts)
}

type sellRequest struct {
	PlanID        string `json:"plan_id"`
	CustomerID    string `json:"customer_id"`
	ResellerID    string `json:"reseller_id"`
	PaymentMethod string `json:"payment_method"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type sellResponse struct {
	Outcome      string `json:"outcome"`
	PurchaseID   string `json:"purchase_id"`
	RechargeCode string `json:"recharge_code,omitempty"`
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	res, err := s.saleUC.Sell(r.Context(), usecase.SellRequest{
		PlanID:        req.PlanID,
		CustomerID:    req.CustomerID,
		ResellerID:    req.ResellerID,
		PaymentMethod: req.PaymentMethod,
		Customer: model.CustomerInfo{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		},
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sellResponse{
		Outcome:      string(res.Outcome),
		PurchaseID:   res.Purchase.ID,
		RechargeCode: res.Purchase.RechargeCode,
	})
}

type pendingPurchase struct {
	ID            string `json:"id"`
	PlanID        string `json:"plan_id"`
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	FailureReason string `json:"failure_reason"`
	CreatedAt     string `json:"created_at"`
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.saleUC.ListPendingDelivery(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]pendingPurchase, 0, len(pending))
	for _, p := range pending {
		out = append(out, pendingPurchase{
			ID:            p.ID,
			PlanID:        p.PlanID,
			CustomerID:    p.CustomerID,
			CustomerName:  p.Customer.Name,
			FailureReason: p.CodeDeliveryFailureReason,
			CreatedAt:     p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type assignRequest struct {
	CodeID string `json:"code_id"`
}

func (s *Server) handleAssignCode(w http.ResponseWriter, r *http.Request) {
	purchaseID := chi.URLParam(r, "purchaseID")
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	p, err := s.saleUC.AssignCode(r.Context(), purchaseID, req.CodeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"purchase_id":   p.ID,
		"status":        string(p.Status),
		"recharge_code": p.RechargeCode,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps expected business outcomes to 4xx statuses; anything else
// is a 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrBatchTooLarge),
		errors.Is(err, domain.ErrEmptyBatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrPurchaseNotFound),
		errors.Is(err, domain.ErrCodeNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrPurchaseNotPending),
		errors.Is(err, domain.ErrCodeNotAvailable),
		errors.Is(err, domain.ErrPlanMismatch):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error().Err(err).Msg("internal error")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
