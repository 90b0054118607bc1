package handlers

import (
	"net/http"
	"strings"
	"time"
)

type topUpRequest struct {
	OwnerID     string `json:"owner_id" validate:"required,max=128"`
	Amount      int64  `json:"amount" validate:"required,gt=0,lte=1000000"`
	Description string `json:"description" validate:"max=256"`
}

type transactionDTO struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *App) CreditBalance(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := a.owner(w, r)
	if !ok {
		return
	}
	balance, err := a.Credits.GetBalance(r.Context(), ownerID)
	if err != nil {
		a.fail(w, r, err, "read balance")
		return
	}
	a.json(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (a *App) CreditTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := a.owner(w, r)
	if !ok {
		return
	}
	txs, err := a.Credits.Transactions(r.Context(), ownerID, limitParam(r, 50, 200))
	if err != nil {
		a.fail(w, r, err, "list transactions")
		return
	}
	items := make([]transactionDTO, 0, len(txs))
	for _, tx := range txs {
		items = append(items, transactionDTO{
			ID:          tx.ID,
			Amount:      tx.Amount,
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// CreditTopUp applies the effect of a completed payment. Admin only.
func (a *App) CreditTopUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if !a.decode(w, r, &req) {
		return
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = "top-up"
	}
	balance, err := a.Credits.TopUp(r.Context(), strings.TrimSpace(req.OwnerID), req.Amount, desc)
	if err != nil {
		a.fail(w, r, err, "top up")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"owner_id": req.OwnerID, "balance": balance})
}
