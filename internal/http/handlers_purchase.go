package http

import (
	"net/http"

	"einkauf/internal/auth"
	"einkauf/internal/core"
	"einkauf/internal/services"
)

func (s *Server) purchases(session auth.Session) *services.PurchaseService {
	return services.NewPurchaseService(s.backend.StoreFor(session), s.backend.AMQP)
}

type lineItemRequest struct {
	ItemID    string  `json:"itemId"`
	ItemName  string  `json:"itemName"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type createPurchaseRequest struct {
	Date       core.Timestamp    `json:"date"`
	MarketID   string            `json:"marketId"`
	MarketName string            `json:"marketName"`
	Items      []lineItemRequest `json:"items"`
}

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request, session auth.Session) {
	purchases, err := s.purchases(session).Purchases(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if purchases == nil {
		purchases = []core.Purchase{}
	}
	writeJSON(w, http.StatusOK, purchases)
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request, session auth.Session) {
	var req createPurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	p := core.Purchase{
		Date:       req.Date,
		MarketID:   req.MarketID,
		MarketName: sanitizeInput(req.MarketName),
	}
	for _, li := range req.Items {
		p.Items = append(p.Items, core.LineItem{
			ItemID:    li.ItemID,
			ItemName:  sanitizeInput(li.ItemName),
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
		})
	}

	created, err := s.purchases(session).Record(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.summaryCache.Purge()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if err := s.purchases(session).Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.summaryCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}
