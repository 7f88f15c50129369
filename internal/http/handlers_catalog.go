package http

import (
	"net/http"

	"einkauf/internal/auth"
	"einkauf/internal/core"
	"einkauf/internal/services"
)

func (s *Server) catalog(session auth.Session) *services.CatalogService {
	return services.NewCatalogService(s.backend.StoreFor(session))
}

type createNamedRequest struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Category string `json:"category,omitempty"`
}

type renameRequest struct {
	Name string `json:"name"`
}

// Categories

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, session auth.Session) {
	cats, err := s.catalog(session).Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, session auth.Session) {
	var req createNamedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	created, err := s.catalog(session).CreateCategory(r.Context(), core.Category{
		Name: sanitizeInput(req.Name),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request, session auth.Session) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.catalog(session).RenameCategory(r.Context(), r.PathValue("id"), sanitizeInput(req.Name)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if err := s.catalog(session).DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.summaryCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

// Items

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request, session auth.Session) {
	items, err := s.catalog(session).Items(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []core.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request, session auth.Session) {
	var req createNamedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	created, err := s.catalog(session).CreateItem(r.Context(), core.Item{
		Name:     sanitizeInput(req.Name),
		Category: sanitizeInput(req.Category),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleRenameItem(w http.ResponseWriter, r *http.Request, session auth.Session) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.catalog(session).RenameItem(r.Context(), r.PathValue("id"), sanitizeInput(req.Name)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if err := s.catalog(session).DeleteItem(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Markets

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request, session auth.Session) {
	markets, err := s.catalog(session).Markets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if markets == nil {
		markets = []core.Market{}
	}
	writeJSON(w, http.StatusOK, markets)
}

func (s *Server) handleCreateMarket(w http.ResponseWriter, r *http.Request, session auth.Session) {
	var req createNamedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	created, err := s.catalog(session).CreateMarket(r.Context(), core.Market{
		Name:     sanitizeInput(req.Name),
		Location: sanitizeInput(req.Location),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleRenameMarket(w http.ResponseWriter, r *http.Request, session auth.Session) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.catalog(session).RenameMarket(r.Context(), r.PathValue("id"), sanitizeInput(req.Name)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteMarket(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if err := s.catalog(session).DeleteMarket(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
