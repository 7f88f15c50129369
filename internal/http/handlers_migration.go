package http

import (
	"net/http"

	"einkauf/internal/auth"
	"einkauf/internal/services"
)

// migrator builds a per-request migrator. The migration only exists on
// the hosted backend, where the gateway is open.
func (s *Server) migrator(w http.ResponseWriter, session auth.Session) (*services.Migrator, bool) {
	if s.backend.Gateway == nil {
		writeJSON(w, http.StatusServiceUnavailable,
			errorResponse{Error: "migration requires the hosted backend"})
		return nil, false
	}
	target := s.backend.Gateway.ForUser(session.UserID)
	return services.NewMigrator(s.backend.Local, target, s.backend.Gateway, s.backend.AMQP), true
}

func (s *Server) handleMigrationPreflight(w http.ResponseWriter, r *http.Request, session auth.Session) {
	m, ok := s.migrator(w, session)
	if !ok {
		return
	}
	pf, err := m.CheckPreflight(r.Context(), session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pf)
}

func (s *Server) handleMigrationRun(w http.ResponseWriter, r *http.Request, session auth.Session) {
	m, ok := s.migrator(w, session)
	if !ok {
		return
	}
	force := r.URL.Query().Get("force") == "true"

	report, err := m.Run(r.Context(), session, force)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.summaryCache.Purge()
	writeJSON(w, http.StatusOK, report)
}
