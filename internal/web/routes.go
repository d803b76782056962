package web

import "github.com/go-chi/chi/v5"

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{id}/records", s.handleListRecords)
		r.Get("/stats", s.handleStats)
	})
}
