package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/guest", s.guestLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post("/chat", s.postChat)
			r.Delete("/chat", s.deleteChat)
			r.Route("/chat/{chatID}", func(r chi.Router) {
				r.Get("/messages", s.getMessages)
				r.Get("/stream", s.resumeStream)
			})

			r.Get("/history", s.getHistory)

			r.Get("/vote", s.getVotes)
			r.Patch("/vote", s.patchVote)

			r.Get("/document", s.getDocument)
			r.Get("/suggestions", s.getSuggestions)

			r.Get("/models", s.getModels)

			r.Get("/events", s.events)
		})
	})
}
