package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/pinmap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pinmap/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/pinmap/internal/httpserver/mw"
)

func init() { Register("bookmarks", registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Use(mw.MaxBody(d.MaxBodyBytes))

		r.Get("/", handlers.ListBookmarks(d))
		r.Get("/search", handlers.SearchBookmarks(d))

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit(d.RateLimit))

			r.Post("/", handlers.CreateBookmark(d))
			r.Delete("/", handlers.ClearBookmarks(d))
			r.Post("/sync", handlers.SyncBookmarks(d))
			r.Put("/{id}", handlers.UpdateBookmark(d))
			r.Delete("/{id}", handlers.DeleteBookmark(d))
		})
	})
}
