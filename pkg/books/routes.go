package books

import (
	"github.com/hondana/hondana/pkg/uploads"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes mounts all book endpoints on the given Echo instance.
func RegisterRoutes(e *echo.Echo, db *bun.DB, store *uploads.Store) {
	h := handler{
		bookService: NewService(db),
		uploadStore: store,
	}

	g := e.Group("/books")

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/search", h.search)
	g.GET("/:id", h.retrieve)
	g.GET("/:id/cover", h.cover)
}
