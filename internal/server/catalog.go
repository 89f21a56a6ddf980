package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

func (s *Server) listCatalog(kind models.CatalogKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := s.catalog.List(c.Request.Context(), kind)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func (s *Server) addCatalogEntry(kind models.CatalogKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CatalogEntryRequest
		if !s.bind(c, &req) {
			return
		}
		entry, err := s.catalog.Add(c.Request.Context(), kind, req.Name)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}
