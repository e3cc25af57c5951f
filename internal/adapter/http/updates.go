package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/durjog/durjog-map/internal/domain"
)

func (s *Server) listNews(c *gin.Context) {
	news, err := s.deps.Content.ListNews(c.Request.Context())
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, news)
}

func (s *Server) createNews(c *gin.Context) {
	var in domain.News
	if err := c.ShouldBindJSON(&in); err != nil {
		abortMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		abortMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.deps.Content.CreateNews(c.Request.Context(), in)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) createContact(c *gin.Context) {
	var in domain.ContactMessage
	if err := c.ShouldBindJSON(&in); err != nil {
		abortMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		abortMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.deps.Content.SaveContact(c.Request.Context(), in); err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "message received"})
}
