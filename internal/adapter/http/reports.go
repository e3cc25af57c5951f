package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/durjog/durjog-map/internal/domain"
)

func (s *Server) listReports(c *gin.Context) {
	reports, err := s.deps.Reports.ListActive(c.Request.Context())
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) getReport(c *gin.Context) {
	r, err := s.deps.Reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) createReport(c *gin.Context) {
	var in domain.EmergencyReport
	if err := c.ShouldBindJSON(&in); err != nil {
		abortMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	in.ID = ""
	if s.deps.Verifier != nil {
		in.UserID = c.GetString(userIDKey)
	}

	created, err := s.deps.Reports.Create(c.Request.Context(), in)
	if err != nil {
		s.abortError(c, err)
		return
	}
	s.deps.Clusters.Trigger()
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateReport(c *gin.Context) {
	var patch domain.ReportPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.authorize(c) {
		return
	}

	updated, err := s.deps.Reports.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.abortError(c, err)
		return
	}
	s.deps.Clusters.Trigger()
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteReport(c *gin.Context) {
	if !s.authorize(c) {
		return
	}
	if err := s.deps.Reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.abortError(c, err)
		return
	}
	s.deps.Clusters.Trigger()
	c.JSON(http.StatusOK, gin.H{"message": "report deleted"})
}

// authorize loads the target report and checks the caller owns it. It writes
// the error response itself and returns false when the request must stop.
func (s *Server) authorize(c *gin.Context) bool {
	existing, err := s.deps.Reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortError(c, err)
		return false
	}
	if !s.ownsReport(c, existing.UserID) {
		abortMessage(c, http.StatusForbidden, "not allowed to modify this report")
		return false
	}
	return true
}
