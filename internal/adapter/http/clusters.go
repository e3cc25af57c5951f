package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/durjog/durjog-map/internal/domain"
	"github.com/durjog/durjog-map/internal/refresh"
)

type clusterResponse struct {
	SnapshotID string    `json:"snapshotId"`
	Seq        uint64    `json:"seq"`
	TakenAt    time.Time `json:"takenAt"`
	View       string    `json:"view"`
	domain.ViewSnapshot
}

// resolveView returns the requested view name, defaulting to the first
// configured profile.
func (s *Server) resolveView(c *gin.Context) string {
	if name := c.Query("view"); name != "" {
		return name
	}
	if profiles := s.deps.Clusters.Profiles(); len(profiles) > 0 {
		return profiles[0].Name
	}
	return ""
}

func (s *Server) getClusters(c *gin.Context) {
	snap := s.deps.Clusters.Latest()
	if snap == nil {
		abortMessage(c, http.StatusServiceUnavailable, "clusters not computed yet")
		return
	}

	name := s.resolveView(c)
	view, ok := snap.View(name)
	if !ok {
		abortMessage(c, http.StatusNotFound, "unknown view "+name)
		return
	}

	switch c.Query("format") {
	case "", "json":
		c.JSON(http.StatusOK, clusterResponse{
			SnapshotID:   snap.ID,
			Seq:          snap.Seq,
			TakenAt:      snap.TakenAt,
			View:         name,
			ViewSnapshot: view,
		})
	case "geojson":
		c.Header("Content-Type", "application/geo+json")
		c.JSON(http.StatusOK, toFeatureCollection(snap, name, view.Markers))
	default:
		abortMessage(c, http.StatusBadRequest, "format must be json or geojson")
	}
}

func (s *Server) refreshClusters(c *gin.Context) {
	snap, err := s.deps.Clusters.Refresh(c.Request.Context())
	if errors.Is(err, refresh.ErrSuperseded) {
		snap, err = s.deps.Clusters.Latest(), nil
	}
	if err != nil {
		s.logger.Error("manual refresh failed", "error", err)
		abortMessage(c, http.StatusServiceUnavailable, "refresh failed")
		return
	}
	c.JSON(http.StatusOK, snap)
}
