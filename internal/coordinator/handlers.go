package coordinator

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/collision-engine/internal/hashcore"
	"github.com/rawblock/collision-engine/internal/store"
)

// Handler holds the dependencies shared by every route: the hash
// descriptor (so reported endpoint length is validated against what
// workers and coordinator agreed on), the serialized store, and the
// telemetry hub.
type Handler struct {
	descriptor hashcore.Descriptor
	store      store.Store
	hub        *Hub
}

func NewHandler(descriptor hashcore.Descriptor, s store.Store, hub *Hub) *Handler {
	return &Handler{descriptor: descriptor, store: s, hub: hub}
}

type submitWorkRequest struct {
	Username  string `json:"username"`
	UserToken string `json:"usertoken"`
	Results   []struct {
		Start string `json:"start"`
		DP    string `json:"dp"`
	} `json:"results"`
}

// handleSubmitWork authenticates a batch of reported distinguished
// points, inserts or records collisions for each, and replies with the
// accepted count.
func (h *Handler) handleSubmitWork(c *gin.Context) {
	start := time.Now()

	var req submitWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "bad request"})
		return
	}

	userID, err := h.store.AuthenticateUser(c.Request.Context(), req.Username, req.UserToken)
	if err != nil {
		if errors.Is(err, store.ErrBadCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "bad username and/or usertoken"})
			return
		}
		log.Printf("[Coordinator] auth error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "internal error"})
		return
	}

	l := h.descriptor.L()
	pending := make([]store.PendingResult, 0, len(req.Results))
	for _, r := range req.Results {
		startBytes, err := hex.DecodeString(r.Start)
		if err != nil || len(startBytes) != l {
			c.JSON(http.StatusBadRequest, gin.H{"status": "bad hash length"})
			return
		}
		dpBytes, err := hex.DecodeString(r.DP)
		if err != nil || len(dpBytes) != l {
			c.JSON(http.StatusBadRequest, gin.H{"status": "bad hash length"})
			return
		}
		pending = append(pending, store.PendingResult{Start: startBytes, End: dpBytes})
	}

	report, err := h.store.Ingest(c.Request.Context(), userID, pending)
	if err != nil {
		log.Printf("[Coordinator] ingest error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "internal error"})
		return
	}

	elapsedMs := time.Since(start).Milliseconds()
	c.JSON(http.StatusOK, gin.H{"status": fmt.Sprintf("accepted %d results in %dms", report.Accepted, elapsedMs)})

	workerInstance := c.GetHeader("X-Worker-Instance")
	for _, outcome := range report.Collisions {
		log.Printf("[Coordinator] COLLISION dp=%d <-> dp=%d user=%d worker=%s", outcome.CollidesDP, outcome.DPID, outcome.UserID, workerInstance)
	}
	h.broadcastTelemetry(req.Username, report)
}

func (h *Handler) broadcastTelemetry(username string, report store.IngestReport) {
	if h.hub == nil || (report.Accepted == 0 && len(report.Collisions) == 0) {
		return
	}
	payload, err := json.Marshal(gin.H{
		"type":       "ingest",
		"username":   username,
		"accepted":   report.Accepted,
		"collisions": report.Collisions,
	})
	if err != nil {
		return
	}
	h.hub.Broadcast(payload)
}

func (h *Handler) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	dpCount, _ := h.store.DPCount(ctx)
	collisionCount, _ := h.store.CollisionCount(ctx)
	c.JSON(http.StatusOK, gin.H{
		"status":         "operational",
		"descriptor":     h.descriptor.String(),
		"dpCount":        dpCount,
		"collisionCount": collisionCount,
	})
}
