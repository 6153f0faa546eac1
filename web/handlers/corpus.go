package handlers

import (
	"net/http"

	"campus-assistant/rag"
	"campus-assistant/web/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CorpusManager exposes the live snapshot and rebuilds it on demand.
// rag.Retriever implements it.
type CorpusManager interface {
	Snapshot() *rag.Snapshot
	Reload() error
}

type CorpusHandler struct {
	corpora CorpusManager
	logger  *zap.Logger
}

func NewCorpusHandler(corpora CorpusManager, logger *zap.Logger) *CorpusHandler {
	return &CorpusHandler{corpora: corpora, logger: logger}
}

func status(snap *rag.Snapshot) types.CorpusStatus {
	return types.CorpusStatus{
		Generation:  snap.Generation,
		FAQs:        snap.FAQs.Len(),
		Departments: snap.Departments.Len(),
		Procedures:  snap.Procedures.Len(),
		BuiltAt:     snap.BuiltAt,
	}
}

// Health handles GET /healthz.
func (h *CorpusHandler) Health(c *gin.Context) {
	snap := h.corpora.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "corpora": status(snap)})
}

// Reload handles POST /api/reload. A failed reload leaves the previous
// snapshot in service.
func (h *CorpusHandler) Reload(c *gin.Context) {
	if err := h.corpora.Reload(); err != nil {
		respondWithError(c, http.StatusInternalServerError, err,
			"Reload failed; the previous knowledge base is still being served.", h.logger)
		return
	}
	snap := h.corpora.Snapshot()
	h.logger.Info("Corpora reloaded on request", zap.Uint64("generation", snap.Generation))
	c.JSON(http.StatusOK, status(snap))
}
