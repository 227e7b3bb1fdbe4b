package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github/itish2003/vaultchat/models"
	"github/itish2003/vaultchat/realtime"
	"github/itish2003/vaultchat/services"
)

// RAGController serves the setup and query operations over HTTP and over the
// realtime channel. It depends on the RAGService for the actual work.
//
// Sockets own their sessions. HTTP clients share one session: each successful
// POST /initialize replaces it and closes the previous one.
type RAGController struct {
	ragService services.RAGService

	mu          sync.Mutex
	httpSession string
}

// NewRAGController is a constructor function that creates a new RAGController.
func NewRAGController(service services.RAGService) *RAGController {
	return &RAGController{
		ragService: service,
	}
}

func (c *RAGController) initialize(ctx context.Context, req models.InitializeRequest) models.InitializeResponse {
	sessionID, err := c.ragService.Initialize(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("vault", req.VaultPath).Msg("CONTROLLER: initialization error")
		return models.InitializeResponse{Status: models.StatusError, Message: err.Error()}
	}
	return models.InitializeResponse{
		Status:    models.StatusSuccess,
		Message:   "AI Assistant initialized successfully",
		SessionID: sessionID,
	}
}

func (c *RAGController) query(ctx context.Context, sessionID, query string) models.QueryResponse {
	resp, err := c.ragService.Query(ctx, sessionID, query)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("CONTROLLER: query error")
		return models.QueryResponse{Status: models.StatusError, Message: err.Error()}
	}
	return *resp
}

// BindSocket registers the event handlers of one realtime connection. Each
// connection owns at most one session; a new setup replaces the previous one
// and the session is closed with the connection.
func (c *RAGController) BindSocket(sock *realtime.Socket) {
	var sessionID string

	sock.On(models.EventInitialize, func(ctx context.Context, env realtime.Envelope) {
		var req models.InitializeRequest
		if err := env.Decode(&req); err != nil {
			c.emit(sock, models.EventInitializeResponse, env.ID, models.InitializeResponse{Status: models.StatusError, Message: err.Error()})
			return
		}
		resp := c.initialize(ctx, req)
		if resp.Status == models.StatusSuccess {
			if sessionID != "" {
				c.ragService.Close(sessionID)
			}
			sessionID = resp.SessionID
		}
		c.emit(sock, models.EventInitializeResponse, env.ID, resp)
	})

	sock.On(models.EventQuery, func(ctx context.Context, env realtime.Envelope) {
		var req models.QueryRequest
		if err := env.Decode(&req); err != nil {
			c.emit(sock, models.EventQueryResponse, env.ID, models.QueryResponse{Status: models.StatusError, Message: err.Error()})
			return
		}
		c.emit(sock, models.EventQueryResponse, env.ID, c.query(ctx, sessionID, req.Query))
	})

	sock.OnDisconnect(func() {
		if sessionID != "" {
			c.ragService.Close(sessionID)
		}
	})
}

func (c *RAGController) emit(sock *realtime.Socket, event, id string, payload any) {
	if err := sock.Emit(event, id, payload); err != nil {
		log.Warn().Err(err).Str("socket", sock.ID()).Str("event", event).Msg("CONTROLLER: emit failed")
	}
}

// Index renders the setup page with the discovered vaults.
func (c *RAGController) Index(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "index.html", gin.H{
		"vaults": c.ragService.Vaults(),
		"models": models.ModelCatalog(),
	})
}

// Initialize is the Gin handler for POST /initialize. Failures are reported in
// the body with status "error", like the socket response.
func (c *RAGController) Initialize(ctx *gin.Context) {
	var req models.InitializeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.InitializeResponse{Status: models.StatusError, Message: "Invalid request body: " + err.Error()})
		return
	}
	resp := c.initialize(ctx.Request.Context(), req)
	if resp.Status == models.StatusSuccess {
		c.replaceHTTPSession(resp.SessionID)
	}
	ctx.JSON(http.StatusOK, resp)
}

func (c *RAGController) replaceHTTPSession(sessionID string) {
	c.mu.Lock()
	prev := c.httpSession
	c.httpSession = sessionID
	c.mu.Unlock()
	if prev != "" && prev != sessionID {
		c.ragService.Close(prev)
	}
}

func (c *RAGController) currentHTTPSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.httpSession
}

// Shutdown closes the shared HTTP session.
func (c *RAGController) Shutdown() {
	c.replaceHTTPSession("")
}

// Query is the Gin handler for POST /query. Without a session_id it asks the
// shared HTTP session.
func (c *RAGController) Query(ctx *gin.Context) {
	var req models.QueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.QueryResponse{Status: models.StatusError, Message: "Invalid request body: " + err.Error()})
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.currentHTTPSession()
	}
	ctx.JSON(http.StatusOK, c.query(ctx.Request.Context(), sessionID, req.Query))
}

// GetVaults is the Gin handler for GET /api/v1/vaults.
func (c *RAGController) GetVaults(ctx *gin.Context) {
	vaults := c.ragService.Vaults()
	if vaults == nil {
		vaults = []string{}
	}
	ctx.JSON(http.StatusOK, models.VaultsResponse{Count: len(vaults), Vaults: vaults})
}

// GetNote is the Gin handler for GET /api/v1/notes.
func (c *RAGController) GetNote(ctx *gin.Context) {
	note, err := c.ragService.ReadNote(ctx.Query("session_id"), ctx.Query("path"))
	switch {
	case errors.Is(err, services.ErrNotInitialized):
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrOutsideVault):
		ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case err != nil:
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Failed to read note"})
	default:
		ctx.JSON(http.StatusOK, note)
	}
}

// GetHistory is the Gin handler for GET /api/v1/history.
func (c *RAGController) GetHistory(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}
	exchanges, err := c.ragService.History(limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve history"})
		return
	}
	if exchanges == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}
	ctx.JSON(http.StatusOK, models.HistoryResponse{Count: len(exchanges), Exchanges: exchanges})
}
