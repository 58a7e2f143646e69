// Package httpapi exposes the ingestion pipeline over HTTP: transactions
// are accepted as JSON and routed into the same bounded queue the CSV
// feed uses, and the ledger snapshot is readable at any time.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/payments/internal/obs"
	"github.com/MarkoPoloResearchLab/payments/internal/processor"
	"github.com/MarkoPoloResearchLab/payments/pkg/ledger"
)

const requestIDHeader = "X-Request-ID"

// Server wires the HTTP surface over the processor and the store.
type Server struct {
	cfg       Config
	logger    *zap.Logger
	processor *processor.Processor
	store     *ledger.AccountStore
}

// New validates the configuration and builds a server.
func New(cfg Config, logger *zap.Logger, proc *processor.Processor, store *ledger.AccountStore) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("httpapi config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		processor: proc,
		store:     store,
	}, nil
}

// Router assembles the gin engine with middleware and routes.
func (server *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(), server.requestLogger())

	if len(server.cfg.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = server.cfg.AllowedOrigins
		router.Use(cors.New(corsConfig))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(obs.Handler()))

	v1 := router.Group("/v1")
	v1.POST("/transactions", server.handleSubmit)
	v1.GET("/accounts", server.handleAccounts)
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.cfg.ListenAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("httpapi listening", zap.String("addr", server.cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		server.logger.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	case serveErr := <-errCh:
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}
		return serveErr
	}
}

// transactionRequest is the JSON submit payload.
type transactionRequest struct {
	Type   string `json:"type" binding:"required"`
	Client uint64 `json:"client"`
	Tx     uint32 `json:"tx"`
	Amount string `json:"amount"`
}

func (server *Server) handleSubmit(c *gin.Context) {
	var request transactionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	transactionType, err := ledger.ParseTransactionType(request.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := parseRequestAmount(transactionType, request.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transaction := ledger.Transaction{
		Type:     transactionType,
		ClientID: ledger.ClientID(request.Client),
		ID:       ledger.TransactionID(request.Tx),
		Amount:   amount,
	}
	if err := server.processor.Submit(transaction); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline closed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (server *Server) handleAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"accounts": server.store.Snapshot()})
}

// parseRequestAmount requires an amount for deposit and withdrawal and
// defaults the reference types to zero.
func parseRequestAmount(transactionType ledger.TransactionType, raw string) (ledger.Currency, error) {
	if raw == "" {
		if transactionType.CarriesAmount() {
			return ledger.Currency{}, fmt.Errorf("%w: amount required for %s",
				ledger.ErrInvalidAmount, transactionType)
		}
		return ledger.Currency{}, nil
	}
	return ledger.ParseCurrency(raw)
}

// requestIDMiddleware tags every request, reusing the caller's id when
// one is supplied.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func (server *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		server.logger.Info("http request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
