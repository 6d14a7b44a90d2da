// Package httpapi serves the journal to a browser renderer: state snapshots, submissions,
// the cosmetic shop, summaries and a stream of snapshots re-derived after external changes.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/reflections/internal/catalog"
	"github.com/MarkoPoloResearchLab/reflections/internal/summary"
	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	statusInsufficientFunds = "insufficient_funds"
	statusEquipped          = "equipped"
	statusNotOwned          = "not_owned"
	eventSnapshot           = "snapshot"
)

var errMissingDependency = errors.New("missing dependency")

// Dependencies are the collaborators the HTTP facade serves.
type Dependencies struct {
	Service         *journal.Service
	Catalog         *catalog.Catalog
	Summarizer      *summary.Summarizer
	Watcher         journal.Watcher
	Metrics         http.Handler
	OperationLogger journal.OperationLogger
	Logger          *zap.Logger
}

func (deps *Dependencies) validate() error {
	if deps.Service == nil {
		return fmt.Errorf("%w: journal service", errMissingDependency)
	}
	if deps.Catalog == nil {
		return fmt.Errorf("%w: catalog", errMissingDependency)
	}
	if deps.Summarizer == nil {
		return fmt.Errorf("%w: summarizer", errMissingDependency)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return nil
}

// Run serves the HTTP facade until ctx is done.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	handler, err := newHTTPHandler(cfg, deps)
	if err != nil {
		return err
	}
	if deps.Watcher != nil {
		if err := handler.startSync(ctx, deps.Watcher, deps.OperationLogger); err != nil {
			return fmt.Errorf("watch store: %w", err)
		}
	}
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		handler.logger.Info("reflections api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			handler.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if handler.metrics != nil {
		router.GET("/metrics", gin.WrapH(handler.metrics))
	}

	api := router.Group("/api")
	api.GET("/state", handler.handleState)
	api.GET("/tokens", handler.handleTokens)
	api.GET("/reflections", handler.handleListReflections)
	api.POST("/reflections", handler.handleSubmit)
	api.POST("/purchases", handler.handlePurchase)
	api.POST("/equip", handler.handleEquip)
	api.GET("/shop", handler.handleShop)
	api.GET("/prompts/random", handler.handleRandomPrompt)
	api.POST("/summary", handler.handleSummary)
	api.GET("/events", handler.handleEvents)

	return router
}

type httpHandler struct {
	cfg        Config
	logger     *zap.Logger
	service    *journal.Service
	catalog    *catalog.Catalog
	summarizer *summary.Summarizer
	metrics    http.Handler
	events     *eventHub
	mutations  sync.Mutex
}

func newHTTPHandler(cfg Config, deps Dependencies) (*httpHandler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &httpHandler{
		cfg:        cfg,
		logger:     deps.Logger,
		service:    deps.Service,
		catalog:    deps.Catalog,
		summarizer: deps.Summarizer,
		metrics:    deps.Metrics,
		events:     newEventHub(),
	}, nil
}

func (handler *httpHandler) startSync(ctx context.Context, watcher journal.Watcher, logger journal.OperationLogger) error {
	listener, err := journal.NewSyncListener(handler.service.States(), handler.publishSnapshot, logger)
	if err != nil {
		return err
	}
	changes, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}
	go func() {
		_ = listener.Run(ctx, changes)
	}()
	return nil
}

func (handler *httpHandler) publishSnapshot(_ context.Context, snapshot journal.Snapshot) {
	handler.events.publish(newSnapshotPayload(snapshot))
}

func (handler *httpHandler) handleState(ctx *gin.Context) {
	snapshot, ok := handler.loadSnapshot(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, newSnapshotPayload(snapshot))
}

func (handler *httpHandler) handleTokens(ctx *gin.Context) {
	snapshot, ok := handler.loadSnapshot(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"tokens": newTokenPayloads(snapshot.Tokens)})
}

func (handler *httpHandler) handleListReflections(ctx *gin.Context) {
	limit := handler.cfg.EntryListLimit
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_limit", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	snapshot, ok := handler.loadSnapshot(ctx)
	if !ok {
		return
	}
	recent := journal.RecentEntries(snapshot.State, limit)
	entries := make([]entryPayload, 0, len(recent))
	for _, entry := range recent {
		entries = append(entries, newEntryPayload(entry))
	}
	ctx.JSON(http.StatusOK, gin.H{"entries": entries, "total": snapshot.Display.EntryCount})
}

func (handler *httpHandler) handleSubmit(ctx *gin.Context) {
	var request submitRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()

	handler.mutations.Lock()
	result, err := handler.service.Submit(requestCtx, journal.SubmitRequest{Text: request.Text, Prompt: request.Prompt})
	handler.mutations.Unlock()
	if err != nil {
		handler.respondError(ctx, "submit failed", err)
		return
	}
	payload := newSnapshotPayload(result.Snapshot)
	handler.events.publish(payload)
	ctx.JSON(http.StatusCreated, gin.H{
		"entry":    newEntryPayload(result.Entry),
		"reward":   rewardPayload{Bonus: result.Reward.Bonus, Earned: result.Reward.Earned},
		"streak":   streakPayload{NewStreak: result.Transition.NewStreak, IsFirstToday: result.Transition.IsFirstToday},
		"snapshot": payload,
	})
}

func (handler *httpHandler) handlePurchase(ctx *gin.Context) {
	var request purchaseRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with itemId"))
		return
	}
	cost, err := handler.catalog.ResolveCost(request.ItemID, request.Cost)
	if err != nil {
		handler.respondError(ctx, "purchase rejected", err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()

	handler.mutations.Lock()
	result, err := handler.service.Purchase(requestCtx, journal.PurchaseRequest{ItemID: request.ItemID, Cost: cost})
	handler.mutations.Unlock()
	if errors.Is(err, journal.ErrInsufficientFunds) {
		handler.respondStatus(ctx, statusInsufficientFunds)
		return
	}
	if err != nil {
		handler.respondError(ctx, "purchase failed", err)
		return
	}
	payload := newSnapshotPayload(result.Snapshot)
	handler.events.publish(payload)
	ctx.JSON(http.StatusOK, gin.H{"status": string(result.Status), "snapshot": payload})
}

func (handler *httpHandler) handleEquip(ctx *gin.Context) {
	var request equipRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with itemId"))
		return
	}
	if _, err := handler.catalog.Item(request.ItemID); err != nil {
		handler.respondError(ctx, "equip rejected", err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()

	handler.mutations.Lock()
	snapshot, err := handler.service.Equip(requestCtx, request.ItemID)
	handler.mutations.Unlock()
	if errors.Is(err, journal.ErrNotOwned) {
		handler.respondStatus(ctx, statusNotOwned)
		return
	}
	if err != nil {
		handler.respondError(ctx, "equip failed", err)
		return
	}
	payload := newSnapshotPayload(snapshot)
	handler.events.publish(payload)
	ctx.JSON(http.StatusOK, gin.H{"status": statusEquipped, "snapshot": payload})
}

func (handler *httpHandler) handleShop(ctx *gin.Context) {
	snapshot, ok := handler.loadSnapshot(ctx)
	if !ok {
		return
	}
	items := handler.catalog.Items()
	payload := make([]shopItemPayload, 0, len(items))
	for _, item := range items {
		itemID, err := journal.NewItemID(item.ID)
		if err != nil {
			continue
		}
		payload = append(payload, shopItemPayload{
			Item:     item,
			Owned:    snapshot.State.Owns(itemID),
			Equipped: snapshot.State.ActiveCosmetic == itemID,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"items": payload, "goldBalance": snapshot.Display.GoldBalance})
}

func (handler *httpHandler) handleRandomPrompt(ctx *gin.Context) {
	prompt, err := handler.catalog.RandomPrompt()
	if err != nil {
		ctx.JSON(http.StatusNotFound, errorResponse("no_prompts", "no prompts configured"))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"prompt": prompt})
}

func (handler *httpHandler) handleSummary(ctx *gin.Context) {
	snapshot, ok := handler.loadSnapshot(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	result, err := handler.summarizer.Summarize(requestCtx, snapshot.State)
	if errors.Is(err, summary.ErrNoReflections) {
		ctx.JSON(http.StatusBadRequest, errorResponse("no_reflections", "write a reflection first"))
		return
	}
	if err != nil {
		handler.logger.Error("summary failed", zap.Error(err))
		ctx.JSON(http.StatusBadGateway, errorResponse("summary_error", "summary unavailable"))
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (handler *httpHandler) handleEvents(ctx *gin.Context) {
	events, unsubscribe := handler.events.subscribe()
	defer unsubscribe()
	snapshot, ok := handler.loadSnapshot(ctx)
	if !ok {
		return
	}
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.SSEvent(eventSnapshot, newSnapshotPayload(snapshot))
	ctx.Writer.Flush()
	ctx.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Request.Context().Done():
			return false
		case payload := <-events:
			ctx.SSEvent(eventSnapshot, payload)
			return true
		}
	})
}

func (handler *httpHandler) loadSnapshot(ctx *gin.Context) (journal.Snapshot, bool) {
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	snapshot, err := handler.service.Snapshot(requestCtx)
	if err != nil {
		handler.logger.Error("state load failed", zap.Error(err))
		ctx.JSON(http.StatusBadGateway, errorResponse("store_error", "state unavailable"))
		return journal.Snapshot{}, false
	}
	return snapshot, true
}

func (handler *httpHandler) respondStatus(ctx *gin.Context, status string) {
	snapshot, ok := handler.loadSnapshot(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status":   status,
		"snapshot": newSnapshotPayload(snapshot),
	})
}

func (handler *httpHandler) respondError(ctx *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, journal.ErrEmptyText):
		ctx.JSON(http.StatusBadRequest, errorResponse("empty_text", "reflection text is empty"))
	case errors.Is(err, journal.ErrInvalidItemID), errors.Is(err, journal.ErrInvalidCost):
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", err.Error()))
	case errors.Is(err, catalog.ErrCostMismatch):
		ctx.JSON(http.StatusBadRequest, errorResponse("cost_mismatch", err.Error()))
	case errors.Is(err, catalog.ErrUnknownItem):
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_item", err.Error()))
	default:
		handler.logger.Error(message, zap.Error(err))
		ctx.JSON(http.StatusBadGateway, errorResponse("store_error", message))
	}
}
