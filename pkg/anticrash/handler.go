// Package anticrash recovers panics, counts them and shuts the bot down when
// too many happen in a short window.
package anticrash

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

// Defaults for the error window
const (
	DefaultMaxErrors     = 15
	DefaultResetInterval = 5 * time.Second
	DefaultCheckInterval = 1 * time.Second
)

// Handler manages error counting and reporting
type Handler struct {
	errorCount    int32
	webhookURL    string
	stopChan      chan struct{}
	stopOnce      sync.Once
	shutdownFunc  func()
	exitFunc      func(code int)
	maxErrors     int32
	resetInterval time.Duration
	checkInterval time.Duration
	httpClient    *http.Client
}

// ReportOptions contains options for reporting an error
type ReportOptions struct {
	Error   string
	Message string
}

var (
	handler *Handler
	once    sync.Once
)

// Init initializes the global handler
func Init(webhookURL string, shutdownFunc func()) *Handler {
	once.Do(func() {
		handler = NewHandler(webhookURL, shutdownFunc)
		handler.Start()
	})
	return handler
}

// Get returns the global handler instance, nil before Init
func Get() *Handler {
	return handler
}

// NewHandler creates a handler. Call Start to begin monitoring.
func NewHandler(webhookURL string, shutdownFunc func()) *Handler {
	return &Handler{
		webhookURL:    webhookURL,
		stopChan:      make(chan struct{}),
		shutdownFunc:  shutdownFunc,
		exitFunc:      os.Exit,
		maxErrors:     DefaultMaxErrors,
		resetInterval: DefaultResetInterval,
		checkInterval: DefaultCheckInterval,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Start begins the error monitoring goroutines
func (h *Handler) Start() {
	go func() {
		ticker := time.NewTicker(h.resetInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				atomic.StoreInt32(&h.errorCount, 0)
			case <-h.stopChan:
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(h.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if h.Exceeded() {
					h.crash()
					return
				}
			case <-h.stopChan:
				return
			}
		}
	}()
}

// Exceeded reports whether the current window holds more errors than allowed
func (h *Handler) Exceeded() bool {
	return atomic.LoadInt32(&h.errorCount) > h.maxErrors
}

func (h *Handler) crash() {
	start := time.Now()
	logger.Warn("Se detectó un número demasiado alto de errores", "CRITICAL")
	logger.Warn("Apagando...", "CRITICAL")

	h.Report(ReportOptions{
		Error:   "Critical Error",
		Message: "Número inusual de errores. Apagando...",
	})

	if h.shutdownFunc != nil {
		h.shutdownFunc()
	}

	logger.Warn(fmt.Sprintf("Finalizando proceso... Tiempo total: %v", time.Since(start)), "CRITICAL")
	h.exitFunc(1)
}

// Stop stops the monitoring goroutines
func (h *Handler) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// ErrorCount returns the errors counted in the current window
func (h *Handler) ErrorCount() int {
	return int(atomic.LoadInt32(&h.errorCount))
}

// IncrementError increments the error count
func (h *Handler) IncrementError() {
	count := atomic.AddInt32(&h.errorCount, 1)
	logger.Error(fmt.Sprintf("Error count: %d", count), "AntiCrash")
}

// HandlePanic handles a recovered panic
func (h *Handler) HandlePanic(recovered any) {
	h.IncrementError()
	logger.Debug("Unhandled Panic/Catch", "AntiCrash")
	logger.Error(fmt.Sprintf("%v", recovered), "SYS")
}

// Report sends an error report to the Discord webhook
func (h *Handler) Report(data ReportOptions) {
	if h.webhookURL == "" {
		return
	}

	payload := map[string]any{
		"embeds": []any{
			map[string]any{
				"author":      map[string]string{"name": fmt.Sprintf("Error %s", data.Error)},
				"description": data.Message,
				"color":       0x8B6F6F,
				"footer":      map[string]string{"text": "JazzBot Go"},
				"timestamp":   time.Now().Format(time.RFC3339),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to marshal error report: %v", err), "AntiCrash")
		return
	}

	req, err := http.NewRequest(http.MethodPost, h.webhookURL, bytes.NewReader(body))
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to create webhook request: %v", err), "AntiCrash")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to send error report: %v", err), "AntiCrash")
		return
	}
	defer resp.Body.Close()

	logger.Warn(fmt.Sprintf("Sent ErrorReport to Webhook, Status: %d", resp.StatusCode), "AntiCrash")
}

// Recover returns a recovery function for use in deferred calls
func Recover() func() {
	return func() {
		if r := recover(); r != nil {
			handlePanic(r)
		}
	}
}

// Capture runs fn and turns a panic into an error
func Capture(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			handlePanic(r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func handlePanic(r any) {
	if handler != nil {
		handler.HandlePanic(r)
		return
	}
	logger.Error(fmt.Sprintf("Panic recovered (no handler): %v", r), "AntiCrash")
}
