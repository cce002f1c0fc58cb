package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/human-glitch/github-releaser/internal/config"
	"github.com/human-glitch/github-releaser/internal/events"
	"github.com/human-glitch/github-releaser/internal/release"
	"github.com/human-glitch/github-releaser/internal/trace"
	"github.com/human-glitch/github-releaser/pkg/models"
)

// Reformatter rewrites the body of an already published release.
type Reformatter interface {
	Reformat(ctx context.Context, tag string) (*release.Result, error)
}

type Handler struct {
	config      *config.Config
	repo        models.Repository
	reformatter Reformatter

	// 异步任务的生命周期
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// GitHub 对同一个 release 会先后发送 created 和 published，每个 tag 只跑一个任务
	mu       sync.Mutex
	inFlight map[string]bool
}

func NewHandler(cfg *config.Config, reformatter Reformatter) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		config:      cfg,
		repo:        models.Repository{Owner: cfg.GitHub.Owner, Name: cfg.GitHub.Repo},
		reformatter: reformatter,
		ctx:         ctx,
		cancel:      cancel,
		inFlight:    make(map[string]bool),
	}
}

// HandleWebhook 通用 Webhook 处理器
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. 读取请求体（需要在验证签名之前读取）
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	// 2. 验证 Webhook 签名
	if err := h.validateSignature(r, body); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	// 3. 获取事件类型
	eventType := r.Header.Get("X-GitHub-Event")
	if eventType == "" {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("missing X-GitHub-Event header"))
		return
	}

	// 4. 用 X-GitHub-Delivery 作为追踪 ID
	traceID := trace.NewTraceID(trace.WebhookPrefix)
	delivery := r.Header.Get("X-GitHub-Delivery")
	if delivery != "" {
		traceID = trace.TraceID(fmt.Sprintf("%s_%s", trace.WebhookPrefix, delivery))
	}
	ctx := trace.NewContext(h.ctx, traceID)
	log := trace.Logger(ctx)
	log.Infof("Received webhook event: %s", eventType)
	log.Debugf("Request body size: %d bytes", len(body))

	// 5. 根据事件类型分发处理
	switch eventType {
	case "ping":
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	case events.EventRelease:
		h.handleRelease(ctx, w, delivery, body)
	default:
		log.Debugf("Unhandled event type: %s", eventType)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("event type not handled"))
	}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleRelease 处理 release 事件，发布后异步重新整理发布说明
func (h *Handler) handleRelease(ctx context.Context, w http.ResponseWriter, deliveryID string, body []byte) {
	log := trace.Logger(ctx)

	event, err := events.ParseWebhookEvent(events.EventRelease, deliveryID, body)
	if err != nil {
		log.Errorf("Failed to parse release event: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("invalid release event"))
		return
	}

	if !h.sameRepository(event.Repository) {
		log.Infof("Ignoring release event for %s, serving %s", event.Repository, h.repo)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("repository not handled"))
		return
	}

	if !event.ShouldReformat() {
		log.Debugf("Ignoring release action %q for %s", event.Action, event.Tag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("release action not handled"))
		return
	}

	if !h.begin(event.Tag) {
		log.Infof("Reformat of %s already running, ignoring action %q", event.Tag, event.Action)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("release reformat already running"))
		return
	}

	log.Infof("Reformatting release notes for %s (action=%s, sender=%s, installation=%d)",
		event.Tag, event.Action, event.Sender, event.InstallationID)

	h.wg.Add(1)
	go func(tag string, traceCtx context.Context) {
		defer h.wg.Done()
		defer h.end(tag)
		traceLog := trace.Logger(traceCtx)
		res, err := h.reformatter.Reformat(traceCtx, tag)
		if err != nil {
			traceLog.Errorf("Reformat release %s error: %v", tag, err)
			return
		}
		if res.Unchanged {
			traceLog.Infof("Release %s already formatted", tag)
			return
		}
		traceLog.Infof("Release %s reformatted: %s", tag, res.ReleaseURL)
	}(event.Tag, ctx)

	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte("release reformat started"))
}

// begin marks tag as being reformatted. It reports false when a run for tag is already in flight.
func (h *Handler) begin(tag string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inFlight[tag] {
		return false
	}
	h.inFlight[tag] = true
	return true
}

func (h *Handler) end(tag string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inFlight, tag)
}

func (h *Handler) sameRepository(fullName string) bool {
	if h.repo.Owner == "" || h.repo.Name == "" || fullName == "" {
		return true
	}
	return strings.EqualFold(fullName, h.repo.String())
}

// Wait blocks until every reformat started by the handler has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// Shutdown cancels in-flight reformats and waits for them to return.
func (h *Handler) Shutdown() {
	h.cancel()
	h.wg.Wait()
}
