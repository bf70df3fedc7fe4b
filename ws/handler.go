package ws

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"driftroom/runtime"
)

// Handler upgrades HTTP requests to websocket connections and hands them to
// the coordinator.
type Handler struct {
	log      *slog.Logger
	coord    *runtime.Coordinator
	upgrader websocket.Upgrader

	allowed  map[string]struct{}
	allowAll bool
}

// NewHandler builds the upgrade handler. Origins are normalized to
// scheme://host; "*" anywhere in the list allows everything, an empty list
// allows only same-origin browsers (no Origin header is accepted too, for
// non-browser clients).
func NewHandler(log *slog.Logger, coord *runtime.Coordinator, origins []string) *Handler {
	h := &Handler{
		log:     log,
		coord:   coord,
		allowed: make(map[string]struct{}),
	}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			h.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn("invalid origin ignored", "origin", origin)
			continue
		}
		h.allowed[normalized] = struct{}{}
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	connID := uuid.NewString()
	client := newClient(connID, h.log, conn, h.coord)

	h.coord.Connect(connID, clientIP(r), client)
	go client.writePump()
	go client.readPump()
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	if _, exists := h.allowed[normalized]; exists {
		return true
	}
	// Same-origin requests pass even without configuration.
	return strings.EqualFold(hostOf(normalized), r.Host)
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func hostOf(normalized string) string {
	_, host, _ := strings.Cut(normalized, "://")
	return host
}

// clientIP prefers the leftmost forwarded address so bans survive a proxy
// in front of the server.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
