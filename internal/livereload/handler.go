package livereload

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// Version is reported by the welcome endpoint.
var Version = "dev"

// Handler returns the live-reload HTTP surface for h. Callers may mount
// further routes on the returned router.
func (h *Hub) Handler() chi.Router {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins in dev
		},
	}

	r := chi.NewRouter()
	r.Get("/", h.handleWelcome)
	r.Get("/livereload", func(w http.ResponseWriter, req *http.Request) {
		h.HandleWebSocket(upgrader, w, req)
	})
	r.Get("/livereload.js", h.handleScript)
	r.Get("/changed", h.handleChanged)
	r.Post("/changed", h.handleChanged)
	return r
}

// HandleWebSocket upgrades the request and serves the client until it disconnects.
func (h *Hub) HandleWebSocket(upgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := newWSClient(conn)
	h.Register(c)
	defer func() {
		h.Unregister(c.ID())
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.handleMessage(c, data)
	}
}

func (h *Hub) handleMessage(c *wsClient, data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Debug("ignoring malformed message", "id", c.ID(), "error", err)
		return
	}

	switch msg.Command {
	case CommandHello:
		err := c.Send(HelloMessage{
			Command:    CommandHello,
			Protocols:  []string{Protocol7},
			ServerName: h.serverName,
		})
		if err != nil {
			h.logger.Warn("hello failed", "id", c.ID(), "error", err)
		}
	case CommandInfo:
		c.setURL(msg.URL)
		h.logger.Debug("client info", "id", c.ID(), "url", msg.URL)
	case CommandCustom:
		h.BroadcastExcept(c.ID(), json.RawMessage(data))
	default:
		h.logger.Debug("ignoring command", "id", c.ID(), "command", msg.Command)
	}
}

func (h *Hub) handleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		h.serverName: "Welcome",
		"version":    Version,
	})
}

func (h *Hub) handleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(ClientScript))
}

type changedRequest struct {
	Files []string `json:"files"`
}

type changedResponse struct {
	Clients []string `json:"clients"`
	Files   []string `json:"files"`
}

func (h *Hub) handleChanged(w http.ResponseWriter, r *http.Request) {
	files := splitFiles(r.URL.Query().Get("files"))

	if r.Method == http.MethodPost && r.ContentLength != 0 {
		var body changedRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		files = append(files, body.Files...)
	}

	for _, f := range files {
		h.BroadcastAll(NewReloadMessage(f))
	}
	if len(files) > 0 {
		h.logger.Info("changed", "files", files, "clients", h.ClientCount())
	}

	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, changedResponse{Clients: h.Clients(), Files: files})
}

func splitFiles(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
