package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guslan/chip8vm"
)

var upgrader = websocket.Upgrader{} // use default options

// displayWriteWait bounds how long a frame may block the CPU on a slow viewer
const displayWriteWait = 250 * time.Millisecond

// Boot implements Display.
func (server *Server) Boot() error {
	return nil
}

func (server *Server) setWs(conn *websocket.Conn) {
	server.wsMutex.Lock()
	server.socket = conn
	server.wsMutex.Unlock()
}

func (server *Server) unsetWs(conn *websocket.Conn) {
	server.wsMutex.Lock()
	if server.socket == conn {
		server.socket = nil
	}
	server.wsMutex.Unlock()
}

// Render implements Display.
func (server *Server) Render(screen chip8vm.Screen) error {
	server.wsMutex.Lock()
	defer server.wsMutex.Unlock()

	if server.socket == nil {
		return nil
	}

	err := server.socket.SetWriteDeadline(time.Now().Add(displayWriteWait))
	if err == nil {
		err = server.socket.WriteMessage(websocket.BinaryMessage, screen[:])
	}
	if err != nil {
		// a dropped viewer must not stop the program
		server.logger.Warn("Display disconnected", slog.Any("error", err))
		server.socket = nil
	}

	return nil
}

func (server *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		server.logger.Error("upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	server.logger.Info("Connecting to display")
	screen := server.cpu.Snapshot().Screen
	if err := conn.WriteMessage(websocket.BinaryMessage, screen[:]); err != nil {
		return
	}
	server.setWs(conn)
	defer server.unsetWs(conn)

	// drain until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			server.logger.Info("Disconnecting from display")
			return
		}
	}
}

// handleKeys reads two byte messages: the key and 1 for pressed or 0 for released
func (server *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		server.logger.Error("upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if len(msg) != 2 || msg[0] >= chip8vm.KeyCount {
			server.logger.Warn("Bad key message", slog.Int("len", len(msg)))
			continue
		}

		if msg[1] != 0 {
			server.Press(msg[0])
		} else {
			server.Release(msg[0])
		}
	}
}
