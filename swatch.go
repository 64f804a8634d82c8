// Swatches game server
//
// Each game ID holds one shared round of the color guessing game. Every browser
// connected to the same game sees the same palette, and any of them may pick a
// swatch, deal new colors, or switch difficulty.
//
// Features:
// - WebSockets per game ID: /path/:gameid and /path/:gameid/ws
// - One hub goroutine per game applies picks in arrival order
// - Session changes are pushed to every connected client as a "state" message
// - Errors (bad index, unknown difficulty) go only to the client that caused them
// - JSON snapshot of the current round at /path/:gameid/state
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - QR code of the game URL for sharing, backed by go-qrcode

package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/swatches/games/swatches"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var errMissingIndex = errors.New("pick is missing a swatch index")

// Messages coming from clients
type ClientMessage struct {
	Type       string `json:"type"`                 // "pick", "new_game", "difficulty"
	Index      *int   `json:"index,omitempty"`      // pick
	Difficulty int    `json:"difficulty,omitempty"` // difficulty
}

// StateMessage is everything a client needs to draw the board.
type StateMessage struct {
	Type             string            `json:"type"` // "state"
	Swatches         []swatches.Swatch `json:"swatches"`
	Phase            swatches.Phase    `json:"phase"`
	Difficulty       int               `json:"difficulty"`
	Difficulties     []int             `json:"difficulties"`
	HeaderBackground string            `json:"header_background"`
	HeaderTitle      string            `json:"header_title"`
	Message          string            `json:"message"`
	NewGameText      string            `json:"new_game_text"`
}

// SimpleMessage is for notifications to a single client ("error").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type actionRequest struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	clients map[*Client]bool
	session *swatches.Session

	difficulties []int

	register chan *Client
	unreg    chan *Client
	actions  chan actionRequest
	done     chan struct{}
	once     sync.Once

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
	state      StateMessage
}

func newSource(cfg *Config) swatches.Source {
	if cfg.seed != 0 {
		return swatches.NewSource(cfg.seed)
	}
	return swatches.NewRandomSource()
}

func newHub(cfg *Config, gameID string) (*Hub, error) {
	now := time.Now()
	h := &Hub{
		id:           gameID,
		clients:      make(map[*Client]bool),
		difficulties: slices.Clone(cfg.difficulties),
		register:     make(chan *Client),
		unreg:        make(chan *Client),
		actions:      make(chan actionRequest),
		done:         make(chan struct{}),
		createdAt:    now,
		lastActive:   now,
	}

	var opts []swatches.Option
	if cfg.hideTitle {
		opts = append(opts, swatches.HideTitleUntilWon())
	}

	session, err := swatches.New(swatches.NewGenerator(newSource(cfg)), cfg.defaultDifficulty, opts...)
	if err != nil {
		return nil, err
	}

	h.session = session
	h.state = h.stateMessage(session.View())
	roundsDealt.WithLabelValues(strconv.Itoa(session.Difficulty())).Inc()

	// Runs on the hub goroutine with h.mu held, see handleAction.
	session.Subscribe(func(v swatches.View) {
		h.state = h.stateMessage(v)
		if v.Phase == swatches.Start {
			roundsDealt.WithLabelValues(strconv.Itoa(v.Difficulty)).Inc()
		}
		h.broadcastLocked(h.state)
	})

	return h, nil
}

func (h *Hub) stateMessage(v swatches.View) StateMessage {
	return StateMessage{
		Type:             "state",
		Swatches:         v.Swatches,
		Phase:            v.Phase,
		Difficulty:       v.Difficulty,
		Difficulties:     h.difficulties,
		HeaderBackground: v.HeaderBackground,
		HeaderTitle:      v.HeaderTitle,
		Message:          v.Message,
		NewGameText:      v.NewGameText,
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true
			h.sendLocked(c, h.state)
			h.mu.Unlock()

			logf(cfg, "GAMES: Player %s connected to %s", c.playerID, h.id)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case ar := <-h.actions:
			h.handleAction(cfg, ar)

		case <-h.done:
			return
		}
	}
}

// handleAction applies one client message to the session. Any resulting
// state change is broadcast by the session subscriber.
func (h *Hub) handleAction(cfg *Config, ar actionRequest) {
	c := ar.client
	msg := ar.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	var err error

	switch msg.Type {
	case "pick":
		if msg.Index == nil {
			err = errMissingIndex
			break
		}

		before := h.session.Phase()
		err = h.session.SelectSwatch(*msg.Index)
		if err != nil {
			break
		}

		outcome := h.session.Phase().String()
		if before == swatches.Won {
			outcome = "ignored"
		}
		picksTotal.WithLabelValues(outcome).Inc()

		logf(cfg, "GAMES: Player %s picked swatch %d in %s (%s)", c.playerID, *msg.Index, h.id, outcome)

	case "new_game":
		err = h.session.Restart()

	case "difficulty":
		if !slices.Contains(h.difficulties, msg.Difficulty) {
			err = fmt.Errorf("difficulty %d is not one of %v", msg.Difficulty, h.difficulties)
			break
		}
		err = h.session.SetDifficulty(msg.Difficulty)
	}

	if err != nil {
		logf(cfg, "GAMES: Rejected %q from %s in %s: %v", msg.Type, c.playerID, h.id, err)

		h.sendLocked(c, SimpleMessage{
			Type:    "error",
			Message: err.Error(),
		})
	}
}

// sendLocked queues msg for one client, dropping the client if it has
// fallen behind. Assumes h.mu is held.
func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

func (h *Hub) snapshot() StateMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.state
}

// closeAll disconnects all clients of this hub and stops its loop (used by reaper).
func (h *Hub) closeAll() {
	h.once.Do(func() {
		close(h.done)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "swatches_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated round.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newGameManager(idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, gameID string) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub, nil
	}

	hub, err := newHub(cfg, gameID)
	if err != nil {
		return nil, err
	}

	gm.hubs[gameID] = hub
	gamesCreated.Inc()
	activeGames.Inc()

	go hub.run(cfg)

	return hub, nil
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	const max = byte(255 - (256 % len(letters)))

	for {
		out := make([]byte, 0, 8)
		buf := make([]byte, 16)

		for len(out) < cap(out) {
			if _, err := rand.Read(buf); err != nil {
				panic("crypto/rand failure: " + err.Error())
			}
			for _, b := range buf {
				if b <= max && len(out) < cap(out) {
					out = append(out, letters[int(b)%len(letters)])
				}
			}
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap removes hubs that have been idle since before cutoff.
func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	reaped := 0
	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			activeGames.Dec()
			reaped++
			go hub.closeAll()
		}
	}

	return reaped
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		gm.reap(time.Now().Add(-gm.idleTimeout))
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub, err := gm.getHub(cfg, gameID)
		if err != nil {
			http.Error(w, "unable to start game", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, w.Header())
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "pick", "new_game", "difficulty":
			select {
			case h.actions <- actionRequest{
				client: c,
				msg:    msg,
			}:
			case <-h.done:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// serveState returns the current round as JSON, for clients without websockets.
func serveState(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, err := gm.getHub(cfg, ps.ByName("gameid"))
		if err != nil {
			http.Error(w, "unable to start game", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(hub.snapshot()); err != nil {
			errs <- err
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func serveQR(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		qrHandler(cfg, errs, w, r, ps)
	}
}

func qrHandler(cfg *Config, errs chan<- error, w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	securityHeaders(cfg, w)

	if _, err := w.Write(png); err != nil {
		errs <- err
	}
}

func serveIndex(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		cacheHeaders(w)
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		data, err := assets.ReadFile("swatches/index.html")
		if err != nil {
			errs <- err
			return
		}

		written, err := w.Write(data)
		if err != nil {
			errs <- err
			return
		}

		logf(cfg, "SERVE: Game page %s (%s) to %s",
			r.URL.Path,
			humanReadableSize(int64(written)),
			realIP(r),
		)
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s for %s", path, gameID, realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerSwatchGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/state    → JSON snapshot of that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerSwatchGame(cfg *Config, path string, mux *httprouter.Router, errs chan<- error) *GameManager {
	gm := newGameManager(cfg.sessionTimeout)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))
	mux.GET(cfg.prefix+path+"/:gameid", serveIndex(cfg, errs))
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))
	mux.GET(cfg.prefix+path+"/:gameid/state", serveState(cfg, gm, errs))
	mux.GET(cfg.prefix+path+"/:gameid/qr", serveQR(cfg, errs))

	return gm
}
