package notes

import (
	"context"
	"fmt"
	"time"

	"notesync/cmd/server/ctxkeys"
	"notesync/cmd/server/handlers/httperr"
	"notesync/internal/logger"
	"notesync/internal/services/notes"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// WSClosePolicyViolation represents WebSocket close code for policy violation
	WSClosePolicyViolation = 1008

	wsWriteTimeout     = 10 * time.Second
	wsPingInterval     = 25 * time.Second
	wsPingWriteTimeout = 5 * time.Second

	msgFailedToCloseWebSocketConnection = "failed to close WebSocket connection"
)

// Streamer attaches live snapshot subscriptions for one user.
type Streamer interface {
	Subscribe(ctx context.Context, ownerID bson.ObjectID) *notes.Subscription
}

// WebSocketHandlers contains WebSocket-related handlers
type WebSocketHandlers struct {
	streamer      Streamer
	jwtSecret     string
	maxSessionSec int
}

// NewWebSocketHandlers creates new WebSocket handlers
func NewWebSocketHandlers(streamer Streamer, jwtSecret string, maxSessionSec int) *WebSocketHandlers {
	return &WebSocketHandlers{
		streamer:      streamer,
		jwtSecret:     jwtSecret,
		maxSessionSec: maxSessionSec,
	}
}

// WSUpgrade upgrades HTTP connection to WebSocket for notes streaming
func (h *WebSocketHandlers) WSUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		// Validate JWT token from query parameter
		token := c.Query("token")
		if token == "" {
			logger.L().Warn("missing token in websocket upgrade", "handler", "WSUpgrade", "path", c.Path())
			return httperr.Fail(httperr.E{
				Status:  401,
				Message: "Missing token",
			})
		}

		userID, userEmail, err := h.validateJWT(token)
		if err != nil {
			logger.L().Error("invalid token in websocket upgrade", "handler", "WSUpgrade", "path", c.Path(), "error", err)
			return httperr.Fail(httperr.E{
				Status:  401,
				Message: "Invalid token",
			})
		}

		// Store user info and context in locals for the WebSocket handler
		c.Locals(ctxkeys.UserIDKey, userID.Hex())
		c.Locals(ctxkeys.UserEmailKey, userEmail)
		// Use Fiber's request-bound context so WSNotesStream gets a real context.Context.
		c.Locals(ctxkeys.ParentCtxKey, c.UserContext())

		return c.Next()
	}

	logger.L().Warn("websocket upgrade required", "handler", "WSUpgrade", "path", c.Path())
	return httperr.Fail(httperr.E{
		Status:  400,
		Message: "WebSocket upgrade required",
	})
}

// WSNotesStream handles WebSocket connections that stream full note
// snapshots. The first frame carries the user's current notes; every
// mutation after that pushes a fresh snapshot.
func (h *WebSocketHandlers) WSNotesStream(c *websocket.Conn) {
	userID, parentCtx, err := h.initializeConnection(c)
	if err != nil {
		h.closeConnection(c)
		return
	}

	ctx, cancelCtx := context.WithCancel(parentCtx)
	defer cancelCtx()

	sub := h.streamer.Subscribe(ctx, userID)
	defer sub.Cancel()

	logger.L().Info("WebSocket connection established", "user_id", userID.Hex())

	sessionTimer := h.startSessionTimer(c, userID, cancelCtx)
	defer h.stopSessionTimer(sessionTimer)

	ping := h.startKeepAlive(c, userID)
	defer ping.Stop()

	go h.handleOutgoingMessages(ctx, c, userID, sub)

	h.handleIncomingMessages(c, userID)

	logger.L().Info("WebSocket connection closed", "user_id", userID.Hex())
	cancelCtx()
}

// initializeConnection validates and sets up the WebSocket connection
func (h *WebSocketHandlers) initializeConnection(c *websocket.Conn) (bson.ObjectID, context.Context, error) {
	userIDStr, ok := c.Locals(ctxkeys.UserIDKey).(string)
	if !ok {
		logger.L().Error(ctxkeys.UserIDKey + " not found in WebSocket context")
		return bson.ObjectID{}, nil, fmt.Errorf(ctxkeys.UserIDKey + " not found")
	}

	userID, err := bson.ObjectIDFromHex(userIDStr)
	if err != nil {
		logger.L().Error("invalid "+ctxkeys.UserIDKey+" in WebSocket context", ctxkeys.UserIDKey, userIDStr, "error", err)
		return bson.ObjectID{}, nil, fmt.Errorf("invalid %s: %w", ctxkeys.UserIDKey, err)
	}

	parentCtx, ok := c.Locals(ctxkeys.ParentCtxKey).(context.Context)
	if !ok {
		logger.L().Error(ctxkeys.ParentCtxKey + " not found in WebSocket context")
		return bson.ObjectID{}, nil, fmt.Errorf(ctxkeys.ParentCtxKey + " not found")
	}

	return userID, parentCtx, nil
}

// closeConnection safely closes the WebSocket connection
func (h *WebSocketHandlers) closeConnection(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		logger.L().Error(msgFailedToCloseWebSocketConnection, "error", err)
	}
}

// startSessionTimer creates and starts the session timeout timer
func (h *WebSocketHandlers) startSessionTimer(c *websocket.Conn, userID bson.ObjectID, cancelCtx context.CancelFunc) *time.Timer {
	return time.AfterFunc(time.Duration(h.maxSessionSec)*time.Second, func() {
		logger.L().Info("WebSocket session timeout", "user_id", userID.Hex())
		h.sendCloseMessage(c, userID)
		h.closeConnection(c)
		cancelCtx()
	})
}

// stopSessionTimer safely stops the session timer
func (h *WebSocketHandlers) stopSessionTimer(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}

// sendCloseMessage sends a close frame to the client
func (h *WebSocketHandlers) sendCloseMessage(c *websocket.Conn, userID bson.ObjectID) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(WSClosePolicyViolation, "session timeout"))
	if err != nil {
		logger.L().Error("failed to send close message", "error", err, "user_id", userID.Hex())
	}
}

// startKeepAlive starts the keep-alive ping mechanism
func (h *WebSocketHandlers) startKeepAlive(c *websocket.Conn, userID bson.ObjectID) *time.Ticker {
	ping := time.NewTicker(wsPingInterval)
	go func() {
		for range ping.C {
			if h.sendPing(c, userID) != nil {
				return
			}
		}
	}()
	return ping
}

// sendPing sends a ping message to the client
func (h *WebSocketHandlers) sendPing(c *websocket.Conn, userID bson.ObjectID) error {
	if err := c.SetWriteDeadline(time.Now().Add(wsPingWriteTimeout)); err != nil {
		logger.L().Error("failed to set write deadline", "error", err, "user_id", userID.Hex())
		return err
	}
	if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
		logger.L().Warn("failed to write ping message", "error", err, "user_id", userID.Hex())
		return err
	}
	return nil
}

// handleOutgoingMessages forwards snapshots and stream errors to the client
func (h *WebSocketHandlers) handleOutgoingMessages(ctx context.Context, c *websocket.Conn, userID bson.ObjectID, sub *notes.Subscription) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("panic in WebSocket sender", "error", r, "user_id", userID.Hex())
		}
	}()

	for {
		select {
		case snapshot := <-sub.Snapshots():
			if h.writeFrame(c, userID, snapshotFrame(snapshot)) != nil {
				return
			}
		case err := <-sub.Errs():
			if h.writeFrame(c, userID, errorFrame(err)) != nil {
				return
			}
		case <-sub.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

func snapshotFrame(snapshot []*notes.Note) map[string]any {
	if snapshot == nil {
		snapshot = []*notes.Note{}
	}
	return map[string]any{
		"type":  "snapshot",
		"notes": snapshot,
	}
}

func errorFrame(err error) map[string]any {
	return map[string]any{
		"type":  "error",
		"error": err.Error(),
	}
}

// writeFrame sends a single JSON frame to the client
func (h *WebSocketHandlers) writeFrame(c *websocket.Conn, userID bson.ObjectID, frame map[string]any) error {
	if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		logger.L().Error("failed to set write deadline", "error", err, "user_id", userID.Hex())
		return err
	}
	if err := c.WriteJSON(frame); err != nil {
		logger.L().Error("failed to write WebSocket message", "error", err, "user_id", userID.Hex())
		return err
	}
	return nil
}

// handleIncomingMessages handles messages received from the client
func (h *WebSocketHandlers) handleIncomingMessages(c *websocket.Conn, userID bson.ObjectID) {
	for {
		messageType, _, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L().Error("WebSocket error", "error", err, "user_id", userID.Hex())
			}
			break
		}

		if messageType == websocket.PingMessage {
			if h.sendPong(c, userID) != nil {
				break
			}
		}
	}
}

// sendPong sends a pong message in response to a ping
func (h *WebSocketHandlers) sendPong(c *websocket.Conn, userID bson.ObjectID) error {
	if err := c.WriteMessage(websocket.PongMessage, nil); err != nil {
		logger.L().Error("failed to send pong", "error", err, "user_id", userID.Hex())
		return err
	}
	return nil
}

// validateJWT validates the JWT token and extracts user information
func (h *WebSocketHandlers) validateJWT(tokenString string) (bson.ObjectID, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})

	if err != nil {
		return bson.ObjectID{}, "", err
	}

	if !token.Valid {
		return bson.ObjectID{}, "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return bson.ObjectID{}, "", fmt.Errorf("invalid claims")
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return bson.ObjectID{}, "", fmt.Errorf("missing user_id")
	}

	userEmail, ok := claims["email"].(string)
	if !ok {
		return bson.ObjectID{}, "", fmt.Errorf("missing email")
	}

	userID, err := bson.ObjectIDFromHex(userIDStr)
	if err != nil {
		return bson.ObjectID{}, "", fmt.Errorf("invalid user_id: %w", err)
	}

	return userID, userEmail, nil
}

// LogWSConnections logs every WebSocket upgrade attempt.
// It verifies the token with jwtSecret so the logged user_id can't be spoofed.
func LogWSConnections(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			token := c.Query("token")
			userInfo := extractUserIDFromToken(token, jwtSecret)
			logger.L().Info("WebSocket upgrade attempt", "ip", c.IP(), "user", userInfo)
		}
		return c.Next()
	}
}

// extractUserIDFromToken extracts and validates user ID from JWT token
func extractUserIDFromToken(token, jwtSecret string) string {
	if token == "" {
		return ""
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !parsed.Valid {
		return ""
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}

	userID, _ := mapClaims["user_id"].(string)
	return userID
}
