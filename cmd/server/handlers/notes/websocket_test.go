package notes

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"notesync/cmd/server/ctxkeys"
	"notesync/cmd/server/testutil"
	"notesync/internal/config"
	"notesync/internal/logger"
	"notesync/internal/services/notes"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	wsMaxIncomingBytes = 1 << 20 // 1 MiB
)

func initTestLogger(t *testing.T) {
	t.Helper()
	cfg := config.Config{
		LogLevel:  "info",
		LogFormat: "text",
	}
	_, err := logger.Init(cfg)
	require.NoError(t, err)
}

// startTestServer binds the app to a free port and returns that port.
func startTestServer(t *testing.T, app *fiber.App) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close()) // Fiber creates its own listener

	go func() {
		_ = app.Listen(fmt.Sprintf(":%d", port))
	}()

	// Wait for server to start
	time.Sleep(100 * time.Millisecond)
	return port
}

func TestWSUpgradeTableDriven(t *testing.T) {
	initTestLogger(t)

	config := DefaultWebSocketTestConfig()
	testCases := GetStandardWSUpgradeTestCases(t, config.Secret)

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			app, _, _ := SetupWebSocketHandlersApp(t, config)

			req := testutil.CreateWebSocketRequest("/ws", tc.Token)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.ExpectedStatus, resp.StatusCode)
		})
	}
}

func TestWSUpgradeNonWebSocketRequest(t *testing.T) {
	initTestLogger(t)

	config := DefaultWebSocketTestConfig()
	app, _, _ := SetupWebSocketHandlersApp(t, config)

	req := testutil.CreateJSONRequest("GET", "/ws", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestWSSessionTimeout(t *testing.T) {
	initTestLogger(t)

	streamer := NewMockStreamer()
	secret := "test-secret-key-with-32-characters"
	maxSessionSec := 2

	wsHandlers := NewWebSocketHandlers(streamer, secret, maxSessionSec)

	app := fiber.New()
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(ctxkeys.UserIDKey, bson.NewObjectID().Hex())
			c.Locals(ctxkeys.UserEmailKey, "test@example.com")
			// Pass the correct context type so WSNotesStream doesn't reject the upgrade.
			c.Locals(ctxkeys.ParentCtxKey, c.UserContext())
			return c.Next()
		}
		return c.SendStatus(400)
	})
	app.Get("/ws", websocket.New(wsHandlers.WSNotesStream))

	port := startTestServer(t, app)

	dialer := gorillaws.Dialer{}
	conn, _, err := dialer.Dial(fmt.Sprintf("ws://127.0.0.1:%d/ws", port), nil)
	require.NoError(t, err, "could not establish WebSocket connection for timeout test")
	conn.SetReadLimit(wsMaxIncomingBytes)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close WebSocket connection: %v", err)
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().UTC().Add(5*time.Second)))

	// Keep reading until the server closes the session.
	start := time.Now().UTC()
	var readErr error
	for {
		if _, _, readErr = conn.ReadMessage(); readErr != nil {
			break
		}
	}
	elapsed := time.Since(start)

	var closeErr *gorillaws.CloseError
	if errors.As(readErr, &closeErr) {
		assert.Equal(t, WSClosePolicyViolation, closeErr.Code, "expected policy violation close code")
	}

	assert.True(t, elapsed >= 2*time.Second, "connection should have been closed after session timeout")
	assert.True(t, elapsed < 4*time.Second, "connection should have been closed promptly")
}

func TestWSSnapshotStreaming(t *testing.T) {
	initTestLogger(t)

	streamer := NewMockStreamer()
	secret := "test-secret-key-with-32-characters"
	wsHandlers := NewWebSocketHandlers(streamer, secret, 900)

	app := fiber.New()
	app.Get("/ws/notes/stream", wsHandlers.WSUpgrade, websocket.New(wsHandlers.WSNotesStream))

	port := startTestServer(t, app)

	ownerID := bson.NewObjectID()
	token, err := CreateTestJWTForWebSocket(ownerID.Hex(), "test@example.com", secret, time.Hour)
	require.NoError(t, err)

	dialer := gorillaws.Dialer{}
	conn, _, err := dialer.Dial(fmt.Sprintf("ws://127.0.0.1:%d/ws/notes/stream?token=%s", port, token), nil)
	require.NoError(t, err)
	conn.SetReadLimit(wsMaxIncomingBytes)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close WebSocket connection: %v", err)
		}
	}()

	require.Eventually(t, func() bool {
		return streamer.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond, "subscription should be attached after upgrade")

	note := &notes.Note{
		ID:      bson.NewObjectID(),
		OwnerID: ownerID,
		Title:   "Groceries",
		Content: "Milk, eggs",
		Color:   "#FFEB3B",
	}
	streamer.Push(ownerID, []*notes.Note{note})

	type frame struct {
		Type  string        `json:"type"`
		Notes []*notes.Note `json:"notes"`
		Error string        `json:"error"`
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().UTC().Add(3*time.Second)))

	var got frame
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "snapshot", got.Type)
	require.Len(t, got.Notes, 1)
	assert.Equal(t, note.ID, got.Notes[0].ID)
	assert.Equal(t, "Groceries", got.Notes[0].Title)

	streamer.PushError(ownerID, errors.New("stream interrupted"))

	var gotErr frame
	require.NoError(t, conn.ReadJSON(&gotErr))
	assert.Equal(t, "error", gotErr.Type)
	assert.Equal(t, "stream interrupted", gotErr.Error)
}

func TestValidateJWTTabledriven(t *testing.T) {
	initTestLogger(t)

	streamer := NewMockStreamer()
	secret := "test-secret-key-with-32-characters"
	wsHandlers := NewWebSocketHandlers(streamer, secret, 900)

	userID := bson.NewObjectID().Hex()
	email := "test@example.com"

	testCases := []struct {
		name        string
		setupToken  func() string
		expectError bool
		errorMsg    string
	}{
		{
			name: "Success",
			setupToken: func() string {
				token, _ := CreateTestJWTForWebSocket(userID, email, secret, time.Hour)
				return token
			},
			expectError: false,
		},
		{
			name: "InvalidFormat",
			setupToken: func() string {
				return "invalid.token.format"
			},
			expectError: true,
		},
		{
			name: "WrongSecret",
			setupToken: func() string {
				wrongSecret := "wrong-secret-key-with-32-characters"
				token, _ := CreateTestJWTForWebSocket(userID, email, wrongSecret, time.Hour)
				return token
			},
			expectError: true,
		},
		{
			name: "MissingClaims",
			setupToken: func() string {
				now := time.Now().UTC()
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"exp": now.Add(time.Hour).Unix(),
					"iat": now.Unix(),
					// Missing user_id and email
				})
				tokenString, _ := token.SignedString([]byte(secret))
				return tokenString
			},
			expectError: true,
			errorMsg:    "missing user_id",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token := tc.setupToken()
			parsedUserID, parsedEmail, err := wsHandlers.validateJWT(token)

			if tc.expectError {
				assert.Error(t, err)
				if tc.errorMsg != "" {
					assert.Contains(t, err.Error(), tc.errorMsg)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, userID, parsedUserID.Hex())
				assert.Equal(t, email, parsedEmail)
			}
		})
	}
}
