package notes

import (
	"context"
	"testing"
	"time"

	"notesync/cmd/server/ctxkeys"
	"notesync/cmd/server/testutil"
	"notesync/internal/services/notes"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MockStreamer implements the Streamer interface for testing. It is backed by
// a real registry so tests can push snapshots at attached subscriptions.
type MockStreamer struct {
	watchers *notes.Watchers
}

func NewMockStreamer() *MockStreamer {
	return &MockStreamer{watchers: notes.NewWatchers(8)}
}

func (m *MockStreamer) Subscribe(_ context.Context, ownerID bson.ObjectID) *notes.Subscription {
	return m.watchers.Attach(ownerID)
}

func (m *MockStreamer) Push(ownerID bson.ObjectID, snapshot []*notes.Note) {
	m.watchers.Push(ownerID, snapshot)
}

func (m *MockStreamer) PushError(ownerID bson.ObjectID, err error) {
	m.watchers.PushError(ownerID, err)
}

func (m *MockStreamer) SubscriberCount() int {
	n, _ := m.watchers.Stats()
	return n
}

// WebSocketTestConfig holds configuration for WebSocket tests
type WebSocketTestConfig struct {
	Secret        string
	MaxSessionSec int
}

// DefaultWebSocketTestConfig returns a default test configuration
func DefaultWebSocketTestConfig() WebSocketTestConfig {
	return WebSocketTestConfig{
		Secret:        "test-secret-key-with-32-characters",
		MaxSessionSec: 900,
	}
}

// SetupWebSocketHandlersApp creates a test app with WebSocket handlers
func SetupWebSocketHandlersApp(t *testing.T, config WebSocketTestConfig) (*fiber.App, *MockStreamer, *WebSocketHandlers) {
	t.Helper()

	app := testutil.CreateTestApp(t)
	streamer := NewMockStreamer()
	wsHandlers := NewWebSocketHandlers(streamer, config.Secret, config.MaxSessionSec)

	app.Get("/ws", wsHandlers.WSUpgrade, func(c *fiber.Ctx) error {
		userID := c.Locals(ctxkeys.UserIDKey).(string)
		userEmail := c.Locals(ctxkeys.UserEmailKey).(string)
		return c.JSON(fiber.Map{
			"user_id": userID,
			"email":   userEmail,
		})
	})

	return app, streamer, wsHandlers
}

// CreateTestJWTForWebSocket creates a JWT token for WebSocket testing
func CreateTestJWTForWebSocket(userID, email, secret string, expiry time.Duration) (string, error) {
	return testutil.CreateTestJWT(userID, email, []byte(secret), expiry)
}

// WSUpgradeTestCase represents a WebSocket upgrade test case
type WSUpgradeTestCase struct {
	Name           string
	Token          *string // nil means no token
	ExpectedStatus int
}

// GetStandardWSUpgradeTestCases returns common WebSocket upgrade test cases
func GetStandardWSUpgradeTestCases(t *testing.T, secret string) []WSUpgradeTestCase {
	t.Helper()

	userID := bson.NewObjectID().Hex()
	email := "test@example.com"

	validToken, err := CreateTestJWTForWebSocket(userID, email, secret, time.Hour)
	require.NoError(t, err)

	expiredToken, err := CreateTestJWTForWebSocket(userID, email, secret, -time.Hour)
	require.NoError(t, err)

	invalidToken := "invalid-token"

	return []WSUpgradeTestCase{
		{
			Name:           "ValidToken",
			Token:          &validToken,
			ExpectedStatus: 200,
		},
		{
			Name:           "MissingToken",
			Token:          nil,
			ExpectedStatus: 401,
		},
		{
			Name:           "InvalidToken",
			Token:          &invalidToken,
			ExpectedStatus: 401,
		},
		{
			Name:           "ExpiredToken",
			Token:          &expiredToken,
			ExpectedStatus: 401,
		},
	}
}
