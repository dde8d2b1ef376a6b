package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/adk/session"
)

// Manager manages agent sessions
type Manager struct {
	service session.Service
	appName string
	logger  *zap.Logger
}

// NewManager creates a session manager backed by an in-memory store
func NewManager(appName string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		service: session.InMemoryService(),
		appName: appName,
		logger:  logger,
	}
}

// AppName returns the application the sessions belong to
func (m *Manager) AppName() string {
	return m.appName
}

// Create creates a new session. An empty sessionID lets the service pick one.
func (m *Manager) Create(ctx context.Context, userID, sessionID string) (session.Session, error) {
	resp, err := m.service.Create(ctx, &session.CreateRequest{
		AppName:   m.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	m.logger.Debug("session created",
		zap.String("user_id", userID),
		zap.String("session_id", resp.Session.ID()),
	)
	return resp.Session, nil
}

// GetOrCreate returns the session with sessionID, creating it under that ID
// when it does not exist yet. Conversation threads map onto sessions this way.
func (m *Manager) GetOrCreate(ctx context.Context, userID, sessionID string) (session.Session, error) {
	if sessionID != "" {
		resp, err := m.service.Get(ctx, &session.GetRequest{
			AppName:   m.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
		if err == nil && resp != nil && resp.Session != nil {
			return resp.Session, nil
		}
	}
	return m.Create(ctx, userID, sessionID)
}

// Service returns the underlying session service
func (m *Manager) Service() session.Service {
	return m.service
}
