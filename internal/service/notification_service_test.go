package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/push"
)

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *mockNotificationRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) GetPushTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockTokenStore) RemovePushTokens(ctx context.Context, userID uuid.UUID, tokens []string) error {
	args := m.Called(ctx, userID, tokens)
	return args.Error(0)
}

type mockPushSender struct {
	mock.Mock
}

func (m *mockPushSender) SendMulticast(ctx context.Context, msg push.Message) (*push.Response, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*push.Response), args.Error(1)
}

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) BroadcastToUser(userID uuid.UUID, event string, data interface{}) {
	m.Called(userID, event, data)
}

func newTestNotificationService() (*NotificationService, *mockNotificationRepo, *mockTokenStore, *mockPushSender) {
	repo := new(mockNotificationRepo)
	tokens := new(mockTokenStore)
	sender := new(mockPushSender)
	return NewNotificationService(repo, tokens, sender), repo, tokens, sender
}

func TestNotificationService_Notify_NoTokensIsNoop(t *testing.T) {
	svc, repo, tokens, sender := newTestNotificationService()
	ctx := context.Background()
	userID := uuid.New()

	repo.On("Create", ctx, mock.AnythingOfType("*models.Notification")).Return(nil)
	tokens.On("GetPushTokens", ctx, userID).Return([]string{}, nil)

	svc.Notify(ctx, models.NotificationIntent{UserID: userID, Title: "t", Body: "b"})

	sender.AssertNotCalled(t, "SendMulticast", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestNotificationService_Notify_SendsMulticastWithDefaultLink(t *testing.T) {
	svc, repo, tokens, sender := newTestNotificationService()
	ctx := context.Background()
	userID := uuid.New()

	repo.On("Create", ctx, mock.AnythingOfType("*models.Notification")).Return(nil)
	tokens.On("GetPushTokens", ctx, userID).Return([]string{"tok-1", "tok-2"}, nil)
	sender.On("SendMulticast", ctx, push.Message{
		Tokens:   []string{"tok-1", "tok-2"},
		Title:    "Job Cancelled",
		Body:     "body",
		DeepLink: DefaultNotificationLink,
	}).Return(&push.Response{Results: []push.TokenResult{
		{Token: "tok-1", Success: true},
		{Token: "tok-2", Success: true},
	}}, nil)

	svc.Notify(ctx, models.NotificationIntent{UserID: userID, Title: "Job Cancelled", Body: "body"})

	sender.AssertExpectations(t)
	tokens.AssertNotCalled(t, "RemovePushTokens", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_Notify_PrunesUnregisteredTokens(t *testing.T) {
	svc, repo, tokens, sender := newTestNotificationService()
	ctx := context.Background()
	userID := uuid.New()

	repo.On("Create", ctx, mock.Anything).Return(nil)
	tokens.On("GetPushTokens", ctx, userID).Return([]string{"alive", "stale-token"}, nil)
	sender.On("SendMulticast", ctx, mock.Anything).Return(&push.Response{Results: []push.TokenResult{
		{Token: "alive", Success: true},
		{Token: "stale-token", Success: false, Error: "not registered", Unregistered: true},
	}}, nil)
	tokens.On("RemovePushTokens", ctx, userID, []string{"stale-token"}).Return(nil)

	svc.Notify(ctx, models.NotificationIntent{UserID: userID, Title: "t", Body: "b", Link: "/x"})

	tokens.AssertExpectations(t)
}

func TestNotificationService_Notify_SwallowsErrors(t *testing.T) {
	svc, repo, tokens, sender := newTestNotificationService()
	ctx := context.Background()
	userID := uuid.New()

	repo.On("Create", ctx, mock.Anything).Return(errors.New("db down"))
	tokens.On("GetPushTokens", ctx, userID).Return([]string{"tok"}, nil)
	sender.On("SendMulticast", ctx, mock.Anything).Return(nil, errors.New("gateway timeout"))

	assert.NotPanics(t, func() {
		svc.Notify(ctx, models.NotificationIntent{UserID: userID, Title: "t", Body: "b"})
	})
	sender.AssertExpectations(t)
}

func TestNotificationService_Notify_BroadcastsRealtime(t *testing.T) {
	svc, repo, tokens, _ := newTestNotificationService()
	hub := new(mockBroadcaster)
	svc.SetRealtime(hub)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("Create", ctx, mock.Anything).Return(nil)
	tokens.On("GetPushTokens", ctx, userID).Return(nil, nil)
	hub.On("BroadcastToUser", userID, "notification", models.NotificationPayload{
		Event: "bid.created", Title: "t", Body: "b", Link: "/dashboard/jobs/1",
	}).Return()

	svc.Notify(ctx, models.NotificationIntent{UserID: userID, Event: "bid.created", Title: "t", Body: "b", Link: "/dashboard/jobs/1"})

	hub.AssertExpectations(t)
}

func TestNotificationService_Notify_SkipsEmptyRecipient(t *testing.T) {
	svc, repo, tokens, _ := newTestNotificationService()

	svc.Notify(context.Background(), models.NotificationIntent{Title: "t"})

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	tokens.AssertNotCalled(t, "GetPushTokens", mock.Anything, mock.Anything)
}

func TestNotificationService_ListNotifications_ClampsLimit(t *testing.T) {
	svc, repo, _, _ := newTestNotificationService()
	ctx := context.Background()
	userID := uuid.New()

	repo.On("List", ctx, userID, 20, 0, true).Return([]models.Notification{}, nil)

	list, err := svc.ListNotifications(ctx, userID, 500, -3, true)
	assert.NoError(t, err)
	assert.Empty(t, list)
	repo.AssertExpectations(t)
}
