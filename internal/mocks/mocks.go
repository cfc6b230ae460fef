package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messagely/internal/models"
	"messagely/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Register(ctx context.Context, params repositories.RegisterParams) (models.User, error) {
	args := m.Called(ctx, params)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) Authenticate(ctx context.Context, username, password string) (bool, error) {
	args := m.Called(ctx, username, password)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepositoryMock) UpdateLoginTimestamp(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *UserRepositoryMock) All(ctx context.Context) ([]models.PublicUser, error) {
	args := m.Called(ctx)
	var users []models.PublicUser
	if val := args.Get(0); val != nil {
		users = val.([]models.PublicUser)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) Get(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) MessagesFrom(ctx context.Context, username string) ([]models.SentMessage, error) {
	args := m.Called(ctx, username)
	var msgs []models.SentMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.SentMessage)
	}
	return msgs, args.Error(1)
}

func (m *UserRepositoryMock) MessagesTo(ctx context.Context, username string) ([]models.ReceivedMessage, error) {
	args := m.Called(ctx, username)
	var msgs []models.ReceivedMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ReceivedMessage)
	}
	return msgs, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, from, to, body string) (models.Message, error) {
	args := m.Called(ctx, from, to, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, id int) (models.MessageDetail, error) {
	args := m.Called(ctx, id)
	var detail models.MessageDetail
	if val := args.Get(0); val != nil {
		detail = val.(models.MessageDetail)
	}
	return detail, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, id int) (models.ReadReceipt, error) {
	args := m.Called(ctx, id)
	var receipt models.ReadReceipt
	if val := args.Get(0); val != nil {
		receipt = val.(models.ReadReceipt)
	}
	return receipt, args.Error(1)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
