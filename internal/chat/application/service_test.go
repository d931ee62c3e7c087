package application_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/expresso-van/internal/auth"
	"github.com/mateusmacedo/expresso-van/internal/chat/application"
	"github.com/mateusmacedo/expresso-van/internal/chat/domain"
	"github.com/mateusmacedo/expresso-van/internal/chat/infrastructure"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
	pkgInfra "github.com/mateusmacedo/expresso-van/pkg/infrastructure"
)

var (
	ana = auth.Identity{UserID: "ana", Email: "ana@example.com"}
	bia = auth.Identity{UserID: "bia", Email: "bia@example.com"}
)

type recordedEvents struct {
	mu     sync.Mutex
	events []domain.MessageSentData
}

func (r *recordedEvents) Handle(_ context.Context, event pkgDomain.Event[domain.MessageSentData]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.Payload())
	return nil
}

func (r *recordedEvents) all() []domain.MessageSentData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.MessageSentData(nil), r.events...)
}

func newService(t *testing.T) (*application.Service, *recordedEvents) {
	t.Helper()
	logger := pkgApp.NopLogger{}
	bus := pkgInfra.NewSimpleEventBus[pkgDomain.Event[domain.MessageSentData], domain.MessageSentData](logger)
	recorder := &recordedEvents{}
	bus.RegisterHandler(domain.EventMessageSent, recorder)
	return application.NewService(infrastructure.NewInMemoryRepository(), bus, pkgInfra.NewUUIDGenerator(), logger), recorder
}

func TestGetOrCreateChatReusesActiveChat(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	first, created, err := svc.GetOrCreateChat(ctx, ana, "driver-1", "Carlos")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.ChatActive, first.Status)
	assert.Equal(t, domain.StartedText, first.LastMessage)

	second, created, err := svc.GetOrCreateChat(ctx, ana, "driver-1", "Carlos")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	messages, err := svc.ListMessages(ctx, ana, first.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, domain.MessageSystem, messages[0].Type)
	assert.Equal(t, domain.WelcomeText("Carlos"), messages[0].Text)

	require.NoError(t, svc.CloseChat(ctx, ana, first.ID))
	third, created, err := svc.GetOrCreateChat(ctx, ana, "driver-1", "Carlos")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestGetOrCreateChatDefaultsToSupport(t *testing.T) {
	svc, _ := newService(t)

	chat, _, err := svc.GetOrCreateChat(context.Background(), ana, "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.SupportID, chat.CounterpartID)
	assert.Equal(t, domain.SupportName, chat.CounterpartName)
}

func TestSendMessagePublishesAndUpdatesChat(t *testing.T) {
	ctx := context.Background()
	svc, recorder := newService(t)

	chat, _, err := svc.GetOrCreateChat(ctx, ana, "driver-1", "Carlos")
	require.NoError(t, err)

	message, err := svc.SendMessage(ctx, ana, chat.ID, "  I'm at the corner  ", "")
	require.NoError(t, err)
	assert.Equal(t, "I'm at the corner", message.Text)
	assert.Equal(t, domain.MessageText, message.Type)
	assert.Equal(t, "ana", message.SenderID)

	chats, err := svc.ListUserChats(ctx, ana)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "I'm at the corner", chats[0].LastMessage)

	events := recorder.all()
	require.Len(t, events, 1)
	assert.Equal(t, chat.ID, events[0].ChatID)
	assert.Equal(t, "driver-1", events[0].CounterpartID)
}

func TestSendMessageValidation(t *testing.T) {
	ctx := context.Background()
	svc, recorder := newService(t)
	chat, _, err := svc.GetOrCreateChat(ctx, ana, "driver-1", "Carlos")
	require.NoError(t, err)

	cases := map[string]struct {
		text string
		kind domain.MessageType
	}{
		"blank text":   {text: "   ", kind: domain.MessageText},
		"too long":     {text: strings.Repeat("a", 2001), kind: domain.MessageText},
		"system type":  {text: "hi", kind: domain.MessageSystem},
		"unknown type": {text: "hi", kind: "video"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, ana, chat.ID, tc.text, tc.kind)
			kind, ok := domain.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, domain.KindInvalidMessage, kind)
		})
	}
	assert.Empty(t, recorder.all())
}

func TestClosedChatRejectsMessages(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	chat, _, err := svc.GetOrCreateChat(ctx, ana, "driver-1", "Carlos")
	require.NoError(t, err)

	require.NoError(t, svc.CloseChat(ctx, ana, chat.ID))
	require.NoError(t, svc.CloseChat(ctx, ana, chat.ID))

	_, err = svc.SendMessage(ctx, ana, chat.ID, "hello?", domain.MessageText)
	assert.ErrorIs(t, err, domain.ErrChatClosed)

	chats, err := svc.ListUserChats(ctx, ana)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, domain.ChatClosed, chats[0].Status)
	assert.Equal(t, domain.ClosedText, chats[0].LastMessage)
}

func TestOtherUsersCannotTouchChat(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	chat, _, err := svc.GetOrCreateChat(ctx, ana, "driver-1", "Carlos")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, bia, chat.ID, "hi", domain.MessageText)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	_, err = svc.ListMessages(ctx, bia, chat.ID)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	_, err = svc.MarkRead(ctx, bia, chat.ID)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	assert.ErrorIs(t, svc.CloseChat(ctx, bia, chat.ID), domain.ErrPermissionDenied)

	_, err = svc.ListMessages(ctx, ana, "missing")
	assert.ErrorIs(t, err, domain.ErrChatNotFound)
}

func TestMarkReadSkipsOwnMessages(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	chat, _, err := svc.GetOrCreateChat(ctx, ana, "driver-1", "Carlos")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, ana, chat.ID, "on my way", domain.MessageText)
	require.NoError(t, err)

	// Só a mensagem de boas-vindas não foi enviada por ana.
	updated, err := svc.MarkRead(ctx, ana, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	updated, err = svc.MarkRead(ctx, ana, chat.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)

	messages, err := svc.ListMessages(ctx, ana, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.True(t, messages[0].Read)
	assert.False(t, messages[1].Read)
}

func TestQuickSupportMessage(t *testing.T) {
	ctx := context.Background()
	svc, recorder := newService(t)

	chat, message, err := svc.SendQuickSupportMessage(ctx, ana, "Lost my backpack")
	require.NoError(t, err)
	assert.Equal(t, domain.SupportID, chat.CounterpartID)
	assert.Equal(t, chat.ID, message.ChatID)

	again, _, err := svc.SendQuickSupportMessage(ctx, ana, "It is blue")
	require.NoError(t, err)
	assert.Equal(t, chat.ID, again.ID)

	messages, err := svc.ListMessages(ctx, ana, chat.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 3)
	assert.Len(t, recorder.all(), 2)
}
