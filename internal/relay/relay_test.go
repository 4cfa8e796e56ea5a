package relay_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/relay"
	"github.com/medigo/pharmacy-api/internal/repository"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
	"github.com/medigo/pharmacy-api/pkg/logger"
)

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*model.Message
	failNext bool
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return errors.New("store down")
	}
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	cp := *msg
	r.messages = append(r.messages, &cp)
	return nil
}

func (r *fakeMessageRepo) ListConversation(_ context.Context, pharmacyID, patientID uuid.UUID, limit int) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Message
	for _, m := range r.messages {
		if m.PharmacyID == pharmacyID && (m.SenderID == patientID || m.RecipientID == patientID) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ repository.MessageRepository = (*fakeMessageRepo)(nil)

type published struct {
	channel string
	message interface{}
}

type fakeBroker struct {
	mu        sync.Mutex
	published []published
	failNext  bool
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext {
		b.failNext = false
		return errors.New("broker down")
	}
	b.published = append(b.published, published{channel: channel, message: message})
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeBroker) Close() error { return nil }

func newTestRelay(t *testing.T) (*relay.Relay, *fakeMessageRepo, *fakeBroker) {
	t.Helper()
	repo := &fakeMessageRepo{}
	broker := &fakeBroker{}
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
	return relay.NewRelay(repo, authz.NewGuard(), broker, log, nil), repo, broker
}

func TestSendRoutesByDirection(t *testing.T) {
	r, repo, broker := newTestRelay(t)
	ctx := context.Background()

	pharmacyID := uuid.New()
	patientID := uuid.New()
	adminID := uuid.New()
	patient := model.Actor{UserID: patientID, Role: model.RolePatient}
	admin := model.Actor{UserID: adminID, Role: model.RolePharmacyAdmin, PharmacyID: &pharmacyID}

	// Patient -> pharmacy lands in the pharmacy room.
	sent, err := r.Send(ctx, patient, &model.SendMessageRequest{
		PharmacyID:  pharmacyID,
		RecipientID: adminID,
		Content:     "Avez-vous du paracétamol ?",
	})
	require.NoError(t, err)
	assert.False(t, sent.IsFromPharmacy)
	require.Len(t, broker.published, 1)
	assert.Equal(t, relay.PharmacyRoom(pharmacyID), broker.published[0].channel)

	// Pharmacy -> patient lands in the patient's room.
	sent, err = r.Send(ctx, admin, &model.SendMessageRequest{
		PharmacyID:  pharmacyID,
		RecipientID: patientID,
		Content:     "Oui, en stock.",
	})
	require.NoError(t, err)
	assert.True(t, sent.IsFromPharmacy)
	require.Len(t, broker.published, 2)
	assert.Equal(t, relay.PatientRoom(patientID), broker.published[1].channel)

	// Both messages are durable regardless of routing.
	assert.Len(t, repo.messages, 2)
}

func TestSendPersistsBeforeBroadcast(t *testing.T) {
	r, repo, broker := newTestRelay(t)
	ctx := context.Background()

	pharmacyID := uuid.New()
	patient := model.Actor{UserID: uuid.New(), Role: model.RolePatient}

	// Broadcast failure: message saved, call still succeeds.
	broker.failNext = true
	sent, err := r.Send(ctx, patient, &model.SendMessageRequest{
		PharmacyID:  pharmacyID,
		RecipientID: uuid.New(),
		Content:     "bonjour",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sent.ID)
	assert.Len(t, repo.messages, 1)
	assert.Empty(t, broker.published)

	// Persist failure: nothing is ever broadcast.
	repo.failNext = true
	_, err = r.Send(ctx, patient, &model.SendMessageRequest{
		PharmacyID:  pharmacyID,
		RecipientID: uuid.New(),
		Content:     "bonjour",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrStoreUnavailable))
	assert.Empty(t, broker.published)
}

func TestSendDeniedForForeignPharmacyAdmin(t *testing.T) {
	r, repo, _ := newTestRelay(t)

	otherPharmacy := uuid.New()
	admin := model.Actor{UserID: uuid.New(), Role: model.RolePharmacyAdmin, PharmacyID: &otherPharmacy}

	_, err := r.Send(context.Background(), admin, &model.SendMessageRequest{
		PharmacyID:  uuid.New(),
		RecipientID: uuid.New(),
		Content:     "hello",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDenied))
	assert.Empty(t, repo.messages)

	courier := model.Actor{UserID: uuid.New(), Role: model.RoleCourier}
	_, err = r.Send(context.Background(), courier, &model.SendMessageRequest{
		PharmacyID:  uuid.New(),
		RecipientID: uuid.New(),
		Content:     "hello",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDenied))
}

func TestHistoryOwnership(t *testing.T) {
	r, _, _ := newTestRelay(t)
	ctx := context.Background()

	pharmacyID := uuid.New()
	patientID := uuid.New()
	patient := model.Actor{UserID: patientID, Role: model.RolePatient}
	admin := model.Actor{UserID: uuid.New(), Role: model.RolePharmacyAdmin, PharmacyID: &pharmacyID}

	_, err := r.Send(ctx, patient, &model.SendMessageRequest{
		PharmacyID:  pharmacyID,
		RecipientID: admin.UserID,
		Content:     "premier message",
	})
	require.NoError(t, err)

	history, err := r.History(ctx, patient, pharmacyID, patientID, 50)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	history, err = r.History(ctx, admin, pharmacyID, patientID, 50)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// Another patient cannot read this conversation.
	stranger := model.Actor{UserID: uuid.New(), Role: model.RolePatient}
	_, err = r.History(ctx, stranger, pharmacyID, patientID, 50)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDenied))
}
