package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lumostories/telemetry-api/internal/dto"
	"github.com/lumostories/telemetry-api/internal/models"
	"github.com/lumostories/telemetry-api/internal/repository"
)

type memoryClaimsStore struct {
	claims map[string]models.UserClaims
}

func newMemoryClaimsStore(uids ...string) *memoryClaimsStore {
	store := &memoryClaimsStore{claims: map[string]models.UserClaims{}}
	for _, uid := range uids {
		store.claims[uid] = models.UserClaims{Role: "user"}
	}
	return store
}

func (m *memoryClaimsStore) Get(ctx context.Context, uid string) (models.UserClaims, error) {
	claims, ok := m.claims[uid]
	if !ok {
		return models.UserClaims{}, repository.ErrUserNotFound
	}
	return claims, nil
}

func (m *memoryClaimsStore) Set(ctx context.Context, uid string, claims models.UserClaims) error {
	m.claims[uid] = claims
	return nil
}

type recordingLogService struct {
	events []RawEvent
}

func (r *recordingLogService) Record(ctx context.Context, raw RawEvent) (dto.LogEventResponse, error) {
	r.events = append(r.events, raw)
	return dto.LogEventResponse{WriteStatus: string(WriteOK)}, nil
}

func (r *recordingLogService) Status() SinkStatus { return SinkStatus{} }

func (r *recordingLogService) Enable(ctx context.Context) error { return nil }

func sanctionFixture(t *testing.T, uids ...string) (SanctionService, *memoryClaimsStore, *recordingLogService) {
	t.Helper()
	store := newMemoryClaimsStore(uids...)
	log := &recordingLogService{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewSanctionService(store, log, validate, zerolog.Nop()), store, log
}

func TestSanctionApplySetsExpiryFromDuration(t *testing.T) {
	svc, store, log := sanctionFixture(t, "uid-1")

	before := time.Now().UTC()
	response, err := svc.Apply(context.Background(), "uid-1", dto.SanctionApplyRequest{
		Kind:     "ban",
		Reason:   "safety",
		Duration: "7d",
	}, Actor{ID: "admin-1", Role: "admin"})
	require.NoError(t, err)

	require.Equal(t, "ban", response.Kind)
	require.Equal(t, "safety", response.Reason)
	require.NotNil(t, response.ExpiresAt)
	require.WithinDuration(t, before.Add(7*24*time.Hour), *response.ExpiresAt, 5*time.Second)
	require.False(t, response.Expired)

	state := store.claims["uid-1"].Sanction
	require.NotNil(t, state)
	require.Equal(t, models.SanctionBan, state.Kind)
	require.Equal(t, "admin-1", state.AppliedBy)

	require.Len(t, log.events, 1)
	event := log.events[0]
	require.Equal(t, string(models.EventTypeModeration), event.Type)
	require.Equal(t, "sanction apply", event.Action)
	require.Equal(t, []string{"uid-1", "ban", "safety", "7d", "none"}, event.Params)
	require.Equal(t, "none", event.Metadata["previous"])
}

func TestSanctionApplyPermanentHasNoExpiry(t *testing.T) {
	svc, _, _ := sanctionFixture(t, "uid-1")

	response, err := svc.Apply(context.Background(), "uid-1", dto.SanctionApplyRequest{
		Kind:     "mute",
		Reason:   "spam",
		Duration: "permanent",
	}, Actor{ID: "admin-1"})
	require.NoError(t, err)
	require.Nil(t, response.ExpiresAt)
	require.False(t, response.Expired)
}

func TestSanctionApplyRequiresNoteForOther(t *testing.T) {
	svc, _, log := sanctionFixture(t, "uid-1")

	_, err := svc.Apply(context.Background(), "uid-1", dto.SanctionApplyRequest{
		Kind:     "mute",
		Reason:   "other",
		Duration: "24h",
	}, Actor{ID: "admin-1"})
	require.True(t, IsValidationError(err))
	require.Empty(t, log.events)

	response, err := svc.Apply(context.Background(), "uid-1", dto.SanctionApplyRequest{
		Kind:     "mute",
		Reason:   "other",
		Duration: "24h",
		Note:     "coordinated harassment campaign",
	}, Actor{ID: "admin-1"})
	require.NoError(t, err)
	require.Equal(t, "coordinated harassment campaign", response.Note)
}

func TestSanctionApplySanitizesNote(t *testing.T) {
	svc, _, _ := sanctionFixture(t, "uid-1")

	response, err := svc.Apply(context.Background(), "uid-1", dto.SanctionApplyRequest{
		Kind:     "mute",
		Reason:   "abuse",
		Duration: "24h",
		Note:     "<script>alert(1)</script>repeated insults",
	}, Actor{ID: "admin-1"})
	require.NoError(t, err)
	require.Equal(t, "repeated insults", response.Note)
}

func TestSanctionApplyRejectsInvalidPayload(t *testing.T) {
	svc, _, _ := sanctionFixture(t, "uid-1")

	_, err := svc.Apply(context.Background(), "uid-1", dto.SanctionApplyRequest{
		Kind:     "shadowban",
		Reason:   "spam",
		Duration: "24h",
	}, Actor{ID: "admin-1"})
	require.Error(t, err)
}

func TestSanctionApplyUnknownUser(t *testing.T) {
	svc, _, _ := sanctionFixture(t)

	_, err := svc.Apply(context.Background(), "missing", dto.SanctionApplyRequest{
		Kind:     "ban",
		Reason:   "spam",
		Duration: "24h",
	}, Actor{ID: "admin-1"})
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestSanctionReplaceRecordsPrevious(t *testing.T) {
	svc, _, log := sanctionFixture(t, "uid-1")

	_, err := svc.Apply(context.Background(), "uid-1", dto.SanctionApplyRequest{
		Kind:     "mute",
		Reason:   "spam",
		Duration: "24h",
	}, Actor{ID: "admin-1"})
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), "uid-1", dto.SanctionApplyRequest{
		Kind:     "ban",
		Reason:   "abuse",
		Duration: "permanent",
	}, Actor{ID: "admin-2"})
	require.NoError(t, err)

	require.Len(t, log.events, 2)
	require.Equal(t, "mute", log.events[1].Metadata["previous"])
}

func TestSanctionLiftClearsState(t *testing.T) {
	svc, store, log := sanctionFixture(t, "uid-1")

	_, err := svc.Apply(context.Background(), "uid-1", dto.SanctionApplyRequest{
		Kind:     "ban",
		Reason:   "safety",
		Duration: "30d",
	}, Actor{ID: "admin-1"})
	require.NoError(t, err)

	response, err := svc.Lift(context.Background(), "uid-1", Actor{ID: "admin-1"})
	require.NoError(t, err)
	require.Equal(t, string(models.SanctionNone), response.Kind)
	require.Nil(t, store.claims["uid-1"].Sanction)

	require.Len(t, log.events, 2)
	require.Equal(t, "sanction lift", log.events[1].Action)
	require.Equal(t, "ban", log.events[1].Params[4])
}

func TestSanctionGetReportsAdvisoryExpiry(t *testing.T) {
	svc, store, _ := sanctionFixture(t, "uid-1")

	expired := time.Now().UTC().Add(-time.Hour)
	store.claims["uid-1"] = models.UserClaims{
		Role: "user",
		Sanction: &models.SanctionState{
			Kind:      models.SanctionMute,
			Reason:    models.ReasonSpam,
			Duration:  models.Duration24h,
			ExpiresAt: &expired,
			AppliedBy: "admin-1",
			AppliedAt: expired.Add(-24 * time.Hour),
		},
	}

	response, err := svc.Get(context.Background(), "uid-1")
	require.NoError(t, err)
	// Expiry is advisory: the record stays, the flag flips.
	require.Equal(t, "mute", response.Kind)
	require.True(t, response.Expired)
}
