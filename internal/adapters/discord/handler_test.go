package discord

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/anyaat/Atlas/internal/domain"
	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/lifecycle"
	"github.com/anyaat/Atlas/internal/infrastructure/i18n"
)

type fakeLifecycle struct {
	listings   map[int64]*entities.Listing
	reverified []int64
}

func (f *fakeLifecycle) find(id int64) (*entities.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %d: %w", id, domain.ErrListingNotFound)
	}
	return l, nil
}

func (f *fakeLifecycle) CreateListing(context.Context, *entities.Listing) error { return nil }
func (f *fakeLifecycle) GetListing(_ context.Context, id int64) (*entities.Listing, error) {
	return f.find(id)
}
func (f *fakeLifecycle) EditListing(context.Context, int64, func(*entities.Listing) error) (*entities.Listing, error) {
	return nil, nil
}
func (f *fakeLifecycle) ReverifyListing(_ context.Context, id int64) (*entities.Listing, error) {
	l, err := f.find(id)
	if err != nil {
		return nil, err
	}
	f.reverified = append(f.reverified, id)
	l.Status = entities.StatusVerified
	return l, nil
}
func (f *fakeLifecycle) EvaluateListing(context.Context, int64, time.Time, string) (lifecycle.Outcome, error) {
	return lifecycle.Outcome{}, nil
}
func (f *fakeLifecycle) DeleteListing(context.Context, int64) error           { return nil }
func (f *fakeLifecycle) IsVisible(context.Context, int64) (bool, error)       { return true, nil }
func (f *fakeLifecycle) ListVisible(context.Context) ([]entities.Listing, error) { return nil, nil }

func TestHandlerReply(t *testing.T) {
	uc := &fakeLifecycle{listings: map[int64]*entities.Listing{
		3: {ID: 3, Title: "Kirtan", Lifecycle: entities.Lifecycle{Status: entities.StatusNeedsUrgentReview}},
	}}
	h := NewHandler(uc, i18n.NewTranslator("en", zerolog.Nop()), "en", zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, "**#3 Kirtan**\nStatus: Needs urgent review", h.Reply(ctx, "", subShow, 3))
	assert.Equal(t, "**#3 Kirtan**\nStatut: Vérifiée", h.Reply(ctx, "fr", subReverify, 3))
	assert.Equal(t, []int64{3}, uc.reverified)
	assert.Equal(t, "This listing does not exist.", h.Reply(ctx, "", subShow, 99))
	assert.Equal(t, "An unexpected error occurred.", h.Reply(ctx, "", "delete", 3))
}
