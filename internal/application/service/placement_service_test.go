package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nedlia/placement-api/internal/domain/entity"
	"github.com/nedlia/placement-api/internal/domain/enum"
	domainRepo "github.com/nedlia/placement-api/internal/domain/repository"
	"github.com/nedlia/placement-api/internal/infrastructure/filegen"
	"github.com/nedlia/placement-api/pkg/apperror"
	"github.com/nedlia/placement-api/pkg/resilience"
)

type fakePlacementRepo struct {
	mu         sync.Mutex
	placements map[uuid.UUID]*entity.Placement
}

func newFakePlacementRepo() *fakePlacementRepo {
	return &fakePlacementRepo{placements: make(map[uuid.UUID]*entity.Placement)}
}

func (r *fakePlacementRepo) Create(_ context.Context, p *entity.Placement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	clone := *p
	r.placements[p.ID] = &clone
	return nil
}

func (r *fakePlacementRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Placement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.placements[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (r *fakePlacementRepo) Update(_ context.Context, p *entity.Placement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	r.placements[p.ID] = &clone
	return nil
}

func (r *fakePlacementRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.placements, id)
	return nil
}

func (r *fakePlacementRepo) ListWithCursor(_ context.Context, userID uuid.UUID, _ *domainRepo.PlacementCursorFilterParams) ([]entity.Placement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Placement
	for _, p := range r.placements {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePlacementRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enum.PlacementStatus, fileURL *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.placements[id]
	if !ok {
		return nil
	}
	p.Status = status
	if fileURL != nil {
		p.FileURL = fileURL
	}
	return nil
}

func (r *fakePlacementRepo) HasOverlapping(_ context.Context, videoID, productID uuid.UUID, startTime, endTime float64, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.placements {
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		if p.VideoID == videoID && p.ProductID == productID &&
			p.StartTime < endTime && p.EndTime > startTime {
			return true, nil
		}
	}
	return false, nil
}

type fakeFileGen struct {
	url string
	err error
}

func (f *fakeFileGen) Generate(context.Context, *entity.Placement) (string, error) {
	return f.url, f.err
}

func validInput(userID uuid.UUID) *CreatePlacementInput {
	return &CreatePlacementInput{
		UserID:    userID,
		VideoID:   uuid.New(),
		ProductID: uuid.New(),
		StartTime: 5,
		EndTime:   12.5,
	}
}

func TestCreatePlacementGeneratesFile(t *testing.T) {
	repo := newFakePlacementRepo()
	svc := NewPlacementService(repo, &fakeFileGen{url: "s3://nedlia-placements/out.json"})

	placement, err := svc.CreatePlacement(context.Background(), validInput(uuid.New()))
	require.NoError(t, err)

	assert.Equal(t, enum.PlacementStatusReady, placement.Status)
	require.NotNil(t, placement.FileURL)
	assert.Equal(t, "s3://nedlia-placements/out.json", *placement.FileURL)
}

func TestCreatePlacementValidation(t *testing.T) {
	svc := NewPlacementService(newFakePlacementRepo(), &fakeFileGen{})

	tests := []struct {
		name   string
		mutate func(*CreatePlacementInput)
	}{
		{"negative start", func(in *CreatePlacementInput) { in.StartTime = -1 }},
		{"end before start", func(in *CreatePlacementInput) { in.EndTime = in.StartTime - 1 }},
		{"position out of range", func(in *CreatePlacementInput) {
			in.Position = &entity.Position{X: 1.5, Y: 0, Width: 0.2, Height: 0.2}
		}},
		{"zero-size position", func(in *CreatePlacementInput) {
			in.Position = &entity.Position{X: 0.5, Y: 0.5, Width: 0, Height: 0.2}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(uuid.New())
			tt.mutate(in)
			_, err := svc.CreatePlacement(context.Background(), in)
			var p *apperror.Problem
			require.ErrorAs(t, err, &p)
			assert.Equal(t, "validation-failed", p.Type)
		})
	}
}

func TestCreatePlacementRejectsOverlap(t *testing.T) {
	repo := newFakePlacementRepo()
	svc := NewPlacementService(repo, &fakeFileGen{url: "s3://x"})

	in := validInput(uuid.New())
	_, err := svc.CreatePlacement(context.Background(), in)
	require.NoError(t, err)

	// Same product and video, intersecting time range.
	second := *in
	second.StartTime = 10
	second.EndTime = 20
	_, err = svc.CreatePlacement(context.Background(), &second)
	assert.ErrorIs(t, err, apperror.ErrPlacementOverlap)

	// Adjacent ranges do not overlap.
	third := *in
	third.StartTime = 12.5
	third.EndTime = 20
	_, err = svc.CreatePlacement(context.Background(), &third)
	assert.NoError(t, err)
}

func TestCreatePlacementTransientGenerationFailureStaysPending(t *testing.T) {
	repo := newFakePlacementRepo()
	svc := NewPlacementService(repo, &fakeFileGen{err: &filegen.TransportError{StatusCode: 503}})

	placement, err := svc.CreatePlacement(context.Background(), validInput(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, enum.PlacementStatusPending, placement.Status)
	assert.Nil(t, placement.FileURL)
}

func TestCreatePlacementCircuitOpenStaysPending(t *testing.T) {
	repo := newFakePlacementRepo()
	svc := NewPlacementService(repo, &fakeFileGen{err: resilience.ErrCircuitOpen})

	placement, err := svc.CreatePlacement(context.Background(), validInput(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, enum.PlacementStatusPending, placement.Status)
}

func TestCreatePlacementPermanentGenerationFailureMarksFailed(t *testing.T) {
	repo := newFakePlacementRepo()
	svc := NewPlacementService(repo, &fakeFileGen{err: &filegen.TransportError{StatusCode: 422}})

	placement, err := svc.CreatePlacement(context.Background(), validInput(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, enum.PlacementStatusFailed, placement.Status)
}

func TestUpdatePlacementRegeneratesOnTimeChange(t *testing.T) {
	repo := newFakePlacementRepo()
	gen := &fakeFileGen{url: "s3://v1"}
	svc := NewPlacementService(repo, gen)

	userID := uuid.New()
	placement, err := svc.CreatePlacement(context.Background(), validInput(userID))
	require.NoError(t, err)

	gen.url = "s3://v2"
	newEnd := 30.0
	updated, err := svc.UpdatePlacement(context.Background(), &UpdatePlacementInput{
		UserID: userID, ID: placement.ID, EndTime: &newEnd,
	})
	require.NoError(t, err)
	assert.Equal(t, enum.PlacementStatusReady, updated.Status)
	require.NotNil(t, updated.FileURL)
	assert.Equal(t, "s3://v2", *updated.FileURL)
}

func TestUpdatePlacementDescriptionOnlySkipsRegeneration(t *testing.T) {
	repo := newFakePlacementRepo()
	gen := &fakeFileGen{url: "s3://v1"}
	svc := NewPlacementService(repo, gen)

	userID := uuid.New()
	placement, err := svc.CreatePlacement(context.Background(), validInput(userID))
	require.NoError(t, err)

	gen.url = "s3://should-not-be-used"
	desc := "mid-roll placement"
	updated, err := svc.UpdatePlacement(context.Background(), &UpdatePlacementInput{
		UserID: userID, ID: placement.ID, Description: &desc,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.FileURL)
	assert.Equal(t, "s3://v1", *updated.FileURL)
}

func TestGetPlacementScopedToOwner(t *testing.T) {
	repo := newFakePlacementRepo()
	svc := NewPlacementService(repo, &fakeFileGen{url: "s3://x"})

	owner := uuid.New()
	placement, err := svc.CreatePlacement(context.Background(), validInput(owner))
	require.NoError(t, err)

	_, err = svc.GetPlacement(context.Background(), uuid.New(), placement.ID)
	var p *apperror.Problem
	require.ErrorAs(t, err, &p)
	assert.Equal(t, "not-found", p.Type)
}

func TestGetPlacementFile(t *testing.T) {
	repo := newFakePlacementRepo()
	gen := &fakeFileGen{err: &filegen.TransportError{StatusCode: 503}}
	svc := NewPlacementService(repo, gen)

	userID := uuid.New()
	placement, err := svc.CreatePlacement(context.Background(), validInput(userID))
	require.NoError(t, err)

	// Generation has not completed yet.
	_, ready, err := svc.GetPlacementFile(context.Background(), userID, placement.ID)
	require.NoError(t, err)
	assert.False(t, ready)

	url := "s3://nedlia-placements/out.json"
	require.NoError(t, repo.UpdateStatus(context.Background(), placement.ID, enum.PlacementStatusReady, &url))

	got, ready, err := svc.GetPlacementFile(context.Background(), userID, placement.ID)
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, url, got)
}
