package ai

import (
	"context"
	"sync"
	"time"

	guestRepo "campuspark/database/repository/guest"
	parkingRepo "campuspark/database/repository/parking"
	"campuspark/models"
)

type fakeSpaces struct {
	mu       sync.Mutex
	spaces   map[string]*models.ParkingSpace
	getErr   error
	saveErr  error
	reserved []models.Reservation
}

func newFakeSpaces(spaces ...models.ParkingSpace) *fakeSpaces {
	f := &fakeSpaces{spaces: make(map[string]*models.ParkingSpace)}
	for i := range spaces {
		s := spaces[i]
		f.spaces[s.Name] = &s
	}
	return f
}

func (f *fakeSpaces) GetByName(_ context.Context, name string) (*models.ParkingSpace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.spaces[name]
	if !ok {
		return nil, parkingRepo.ErrSpaceNotFound
	}
	out := *s
	return &out, nil
}

func (f *fakeSpaces) GetByID(ctx context.Context, id string) (*models.ParkingSpace, error) {
	f.mu.Lock()
	for _, s := range f.spaces {
		if s.ID == id {
			out := *s
			f.mu.Unlock()
			return &out, nil
		}
	}
	f.mu.Unlock()
	return nil, parkingRepo.ErrSpaceNotFound
}

func (f *fakeSpaces) ReserveIfOpen(_ context.Context, name string, r models.Reservation) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return false, f.saveErr
	}
	s, ok := f.spaces[name]
	if !ok || s.Status != models.StatusOpen {
		return false, nil
	}
	at := r.AllocatedAt
	s.Status = models.StatusReserved
	s.User = r.User
	s.AllocatedAt = &at
	s.ParkingEndTime = r.ParkingEndTime
	s.VerifiedByUser = false
	f.reserved = append(f.reserved, r)
	return true, nil
}

func (f *fakeSpaces) ConfirmOccupant(context.Context, string, string, time.Time) error { return nil }

func (f *fakeSpaces) DisownOccupant(context.Context, string, string) error { return nil }

func (f *fakeSpaces) space(name string) models.ParkingSpace {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.spaces[name]
}

func (f *fakeSpaces) setStatus(name string, status models.SpaceStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spaces[name].Status = status
}

type fakeGuests struct {
	requests map[string]*models.GuestParkingRequest
	err      error
}

func (f *fakeGuests) GetLatestApproved(_ context.Context, userID string) (*models.GuestParkingRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.requests[userID]
	if !ok {
		return nil, guestRepo.ErrNoApprovedRequest
	}
	return r, nil
}

type fakeFallback struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	last    models.CompletionContext
}

func (f *fakeFallback) Complete(_ context.Context, prompt string, cc models.CompletionContext, _ []models.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.last = cc
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeFallback) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}
