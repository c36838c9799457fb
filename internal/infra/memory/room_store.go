package memory

import (
	"context"
	"sync"

	"trivia-room-service/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomStore. Rooms are
// deep-copied on the way in and out so callers never alias store state.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]domain.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]domain.Room)}
}

func (s *RoomStore) FindRoomByCode(_ context.Context, code string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *RoomStore) CreateRoom(_ context.Context, room domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; ok {
		return domain.ErrRoomCodeTaken
	}
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *RoomStore) UpdateRoom(_ context.Context, room domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; !ok {
		return domain.ErrRoomNotFound
	}
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *RoomStore) DeleteRoom(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	return nil
}

func (s *RoomStore) ListRooms(_ context.Context) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room.Clone())
	}
	return out, nil
}
