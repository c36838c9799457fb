package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"trivia-room-service/internal/domain"
)

// RoomStore persists rooms as JSON documents in Redis, one key per room
// code. Rooms have no TTL: they live until an explicit moderator delete.
type RoomStore struct {
	client *redis.Client
}

func NewRoomStore(client *redis.Client) *RoomStore {
	return &RoomStore{client: client}
}

func (s *RoomStore) FindRoomByCode(ctx context.Context, code string) (domain.Room, error) {
	raw, err := s.client.Get(ctx, s.key(code)).Bytes()
	if err == redis.Nil {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("find room: %w", err)
	}
	var room domain.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return domain.Room{}, fmt.Errorf("unmarshal room: %w", err)
	}
	return room, nil
}

func (s *RoomStore) CreateRoom(ctx context.Context, room domain.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	// SETNX makes code collisions visible to the caller's retry loop.
	ok, err := s.client.SetNX(ctx, s.key(room.Code), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	if !ok {
		return domain.ErrRoomCodeTaken
	}
	return nil
}

func (s *RoomStore) UpdateRoom(ctx context.Context, room domain.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	if err := s.client.Set(ctx, s.key(room.Code), raw, 0).Err(); err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	return nil
}

func (s *RoomStore) DeleteRoom(ctx context.Context, code string) error {
	if err := s.client.Del(ctx, s.key(code)).Err(); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

func (s *RoomStore) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, "room:*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan rooms: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch rooms: %w", err)
	}
	rooms := make([]domain.Room, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // deleted between scan and fetch
		}
		var room domain.Room
		if err := json.Unmarshal([]byte(raw), &room); err != nil {
			continue
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (s *RoomStore) key(code string) string {
	return "room:" + code
}
