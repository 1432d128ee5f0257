package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raniani-lab/enterpriise-sub000/packages/model"
	"github.com/Raniani-lab/enterpriise-sub000/packages/store"
	"github.com/Raniani-lab/enterpriise-sub000/packages/store/redis"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	store.RunContract(t, redis.NewFromClient(client))
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := setup(t)
	s := redis.NewFromClient(client, redis.WithPrefix("test:"))

	require.NoError(t, s.Save(context.Background(), "book", model.NewWorkbookData()))
	assert.True(t, mr.Exists("test:book"))
	assert.False(t, mr.Exists(redis.DefaultPrefix+"book"))

	members, err := mr.ZMembers("test:index")
	require.NoError(t, err)
	assert.Equal(t, []string{"book"}, members)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := setup(t)
	s := redis.NewFromClient(client, redis.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "book", model.NewWorkbookData()))
	assert.Equal(t, time.Minute, mr.TTL(redis.DefaultPrefix+"book"))

	mr.FastForward(2 * time.Minute)
	_, err := s.Load(ctx, "book")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisStore_LoadMigrates(t *testing.T) {
	mr, client := setup(t)
	s := redis.NewFromClient(client)

	require.NoError(t, mr.Set(redis.DefaultPrefix+"old", `{"version": 1, "sheets": [{"id": "s", "name": "S", "cols": 2, "rows": 2, "cells": [{"xc": "A1", "content": "1"}]}]}`))
	data, err := s.Load(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, model.CurrentVersion, data.Version)
	assert.Equal(t, "1", data.Sheets[0].Cells["A1"].Content)
}
