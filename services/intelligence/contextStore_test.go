package ai

import (
	"context"
	"testing"
	"time"

	"campuspark/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisContextStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisContextStore(client, ttl), mr
}

func strPtr(s string) *string { return &s }

func entrancePtr(e models.Entrance) *models.Entrance { return &e }

func TestContextStores(t *testing.T) {
	stores := map[string]func(t *testing.T) ContextStore{
		"memory": func(*testing.T) ContextStore { return NewMemoryContextStore() },
		"redis": func(t *testing.T) ContextStore {
			s, _ := newRedisStore(t, time.Minute)
			return s
		},
	}

	tests := []struct {
		name    string
		patches []models.ContextPatch
		want    models.ConversationContext
	}{
		{
			name: "never written reads as zero",
			want: models.ConversationContext{},
		},
		{
			name: "patches merge fields",
			patches: []models.ContextPatch{
				{SelectedParking: strPtr("P1")},
				{Entrance: entrancePtr(models.EntranceSide)},
				{LastParkingQuery: strPtr("park in P1")},
			},
			want: models.ConversationContext{SelectedParking: "P1", Entrance: models.EntranceSide, LastParkingQuery: "park in P1"},
		},
		{
			name: "later patch overwrites and empty string clears",
			patches: []models.ContextPatch{
				{SelectedParking: strPtr("P1"), LastParkingQuery: strPtr("park in P1")},
				{SelectedParking: strPtr("P2")},
				{LastParkingQuery: strPtr("")},
			},
			want: models.ConversationContext{SelectedParking: "P2"},
		},
	}

	for storeName, newStore := range stores {
		for _, tt := range tests {
			t.Run(storeName+"/"+tt.name, func(t *testing.T) {
				ctx := context.Background()
				s := newStore(t)

				var last *models.ConversationContext
				for _, p := range tt.patches {
					var err error
					last, err = s.Update(ctx, "s1", p)
					require.NoError(t, err)
				}
				if last != nil {
					assert.Equal(t, tt.want, *last, "Update returns the merged context")
				}

				got, err := s.Get(ctx, "s1")
				require.NoError(t, err)
				assert.Equal(t, tt.want, *got)

				other, err := s.Get(ctx, "s2")
				require.NoError(t, err)
				assert.Equal(t, models.ConversationContext{}, *other)
			})
		}

		t.Run(storeName+"/clear", func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			_, err := s.Update(ctx, "s1", models.ContextPatch{SelectedParking: strPtr("P1")})
			require.NoError(t, err)

			require.NoError(t, s.Clear(ctx, "s1"))
			require.NoError(t, s.Clear(ctx, "never-written"))

			got, err := s.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, models.ConversationContext{}, *got)
		})
	}
}

func TestRedisContextStore_KeyAndTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 30*time.Minute)

	_, err := s.Update(ctx, "u-alice", models.ContextPatch{SelectedParking: strPtr("P1")})
	require.NoError(t, err)

	require.True(t, mr.Exists("parking:ctx:u-alice"))
	assert.Equal(t, 30*time.Minute, mr.TTL("parking:ctx:u-alice"))

	// Each update refreshes the expiry.
	mr.FastForward(20 * time.Minute)
	_, err = s.Update(ctx, "u-alice", models.ContextPatch{Entrance: entrancePtr(models.EntranceMain)})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, mr.TTL("parking:ctx:u-alice"))

	mr.FastForward(31 * time.Minute)
	got, err := s.Get(ctx, "u-alice")
	require.NoError(t, err)
	assert.Equal(t, models.ConversationContext{}, *got)
}

func TestRedisContextStore_StoredJSON(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)

	require.NoError(t, mr.Set("parking:ctx:s1", `{"selectedParking":"P7","entrance":"Main Entrance"}`))

	updated, err := s.Update(ctx, "s1", models.ContextPatch{LastParkingQuery: strPtr("park in P7")})
	require.NoError(t, err)
	assert.Equal(t, models.ConversationContext{SelectedParking: "P7", Entrance: models.EntranceMain, LastParkingQuery: "park in P7"}, *updated)

	raw, err := mr.Get("parking:ctx:s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"selectedParking":"P7","entrance":"Main Entrance","lastParkingQuery":"park in P7"}`, raw)
}

func TestRedisContextStore_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("corrupt value", func(t *testing.T) {
		s, mr := newRedisStore(t, time.Minute)
		require.NoError(t, mr.Set("parking:ctx:s1", "not json"))

		_, err := s.Get(ctx, "s1")
		assert.Error(t, err)
		_, err = s.Update(ctx, "s1", models.ContextPatch{SelectedParking: strPtr("P1")})
		assert.Error(t, err)
	})

	t.Run("server down", func(t *testing.T) {
		s, mr := newRedisStore(t, time.Minute)
		mr.Close()

		_, err := s.Get(ctx, "s1")
		assert.Error(t, err)
		_, err = s.Update(ctx, "s1", models.ContextPatch{SelectedParking: strPtr("P1")})
		assert.Error(t, err)
	})
}

func TestRedisContextStore_ConcurrentUpdatesKeepBothFields(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t, time.Minute)

	done := make(chan error, 2)
	go func() {
		_, err := s.Update(ctx, "s1", models.ContextPatch{SelectedParking: strPtr("P1")})
		done <- err
	}()
	go func() {
		_, err := s.Update(ctx, "s1", models.ContextPatch{LastParkingQuery: strPtr("park in P1")})
		done <- err
	}()
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "P1", got.SelectedParking)
	assert.Equal(t, "park in P1", got.LastParkingQuery)
}
