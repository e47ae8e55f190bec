package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karyana-pos/karyana-pos/internal/shared"
)

type memorySettings struct {
	values map[string]string
}

func newMemorySettings() *memorySettings {
	return &memorySettings{values: map[string]string{}}
}

func (m *memorySettings) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", shared.ErrNotFound
	}
	return v, nil
}

func (m *memorySettings) Set(ctx context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memorySettings) All(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *memorySettings) InsertMissing(ctx context.Context, defaults map[string]string) error {
	for k, v := range defaults {
		if _, ok := m.values[k]; !ok {
			m.values[k] = v
		}
	}
	return nil
}

func TestSetAndGet(t *testing.T) {
	svc := NewService(newMemorySettings())
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "shop_name", "Karyana Store"))

	got, err := svc.Get(ctx, "shop_name")
	require.NoError(t, err)
	require.Equal(t, "Karyana Store", got)

	// upsert overwrites
	require.NoError(t, svc.Set(ctx, "shop_name", "New Name"))
	got, err = svc.Get(ctx, "shop_name")
	require.NoError(t, err)
	require.Equal(t, "New Name", got)
}

func TestGetMissingKey(t *testing.T) {
	svc := NewService(newMemorySettings())
	_, err := svc.Get(context.Background(), "absent")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBlankKeyRejected(t *testing.T) {
	svc := NewService(newMemorySettings())
	ctx := context.Background()

	_, err := svc.Get(ctx, "  ")
	require.ErrorIs(t, err, ErrKeyRequired)
	require.ErrorIs(t, svc.Set(ctx, "", "x"), ErrKeyRequired)
}

func TestInitializeDefaultsKeepsExisting(t *testing.T) {
	store := newMemorySettings()
	svc := NewService(store)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "currency", "PKR"))
	require.NoError(t, svc.InitializeDefaults(ctx, map[string]string{
		"currency":  "USD",
		"low_stock": "5",
	}))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Equal(t, "PKR", all["currency"])
	require.Equal(t, "5", all["low_stock"])
}
