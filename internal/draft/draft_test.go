package draft

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/mailform/internal/attachment"
)

func TestNewID(t *testing.T) {
	a, err := NewID()
	require.NoError(t, err)
	b, err := NewID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, ValidID(a))
	assert.False(t, ValidID("not-a-uuid"))
	assert.False(t, ValidID(""))
}

func TestClone(t *testing.T) {
	d := &Draft{ID: "x", Recipients: []string{"a@x.com"}}
	c := d.Clone()
	c.Recipients[0] = "changed@x.com"
	c.Recipients = append(c.Recipients, "b@y.com")

	assert.Equal(t, []string{"a@x.com"}, d.Recipients)
}

func TestMemoryStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	d, err := New()
	require.NoError(t, err)
	d.Recipients = []string{"a@x.com", "b@y.com"}
	d.Attachments = []attachment.File{{Descriptor: attachment.Descriptor{Name: "a.txt", Size: 2}, Content: []byte("hi")}}
	require.NoError(t, s.Save(ctx, d))
	assert.False(t, d.UpdatedAt.IsZero())

	got, err := s.Load(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Recipients, got.Recipients)
	assert.Equal(t, "a.txt", got.Attachments[0].Name)

	// Mutating the loaded copy must not leak into the store.
	got.Recipients = append(got.Recipients, "c@z.com")
	again, err := s.Load(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, again.Recipients, 2)
}

func TestMemoryStore_NotFound(t *testing.T) {
	_, err := NewMemoryStore(0).Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	require.NoError(t, s.Save(ctx, &Draft{ID: "d1"}))
	require.NoError(t, s.Delete(ctx, "d1"))

	_, err := s.Load(ctx, "d1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, &Draft{ID: "old"}))

	now = now.Add(59 * time.Minute)
	_, err := s.Load(ctx, "old")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Len())
}

func TestMemoryStore_SweepOnSave(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, &Draft{ID: "a"}))
	require.NoError(t, s.Save(ctx, &Draft{ID: "b"}))
	assert.Equal(t, 2, s.Len())

	now = now.Add(5 * time.Minute)
	require.NoError(t, s.Save(ctx, &Draft{ID: "c"}))
	assert.Equal(t, 1, s.Len())
}
