package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRepositoryContract exercises the behaviour every SessionRepository must share.
func testRepositoryContract(t *testing.T, repo SessionRepository) {
	ctx := context.Background()

	t.Run("get missing slot", func(t *testing.T) {
		data, err := repo.Get(ctx, uuid.NewString(), SlotCart)
		assert.ErrorIs(t, err, ErrSlotNotFound)
		assert.Nil(t, data)
	})

	t.Run("put then get", func(t *testing.T) {
		session := uuid.NewString()
		require.NoError(t, repo.Put(ctx, session, SlotCart, []byte(`{"items":[]}`)))

		data, err := repo.Get(ctx, session, SlotCart)
		require.NoError(t, err)
		assert.Equal(t, `{"items":[]}`, string(data))

		_, err = repo.Get(ctx, session, SlotDraft)
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})

	t.Run("put overwrites in full", func(t *testing.T) {
		session := uuid.NewString()
		require.NoError(t, repo.Put(ctx, session, SlotCart, []byte(`{"items":[1,2,3]}`)))
		require.NoError(t, repo.Put(ctx, session, SlotCart, []byte(`{}`)))

		data, err := repo.Get(ctx, session, SlotCart)
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(data))
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		a, b := uuid.NewString(), uuid.NewString()
		require.NoError(t, repo.Put(ctx, a, SlotCart, []byte("a")))

		_, err := repo.Get(ctx, b, SlotCart)
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})

	t.Run("apply clears and records together", func(t *testing.T) {
		session := uuid.NewString()
		require.NoError(t, repo.Put(ctx, session, SlotCart, []byte("cart")))
		require.NoError(t, repo.Put(ctx, session, SlotDraft, []byte("draft")))

		err := repo.Apply(ctx, session, Commit{
			Writes:  map[Slot][]byte{SlotLastOrder: []byte("order-1")},
			Deletes: []Slot{SlotCart, SlotDraft},
		})
		require.NoError(t, err)

		_, err = repo.Get(ctx, session, SlotCart)
		assert.ErrorIs(t, err, ErrSlotNotFound)
		_, err = repo.Get(ctx, session, SlotDraft)
		assert.ErrorIs(t, err, ErrSlotNotFound)
		data, err := repo.Get(ctx, session, SlotLastOrder)
		require.NoError(t, err)
		assert.Equal(t, "order-1", string(data))
	})

	t.Run("apply delete of missing slot is not an error", func(t *testing.T) {
		err := repo.Apply(ctx, uuid.NewString(), Commit{Deletes: []Slot{SlotLastOrder}})
		assert.NoError(t, err)
	})

	t.Run("write wins over delete of same slot", func(t *testing.T) {
		session := uuid.NewString()
		err := repo.Apply(ctx, session, Commit{
			Writes:  map[Slot][]byte{SlotCart: []byte("kept")},
			Deletes: []Slot{SlotCart},
		})
		require.NoError(t, err)

		data, err := repo.Get(ctx, session, SlotCart)
		require.NoError(t, err)
		assert.Equal(t, "kept", string(data))
	})

	t.Run("empty commit", func(t *testing.T) {
		assert.NoError(t, repo.Apply(ctx, uuid.NewString(), Commit{}))
	})
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	defer repo.Close()
	testRepositoryContract(t, repo)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	data := []byte("cart")
	require.NoError(t, repo.Put(ctx, "s", SlotCart, data))
	data[0] = 'X'

	got, err := repo.Get(ctx, "s", SlotCart)
	require.NoError(t, err)
	assert.Equal(t, "cart", string(got))

	got[0] = 'Y'
	again, _ := repo.Get(ctx, "s", SlotCart)
	assert.Equal(t, "cart", string(again))
}

func TestCommitDeletes(t *testing.T) {
	c := Commit{
		Writes:  map[Slot][]byte{SlotCart: nil},
		Deletes: []Slot{SlotCart, SlotDraft},
	}
	assert.Equal(t, []Slot{SlotDraft}, c.deletes())
	assert.True(t, Commit{}.empty())
	assert.False(t, c.empty())
}
