package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookshop/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromoRepository_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPromoRepository(pool, zerolog.Nop())
	ctx := context.Background()

	validUntil := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	count, err := repo.Upsert(ctx, []model.PromoCode{
		{
			Code:            "SPRING10",
			IsActive:        true,
			ValidUntil:      &validUntil,
			MaxUses:         intPtr(100),
			MinOrderAmount:  decPtr("500"),
			DiscountPercent: decPtr("10"),
		},
		{
			Code:           "MINUS50",
			IsActive:       true,
			DiscountAmount: decPtr("50"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	promo, err := repo.GetByCode(ctx, "SPRING10")
	require.NoError(t, err)
	require.NotNil(t, promo)
	assert.True(t, promo.IsPercent())
	assert.Equal(t, 100, *promo.MaxUses)
	assert.Equal(t, "500", promo.MinOrderAmount.String())
	assert.True(t, validUntil.Equal(*promo.ValidUntil))
	assert.Nil(t, promo.DiscountAmount)

	fixed, err := repo.GetByCode(ctx, "MINUS50")
	require.NoError(t, err)
	require.NotNil(t, fixed)
	assert.False(t, fixed.IsPercent())
	assert.Nil(t, fixed.MaxUses)

	missing, err := repo.GetByCode(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPromoRepository_UpsertPreservesUsage(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPromoRepository(pool, zerolog.Nop())
	ctx := context.Background()

	_, err := repo.Upsert(ctx, []model.PromoCode{
		{Code: "SPRING10", IsActive: true, DiscountPercent: decPtr("10")},
	})
	require.NoError(t, err)

	require.NoError(t, repo.IncrementUsage(ctx, "SPRING10"))
	require.NoError(t, repo.IncrementUsage(ctx, "SPRING10"))

	_, err = repo.Upsert(ctx, []model.PromoCode{
		{Code: "SPRING10", IsActive: false, DiscountPercent: decPtr("15")},
	})
	require.NoError(t, err)

	promo, err := repo.GetByCode(ctx, "SPRING10")
	require.NoError(t, err)
	assert.Equal(t, 2, promo.CurrentUses)
	assert.False(t, promo.IsActive)
	assert.Equal(t, "15", promo.DiscountPercent.String())
}

func TestPromoRepository_IncrementUsage_Missing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPromoRepository(pool, zerolog.Nop())

	err := repo.IncrementUsage(context.Background(), "GHOST")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPromoNotFound))
}

func TestPromoRepository_UpsertRejectsBothDiscountModes(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPromoRepository(pool, zerolog.Nop())

	_, err := repo.Upsert(context.Background(), []model.PromoCode{
		{Code: "BOTH", IsActive: true, DiscountPercent: decPtr("10"), DiscountAmount: decPtr("20")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOTH")
}
