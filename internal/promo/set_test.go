package promo

import (
	"testing"

	"bookshop/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestMapSet(t *testing.T) {
	s := newMapSet(4)

	s.Add(model.PromoCode{Code: " first ", DiscountPercent: decPtr("5")})
	s.Add(promoDef("SECOND"))
	s.Add(model.PromoCode{Code: "FIRST", DiscountAmount: decPtr("10")})

	assert.Equal(t, 2, s.Size())

	first, ok := s.Get("first")
	assert.True(t, ok)
	assert.Nil(t, first.DiscountPercent)

	_, ok = s.Get("THIRD")
	assert.False(t, ok)

	codes := s.Codes()
	assert.Equal(t, "FIRST", codes[0].Code)
	assert.Equal(t, "SECOND", codes[1].Code)
}

func TestMapSet_Merge(t *testing.T) {
	s := newMapSet(2)
	s.Add(promoDef("A"))

	s.Merge(setWith("B", "A"))

	assert.Equal(t, 2, s.Size())
	assert.Equal(t, []string{"A", "B"}, []string{s.Codes()[0].Code, s.Codes()[1].Code})
}

func TestNewMapSet_Empty(t *testing.T) {
	s := NewMapSet(0)

	assert.Equal(t, 0, s.Size())
	assert.Empty(t, s.Codes())
}
