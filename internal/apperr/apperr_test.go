package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInvalidRequest, KindOf(Invalid("bad input")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("user not found")))
	assert.Equal(t, KindInsufficientStock, KindOf(InsufficientStock("Mouse", 0)))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(Internal(errors.New("boom"), "query failed")))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("place order: %w", NotFound("product %s not found", "p1"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "product p1 not found", Message(err))
}

func TestInsufficientStockMessage(t *testing.T) {
	err := InsufficientStock("Laptop Gamer", 3)
	assert.Equal(t, "Insufficient stock for Laptop Gamer. Available: 3", err.Error())
}

func TestInternalMessageHidden(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"), "insert order")
	assert.Equal(t, "internal server error", Message(err))
	assert.Contains(t, err.Error(), "connection refused")
}
