package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemErrorUnwraps(t *testing.T) {
	err := &ItemError{Index: 3, Err: fmt.Errorf("%w: too long", ErrInvalidInput)}

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "item 3")

	joined := errors.Join(err, &ItemError{Index: 7, Err: ErrInvalidInput})
	var item *ItemError
	assert.ErrorAs(t, joined, &item)
	assert.Equal(t, 3, item.Index)
}

func TestStageErrorUnwraps(t *testing.T) {
	err := &StageError{
		Stage:    StageEmbed,
		Location: "docs/a.txt",
		Err:      ErrTransientCapacity,
	}

	assert.ErrorIs(t, err, ErrTransientCapacity)
	assert.Contains(t, err.Error(), "docs/a.txt")
	assert.Contains(t, err.Error(), string(StageEmbed))
}
