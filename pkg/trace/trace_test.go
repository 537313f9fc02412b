package trace

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), "abc")
	assert.Equal(t, "abc", FromContext(ctx))
	assert.Empty(t, FromContext(context.Background()))
}

func TestFromHeader(t *testing.T) {
	assert.Equal(t, "t-1", FromHeader("t-1", "r-1"))
	assert.Equal(t, "r-1", FromHeader("", "r-1"))

	generated := FromHeader("", "")
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
}
