package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffline_Search(t *testing.T) {
	summary, err := Offline{}.Search(context.Background(), "Marie Curie")
	assert.NoError(t, err)
	assert.Empty(t, summary)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Offline{}.Search(ctx, "Marie Curie")
	assert.ErrorIs(t, err, context.Canceled)
}
