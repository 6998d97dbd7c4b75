package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobIDContext(t *testing.T) {
	t.Run("stores and retrieves job ID", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithJobID(ctx, "job-123")

		result := JobIDFromContext(ctx)
		assert.Equal(t, "job-123", result)
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		ctx := context.Background()
		result := JobIDFromContext(ctx)
		assert.Equal(t, "", result)
	})
}

func TestStageContext(t *testing.T) {
	t.Run("stores and retrieves stage", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithStage(ctx, "extraction")

		assert.Equal(t, "extraction", StageFromContext(ctx))
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		assert.Equal(t, "", StageFromContext(context.Background()))
	})
}
