package onchain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopSender_AlwaysSucceeds(t *testing.T) {
	res, err := NoopSender{}.Send(context.Background(), Batch{TradeID: "abc123"})
	assert.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "noop-abc123", res.TxHash)
}
