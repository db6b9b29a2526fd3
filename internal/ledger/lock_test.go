package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortAndDedupLockKeys_OrdersByUserThenToken(t *testing.T) {
	keys := []lockKey{
		{userID: 2, tokenID: "USDC"},
		{userID: 1, tokenID: "TOKEN_1"},
		{userID: 1, tokenID: "TOKEN_0"},
	}

	got := sortAndDedupLockKeys(keys)

	assert.Equal(t, []lockKey{
		{userID: 1, tokenID: "TOKEN_0"},
		{userID: 1, tokenID: "TOKEN_1"},
		{userID: 2, tokenID: "USDC"},
	}, got)
}

func TestSortAndDedupLockKeys_RemovesDuplicates(t *testing.T) {
	keys := []lockKey{
		{userID: 5, tokenID: "USDC"},
		{userID: 5, tokenID: "USDC"},
		{userID: 5, tokenID: "TOKEN_0"},
	}

	got := sortAndDedupLockKeys(keys)

	assert.Equal(t, []lockKey{
		{userID: 5, tokenID: "TOKEN_0"},
		{userID: 5, tokenID: "USDC"},
	}, got)
}

func TestSortAndDedupLockKeys_Empty(t *testing.T) {
	assert.Empty(t, sortAndDedupLockKeys(nil))
}
