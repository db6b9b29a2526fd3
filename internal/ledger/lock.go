package ledger

import "sort"

// lockKey orders a (user_id, token_id) position row the same way across
// every handler that might touch more than one position in a transaction
// (a trade touches taker and maker, a split touches two outcome tokens and
// the USDC leg). Acquiring SELECT ... FOR UPDATE locks in this order
// everywhere rules out the classic two-handler deadlock where A locks
// (user1, TOKEN_0) then waits on (user2, TOKEN_1) while B holds it waiting
// the other way round.
type lockKey struct {
	userID  int64
	tokenID string
}

func (k lockKey) less(other lockKey) bool {
	if k.userID != other.userID {
		return k.userID < other.userID
	}
	return k.tokenID < other.tokenID
}

// sortAndDedupLockKeys sorts keys into lock order and removes duplicates,
// so a handler that happens to reference the same position twice (e.g. a
// self-cross trade) never asks Postgres for the same row lock twice in one
// statement list.
func sortAndDedupLockKeys(keys []lockKey) []lockKey {
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	out := keys[:0]
	for i, k := range keys {
		if i == 0 || k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	return out
}
