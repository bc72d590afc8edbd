package redisx

import "time"

const (
	// Cached populated order JSON: order:{order_id}
	KeyOrder = "order:%s"

	// Issued refresh tokens: refresh:{user_id}:{token_id} -> "1"
	KeyRefreshToken = "refresh:%s:%s"
)

var TTLOrderCache = 5 * time.Minute
