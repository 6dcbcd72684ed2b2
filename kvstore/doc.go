// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package kvstore adapts the shared key-value store used for all live state.

# Implementations

	s := kvstore.NewRedisStore(kvstore.RedisOptions{Addr: "127.0.0.1:6379"})
	s := kvstore.NewMemoryStore() // tests, -store memory

Both expose the same Store interface: hashes, sets, sorted sets, lists,
strings with TTL, key existence/deletion and pattern enumeration.

# Atomicity

Each method is one atomic store command. There are no multi-key
transactions; callers compose single-key primitives (SAdd reports whether
the member was new, SRem whether it was removed) instead of rewriting
whole collections.

# Errors

	ErrNil          Get on a missing key
	ErrUnavailable  the server could not be reached or timed out
	ErrWrongType    the key holds another kind of value

Every Redis call is bounded by RedisOptions.Timeout.
*/
package kvstore
