package cache

import "github.com/redis/rueidis"

// NewStoreForTest wires a store around a mock rueidis client.
func NewStoreForTest(client rueidis.Client) *Store {
	return &Store{client: client}
}
