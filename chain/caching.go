package chain

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
)

// CachingClient caches values that only change with ledger governance
// (the domain tempo) on top of another Client.
type CachingClient struct {
	Client
	tempos *lru.Cache
}

func NewCachingClient(size int, client Client) (*CachingClient, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachingClient{
		Client: client,
		tempos: cache,
	}, nil
}

func (c *CachingClient) Tempo(ctx context.Context, domain DomainID) (uint64, error) {
	if tempo, ok := c.tempos.Get(domain); ok {
		// SAFETY: type assertion will never panic as we insert only uint64 values.
		return tempo.(uint64), nil
	}
	tempo, err := c.Client.Tempo(ctx, domain)
	if err == nil {
		c.tempos.Add(domain, tempo)
	}
	return tempo, err
}
