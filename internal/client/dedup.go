package client

import (
	"context"
	"sync"
)

// response is the settled outcome of one network call, shared between
// deduplicated callers
type response struct {
	status int
	body   []byte
	err    error
}

type inflightCall struct {
	done chan struct{}
	res  response
}

// dedupGroup collapses concurrent identical requests into a single network
// call. The first caller for a key runs fn; everyone arriving while it is in
// flight waits on the same result. The entry is removed as soon as the call
// settles, success or failure, so later requests go back to the network.
type dedupGroup struct {
	mu    sync.Mutex
	calls map[string]*inflightCall
}

func newDedupGroup() *dedupGroup {
	return &dedupGroup{calls: make(map[string]*inflightCall)}
}

// do runs fn for key, or joins an in-flight call. A joining caller whose
// context ends first stops waiting; the underlying call keeps running for
// the others.
func (g *dedupGroup) do(ctx context.Context, key string, fn func() response) response {
	g.mu.Lock()
	if call, ok := g.calls[key]; ok {
		g.mu.Unlock()
		select {
		case <-call.done:
			return call.res
		case <-ctx.Done():
			return response{err: &NetworkError{Err: ctx.Err()}}
		}
	}

	call := &inflightCall{done: make(chan struct{})}
	g.calls[key] = call
	g.mu.Unlock()

	call.res = fn()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()
	close(call.done)

	return call.res
}
