package credential

import (
	"fmt"
	"sync/atomic"

	"channel-insight/domain/model"
)

// Rotator hands out credentials round-robin so request volume is spread
// across quota pools. It is safe for concurrent use.
type Rotator struct {
	creds  []model.Credential
	cursor atomic.Uint64
}

// NewRotator fails with model.ErrNoCredentials on an empty set.
func NewRotator(creds []model.Credential) (*Rotator, error) {
	if len(creds) == 0 {
		return nil, fmt.Errorf("credential rotator: %w", model.ErrNoCredentials)
	}
	cp := make([]model.Credential, len(creds))
	copy(cp, creds)
	return &Rotator{creds: cp}, nil
}

// Acquire returns the next credential. It never blocks.
func (r *Rotator) Acquire() model.Credential {
	n := r.cursor.Add(1) - 1
	return r.creds[n%uint64(len(r.creds))]
}

func (r *Rotator) Size() int {
	return len(r.creds)
}
