package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"channel-insight/domain/model"
	"channel-insight/domain/repository"
	"channel-insight/infrastructure/credential"
	"channel-insight/infrastructure/logger"
	"channel-insight/infrastructure/retry"
)

type Options struct {
	CallTimeout time.Duration
	Retry       retry.Config
}

// Session binds one acquired credential to a content API client and runs
// remote calls with timeout, transient retry and a single quota rotation.
type Session struct {
	rotator *credential.Rotator
	factory repository.ContentAPIFactory
	opts    Options

	mu   sync.Mutex
	api  repository.IContentAPI
	cred model.Credential
}

func NewSession(ctx context.Context, rotator *credential.Rotator, factory repository.ContentAPIFactory, opts Options) (*Session, error) {
	s := &Session{rotator: rotator, factory: factory, opts: opts}
	if err := s.rotate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) rotate(ctx context.Context) error {
	cred := s.rotator.Acquire()
	api, err := s.factory(ctx, cred)
	if err != nil {
		return fmt.Errorf("failed to build content client for %s: %w", cred, err)
	}
	s.mu.Lock()
	s.api, s.cred = api, cred
	s.mu.Unlock()
	return nil
}

func (s *Session) client() (repository.IContentAPI, model.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.api, s.cred
}

// Call runs fn against the bound client. On model.ErrQuotaExceeded it acquires
// a replacement credential once and runs fn again; a second quota failure is
// returned as is.
func (s *Session) Call(ctx context.Context, op string, fn func(ctx context.Context, api repository.IContentAPI) error) error {
	err := s.attempt(ctx, fn)
	if !errors.Is(err, model.ErrQuotaExceeded) {
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	_, spent := s.client()
	logger.GetLogger().WithField("op", op).WithField("credential", spent.String()).Warn("Quota exhausted, rotating credential")
	if rerr := s.rotate(ctx); rerr != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(err, rerr))
	}
	if err := s.attempt(ctx, fn); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Session) attempt(ctx context.Context, fn func(ctx context.Context, api repository.IContentAPI) error) error {
	api, _ := s.client()
	return retry.Do(ctx, s.opts.Retry, retry.IsTransient, func(ctx context.Context) error {
		callCtx := ctx
		if s.opts.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
			defer cancel()
		}
		err := fn(callCtx, api)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, model.ErrTransientNetwork) {
			return fmt.Errorf("%w: call timed out after %s: %v", model.ErrTransientNetwork, s.opts.CallTimeout, err)
		}
		return err
	})
}
