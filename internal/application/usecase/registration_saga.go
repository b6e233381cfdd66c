package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sneakhead/internal/domain/common"
	userdom "sneakhead/internal/domain/user"
)

var (
	// ErrRegistrationRolledBack: the profile could not be saved and the auth account was deleted.
	ErrRegistrationRolledBack = errors.New("registration: profile write failed, account rolled back")
	// ErrRegistrationOrphaned: the profile could not be saved and deleting the auth account failed too.
	ErrRegistrationOrphaned = errors.New("registration: profile write failed, account left without profile")
)

// SagaConfig bounds the profile-write retries.
type SagaConfig struct {
	// MaxRetries counts retries after the first write: 3 means up to 4 attempts.
	MaxRetries      uint64        `koanf:"max_retries"`
	InitialInterval time.Duration `koanf:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval"`
}

func (c SagaConfig) withDefaults() SagaConfig {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 200 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 2 * time.Second
	}
	return c
}

// RegistrationSaga creates the auth account and the profile record as one unit:
// the profile write is retried, and if it still fails the account is deleted.
type RegistrationSaga struct {
	users userdom.Repository
	cfg   SagaConfig
	log   *zap.Logger
}

func NewRegistrationSaga(users userdom.Repository, cfg SagaConfig, log *zap.Logger) *RegistrationSaga {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationSaga{users: users, cfg: cfg.withDefaults(), log: log}
}

func (s *RegistrationSaga) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialInterval
	b.MaxInterval = s.cfg.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, s.cfg.MaxRetries), ctx)
}

// SignUp returns the new uid on success.
func (s *RegistrationSaga) SignUp(ctx context.Context, email, password string, profile userdom.User) common.Result[string] {
	opID := uuid.NewString()
	log := s.log.With(zap.String("op", opID))

	reg := s.users.Register(ctx, email, password)
	if !reg.OK() {
		return reg
	}
	uid := reg.Payload
	if profile.Email == "" {
		profile.Email = email
	}

	attempts := 0
	var last common.Result[common.Empty]
	err := backoff.Retry(func() error {
		attempts++
		last = s.users.AddUserToDatabase(ctx, uid, profile)
		if last.OK() {
			return nil
		}
		cause := last.Err
		if cause == nil {
			cause = errors.New(last.Message)
		}
		if errors.Is(cause, userdom.ErrInvalidProfile) || errors.Is(cause, userdom.ErrInvalidID) {
			return backoff.Permanent(cause)
		}
		log.Warn("[registration] profile write failed", zap.String("userId", uid), zap.Int("attempt", attempts), zap.Error(cause))
		return cause
	}, s.policy(ctx))
	if err == nil {
		log.Info("[registration] completed", zap.String("userId", uid), zap.Int("attempts", attempts))
		return common.Ok("Registration successful", uid)
	}

	// compensate even when the caller's ctx is already done
	comp := s.users.DeleteAccount(context.WithoutCancel(ctx), uid)
	if comp.OK() {
		log.Warn("[registration] rolled back", zap.String("userId", uid), zap.Error(err))
		return common.Result[string]{
			Status:  common.Failed,
			Message: "Registration failed: " + last.Message + " (account removed)",
			Err:     errors.Join(ErrRegistrationRolledBack, err),
		}
	}
	log.Error("[registration] rollback failed", zap.String("userId", uid), zap.Error(err), zap.String("cleanup", comp.Message))
	return common.Result[string]{
		Status:  common.Failed,
		Message: "Registration failed: " + last.Message + " (account cleanup failed: " + comp.Message + ")",
		Payload: uid,
		Err:     errors.Join(ErrRegistrationOrphaned, err, comp.Err),
	}
}
