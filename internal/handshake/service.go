// Package handshake implements the pull-based OAuth flow that links a Plex
// account to an integration: generate a correlation identifier, hand the
// user to the external auth surface, poll the token endpoint until a token
// materializes or the attempt budget is exhausted, then vault-encrypt the
// token into the integration registry.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/mediatrack/internal/common"
	"github.com/dmitrijs2005/mediatrack/internal/config"
	"github.com/dmitrijs2005/mediatrack/internal/logging"
	"github.com/dmitrijs2005/mediatrack/internal/models"
	"github.com/dmitrijs2005/mediatrack/internal/plex"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/integrations"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/platforms"
	"github.com/dmitrijs2005/mediatrack/internal/vault"
)

const authAppURL = "https://app.plex.tv/auth/#"

// PlatformName is the registry name of the platform this handshake links.
const PlatformName = "plex"

// errPinPending marks a poll attempt that succeeded but carried no token yet.
var errPinPending = errors.New("authorization pending")

// Credentials is the payload stored in the vault for a linked Plex account.
type Credentials struct {
	AuthToken string `json:"auth_token"`
}

// AuthRequest is handed to the caller after Initiate: the URL to open in the
// external auth surface and the identifier that correlates the callback.
type AuthRequest struct {
	RequestID string `json:"request_id"`
	AuthURL   string `json:"auth_url"`
}

// Service drives the handshake state machine.
type Service struct {
	store        *PendingStore
	plexClient   *plex.Client
	vault        *vault.Vault
	integrations integrations.Repository
	platforms    platforms.Repository
	cfg          *config.Config
	logger       logging.Logger
}

func NewService(store *PendingStore, plexClient *plex.Client, v *vault.Vault,
	integrationRepo integrations.Repository, platformRepo platforms.Repository,
	cfg *config.Config, logger logging.Logger) *Service {
	return &Service{
		store:        store,
		plexClient:   plexClient,
		vault:        v,
		integrations: integrationRepo,
		platforms:    platformRepo,
		cfg:          cfg,
		logger:       logger.With("component", "handshake"),
	}
}

// Initiate generates a random correlation identifier, stores it as the
// user's single pending handshake and returns the authorization URL to open.
func (s *Service) Initiate(ctx context.Context, userID string) (*AuthRequest, error) {
	requestID := uuid.NewString()
	s.store.Put(userID, requestID)

	authURL := fmt.Sprintf("%s?clientID=%s&code=%s&forwardUrl=%s&context%%5Bdevice%%5D%%5Bproduct%%5D=%s",
		authAppURL,
		url.QueryEscape(s.cfg.PlexClientID),
		url.QueryEscape(requestID),
		url.QueryEscape(s.cfg.AuthCallbackURL),
		url.QueryEscape(s.cfg.PlexProduct),
	)

	s.logger.Info(ctx, "handshake initiated", "user_id", userID)
	return &AuthRequest{RequestID: requestID, AuthURL: authURL}, nil
}

// Complete verifies the callback identifier against the user's pending
// handshake, polls the token endpoint and, on success, writes the encrypted
// token into the registry with status connected. The pending identifier is
// purged on every outcome, so it can never be replayed.
func (s *Service) Complete(ctx context.Context, userID, receivedID string) error {
	defer s.store.Delete(userID)

	stored, ok := s.store.Get(userID)
	if !ok || stored != receivedID {
		s.logger.Warn(ctx, "handshake correlation failed", "user_id", userID)
		return common.ErrCorrelation
	}

	token, err := s.pollToken(ctx, receivedID)
	if err != nil {
		s.logger.Warn(ctx, "handshake did not complete", "user_id", userID, "error", err.Error())
		return err
	}

	blob, err := s.vault.Encrypt(Credentials{AuthToken: token})
	if err != nil {
		return fmt.Errorf("encrypt credentials: %w", err)
	}

	platform, err := s.platforms.GetByName(ctx, PlatformName)
	if err != nil {
		return fmt.Errorf("resolve platform %q: %w", PlatformName, err)
	}

	integration := &models.Integration{
		UserID:               userID,
		PlatformID:           platform.ID,
		Status:               models.StatusConnected,
		EncryptedCredentials: blob,
		SyncEnabled:          true,
	}
	if err := s.integrations.Upsert(ctx, integration); err != nil {
		return fmt.Errorf("store integration: %w", err)
	}

	s.logger.Info(ctx, "handshake succeeded", "user_id", userID, "platform", PlatformName)
	return nil
}

// Cancel abandons the user's pending handshake, e.g. when the external auth
// surface reports it was closed before a callback arrived.
func (s *Service) Cancel(userID string) {
	s.store.Delete(userID)
}

// pollToken queries the token endpoint at a fixed cadence until a token
// appears or the attempt budget is exhausted. Transient fetch failures are
// swallowed and consume an attempt; only exhaustion yields ErrAuthTimeout.
func (s *Service) pollToken(ctx context.Context, requestID string) (string, error) {
	var token string

	backoff := retry.WithMaxRetries(uint64(s.cfg.HandshakeMaxAttempts-1), retry.NewConstant(s.cfg.HandshakePollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		got, err := s.plexClient.CheckPin(ctx, requestID)
		if err != nil {
			return retry.RetryableError(err)
		}
		if got == "" {
			return retry.RetryableError(errPinPending)
		}
		token = got
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// every failed attempt is followed by a full interval, the last one
		// included, so the user keeps the whole attempts*interval window
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.cfg.HandshakePollInterval):
		}
		return "", fmt.Errorf("%w: %v", common.ErrAuthTimeout, err)
	}
	return token, nil
}
