package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/types"
)

const (
	widgetTokenBytes  = 64
	widgetTokenPrefix = 8
)

// IssuedToken pairs the one-time plaintext with its stored record.
type IssuedToken struct {
	Token  string             `json:"token"`
	Record *types.WidgetToken `json:"record"`
}

type WidgetTokenService interface {
	Issue(ctx context.Context, botID uuid.UUID, label string, allowedDomains []string, expiresAt *time.Time) (*IssuedToken, error)
	Validate(ctx context.Context, plaintext, origin string) (*types.WidgetToken, error)
	List(ctx context.Context, botID uuid.UUID) ([]*types.WidgetToken, error)
	Revoke(ctx context.Context, botID, tokenID uuid.UUID) error
}

type widgetTokenService struct {
	tokenRepo repos.WidgetTokenRepo
	log       *logger.Logger
}

func NewWidgetTokenService(tokenRepo repos.WidgetTokenRepo, baseLog *logger.Logger) WidgetTokenService {
	return &widgetTokenService{
		tokenRepo: tokenRepo,
		log:       baseLog.With("service", "WidgetTokenService"),
	}
}

// Issue mints a new widget token. Only the sha256 is stored; the plaintext
// in the response is the single chance to copy it.
func (s *widgetTokenService) Issue(ctx context.Context, botID uuid.UUID, label string, allowedDomains []string, expiresAt *time.Time) (*IssuedToken, error) {
	raw := make([]byte, widgetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, apierr.Internal(fmt.Errorf("generating token: %w", err))
	}
	plaintext := base64.RawURLEncoding.EncodeToString(raw)

	domains, err := normalizeDomains(allowedDomains)
	if err != nil {
		return nil, apierr.Validation(err)
	}
	if len(domains) == 0 {
		return nil, apierr.Validation(fmt.Errorf("at least one allowed domain is required"))
	}
	if expiresAt != nil && expiresAt.Before(time.Now()) {
		return nil, apierr.Validation(fmt.Errorf("expires_at is in the past"))
	}

	record := &types.WidgetToken{
		BotID:       botID,
		TokenHash:   hashToken(plaintext),
		TokenPrefix: plaintext[:widgetTokenPrefix],
		Label:       strings.TrimSpace(label),
		ExpiresAt:   expiresAt,
	}
	if raw, err := json.Marshal(domains); err == nil {
		record.AllowedDomains = raw
	}

	saved, err := s.tokenRepo.Create(ctx, nil, record)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("persisting widget token: %w", err))
	}
	s.log.Info("widget token issued", "bot_id", botID, "token_prefix", saved.TokenPrefix)
	return &IssuedToken{Token: plaintext, Record: saved}, nil
}

// Validate resolves a presented token and enforces expiry and the domain
// allowlist against the request Origin. Revoked tokens are deleted rows, so
// they fail the hash lookup like any unknown token. The last-used timestamp
// update is best-effort.
func (s *widgetTokenService) Validate(ctx context.Context, plaintext, origin string) (*types.WidgetToken, error) {
	plaintext = strings.TrimSpace(plaintext)
	if plaintext == "" {
		return nil, apierr.New(401, apierr.CodeUnauthorized, fmt.Errorf("missing widget token"))
	}

	record, err := s.tokenRepo.GetByHash(ctx, nil, hashToken(plaintext))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(401, apierr.CodeUnauthorized, fmt.Errorf("unknown widget token"))
		}
		return nil, apierr.Internal(err)
	}

	if record.ExpiresAt != nil && record.ExpiresAt.Before(time.Now()) {
		return nil, apierr.New(401, apierr.CodeTokenExpired, fmt.Errorf("widget token expired"))
	}
	if err := s.checkDomain(record, origin); err != nil {
		return nil, err
	}

	if err := s.tokenRepo.TouchLastUsed(ctx, nil, record.ID); err != nil {
		s.log.Warn("updating token last_used failed", "token_prefix", record.TokenPrefix, "error", err)
	}
	return record, nil
}

func (s *widgetTokenService) List(ctx context.Context, botID uuid.UUID) ([]*types.WidgetToken, error) {
	tokens, err := s.tokenRepo.ListByBot(ctx, nil, botID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return tokens, nil
}

// Revoke deletes the token row outright; there is no soft-revoked state to
// reason about, and a revoked plaintext validates like one that never existed.
func (s *widgetTokenService) Revoke(ctx context.Context, botID, tokenID uuid.UUID) error {
	record, err := s.tokenRepo.GetByID(ctx, nil, tokenID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound(fmt.Errorf("widget token not found"))
		}
		return apierr.Internal(err)
	}
	if record.BotID != botID {
		return apierr.NotFound(fmt.Errorf("widget token not found"))
	}
	if err := s.tokenRepo.Delete(ctx, nil, tokenID); err != nil {
		return apierr.Internal(err)
	}
	s.log.Info("widget token revoked", "bot_id", botID, "token_prefix", record.TokenPrefix)
	return nil
}

// checkDomain enforces the allowlist: exact host match, case-insensitive,
// ignoring scheme and port.
func (s *widgetTokenService) checkDomain(record *types.WidgetToken, origin string) error {
	domains := decodeDomains(record.AllowedDomains)
	if len(domains) == 0 {
		// Issue never persists an empty allowlist; an unreadable one
		// admits nothing.
		return apierr.New(403, apierr.CodeDomainNotAllowed, fmt.Errorf("token has no allowed domains"))
	}
	host := originHost(origin)
	if host == "" {
		return apierr.New(403, apierr.CodeDomainNotAllowed, fmt.Errorf("missing origin"))
	}
	for _, domain := range domains {
		if host == domain {
			return nil
		}
	}
	return apierr.New(403, apierr.CodeDomainNotAllowed, fmt.Errorf("origin %q not in allowlist", host))
}

func hashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func normalizeDomains(domains []string) ([]string, error) {
	out := make([]string, 0, len(domains))
	seen := map[string]bool{}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "https://")
		d = strings.TrimPrefix(d, "http://")
		d = strings.TrimSuffix(d, "/")
		if idx := strings.Index(d, ":"); idx >= 0 {
			d = d[:idx]
		}
		if d == "" {
			continue
		}
		if strings.ContainsAny(d, "/ ") {
			return nil, fmt.Errorf("invalid domain %q", d)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

func decodeDomains(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var domains []string
	if err := json.Unmarshal(raw, &domains); err != nil {
		return nil
	}
	return domains
}

// originHost extracts the bare lowercase host from an Origin header value.
func originHost(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "null" {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		// Bare hostname without scheme
		host := strings.ToLower(origin)
		if idx := strings.Index(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		return host
	}
	return strings.ToLower(u.Hostname())
}
