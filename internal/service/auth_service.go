package service

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	apperrors "focusbubble/backend/internal/errors"
	"focusbubble/backend/internal/model"
)

// AuthService pairs UI components with the background service. A component
// presents the shared pairing key once and receives a token that carries
// its identity on every later request.
type AuthService struct {
	jwtSecret   []byte
	pairingHash []byte
	tokenTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

func NewAuthService(jwtSecret, pairingKeyHash string, tokenTTL time.Duration, logger zerolog.Logger) *AuthService {
	return &AuthService{
		jwtSecret:   []byte(jwtSecret),
		pairingHash: []byte(pairingKeyHash),
		tokenTTL:    tokenTTL,
		logger:      logger.With().Str("component", "auth").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether requests must carry a component token.
func (s *AuthService) Enabled() bool {
	return len(s.jwtSecret) > 0
}

type ConnectInput struct {
	PairingKey string `json:"pairingKey"`
	Kind       string `json:"kind"`
	TabID      int    `json:"tabId"`
	URL        string `json:"url"`
}

type ConnectResult struct {
	Token     string          `json:"token,omitempty"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
	Component model.Component `json:"component"`
}

type componentClaims struct {
	Kind  string `json:"kind"`
	TabID int    `json:"tab,omitempty"`
	URL   string `json:"url,omitempty"`
	jwt.RegisteredClaims
}

// Connect registers a component. With auth disabled it returns an identity
// and no token.
func (s *AuthService) Connect(_ context.Context, input ConnectInput) (*ConnectResult, *apperrors.APIError) {
	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	if kind == "" {
		kind = model.ComponentRuntime
	}
	if !model.ValidComponentKind(kind) {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest, "kind must be runtime or content")
	}
	if kind == model.ComponentContent && input.TabID <= 0 {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest, "content components require a tabId")
	}

	component := model.Component{
		ID:   ulid.Make().String(),
		Kind: kind,
		URL:  input.URL,
	}
	if kind == model.ComponentContent {
		component.TabID = input.TabID
	}

	if !s.Enabled() {
		return &ConnectResult{Component: component}, nil
	}

	if input.PairingKey == "" {
		return nil, apperrors.Unauthorized("pairing key is required")
	}
	if bcrypt.CompareHashAndPassword(s.pairingHash, []byte(input.PairingKey)) != nil {
		s.logger.Warn().Str("kind", kind).Msg("Rejected pairing attempt")
		return nil, apperrors.Unauthorized("invalid pairing key")
	}

	token, expiresAt, apiErr := s.issueToken(component)
	if apiErr != nil {
		return nil, apiErr
	}

	s.logger.Info().Str("component_id", component.ID).Str("kind", kind).Int("tab", component.TabID).Msg("Component paired")
	return &ConnectResult{Token: token, ExpiresAt: &expiresAt, Component: component}, nil
}

func (s *AuthService) ParseToken(tokenString string) (*model.Component, *apperrors.APIError) {
	token, err := jwt.ParseWithClaims(tokenString, &componentClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*componentClaims)
	if !ok {
		return nil, apperrors.Unauthorized("invalid token")
	}
	if claims.Subject == "" || !model.ValidComponentKind(claims.Kind) {
		return nil, apperrors.Unauthorized("invalid token subject")
	}

	return &model.Component{
		ID:    claims.Subject,
		Kind:  claims.Kind,
		TabID: claims.TabID,
		URL:   claims.URL,
	}, nil
}

func (s *AuthService) issueToken(component model.Component) (string, time.Time, *apperrors.APIError) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := componentClaims{
		Kind:  component.Kind,
		TabID: component.TabID,
		URL:   component.URL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   component.ID,
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, apperrors.Internal("failed to sign token")
	}
	return signed, expiresAt, nil
}
