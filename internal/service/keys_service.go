package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/repository"
)

const (
	maxApiKeys      = 5
	maxApiKeyLabel  = 64
	apiKeyPrefix    = "dmk_"
	apiKeyAlphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	apiKeyLength    = 40
	apiKeyShownHead = 8
)

type ApiKeyService interface {
	Create(ctx context.Context, userID int64, label string) (*models.ApiKey, error)
	List(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	GetUserID(ctx context.Context, apiKey string) (int64, error)
	RemoveAPIKey(ctx context.Context, userID, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

func hashApiKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (s *apiKeyService) Create(ctx context.Context, userID int64, label string) (*models.ApiKey, error) {
	label = strings.TrimSpace(label)
	if len(label) > maxApiKeyLabel {
		return nil, models.NewValidationError("label", fmt.Sprintf("must be at most %d characters", maxApiKeyLabel))
	}

	n, err := s.k.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if n >= maxApiKeys {
		err = models.NewValidationError("api_key", fmt.Sprintf("only %d API keys can be created", maxApiKeys))
		slog.Info(err.Error())
		return nil, err
	}

	secret, err := gonanoid.Generate(apiKeyAlphabet, apiKeyLength)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error generating API key: %w", err)
	}
	key := apiKeyPrefix + secret

	apiKey := &models.ApiKey{
		UserID: userID,
		Prefix: key[:len(apiKeyPrefix)+apiKeyShownHead],
		Label:  label,
	}
	if err := s.k.Create(ctx, apiKey, hashApiKey(key)); err != nil {
		return nil, fmt.Errorf("error saving API key: %w", err)
	}
	apiKey.Key = key
	return apiKey, nil
}

func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	if !strings.HasPrefix(apiKey, apiKeyPrefix) {
		return 0, fmt.Errorf("api key: %w", models.ErrNotFound)
	}

	userID, ok, err := s.k.Authenticate(ctx, hashApiKey(apiKey))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("api key: %w", models.ErrNotFound)
	}
	return userID, nil
}

func (s *apiKeyService) List(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	keys, err := s.k.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting API keys: %w", err)
	}
	if keys == nil {
		keys = []*models.ApiKey{}
	}
	return keys, nil
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, userID, keyID int64) error {
	if userID == 0 {
		return models.NewValidationError("user_id", "is not valid")
	}
	if keyID == 0 {
		return models.NewValidationError("key_id", "is not valid")
	}

	removed, err := s.k.RemoveForUser(ctx, userID, keyID)
	if err != nil {
		return err
	}
	if !removed {
		slog.Info("api key doesn't exist", "key_id", keyID, "user_id", userID)
		return fmt.Errorf("api key %d: %w", keyID, models.ErrNotFound)
	}
	return nil
}
