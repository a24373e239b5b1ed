package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"

	"go.uber.org/zap"
)

const maskedValue = "********"

// editableKeys are the guild settings administrators may change directly.
// Gateway credentials go through PaymentService.ConfigureGateway.
var editableKeys = map[string]func(string) error{
	models.ConfigPaymentGatewayDefault: validGateway,
	models.ConfigWebhookURL:            nil,
	models.ConfigSalesLogChannel:       nil,
	models.ConfigModLogChannel:         nil,
	models.ConfigWelcomeChannel:        nil,
	models.ConfigTicketCategory:        nil,
	models.ConfigTicketSupportRole:     nil,
	models.ConfigBannedWords:           nil,
	models.ConfigAutomodEnabled:        validBool,
	models.ConfigSpamLimit:             validPositiveInt,
	models.ConfigSpamWindow:            validPositiveInt,
}

func validGateway(v string) error {
	if !payment.IsSupported(strings.ToLower(v)) {
		return ErrUnsupportedGateway
	}
	return nil
}

func validBool(v string) error {
	_, err := strconv.ParseBool(v)
	return err
}

func validPositiveInt(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

type GuildConfigService struct {
	store  ConfigStore
	logger *zap.Logger
}

func NewGuildConfigService(store ConfigStore) *GuildConfigService {
	return &GuildConfigService{store: store, logger: util.Named("guild_config")}
}

// Get returns the guild configuration with secrets masked.
func (s *GuildConfigService) Get(ctx context.Context, guildID string) (map[string]string, error) {
	cfg, err := s.store.GetConfigMap(ctx, guildID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(cfg))
	for k, v := range cfg {
		if models.SecretConfigKeys[k] && v != "" {
			v = maskedValue
		}
		out[k] = v
	}
	return out, nil
}

// Set stores one editable key. An empty value deletes it.
func (s *GuildConfigService) Set(ctx context.Context, guildID, key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	validate, ok := editableKeys[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}

	if value == "" {
		return s.store.DeleteConfig(ctx, guildID, key)
	}
	if validate != nil {
		if err := validate(value); err != nil {
			return fmt.Errorf("%w for %s: %w", ErrInvalidConfigValue, key, err)
		}
	}
	if key == models.ConfigPaymentGatewayDefault {
		value = strings.ToLower(value)
	}

	if err := s.store.SetConfig(ctx, guildID, key, value); err != nil {
		return err
	}
	s.logger.Info("Guild config updated", zap.String("guild_id", guildID), zap.String("key", key))
	return nil
}

// SetMany applies several keys, stopping at the first invalid one.
func (s *GuildConfigService) SetMany(ctx context.Context, guildID string, values map[string]string) error {
	for k := range values {
		if _, ok := editableKeys[strings.ToLower(strings.TrimSpace(k))]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownConfigKey, k)
		}
	}
	for k, v := range values {
		if err := s.Set(ctx, guildID, k, v); err != nil {
			return err
		}
	}
	return nil
}
