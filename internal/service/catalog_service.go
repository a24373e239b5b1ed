package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/store"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultCategory = "geral"

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type CatalogService struct {
	store  CatalogStore
	logger *zap.Logger
}

func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store, logger: util.Named("catalog")}
}

type ProductInput struct {
	GuildID     string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
	EmbedColor  string
	CreatedBy   string
}

// ProductUpdate holds the fields to change; nil leaves a field as is.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	ImageURL    *string
	EmbedColor  *string
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{
		GuildID:     in.GuildID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Category:    strings.TrimSpace(in.Category),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		EmbedColor:  strings.TrimSpace(in.EmbedColor),
		CreatedBy:   in.CreatedBy,
	}
	if err := normalizeProduct(p); err != nil {
		return nil, err
	}

	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", p.ID),
		zap.String("guild_id", p.GuildID),
		zap.String("price", p.Price.StringFixed(2)))
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in ProductUpdate) (*models.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrProductNotFound
	}

	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.EmbedColor != nil {
		p.EmbedColor = strings.TrimSpace(*in.EmbedColor)
	}
	if err := normalizeProduct(p); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

// DeactivateProduct hides the product from the storefront. Existing orders
// and stock rows are kept.
func (s *CatalogService) DeactivateProduct(ctx context.Context, id int64) error {
	if err := s.store.DeactivateProduct(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	s.logger.Info("Product deactivated", zap.Int64("product_id", id))
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, guildID string, activeOnly bool) ([]models.ProductListing, error) {
	return s.store.ListProducts(ctx, guildID, activeOnly)
}

// AddStock adds one stock item per non-blank line of raw.
func (s *CatalogService) AddStock(ctx context.Context, productID int64, raw string) (int, error) {
	var contents []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			contents = append(contents, line)
		}
	}
	if len(contents) == 0 {
		return 0, ErrEmptyStock
	}

	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	if !p.Active {
		return 0, ErrProductNotFound
	}

	n, err := s.store.AddStock(ctx, productID, contents)
	if err != nil {
		return 0, fmt.Errorf("failed to add stock: %w", err)
	}

	s.logger.Info("Stock added", zap.Int64("product_id", productID), zap.Int("count", n))
	return n, nil
}

func (s *CatalogService) StockSummary(ctx context.Context, productID int64) (*models.StockSummary, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.StockSummary(ctx, productID)
}

func normalizeProduct(p *models.Product) error {
	if p.Name == "" {
		return ErrInvalidProductName
	}
	p.Price = p.Price.Round(2)
	if !p.Price.IsPositive() {
		return ErrInvalidPrice
	}

	if p.EmbedColor == "" {
		p.EmbedColor = models.DefaultEmbedColor
	}
	if !hexColor.MatchString(p.EmbedColor) {
		return ErrInvalidColor
	}
	p.EmbedColor = strings.ToLower(p.EmbedColor)

	if p.Category == "" {
		p.Category = defaultCategory
	}
	return nil
}
