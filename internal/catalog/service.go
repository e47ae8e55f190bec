package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/karyana-pos/karyana-pos/internal/ledger"
	"github.com/karyana-pos/karyana-pos/internal/observability"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

// LedgerPort lets product creation book an opening stock movement inside
// its own transaction.
type LedgerPort interface {
	RecordMovementIn(ctx context.Context, tx ledger.TxRepository, input ledger.MovementInput) (int64, error)
}

// AuditPort abstracts the best-effort audit sink.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, error)
	UpdateProduct(ctx context.Context, id int64, update ProductUpdate) error
	DeleteProduct(ctx context.Context, id int64) error
	GetBalance(ctx context.Context, id int64) (Balance, error)

	CreateCategory(ctx context.Context, name string) (int64, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) error
	DeleteCategory(ctx context.Context, id int64) error
	ListCategories(ctx context.Context, limit, offset int) ([]Category, error)
}

// Service owns the product catalog and the read-only balance accessor.
type Service struct {
	repo    RepositoryPort
	ledger  LedgerPort
	audit   AuditPort
	metrics *observability.Metrics
}

// NewService builds Service. Metrics may be nil.
func NewService(repo RepositoryPort, ledgerSvc LedgerPort, audit AuditPort, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, ledger: ledgerSvc, audit: audit, metrics: metrics}
}

// CreateProduct inserts a product. When an initial stock figure is given, an
// opening movement with reason "initial_stock" is recorded in the same
// transaction so the balance stays equal to the movement sum from row one.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (int64, error) {
	input = normalizeInput(input)
	if err := validateNames(input.URName, input.ENName); err != nil {
		return 0, err
	}
	if err := validatePricing(input.BasePrice, input.SellPrice); err != nil {
		return 0, err
	}
	if input.SupplyPackQty.IsZero() {
		input.SupplyPackQty = decimal.NewFromInt(1)
	}
	if err := validatePackQty(input.SupplyPackQty); err != nil {
		return 0, err
	}
	if input.Unit == "" {
		input.Unit = "kg"
	}

	now := time.Now().UTC()
	var productID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		productID, err = tx.InsertProduct(ctx, Product{
			ShortCode:        input.ShortCode,
			URName:           input.URName,
			ENName:           input.ENName,
			Company:          input.Company,
			Barcode:          input.Barcode,
			BasePrice:        input.BasePrice,
			SellPrice:        input.SellPrice,
			StockQty:         decimal.Zero,
			ReorderThreshold: input.ReorderThreshold,
			CategoryID:       input.CategoryID,
			Unit:             input.Unit,
			CustomPacking:    input.CustomPacking,
			PackingSize:      input.PackingSize,
			SupplyPackQty:    input.SupplyPackQty,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		if !input.InitialStock.IsZero() {
			if _, err := s.ledger.RecordMovementIn(ctx, tx.Ledger(), ledger.MovementInput{
				ProductID: productID,
				Qty:       input.InitialStock,
				Reason:    ledger.ReasonInitialStock,
				CreatedBy: input.CreatedBy,
			}); err != nil {
				return fmt.Errorf("record opening stock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if !input.InitialStock.IsZero() {
		s.metrics.CountMovement(ledger.ReasonInitialStock)
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			EntityType: "product",
			Action:     "create",
			Details:    fmt.Sprintf("product_id=%d", productID),
			At:         now,
		})
	}
	return productID, nil
}

// GetProduct loads one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrNotFound
	}
	return s.repo.GetProduct(ctx, id)
}

// ListProducts lists products ordered by name. A non-empty Search term
// matches either name, the barcode, or the short code.
func (s *Service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	filter.Search = norm.NFC.String(strings.TrimSpace(filter.Search))
	return s.repo.ListProducts(ctx, filter)
}

// UpdateProduct updates catalog attributes. The stock balance is not part of
// the update surface.
func (s *Service) UpdateProduct(ctx context.Context, id int64, update ProductUpdate) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	update.URName = norm.NFC.String(strings.TrimSpace(update.URName))
	update.ENName = norm.NFC.String(strings.TrimSpace(update.ENName))
	if err := validateNames(update.URName, update.ENName); err != nil {
		return err
	}
	if err := validatePricing(update.BasePrice, update.SellPrice); err != nil {
		return err
	}
	if update.SupplyPackQty.IsZero() {
		update.SupplyPackQty = decimal.NewFromInt(1)
	}
	if err := validatePackQty(update.SupplyPackQty); err != nil {
		return err
	}
	if update.Unit == "" {
		update.Unit = "kg"
	}
	return s.repo.UpdateProduct(ctx, id, update)
}

// DeleteProduct removes a product row. Historical movements referencing it
// are kept.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	return s.repo.DeleteProduct(ctx, id)
}

// GetBalance returns the cached balance and reorder threshold for one
// product. Pure read; repeated calls observe identical state when no
// movement lands in between.
func (s *Service) GetBalance(ctx context.Context, id int64) (Balance, error) {
	if id <= 0 {
		return Balance{}, shared.ErrNotFound
	}
	return s.repo.GetBalance(ctx, id)
}

func normalizeInput(input ProductInput) ProductInput {
	input.URName = norm.NFC.String(strings.TrimSpace(input.URName))
	input.ENName = norm.NFC.String(strings.TrimSpace(input.ENName))
	input.Company = strings.TrimSpace(input.Company)
	input.Barcode = strings.TrimSpace(input.Barcode)
	input.ShortCode = strings.TrimSpace(input.ShortCode)
	return input
}
