package repository

import (
	"context"
	"time"

	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CostLine línea de compra aplanada para el costo promedio ponderado.
type CostLine struct {
	PurchaseDetailID string
	PurchaseDate     time.Time
	Quantity         decimal.Decimal // en la unidad de compra
	UnitPrice        decimal.Decimal // precio de la unidad de compra
	Factor           decimal.Decimal // unidades base por unidad de compra
}

// PurchaseRepository puerto de persistencia para compras y sus líneas.
type PurchaseRepository interface {
	// NextNumber reserva el siguiente consecutivo de compra.
	NextNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, purchase *entity.Purchase) error
	CreateDetail(ctx context.Context, detail *entity.PurchaseDetail) error
	GetByID(ctx context.Context, id string) (*entity.Purchase, error)
	GetDetailsByPurchaseID(ctx context.Context, purchaseID string) ([]*entity.PurchaseDetail, error)
	// ListCostLines devuelve las líneas activas del producto con fecha <= asOf.
	ListCostLines(ctx context.Context, productID string, asOf time.Time) ([]CostLine, error)
}

// LotRepository puerto de persistencia para lotes.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	GetByID(ctx context.Context, id string) (*entity.Lot, error)
	// GetForUpdate bloquea la fila del lote (SELECT FOR UPDATE) hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Lot, error)
	Deactivate(ctx context.Context, id string) error
	ListByProduct(ctx context.Context, productID string) ([]*entity.Lot, error)
}

// MovementFilter filtros para consultar el kardex.
type MovementFilter struct {
	ProductID string
	LotID     string
	Kind      string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// MovementRepository kardex append-only: no existe Update ni Delete.
type MovementRepository interface {
	Append(ctx context.Context, movement *entity.MovementRecord) error
	// SumExtractedBase suma QuantityBase de las salidas EXIT/EXTRACTION del lote.
	SumExtractedBase(ctx context.Context, lotID string) (decimal.Decimal, error)
	List(ctx context.Context, filter MovementFilter) ([]*entity.MovementRecord, error)
}

// StockFilter filtros para la proyección de stock disponible.
// Sin IncludeWarehouse solo se listan entradas EXTRACTION activas con disponible > 0;
// con él se agregan las entradas RECEIPT activas cuyo lote sigue activo.
type StockFilter struct {
	ProductID        string
	IncludeWarehouse bool
}

// AvailableStockRow fila aplanada de la proyección de stock disponible.
type AvailableStockRow struct {
	StockEntryID      string
	ProductID         string
	ProductName       string
	LotID             string
	LotCode           string
	UnitID            string
	UnitName          string
	Source            string
	Quantity          decimal.Decimal // cantidad con que se creó la entrada
	AvailableQuantity decimal.Decimal
	QuantityBase      decimal.Decimal
	UnitPrice         decimal.Decimal
	ExpiresAt         *time.Time
	ActiveCodes       int
}

// StockEntryRepository puerto de persistencia para entradas de stock.
type StockEntryRepository interface {
	Create(ctx context.Context, entry *entity.StockEntry) error
	GetByID(ctx context.Context, id string) (*entity.StockEntry, error)
	// GetForUpdate bloquea la fila de la entrada hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.StockEntry, error)
	// Update persiste Quantity, AvailableQuantity, QuantityBase, Active y UpdatedAt.
	Update(ctx context.Context, entry *entity.StockEntry) error
	// FindActiveForUpdate busca una entrada activa por (producto, lote, unidad, origen) y la bloquea.
	FindActiveForUpdate(ctx context.Context, productID, lotID, unitID, source string) (*entity.StockEntry, error)
	ListByLot(ctx context.Context, lotID string) ([]*entity.StockEntry, error)
	ListAvailable(ctx context.Context, filter StockFilter) ([]AvailableStockRow, error)
}

// IdentityCodeRepository puerto para los códigos de identidad de unidades físicas.
type IdentityCodeRepository interface {
	// Create devuelve *domain.DuplicateIdentityCodeError si el código ya está activo.
	Create(ctx context.Context, code *entity.IdentityCode) error
	// GetActiveByCodeForUpdate devuelve (nil, nil) si no hay un código activo con ese valor.
	GetActiveByCodeForUpdate(ctx context.Context, code string) (*entity.IdentityCode, error)
	// GetActiveByCode igual que GetActiveByCodeForUpdate pero sin bloquear la fila.
	GetActiveByCode(ctx context.Context, code string) (*entity.IdentityCode, error)
	ExistsActive(ctx context.Context, code string) (bool, error)
	// Consume desactiva el código y lo liga a la línea de venta.
	Consume(ctx context.Context, id, saleDetailID string, at time.Time) error
	// ReleaseByStockEntry desactiva los códigos activos de la entrada sin marcarlos como consumidos.
	ReleaseByStockEntry(ctx context.Context, stockEntryID string) (int, error)
	CountActiveByStockEntry(ctx context.Context, stockEntryID string) (int, error)
	ListByStockEntry(ctx context.Context, stockEntryID string) ([]*entity.IdentityCode, error)
}

// SaleRepository puerto de persistencia para ventas.
type SaleRepository interface {
	NextNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, sale *entity.Sale) error
	CreateDetail(ctx context.Context, detail *entity.SaleDetail) error
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	GetDetailsBySaleID(ctx context.Context, saleID string) ([]*entity.SaleDetail, error)
}
