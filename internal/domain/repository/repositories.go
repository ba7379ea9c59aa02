package repository

// Repositories agrupa los puertos de persistencia. El TxRunner entrega una instancia
// atada a la transacción; fuera de ella se usa la atada al pool.
type Repositories struct {
	Products      ProductRepository
	Units         UnitRepository
	Suppliers     SupplierRepository
	Conversions   UnitConversionRepository
	Purchases     PurchaseRepository
	Lots          LotRepository
	Movements     MovementRepository
	StockEntries  StockEntryRepository
	IdentityCodes IdentityCodeRepository
	Sales         SaleRepository
	Analytics     AnalyticsRepository
}
