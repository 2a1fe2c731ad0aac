package postgres

import (
	"fmt"

	"github.com/smartcart/product-service/internal/model"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const lowStockView = `
CREATE OR REPLACE VIEW low_stock_products AS
SELECT product_id, store_id, product_name, stock_quantity, min_stock_level, unit_type,
       (min_stock_level - stock_quantity) AS shortage
FROM products
WHERE is_active = TRUE AND stock_quantity <= min_stock_level`

// Migrate creates or updates the products and stock_transactions tables.
func Migrate(cfg *Config) error {
	gdb, err := gorm.Open(gormpg.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open gorm: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("gorm sql handle: %w", err)
	}
	defer sqlDB.Close()

	if err := gdb.AutoMigrate(&model.Product{}, &model.StockTransaction{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if !gdb.Migrator().HasConstraint(&model.StockTransaction{}, "fk_stock_transactions_product") {
		err := gdb.Exec(`ALTER TABLE stock_transactions
			ADD CONSTRAINT fk_stock_transactions_product
			FOREIGN KEY (product_id) REFERENCES products(product_id) ON DELETE RESTRICT`).Error
		if err != nil {
			return fmt.Errorf("add ledger foreign key: %w", err)
		}
	}

	if err := gdb.Exec(lowStockView).Error; err != nil {
		return fmt.Errorf("create low stock view: %w", err)
	}
	return nil
}
