package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"dukkan/backend/internal/domain"
	"dukkan/backend/internal/store"
	"dukkan/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListActiveStores(ctx context.Context) ([]domain.Store, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, storename, active
		FROM tb_store
		WHERE active = true
		ORDER BY storename
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := make([]domain.Store, 0, 8)
	for rows.Next() {
		var st domain.Store
		if err := rows.Scan(&st.ID, &st.Name, &st.Active); err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stores, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_name, type, balanceiqd, balanceusd, updated_at
		FROM customers
		ORDER BY customer_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.BalanceIQD, &c.BalanceUSD, &c.UpdatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return customers, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_name, type, balanceiqd, balanceusd, updated_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Type, &c.BalanceIQD, &c.BalanceUSD, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListAvailableInventory(ctx context.Context, storeID string) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, storeid, productcode, productname, quantity, unit, sellpriceiqd, sellpriceusd
		FROM tb_inventory
		WHERE storeid = $1 AND quantity > 0
		ORDER BY productname
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, 128)
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.ID, &item.StoreID, &item.ProductCode, &item.ProductName, &item.Quantity, &item.Unit, &item.SellPriceIQD, &item.SellPriceUSD); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (s *Store) GetInventoryItem(ctx context.Context, storeID string, productCode string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, storeid, productcode, productname, quantity, unit, sellpriceiqd, sellpriceusd
		FROM tb_inventory
		WHERE storeid = $1 AND productcode = $2
	`, storeID, productCode).Scan(&item.ID, &item.StoreID, &item.ProductCode, &item.ProductName, &item.Quantity, &item.Unit, &item.SellPriceIQD, &item.SellPriceUSD)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetCurrentExchangeRate(ctx context.Context) (*domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	err := s.db.QueryRowContext(ctx, `
		SELECT id, rate, created_at
		FROM exchange_rates
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&rate.ID, &rate.Rate, &rate.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &rate, nil
}

func (s *Store) GetLastSaleNumber(ctx context.Context) (string, error) {
	var number string
	err := s.db.QueryRowContext(ctx, `
		SELECT numberofsale
		FROM tb_salesmain
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", err
	}
	return number, nil
}

// CreateSale applies the whole commit inside one transaction: header, lines,
// per-line stock re-check and decrement, then the credit-side balance and
// payment writes. Any failure rolls everything back.
func (s *Store) CreateSale(ctx context.Context, commit domain.SaleCommit) (*domain.Sale, error) {
	sale := commit.Sale
	if len(commit.Lines) == 0 {
		return nil, store.ErrInvalidSale
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.DateTime.IsZero() {
		sale.DateTime = sale.CreatedAt
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO tb_salesmain (
			id, numberofsale, salestoreid, customerid, customername, pricetype, paytype,
			currencytype, details, datetime, discountenabled, discountcurrency,
			discountiqd, discountusd, totalsaleiqd, totalsaleusd,
			amountreceivediqd, amountreceivedusd, finaltotaliqd, finaltotalusd, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	`, sale.ID, sale.Number, sale.StoreID, sale.CustomerID, sale.CustomerName, sale.PriceType, sale.PayType,
		sale.CurrencyType, nullIfEmpty(sale.Details), sale.DateTime, sale.DiscountEnabled, nullIfEmpty(string(sale.DiscountCurrency)),
		sale.DiscountIQD, sale.DiscountUSD, sale.TotalSaleIQD, sale.TotalSaleUSD,
		sale.AmountReceivedIQD, sale.AmountReceivedUSD, sale.FinalTotalIQD, sale.FinalTotalUSD, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sale %s already exists", store.ErrInvalidSale, sale.ID)
		}
		return nil, err
	}

	for _, line := range commit.Lines {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO tb_salesdetails (
				id, salemainid, productcode, productname, storeid, quantity,
				unitpriceiqd, unitpriceusd, totalpriceiqd, totalpriceusd, notes
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, xid.New("sln"), sale.ID, line.ProductCode, line.ProductName, sale.StoreID, line.Quantity,
			line.UnitPriceIQD, line.UnitPriceUSD, line.TotalPriceIQD, line.TotalPriceUSD, nullIfEmpty(line.Notes))
		if err != nil {
			return nil, err
		}
	}

	for _, line := range commit.Lines {
		var productName string
		var available decimal.Decimal
		err := pgTx.QueryRowContext(ctx, `
			SELECT productname, quantity
			FROM tb_inventory
			WHERE storeid = $1 AND productcode = $2
			FOR UPDATE
		`, sale.StoreID, line.ProductCode).Scan(&productName, &available)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: product %s in store %s", store.ErrNotFound, line.ProductCode, sale.StoreID)
			}
			return nil, err
		}
		if available.LessThan(line.Quantity) {
			return nil, fmt.Errorf("%w: %s has %s available, requested %s", store.ErrInsufficientStock, productName, available, line.Quantity)
		}

		_, err = pgTx.ExecContext(ctx, `
			UPDATE tb_inventory
			SET quantity = quantity - $1
			WHERE storeid = $2 AND productcode = $3
		`, line.Quantity, sale.StoreID, line.ProductCode)
		if err != nil {
			return nil, err
		}
	}

	if commit.BalanceDelta != nil {
		result, err := pgTx.ExecContext(ctx, `
			UPDATE customers
			SET balanceiqd = balanceiqd + $1, balanceusd = balanceusd + $2, updated_at = now()
			WHERE id = $3
		`, commit.BalanceDelta.DeltaIQD, commit.BalanceDelta.DeltaUSD, commit.BalanceDelta.CustomerID)
		if err != nil {
			return nil, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, fmt.Errorf("%w: customer %s", store.ErrNotFound, commit.BalanceDelta.CustomerID)
		}
	}

	if commit.Payment != nil {
		payment := *commit.Payment
		if payment.ID == "" {
			payment.ID = xid.New("pay")
		}
		payment.SaleID = sale.ID
		if payment.PayDate.IsZero() {
			payment.PayDate = sale.CreatedAt
		}
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO payments (
				id, customer_id, amount_iqd, amount_usd, currency_type, transaction_type,
				notes, pay_date, salesmainid, paymentamountiqd, paymentamountusd, paymenttype
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`, payment.ID, payment.CustomerID, payment.AmountIQD, payment.AmountUSD, payment.CurrencyType, payment.TransactionType,
			nullIfEmpty(payment.Notes), payment.PayDate, payment.SaleID, payment.PaymentAmountIQD, payment.PaymentAmountUSD, payment.PaymentType)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	var details sql.NullString
	var discountCurrency sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, numberofsale, salestoreid, customerid, customername, pricetype, paytype,
			currencytype, details, datetime, discountenabled, discountcurrency,
			discountiqd, discountusd, totalsaleiqd, totalsaleusd,
			amountreceivediqd, amountreceivedusd, finaltotaliqd, finaltotalusd, created_at
		FROM tb_salesmain
		WHERE id = $1
	`, id).Scan(&sale.ID, &sale.Number, &sale.StoreID, &sale.CustomerID, &sale.CustomerName, &sale.PriceType, &sale.PayType,
		&sale.CurrencyType, &details, &sale.DateTime, &sale.DiscountEnabled, &discountCurrency,
		&sale.DiscountIQD, &sale.DiscountUSD, &sale.TotalSaleIQD, &sale.TotalSaleUSD,
		&sale.AmountReceivedIQD, &sale.AmountReceivedUSD, &sale.FinalTotalIQD, &sale.FinalTotalUSD, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.Details = details.String
	sale.DiscountCurrency = domain.Currency(discountCurrency.String)
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, numberofsale, salestoreid, customerid, customername, pricetype, paytype,
			currencytype, details, datetime, discountenabled, discountcurrency,
			discountiqd, discountusd, totalsaleiqd, totalsaleusd,
			amountreceivediqd, amountreceivedusd, finaltotaliqd, finaltotalusd, created_at
		FROM tb_salesmain
		ORDER BY datetime DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		var details sql.NullString
		var discountCurrency sql.NullString
		if err := rows.Scan(&sale.ID, &sale.Number, &sale.StoreID, &sale.CustomerID, &sale.CustomerName, &sale.PriceType, &sale.PayType,
			&sale.CurrencyType, &details, &sale.DateTime, &sale.DiscountEnabled, &discountCurrency,
			&sale.DiscountIQD, &sale.DiscountUSD, &sale.TotalSaleIQD, &sale.TotalSaleUSD,
			&sale.AmountReceivedIQD, &sale.AmountReceivedUSD, &sale.FinalTotalIQD, &sale.FinalTotalUSD, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.Details = details.String
		sale.DiscountCurrency = domain.Currency(discountCurrency.String)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sales, nil
}

func (s *Store) ListSaleLines(ctx context.Context, saleID string) ([]domain.SaleLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, salemainid, productcode, productname, storeid, quantity,
			unitpriceiqd, unitpriceusd, totalpriceiqd, totalpriceusd, notes
		FROM tb_salesdetails
		WHERE salemainid = $1
		ORDER BY productname
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.SaleLine, 0, 16)
	for rows.Next() {
		var line domain.SaleLine
		var notes sql.NullString
		if err := rows.Scan(&line.ID, &line.SaleID, &line.ProductCode, &line.ProductName, &line.StoreID, &line.Quantity,
			&line.UnitPriceIQD, &line.UnitPriceUSD, &line.TotalPriceIQD, &line.TotalPriceUSD, &notes); err != nil {
			return nil, err
		}
		line.Notes = notes.String
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

func (s *Store) ListSalePayments(ctx context.Context, saleID string) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, amount_iqd, amount_usd, currency_type, transaction_type,
			notes, pay_date, salesmainid, paymentamountiqd, paymentamountusd, paymenttype
		FROM payments
		WHERE salesmainid = $1
		ORDER BY pay_date
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0, 4)
	for rows.Next() {
		var payment domain.Payment
		var notes sql.NullString
		if err := rows.Scan(&payment.ID, &payment.CustomerID, &payment.AmountIQD, &payment.AmountUSD, &payment.CurrencyType, &payment.TransactionType,
			&notes, &payment.PayDate, &payment.SaleID, &payment.PaymentAmountIQD, &payment.PaymentAmountUSD, &payment.PaymentType); err != nil {
			return nil, err
		}
		payment.Notes = notes.String
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username already exists")
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $1
		WHERE username = $2
	`, password, username)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
