package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dukkan/backend/internal/cache"
	"dukkan/backend/internal/domain"
	"dukkan/backend/internal/store"
	"dukkan/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// defaultExchangeRate is used when no rate has been recorded yet, so the
// sale form is never blocked waiting for one.
var defaultExchangeRate = decimal.NewFromInt(1500)

const (
	rateCacheKey         = "rate:current"
	inventoryCachePrefix = "inventory:"
)

type Service struct {
	repo         store.Repository
	cache        cache.Cache
	rateTTL      time.Duration
	inventoryTTL time.Duration
}

func New(repo store.Repository, c cache.Cache, rateTTL time.Duration, inventoryTTL time.Duration) *Service {
	if c == nil {
		c = cache.NoopCache{}
	}
	if rateTTL <= 0 {
		rateTTL = 30 * time.Second
	}
	if inventoryTTL <= 0 {
		inventoryTTL = 10 * time.Second
	}

	return &Service{
		repo:         repo,
		cache:        c,
		rateTTL:      rateTTL,
		inventoryTTL: inventoryTTL,
	}
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer id is required", store.ErrInvalidSale)
	}

	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) ListActiveStores(ctx context.Context) ([]domain.Store, error) {
	return s.repo.ListActiveStores(ctx)
}

// CurrentExchangeRate returns the most recently recorded IQD-per-USD rate.
// A missing or unreachable rate degrades to the default instead of failing,
// and genuine rates are cached for a short window.
func (s *Service) CurrentExchangeRate(ctx context.Context) (domain.ExchangeRateResponse, error) {
	if payload, ok, err := s.cache.Get(ctx, rateCacheKey); err != nil {
		log.Printf("[service] WARN: rate cache read failed: %v", err)
	} else if ok {
		var resp domain.ExchangeRateResponse
		if err := json.Unmarshal(payload, &resp); err == nil {
			return resp, nil
		}
	}

	rate, err := s.repo.GetCurrentExchangeRate(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[service] WARN: exchange rate lookup failed, using default: %v", err)
		}
		return domain.ExchangeRateResponse{
			Rate:    defaultExchangeRate,
			AsOf:    time.Now().UTC(),
			Default: true,
		}, nil
	}

	resp := domain.ExchangeRateResponse{Rate: rate.Rate, AsOf: rate.CreatedAt}
	if payload, err := json.Marshal(resp); err == nil {
		if err := s.cache.Set(ctx, rateCacheKey, payload, s.rateTTL); err != nil {
			log.Printf("[service] WARN: rate cache write failed: %v", err)
		}
	}
	return resp, nil
}

// ListAvailableInventory returns in-stock rows for a store, ordered by
// product name. An unknown or empty store id yields an empty list, not an
// error. The response echoes the requested store id so callers can discard
// answers that arrive after the selection changed.
func (s *Service) ListAvailableInventory(ctx context.Context, storeID string) (domain.InventoryListResponse, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return domain.InventoryListResponse{Items: []domain.InventoryItem{}}, nil
	}

	key := inventoryCachePrefix + storeID
	if payload, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Printf("[service] WARN: inventory cache read failed store=%s: %v", storeID, err)
	} else if ok {
		var resp domain.InventoryListResponse
		if err := json.Unmarshal(payload, &resp); err == nil {
			return resp, nil
		}
	}

	items, err := s.repo.ListAvailableInventory(ctx, storeID)
	if err != nil {
		return domain.InventoryListResponse{}, err
	}

	resp := domain.InventoryListResponse{StoreID: storeID, Items: items}
	if payload, err := json.Marshal(resp); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.inventoryTTL); err != nil {
			log.Printf("[service] WARN: inventory cache write failed store=%s: %v", storeID, err)
		}
	}
	return resp, nil
}

func (s *Service) invalidateInventory(ctx context.Context, storeID string) {
	if err := s.cache.Delete(ctx, inventoryCachePrefix+storeID); err != nil {
		log.Printf("[service] WARN: inventory cache invalidation failed store=%s: %v", storeID, err)
	}
}

// NextSaleNumber derives the next sequential "S-NNNNN" number from the most
// recently created sale. It never fails: with no prior sale it starts at
// S-00001, and on a lookup error or an unparseable last number it falls back
// to the trailing digits of the current timestamp. The fallback can collide
// with a later sequential number; uniqueness is not enforced here.
func (s *Service) NextSaleNumber(ctx context.Context) string {
	last, err := s.repo.GetLastSaleNumber(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return "S-00001"
	}
	if err != nil {
		log.Printf("[service] WARN: last sale number lookup failed, using timestamp fallback: %v", err)
		return fallbackSaleNumber()
	}

	n, err := strconv.Atoi(strings.TrimPrefix(last, "S-"))
	if err != nil || n < 0 {
		log.Printf("[service] WARN: unparseable sale number %q, using timestamp fallback", last)
		return fallbackSaleNumber()
	}
	return fmt.Sprintf("S-%05d", n+1)
}

func fallbackSaleNumber() string {
	return fmt.Sprintf("S-%05d", time.Now().UnixMilli()%100000)
}

// CreateSale validates the request, derives all totals from the lines, and
// hands the store one atomic commit: header, lines, per-line stock decrement
// and, for credit sales, the balance increase and optional payment record.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.SaleCreateResponse, error) {
	number := strings.TrimSpace(req.Number)
	if number == "" {
		return domain.SaleCreateResponse{}, fmt.Errorf("%w: sale number is required", store.ErrInvalidSale)
	}
	storeID := strings.TrimSpace(req.StoreID)
	if storeID == "" {
		return domain.SaleCreateResponse{}, fmt.Errorf("%w: store is required", store.ErrInvalidSale)
	}
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return domain.SaleCreateResponse{}, fmt.Errorf("%w: customer is required", store.ErrInvalidSale)
	}

	payType := req.PayType
	if payType == "" {
		payType = domain.PayTypeCash
	}
	if payType != domain.PayTypeCash && payType != domain.PayTypeCredit {
		return domain.SaleCreateResponse{}, fmt.Errorf("%w: unknown pay type %q", store.ErrInvalidSale, req.PayType)
	}
	priceType := req.PriceType
	if priceType == "" {
		priceType = domain.PriceTypeRetail
	}
	currencyType := req.CurrencyType
	if currencyType == "" {
		currencyType = domain.CurrencyIQD
	}
	if currencyType != domain.CurrencyIQD && currencyType != domain.CurrencyUSD {
		return domain.SaleCreateResponse{}, fmt.Errorf("%w: unknown currency %q", store.ErrInvalidSale, req.CurrencyType)
	}

	if req.DiscountIQD.IsNegative() || req.DiscountUSD.IsNegative() {
		return domain.SaleCreateResponse{}, fmt.Errorf("%w: discount cannot be negative", store.ErrInvalidSale)
	}
	if req.AmountReceivedIQD.IsNegative() || req.AmountReceivedUSD.IsNegative() {
		return domain.SaleCreateResponse{}, fmt.Errorf("%w: amount received cannot be negative", store.ErrInvalidSale)
	}

	lines := eligibleLines(req.Lines)
	if len(lines) == 0 {
		return domain.SaleCreateResponse{}, fmt.Errorf("%w: at least one product line is required", store.ErrInvalidSale)
	}

	customer, err := s.repo.GetCustomerByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SaleCreateResponse{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, customerID)
		}
		return domain.SaleCreateResponse{}, err
	}
	customerName := strings.TrimSpace(req.CustomerName)
	if customerName == "" {
		customerName = customer.Name
	}

	totalIQD := decimal.Zero
	totalUSD := decimal.Zero
	for i := range lines {
		// Line totals are always recomputed from quantity and unit price;
		// whatever the client sent for them is ignored.
		lines[i].TotalPriceIQD = lines[i].Quantity.Mul(lines[i].UnitPriceIQD)
		lines[i].TotalPriceUSD = lines[i].Quantity.Mul(lines[i].UnitPriceUSD)
		totalIQD = totalIQD.Add(lines[i].TotalPriceIQD)
		totalUSD = totalUSD.Add(lines[i].TotalPriceUSD)
	}

	finalIQD := totalIQD
	finalUSD := totalUSD
	discountCurrency := domain.Currency("")
	if req.DiscountEnabled {
		discountCurrency = req.DiscountCurrency
		finalIQD = totalIQD.Sub(req.DiscountIQD)
		finalUSD = totalUSD.Sub(req.DiscountUSD)
	}

	saleAt := req.DateTime
	if saleAt.IsZero() {
		saleAt = time.Now().UTC()
	}

	sale := domain.Sale{
		Number:            number,
		StoreID:           storeID,
		CustomerID:        customerID,
		CustomerName:      customerName,
		PriceType:         priceType,
		PayType:           payType,
		CurrencyType:      currencyType,
		Details:           strings.TrimSpace(req.Details),
		DateTime:          saleAt,
		DiscountEnabled:   req.DiscountEnabled,
		DiscountCurrency:  discountCurrency,
		DiscountIQD:       req.DiscountIQD,
		DiscountUSD:       req.DiscountUSD,
		TotalSaleIQD:      totalIQD,
		TotalSaleUSD:      totalUSD,
		AmountReceivedIQD: req.AmountReceivedIQD,
		AmountReceivedUSD: req.AmountReceivedUSD,
		FinalTotalIQD:     finalIQD,
		FinalTotalUSD:     finalUSD,
	}

	saleLines := make([]domain.SaleLine, 0, len(lines))
	for _, line := range lines {
		saleLines = append(saleLines, domain.SaleLine{
			ProductCode:   strings.TrimSpace(line.ProductCode),
			ProductName:   strings.TrimSpace(line.ProductName),
			StoreID:       storeID,
			Quantity:      line.Quantity,
			UnitPriceIQD:  line.UnitPriceIQD,
			UnitPriceUSD:  line.UnitPriceUSD,
			TotalPriceIQD: line.TotalPriceIQD,
			TotalPriceUSD: line.TotalPriceUSD,
			Notes:         strings.TrimSpace(line.Notes),
		})
	}

	commit := domain.SaleCommit{Sale: sale, Lines: saleLines}

	if payType == domain.PayTypeCredit {
		remainingIQD := finalIQD.Sub(req.AmountReceivedIQD)
		remainingUSD := finalUSD.Sub(req.AmountReceivedUSD)

		// Only the settlement currency's remainder is added to the running
		// balance; the other currency's remainder is discarded. This mirrors
		// how the accounts have always been kept.
		delta := domain.BalanceDelta{CustomerID: customerID}
		if currencyType == domain.CurrencyUSD {
			delta.DeltaUSD = remainingUSD
		} else {
			delta.DeltaIQD = remainingIQD
		}
		commit.BalanceDelta = &delta

		if req.AmountReceivedIQD.GreaterThan(decimal.Zero) || req.AmountReceivedUSD.GreaterThan(decimal.Zero) {
			paymentCurrency := domain.CurrencyUSD
			if req.AmountReceivedIQD.GreaterThan(decimal.Zero) {
				paymentCurrency = domain.CurrencyIQD
			}
			commit.Payment = &domain.Payment{
				ID:               xid.New("pay"),
				CustomerID:       customerID,
				AmountIQD:        req.AmountReceivedIQD,
				AmountUSD:        req.AmountReceivedUSD,
				CurrencyType:     paymentCurrency,
				TransactionType:  "receipt",
				Notes:            fmt.Sprintf("Payment received for sale %s - %s", number, customerName),
				PayDate:          saleAt,
				PaymentAmountIQD: req.AmountReceivedIQD,
				PaymentAmountUSD: req.AmountReceivedUSD,
				PaymentType:      "receipt",
			}
		}
	}

	created, err := s.repo.CreateSale(ctx, commit)
	if err != nil {
		return domain.SaleCreateResponse{}, err
	}

	s.invalidateInventory(ctx, created.StoreID)
	log.Printf("[service] sale %s committed store=%s customer=%s total_iqd=%s total_usd=%s", created.Number, created.StoreID, created.CustomerID, created.TotalSaleIQD, created.TotalSaleUSD)

	resp := domain.SaleCreateResponse{
		SaleID:        created.ID,
		Number:        created.Number,
		TotalIQD:      created.TotalSaleIQD,
		TotalUSD:      created.TotalSaleUSD,
		FinalTotalIQD: created.FinalTotalIQD,
		FinalTotalUSD: created.FinalTotalUSD,
	}
	if commit.Payment != nil {
		resp.PaymentID = commit.Payment.ID
	}
	return resp, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListSales(ctx, limit)
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, fmt.Errorf("%w: sale id is required", store.ErrInvalidSale)
	}

	sale, err := s.repo.GetSaleByID(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSaleLines(ctx context.Context, saleID string) ([]domain.SaleLine, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return nil, fmt.Errorf("%w: sale id is required", store.ErrInvalidSale)
	}
	return s.repo.ListSaleLines(ctx, saleID)
}

func (s *Service) ListSalePayments(ctx context.Context, saleID string) ([]domain.Payment, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return nil, fmt.Errorf("%w: sale id is required", store.ErrInvalidSale)
	}
	return s.repo.ListSalePayments(ctx, saleID)
}

func eligibleLines(inputs []domain.SaleLineInput) []domain.SaleLineInput {
	eligible := make([]domain.SaleLineInput, 0, len(inputs))
	for _, line := range inputs {
		if strings.TrimSpace(line.ProductCode) == "" {
			continue
		}
		if !line.Quantity.GreaterThan(decimal.Zero) {
			continue
		}
		eligible = append(eligible, line)
	}
	return eligible
}
