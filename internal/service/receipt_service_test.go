package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"grocitrack/internal/dto"
	"grocitrack/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	summaries  []dto.ReceiptSummary
	details    map[string][]dto.ReceiptRow
	detailErrs map[string]error
	listErr    error
	fetched    []string
}

func (f *fakeFetcher) FetchReceipts(_ context.Context) ([]dto.ReceiptSummary, error) {
	return f.summaries, f.listErr
}

func (f *fakeFetcher) FetchReceiptDetail(_ context.Context, transactionID string) ([]dto.ReceiptRow, error) {
	f.fetched = append(f.fetched, transactionID)
	if err := f.detailErrs[transactionID]; err != nil {
		return nil, err
	}
	return f.details[transactionID], nil
}

// fakeResolver echoes the line item back as a product. An optional delay
// per description lets tests scramble completion order.
type fakeResolver struct {
	delays map[string]time.Duration
}

func (f *fakeResolver) Match(_ context.Context, item ParsedLineItem) models.Product {
	if d := f.delays[item.Description]; d > 0 {
		time.Sleep(d)
	}
	return models.Product{
		Description: item.Description,
		Quantity:    item.Quantity,
		Unit:        item.Unit,
		Price:       item.Price,
		TotalPrice:  item.TotalPrice,
	}
}

type fakeReceiptStore struct {
	existing map[string]bool
	created  []*models.Receipt
}

func (f *fakeReceiptStore) ExistsByTransactionID(_ context.Context, transactionID string) (bool, error) {
	return f.existing[transactionID], nil
}

func (f *fakeReceiptStore) Create(_ context.Context, receipt *models.Receipt) error {
	f.created = append(f.created, receipt)
	return nil
}

type fakeLocationStore struct {
	byName  map[string]*models.Location
	created []*models.Location
}

func (f *fakeLocationStore) FindByName(_ context.Context, name string) (*models.Location, error) {
	return f.byName[name], nil
}

func (f *fakeLocationStore) Create(_ context.Context, location *models.Location) error {
	f.created = append(f.created, location)
	return nil
}

type fakeProductStore struct {
	batches [][]*models.Product
}

func (f *fakeProductStore) CreateBatch(_ context.Context, products []*models.Product) error {
	f.batches = append(f.batches, products)
	return nil
}

type fakeDiscountStore struct {
	batches [][]*models.Discount
}

func (f *fakeDiscountStore) CreateBatch(_ context.Context, discounts []*models.Discount) error {
	f.batches = append(f.batches, discounts)
	return nil
}

type fakeLinker struct {
	linked [][]*models.Product
}

func (f *fakeLinker) LinkProducts(_ context.Context, products []*models.Product) error {
	f.linked = append(f.linked, products)
	return nil
}

type ingestFixture struct {
	fetcher   *fakeFetcher
	resolver  *fakeResolver
	receipts  *fakeReceiptStore
	locations *fakeLocationStore
	products  *fakeProductStore
	discounts *fakeDiscountStore
	linker    *fakeLinker
	service   *ReceiptService
}

func newIngestFixture(workers int) *ingestFixture {
	f := &ingestFixture{
		fetcher:   &fakeFetcher{details: map[string][]dto.ReceiptRow{}, detailErrs: map[string]error{}},
		resolver:  &fakeResolver{},
		receipts:  &fakeReceiptStore{existing: map[string]bool{}},
		locations: &fakeLocationStore{byName: map[string]*models.Location{}},
		products:  &fakeProductStore{},
		discounts: &fakeDiscountStore{},
		linker:    &fakeLinker{},
	}
	f.service = NewReceiptService(
		f.fetcher, f.resolver, f.receipts, f.locations, f.products, f.discounts, f.linker,
		workers, zap.NewNop(),
	)
	return f
}

func summaryFor(transactionID string, total float64) dto.ReceiptSummary {
	return dto.ReceiptSummary{
		TransactionID:     transactionID,
		TransactionMoment: "2024-03-02T14:31:05Z",
		StoreAddress: dto.StoreAddress{
			Street:      "Kalverstraat",
			HouseNumber: "92",
			PostalCode:  "1012 PH",
			City:        "Amsterdam",
		},
		Total: dto.ReceiptTotal{Amount: dto.MoneyAmount{Amount: total}},
	}
}

func detailRows(productRows, discountRows []dto.ReceiptRow) []dto.ReceiptRow {
	rows := []dto.ReceiptRow{
		{Type: dto.RowTypeProduct, Value: "AH Kalverstraat"},
		{Type: dto.RowTypeProduct, Description: "BONUSKAART"},
	}
	rows = append(rows, productRows...)
	rows = append(rows, dto.ReceiptRow{Type: dto.RowTypeSubtotal, Text: "SUBTOTAAL", Amount: "4,72"})
	rows = append(rows, discountRows...)
	rows = append(rows, dto.ReceiptRow{Type: dto.RowTypeTotal, Label: "UW VOORDEEL", Amount: "0,30"})
	return rows
}

func TestSyncReceiptsSkipsKnownTransactions(t *testing.T) {
	f := newIngestFixture(1)
	f.fetcher.summaries = []dto.ReceiptSummary{summaryFor("seen-before", 4.42)}
	f.receipts.existing["seen-before"] = true

	added, err := f.service.SyncReceipts(context.Background())

	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Empty(t, f.fetcher.fetched, "known receipts must not be fetched again")
	assert.Empty(t, f.receipts.created)
}

func TestSyncReceiptsPersistsNewReceipt(t *testing.T) {
	f := newIngestFixture(2)
	f.fetcher.summaries = []dto.ReceiptSummary{summaryFor("txn-1", 4.42)}
	f.fetcher.details["txn-1"] = detailRows(
		[]dto.ReceiptRow{
			{Type: dto.RowTypeProduct, Description: "HALFVOLLE MELK", Quantity: "1", Amount: "1,19"},
			{Type: dto.RowTypeProduct, Description: "BANANEN", Quantity: "0,746kg", Price: "1,99", Amount: "1,48"},
		},
		[]dto.ReceiptRow{
			{Type: dto.RowTypeProduct, Description: "BONUS MELK", Amount: "-0,30"},
		},
	)

	added, err := f.service.SyncReceipts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, added)

	require.Len(t, f.receipts.created, 1)
	receipt := f.receipts.created[0]
	assert.Equal(t, "txn-1", receipt.TransactionID)
	assert.NotEqual(t, uuid.Nil, receipt.ID)
	assert.Equal(t, 4.42, receipt.TotalPrice)
	assert.InDelta(t, 0.30, receipt.TotalDiscount, 1e-9)
	assert.False(t, receipt.IsEmpty)
	assert.Equal(t, time.Date(2024, 3, 2, 14, 31, 5, 0, time.UTC), receipt.Datetime)

	require.Len(t, f.products.batches, 1)
	products := f.products.batches[0]
	require.Len(t, products, 2)
	for _, product := range products {
		assert.NotEqual(t, uuid.Nil, product.ID)
		assert.Equal(t, receipt.ID, product.ReceiptID)
	}
	assert.Equal(t, "HALFVOLLE MELK", products[0].Description)
	assert.Equal(t, "BANANEN", products[1].Description)

	require.Len(t, f.discounts.batches, 1)
	discounts := f.discounts.batches[0]
	require.Len(t, discounts, 1)
	assert.Equal(t, "BONUS MELK", discounts[0].Description)
	assert.InDelta(t, 0.30, discounts[0].Amount, 1e-9)
	assert.Equal(t, receipt.ID, discounts[0].ReceiptID)

	require.Len(t, f.linker.linked, 1)
	assert.Len(t, f.linker.linked[0], 2)
}

func TestSyncReceiptsPreservesRowOrderUnderConcurrency(t *testing.T) {
	descriptions := make([]string, 8)
	productRows := make([]dto.ReceiptRow, 0, len(descriptions))
	delays := map[string]time.Duration{}
	for i := range descriptions {
		descriptions[i] = fmt.Sprintf("PRODUCT %d", i)
		productRows = append(productRows, dto.ReceiptRow{
			Type:        dto.RowTypeProduct,
			Description: descriptions[i],
			Quantity:    "1",
			Amount:      "1,00",
		})
		// Earlier rows finish last.
		delays[descriptions[i]] = time.Duration(len(descriptions)-i) * 3 * time.Millisecond
	}

	f := newIngestFixture(4)
	f.resolver.delays = delays
	f.fetcher.summaries = []dto.ReceiptSummary{summaryFor("txn-order", 8.00)}
	f.fetcher.details["txn-order"] = detailRows(productRows, nil)

	_, err := f.service.SyncReceipts(context.Background())
	require.NoError(t, err)

	require.Len(t, f.products.batches, 1)
	products := f.products.batches[0]
	require.Len(t, products, len(descriptions))
	for i, product := range products {
		assert.Equal(t, descriptions[i], product.Description)
	}
}

func TestSyncReceiptsEmptyReceipt(t *testing.T) {
	f := newIngestFixture(1)
	f.fetcher.summaries = []dto.ReceiptSummary{summaryFor("txn-empty", 0)}
	f.fetcher.details["txn-empty"] = detailRows(nil, nil)

	added, err := f.service.SyncReceipts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, added)
	require.Len(t, f.receipts.created, 1)
	assert.True(t, f.receipts.created[0].IsEmpty)
	assert.Empty(t, f.products.batches)
	assert.Empty(t, f.discounts.batches)
	assert.Empty(t, f.linker.linked)
}

func TestSyncReceiptsLocationHandling(t *testing.T) {
	t.Run("reuses an existing location by name", func(t *testing.T) {
		known := &models.Location{ID: uuid.New(), Name: "AH Kalverstraat"}
		f := newIngestFixture(1)
		f.locations.byName["AH Kalverstraat"] = known
		f.fetcher.summaries = []dto.ReceiptSummary{summaryFor("txn-loc", 0)}
		f.fetcher.details["txn-loc"] = detailRows(nil, nil)

		_, err := f.service.SyncReceipts(context.Background())

		require.NoError(t, err)
		assert.Empty(t, f.locations.created)
		require.Len(t, f.receipts.created, 1)
		assert.Equal(t, known.ID, f.receipts.created[0].LocationID)
	})

	t.Run("creates an unknown location from the summary address", func(t *testing.T) {
		f := newIngestFixture(1)
		f.fetcher.summaries = []dto.ReceiptSummary{summaryFor("txn-loc", 0)}
		f.fetcher.details["txn-loc"] = detailRows(nil, nil)

		_, err := f.service.SyncReceipts(context.Background())

		require.NoError(t, err)
		require.Len(t, f.locations.created, 1)
		location := f.locations.created[0]
		assert.Equal(t, "AH Kalverstraat", location.Name)
		assert.Equal(t, "Kalverstraat", location.Address)
		assert.Equal(t, "92", location.HouseNumber)
		assert.Equal(t, "1012 PH", location.PostalCode)
		assert.Equal(t, "Amsterdam", location.City)
		require.Len(t, f.receipts.created, 1)
		assert.Equal(t, location.ID, f.receipts.created[0].LocationID)
	})
}

func TestSyncReceiptsSkipsFailedDetailFetch(t *testing.T) {
	f := newIngestFixture(1)
	f.fetcher.summaries = []dto.ReceiptSummary{
		summaryFor("txn-broken", 1.19),
		summaryFor("txn-ok", 0),
	}
	f.fetcher.detailErrs["txn-broken"] = errors.New("gateway timeout")
	f.fetcher.details["txn-ok"] = detailRows(nil, nil)

	added, err := f.service.SyncReceipts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, added)
	require.Len(t, f.receipts.created, 1)
	assert.Equal(t, "txn-ok", f.receipts.created[0].TransactionID)
}

func TestSyncReceiptsListFailure(t *testing.T) {
	f := newIngestFixture(1)
	f.fetcher.listErr = errors.New("unauthorized")

	added, err := f.service.SyncReceipts(context.Background())

	assert.Error(t, err)
	assert.Zero(t, added)
}
