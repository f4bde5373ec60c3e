package testbuilder

import (
	"context"

	"snow-mirror/internal/models"
	"snow-mirror/internal/servicenow"

	"github.com/stretchr/testify/mock"
)

// ********
//
// MockTableFetcher is a mock implementation of the TableFetcher interface
//
// ********
type MockTableFetcher struct {
	mock.Mock
}

func (m *MockTableFetcher) Fetch(ctx context.Context, table, since string) *servicenow.FetchResult {
	args := m.Called(ctx, table, since)
	return args.Get(0).(*servicenow.FetchResult)
}

// ********
//
// MockRecordPatcher is a mock implementation of the RecordPatcher interface
//
// ********
type MockRecordPatcher struct {
	mock.Mock
}

func (m *MockRecordPatcher) PatchRecord(ctx context.Context, table, sysID, field string, value interface{}) (*servicenow.PatchResult, error) {
	args := m.Called(ctx, table, sysID, field, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*servicenow.PatchResult), args.Error(1)
}

// ********
//
// MockRecordCache is a mock implementation of the RecordCache interface
//
// ********
type MockRecordCache struct {
	mock.Mock
}

func (m *MockRecordCache) UpsertBatch(table string, records []models.Record, explicitMax string) (int, error) {
	args := m.Called(table, records, explicitMax)
	return args.Int(0), args.Error(1)
}

func (m *MockRecordCache) FetchCached(table string, limit int) ([]map[string]interface{}, error) {
	args := m.Called(table, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]interface{}), args.Error(1)
}

func (m *MockRecordCache) RowCount(table string) (int, error) {
	args := m.Called(table)
	return args.Int(0), args.Error(1)
}

func (m *MockRecordCache) UpdateField(table, sysID, field string, value interface{}) (bool, error) {
	args := m.Called(table, sysID, field, value)
	return args.Bool(0), args.Error(1)
}

// ********
//
// MockWatermarkStore is a mock implementation of the WatermarkStore interface
//
// ********
type MockWatermarkStore struct {
	mock.Mock
}

func (m *MockWatermarkStore) Get(table string) (string, error) {
	args := m.Called(table)
	return args.String(0), args.Error(1)
}

func (m *MockWatermarkStore) Advance(table, timestamp string) error {
	args := m.Called(table, timestamp)
	return args.Error(0)
}
