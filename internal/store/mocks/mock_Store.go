// Package mocks provides test doubles for the store.
package mocks

import (
	"context"
	"time"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/sales-intel/internal/model"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

// GetReportCache provides a mock function with given fields: ctx, tenantID, subjectKey, kind
func (_m *MockStore) GetReportCache(ctx context.Context, tenantID string, subjectKey string, kind model.ReportKind) (*model.CacheEntry, error) {
	ret := _m.Called(ctx, tenantID, subjectKey, kind)

	if len(ret) == 0 {
		panic("no return value specified for GetReportCache")
	}

	var r0 *model.CacheEntry
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, model.ReportKind) (*model.CacheEntry, error)); ok {
		return rf(ctx, tenantID, subjectKey, kind)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string, model.ReportKind) *model.CacheEntry); ok {
		r0 = rf(ctx, tenantID, subjectKey, kind)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.CacheEntry)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string, model.ReportKind) error); ok {
		r1 = rf(ctx, tenantID, subjectKey, kind)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// UpsertReportCache provides a mock function with given fields: ctx, entry
func (_m *MockStore) UpsertReportCache(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error) {
	ret := _m.Called(ctx, entry)

	if len(ret) == 0 {
		panic("no return value specified for UpsertReportCache")
	}

	var r0 *model.CacheEntry
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.CacheEntry) (*model.CacheEntry, error)); ok {
		return rf(ctx, entry)
	}
	if rf, ok := ret.Get(0).(func(context.Context, *model.CacheEntry) *model.CacheEntry); ok {
		r0 = rf(ctx, entry)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.CacheEntry)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, *model.CacheEntry) error); ok {
		r1 = rf(ctx, entry)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// TouchReportCache provides a mock function with given fields: ctx, id, at
func (_m *MockStore) TouchReportCache(ctx context.Context, id string, at time.Time) error {
	ret := _m.Called(ctx, id, at)

	if len(ret) == 0 {
		panic("no return value specified for TouchReportCache")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, time.Time) error); ok {
		r0 = rf(ctx, id, at)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// DeleteReportCacheBefore provides a mock function with given fields: ctx, cutoff
func (_m *MockStore) DeleteReportCacheBefore(ctx context.Context, cutoff time.Time) (int, error) {
	ret := _m.Called(ctx, cutoff)

	if len(ret) == 0 {
		panic("no return value specified for DeleteReportCacheBefore")
	}

	var r0 int
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) (int, error)); ok {
		return rf(ctx, cutoff)
	}
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) int); ok {
		r0 = rf(ctx, cutoff)
	} else {
		r0 = ret.Get(0).(int)
	}

	if rf, ok := ret.Get(1).(func(context.Context, time.Time) error); ok {
		r1 = rf(ctx, cutoff)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListStaleReportCache provides a mock function with given fields: ctx, now, limit
func (_m *MockStore) ListStaleReportCache(ctx context.Context, now time.Time, limit int) ([]model.CacheEntry, error) {
	ret := _m.Called(ctx, now, limit)

	if len(ret) == 0 {
		panic("no return value specified for ListStaleReportCache")
	}

	var r0 []model.CacheEntry
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, time.Time, int) ([]model.CacheEntry, error)); ok {
		return rf(ctx, now, limit)
	}
	if rf, ok := ret.Get(0).(func(context.Context, time.Time, int) []model.CacheEntry); ok {
		r0 = rf(ctx, now, limit)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.CacheEntry)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, time.Time, int) error); ok {
		r1 = rf(ctx, now, limit)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CreateAccount provides a mock function with given fields: ctx, acct
func (_m *MockStore) CreateAccount(ctx context.Context, acct *model.Account) (*model.Account, error) {
	ret := _m.Called(ctx, acct)

	if len(ret) == 0 {
		panic("no return value specified for CreateAccount")
	}

	var r0 *model.Account
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.Account) (*model.Account, error)); ok {
		return rf(ctx, acct)
	}
	if rf, ok := ret.Get(0).(func(context.Context, *model.Account) *model.Account); ok {
		r0 = rf(ctx, acct)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Account)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, *model.Account) error); ok {
		r1 = rf(ctx, acct)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetAccount provides a mock function with given fields: ctx, tenantID, id
func (_m *MockStore) GetAccount(ctx context.Context, tenantID string, id string) (*model.Account, error) {
	ret := _m.Called(ctx, tenantID, id)

	if len(ret) == 0 {
		panic("no return value specified for GetAccount")
	}

	var r0 *model.Account
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*model.Account, error)); ok {
		return rf(ctx, tenantID, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) *model.Account); ok {
		r0 = rf(ctx, tenantID, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Account)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, tenantID, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// AccountExists provides a mock function with given fields: ctx, tenantID, id
func (_m *MockStore) AccountExists(ctx context.Context, tenantID string, id string) (bool, error) {
	ret := _m.Called(ctx, tenantID, id)

	if len(ret) == 0 {
		panic("no return value specified for AccountExists")
	}

	var r0 bool
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (bool, error)); ok {
		return rf(ctx, tenantID, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) bool); ok {
		r0 = rf(ctx, tenantID, id)
	} else {
		r0 = ret.Get(0).(bool)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, tenantID, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// SaveAccountIntel provides a mock function with given fields: ctx, tenantID, id, intel
func (_m *MockStore) SaveAccountIntel(ctx context.Context, tenantID string, id string, intel *model.CachedArtifact) error {
	ret := _m.Called(ctx, tenantID, id, intel)

	if len(ret) == 0 {
		panic("no return value specified for SaveAccountIntel")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, *model.CachedArtifact) error); ok {
		r0 = rf(ctx, tenantID, id, intel)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Ping provides a mock function with given fields: ctx
func (_m *MockStore) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Ping")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Close provides a mock function with given fields:
func (_m *MockStore) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	mock := &MockStore{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
