package serx

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// StoreMock is a mock implementation of the Store interface
// for testing purposes. It uses testify/mock for easy setup and verification.
type StoreMock struct {
	mock.Mock
}

func NewStoreMock() *StoreMock {
	return &StoreMock{}
}

func (m *StoreMock) CreateOrUpdate(ctx context.Context, instance any) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

func (m *StoreMock) GetRelated(ctx context.Context, instance any, field string, kind RelationKind) (any, error) {
	args := m.Called(ctx, instance, field, kind)
	return args.Get(0), args.Error(1)
}

func (m *StoreMock) SetRelated(ctx context.Context, instance any, field string, related any) error {
	args := m.Called(ctx, instance, field, related)
	return args.Error(0)
}

func (m *StoreMock) Exists(ctx context.Context, instance any, field string) (bool, error) {
	args := m.Called(ctx, instance, field)
	return args.Bool(0), args.Error(1)
}

var _ Store = (*StoreMock)(nil)
