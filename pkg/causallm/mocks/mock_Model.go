// Package mocks provides test doubles for the causallm package.
package mocks

import (
	"context"

	causallm "github.com/sells-group/aid/pkg/causallm"
	mock "github.com/stretchr/testify/mock"
)

// MockModel is a mock type for the Model interface.
type MockModel struct {
	mock.Mock
}

// LogLikelihood provides a mock function with given fields: ctx, text, prefix
func (_m *MockModel) LogLikelihood(ctx context.Context, text string, prefix string) (causallm.Likelihood, error) {
	ret := _m.Called(ctx, text, prefix)

	if len(ret) == 0 {
		panic("no return value specified for LogLikelihood")
	}

	var r0 causallm.Likelihood
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (causallm.Likelihood, error)); ok {
		return rf(ctx, text, prefix)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) causallm.Likelihood); ok {
		r0 = rf(ctx, text, prefix)
	} else {
		r0 = ret.Get(0).(causallm.Likelihood)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, text, prefix)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ModelName provides a mock function with no fields
func (_m *MockModel) ModelName() string {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for ModelName")
	}

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// NewMockModel creates a new instance of MockModel.
func NewMockModel(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockModel {
	mock := &MockModel{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
