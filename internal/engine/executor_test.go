package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"igbridge/internal/gateway/exchange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPlacer struct {
	mock.Mock
}

func (m *MockPlacer) SubmitOrder(ctx context.Context, spec exchange.OrderSpec) (exchange.DealRef, error) {
	args := m.Called(ctx, spec)
	return exchange.DealRef(args.String(0)), args.Error(1)
}

func (m *MockPlacer) ClosePosition(ctx context.Context, spec exchange.CloseSpec) (exchange.DealRef, error) {
	args := m.Called(ctx, spec)
	return exchange.DealRef(args.String(0)), args.Error(1)
}

func (m *MockPlacer) Confirmation(ctx context.Context, ref exchange.DealRef) (exchange.Confirmation, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(exchange.Confirmation), args.Error(1)
}

func flipDecision() Decision {
	return Decision{
		Kind:  DecisionCloseThenOpen,
		Close: &exchange.CloseSpec{DealID: "D1", Direction: exchange.DirectionSell, Size: 1},
		Open:  &exchange.OrderSpec{Epic: "IX.D.DAX.IFMM.IP", Direction: exchange.DirectionSell, Size: 1},
	}
}

func TestExecuteOpenOnlyConfirmed(t *testing.T) {
	placer := new(MockPlacer)
	placer.On("SubmitOrder", mock.Anything, mock.Anything).Return("REF1", nil)
	placer.On("Confirmation", mock.Anything, exchange.DealRef("REF1")).
		Return(exchange.Confirmation{DealStatus: exchange.DealStatusAccepted, DealID: "DX"}, nil)

	exec := NewExecutor(placer, 1, time.Millisecond)
	res, err := exec.Execute(context.Background(), Decision{Kind: DecisionOpenOnly, Open: &exchange.OrderSpec{}})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, res.Status)
	require.NotNil(t, res.Open)
	assert.Equal(t, exchange.DealRef("REF1"), res.Open.Ref)
	placer.AssertExpectations(t)
}

func TestExecuteCloseRejectedMarketOfflineAbortsOpen(t *testing.T) {
	placer := new(MockPlacer)
	placer.On("ClosePosition", mock.Anything, mock.Anything).Return("REFC", nil)
	placer.On("Confirmation", mock.Anything, exchange.DealRef("REFC")).
		Return(exchange.Confirmation{DealStatus: exchange.DealStatusRejected, Reason: exchange.ReasonMarketOffline}, nil)

	exec := NewExecutor(placer, 1, time.Millisecond)
	res, err := exec.Execute(context.Background(), flipDecision())

	var rejected *VenueRejected
	require.ErrorAs(t, err, &rejected)
	assert.True(t, rejected.MarketClosed)
	assert.Equal(t, LegClose, rejected.Leg)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Nil(t, res.Open, "open leg must not run after a rejected close")
	placer.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestExecuteOpenFailureAfterConfirmedCloseIsPartialFailure(t *testing.T) {
	placer := new(MockPlacer)
	placer.On("ClosePosition", mock.Anything, mock.Anything).Return("REFC", nil)
	placer.On("Confirmation", mock.Anything, exchange.DealRef("REFC")).
		Return(exchange.Confirmation{DealStatus: exchange.DealStatusAccepted}, nil)
	placer.On("SubmitOrder", mock.Anything, mock.Anything).
		Return("", &exchange.TransportError{StatusCode: 500, Body: "boom"})

	exec := NewExecutor(placer, 1, time.Millisecond)
	res, err := exec.Execute(context.Background(), flipDecision())

	var partial *PartialFailure
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, exchange.DealRef("REFC"), partial.CloseRef)
	var failed *VenueFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 500, failed.StatusCode)
	require.NotNil(t, res.Close)
	assert.Equal(t, StatusConfirmed, res.Close.Status)
}

func TestExecuteSubmitTransportStatusPassthrough(t *testing.T) {
	placer := new(MockPlacer)
	placer.On("SubmitOrder", mock.Anything, mock.Anything).
		Return("", &exchange.TransportError{StatusCode: 401, Body: "unauthorised"})

	exec := NewExecutor(placer, 1, time.Millisecond)
	_, err := exec.Execute(context.Background(), Decision{Kind: DecisionOpenOnly, Open: &exchange.OrderSpec{}})

	var failed *VenueFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 401, failed.StatusCode)
	placer.AssertNotCalled(t, "Confirmation", mock.Anything, mock.Anything)
}

func TestExecuteSingleShotConfirmationGivesUnknownOutcome(t *testing.T) {
	placer := new(MockPlacer)
	placer.On("SubmitOrder", mock.Anything, mock.Anything).Return("REF1", nil)
	placer.On("Confirmation", mock.Anything, exchange.DealRef("REF1")).
		Return(exchange.Confirmation{DealStatus: "PENDING"}, nil).Once()

	exec := NewExecutor(placer, 1, time.Millisecond)
	_, err := exec.Execute(context.Background(), Decision{Kind: DecisionOpenOnly, Open: &exchange.OrderSpec{}})

	var failed *VenueFailed
	require.ErrorAs(t, err, &failed)
	assert.True(t, failed.Unknown)
	placer.AssertNumberOfCalls(t, "Confirmation", 1)
}

func TestExecuteConfirmationRetryResolves(t *testing.T) {
	placer := new(MockPlacer)
	placer.On("SubmitOrder", mock.Anything, mock.Anything).Return("REF1", nil)
	placer.On("Confirmation", mock.Anything, exchange.DealRef("REF1")).
		Return(exchange.Confirmation{DealStatus: "PENDING"}, nil).Once()
	placer.On("Confirmation", mock.Anything, exchange.DealRef("REF1")).
		Return(exchange.Confirmation{DealStatus: exchange.DealStatusAccepted}, nil).Once()

	exec := NewExecutor(placer, 3, time.Millisecond)
	res, err := exec.Execute(context.Background(), Decision{Kind: DecisionOpenOnly, Open: &exchange.OrderSpec{}})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, res.Status)
	placer.AssertNumberOfCalls(t, "Confirmation", 2)
}

func TestExecuteConfirmationErrorIsFailure(t *testing.T) {
	placer := new(MockPlacer)
	placer.On("ClosePosition", mock.Anything, mock.Anything).Return("REFC", nil)
	placer.On("Confirmation", mock.Anything, exchange.DealRef("REFC")).
		Return(exchange.Confirmation{}, errors.New("connection reset"))

	exec := NewExecutor(placer, 1, time.Millisecond)
	res, err := exec.Execute(context.Background(), flipDecision())

	var failed *VenueFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, StatusFailed, res.Status)
	placer.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}
