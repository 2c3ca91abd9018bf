package signer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/embersend/internal/tx"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// eip155V builds the v value a device returns for the given chain id.
func eip155V(chainID uint64, recovery byte) *big.Int {
	v := new(big.Int).SetUint64(chainID*2 + 35)
	return v.Add(v, big.NewInt(int64(recovery)))
}

// --- injected provider ---

type fakeProvider struct {
	req  ProviderRequest
	hash string
	err  error
}

func (p *fakeProvider) SendTransaction(_ context.Context, req ProviderRequest) (string, error) {
	p.req = req
	return p.hash, p.err
}

func TestInjectedStrategy_NoProvider(t *testing.T) {
	s := NewInjectedStrategy(nil)
	_, err := s.SignAndSend(context.Background(), ethIntent(t, "1"))
	assert.True(t, embererr.Is(err, embererr.ErrProviderUnavailable))
}

func TestInjectedStrategy_NativeTransfer(t *testing.T) {
	provider := &fakeProvider{hash: "0xdeadbeef"}
	s := NewInjectedStrategy(provider)

	id, err := s.SignAndSend(context.Background(), ethIntent(t, "1.5"))
	require.NoError(t, err)
	assert.Equal(t, tx.TxID("0xdeadbeef"), id)
	assert.Equal(t, fromAddr, provider.req.From)
	assert.Equal(t, toAddr, provider.req.To)
	assert.Equal(t, "1500000000000000000", provider.req.ValueWei.String())
	assert.Empty(t, provider.req.Data)
}

func TestInjectedStrategy_TokenTransfer(t *testing.T) {
	provider := &fakeProvider{hash: "0xdeadbeef"}
	s := NewInjectedStrategy(provider)

	_, err := s.SignAndSend(context.Background(), tokenIntent(t, "50"))
	require.NoError(t, err)
	assert.Equal(t, usdtAddr, provider.req.To)
	assert.Equal(t, "0", provider.req.ValueWei.String())
	assert.Len(t, provider.req.Data, 68)
}

func TestInjectedStrategy_UserDeclined(t *testing.T) {
	provider := &fakeProvider{err: embererr.ErrBackendRejected}
	s := NewInjectedStrategy(provider)

	_, err := s.SignAndSend(context.Background(), ethIntent(t, "1"))
	assert.True(t, embererr.Is(err, embererr.ErrBackendRejected))
}

// --- ledger ---

type fakeLedgerTransport struct {
	address common.Address
	signV   *big.Int
	signErr error
	closed  bool
}

func (l *fakeLedgerTransport) Address(_ context.Context, _ string) (common.Address, error) {
	return l.address, nil
}

func (l *fakeLedgerTransport) SignTx(_ context.Context, _ string, _ *types.Transaction, _ *big.Int) (*big.Int, *big.Int, *big.Int, error) {
	if l.signErr != nil {
		return nil, nil, nil, l.signErr
	}
	return big.NewInt(1), big.NewInt(1), l.signV, nil
}

func (l *fakeLedgerTransport) Close() error {
	l.closed = true
	return nil
}

func ledgerSetup(transport *fakeLedgerTransport) (*LedgerStrategy, *fakeNode) {
	node := &fakeNode{nonce: 3}
	factory := func(_ context.Context) (LedgerTransport, error) { return transport, nil }
	return NewLedgerStrategy(factory, node), node
}

func TestLedgerStrategy_Success(t *testing.T) {
	transport := &fakeLedgerTransport{
		address: common.HexToAddress(fromAddr),
		signV:   eip155V(1, 0),
	}
	s, node := ledgerSetup(transport)

	id, err := s.SignAndSend(context.Background(), ethIntent(t, "1"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NotNil(t, node.broadcast)
	assert.Equal(t, uint64(3), node.broadcast.Nonce())
	assert.True(t, transport.closed, "transport must be closed after signing")
}

func TestLedgerStrategy_ChainMismatch(t *testing.T) {
	transport := &fakeLedgerTransport{
		address: common.HexToAddress(fromAddr),
		signV:   eip155V(5, 0), // device signed for a different chain
	}
	s, node := ledgerSetup(transport)

	_, err := s.SignAndSend(context.Background(), ethIntent(t, "1"))
	assert.True(t, embererr.Is(err, embererr.ErrChainMismatch))
	assert.Nil(t, node.broadcast, "mismatched signature must never broadcast")
	assert.True(t, transport.closed, "transport must be closed on failure too")
}

func TestLedgerStrategy_AccountMismatch(t *testing.T) {
	transport := &fakeLedgerTransport{
		address: common.HexToAddress(toAddr), // wrong account on device
		signV:   eip155V(1, 0),
	}
	s, _ := ledgerSetup(transport)

	_, err := s.SignAndSend(context.Background(), ethIntent(t, "1"))
	assert.True(t, embererr.Is(err, embererr.ErrBackendRejected))
	assert.True(t, transport.closed)
}

func TestLedgerStrategy_DeviceDecline(t *testing.T) {
	transport := &fakeLedgerTransport{
		address: common.HexToAddress(fromAddr),
		signErr: embererr.ErrBackendRejected,
	}
	s, _ := ledgerSetup(transport)

	_, err := s.SignAndSend(context.Background(), ethIntent(t, "1"))
	assert.True(t, embererr.Is(err, embererr.ErrBackendRejected))
	assert.True(t, transport.closed)
}

func TestLedgerStrategy_ExplicitNonce(t *testing.T) {
	transport := &fakeLedgerTransport{
		address: common.HexToAddress(fromAddr),
		signV:   eip155V(1, 1),
	}
	s, node := ledgerSetup(transport)

	intent := ethIntent(t, "1")
	nonce := uint64(42)
	intent.Nonce = &nonce

	_, err := s.SignAndSend(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), node.broadcast.Nonce())
}

// --- trezor ---

type fakeTrezor struct {
	addresses []common.Address
	signV     *big.Int
	signErr   error
	signedIdx int
}

func (d *fakeTrezor) Addresses(_ context.Context) ([]common.Address, error) {
	return d.addresses, nil
}

func (d *fakeTrezor) SignTx(_ context.Context, idx int, _ *types.Transaction, _ *big.Int) (*big.Int, *big.Int, *big.Int, error) {
	d.signedIdx = idx
	if d.signErr != nil {
		return nil, nil, nil, d.signErr
	}
	return big.NewInt(1), big.NewInt(1), d.signV, nil
}

func TestTrezorStrategy_Success(t *testing.T) {
	device := &fakeTrezor{
		addresses: []common.Address{common.HexToAddress(toAddr), common.HexToAddress(fromAddr)},
		signV:     eip155V(1, 0),
	}
	node := &fakeNode{nonce: 9}
	s := NewTrezorStrategy(device, node)

	id, err := s.SignAndSend(context.Background(), ethIntent(t, "1"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, device.signedIdx, "must sign with the matching enumerated account")
}

func TestTrezorStrategy_AccountNotEnumerated(t *testing.T) {
	device := &fakeTrezor{addresses: []common.Address{common.HexToAddress(toAddr)}}
	s := NewTrezorStrategy(device, &fakeNode{})

	_, err := s.SignAndSend(context.Background(), ethIntent(t, "1"))
	assert.True(t, embererr.Is(err, embererr.ErrBackendRejected))
}

func TestTrezorStrategy_PopupBlocked(t *testing.T) {
	device := &fakeTrezor{
		addresses: []common.Address{common.HexToAddress(fromAddr)},
		signErr:   embererr.ErrDevicePopupBlocked,
	}
	s := NewTrezorStrategy(device, &fakeNode{})

	_, err := s.SignAndSend(context.Background(), ethIntent(t, "1"))
	assert.True(t, embererr.Is(err, embererr.ErrDevicePopupBlocked))
}

// --- walletconnect ---

type fakeSession struct {
	req    ProviderRequest
	status SessionStatus
	err    error
}

func (s *fakeSession) SendTransaction(_ context.Context, req ProviderRequest) (string, error) {
	s.req = req
	return "req-1", s.err
}

func (s *fakeSession) AwaitStatus(_ context.Context, _ string) (SessionStatus, error) {
	return s.status, nil
}

func TestWalletConnectStrategy_Sent(t *testing.T) {
	session := &fakeSession{status: SessionStatus{State: SessionStateSent, TxHash: "0xremote"}}
	s := NewWalletConnectStrategy(session)

	id, err := s.SignAndSend(context.Background(), ethIntent(t, "1"))
	require.NoError(t, err)
	assert.Equal(t, tx.TxID("0xremote"), id)
}

func TestWalletConnectStrategy_TerminalFailure(t *testing.T) {
	session := &fakeSession{status: SessionStatus{State: "rejected"}}
	s := NewWalletConnectStrategy(session)

	_, err := s.SignAndSend(context.Background(), ethIntent(t, "1"))
	assert.True(t, embererr.Is(err, embererr.ErrBackendRejected))
}

func TestWalletConnectStrategy_NoSession(t *testing.T) {
	s := NewWalletConnectStrategy(nil)
	_, err := s.SignAndSend(context.Background(), ethIntent(t, "1"))
	assert.True(t, embererr.Is(err, embererr.ErrProviderUnavailable))
}

func TestWalletConnectStrategy_TokenTransfer(t *testing.T) {
	session := &fakeSession{status: SessionStatus{State: SessionStateSent, TxHash: "0xremote"}}
	s := NewWalletConnectStrategy(session)

	_, err := s.SignAndSend(context.Background(), tokenIntent(t, "50"))
	require.NoError(t, err)
	assert.Equal(t, usdtAddr, session.req.To)
	assert.Len(t, session.req.Data, 68)
}
