package admin

import (
	"context"
	"encoding/hex"
	"math/big"
	"sync"

	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"

	"github.com/mowind/proxyadmin-go/internal/downstream"
)

var (
	testFrom     = ethgo.HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	testProxy    = ethgo.HexToAddress("0x1111111111111111111111111111111111111111")
	testManual   = ethgo.HexToAddress("0x2222222222222222222222222222222222222222")
	testWithdraw = ethgo.HexToAddress("0x3333333333333333333333333333333333333333")
	testVerifier = ethgo.HexToAddress("0x4444444444444444444444444444444444444444")
	testToken    = ethgo.HexToAddress("0x00000000000000000000000000000000000000ff")
)

// mockChainClient 按选择器返回预设结果，并记录所有调用
type mockChainClient struct {
	mu sync.Mutex

	chainID   uint64
	nonce     uint64
	responses map[string][]byte
	callErrs  map[string]error
	failTx    map[int]bool
	createdAt map[int]ethgo.Address
	logs      map[ethgo.Hash][]*ethgo.Log

	sendErr error

	calls []string
	sent  []*downstream.TxArgs
	reads []*downstream.CallMsg
}

func newMockChainClient() *mockChainClient {
	return &mockChainClient{
		chainID:   1337,
		responses: make(map[string][]byte),
		callErrs:  make(map[string]error),
		failTx:    make(map[int]bool),
		createdAt: make(map[int]ethgo.Address),
		logs:      make(map[ethgo.Hash][]*ethgo.Log),
	}
}

func selectorKey(data []byte) string {
	if len(data) < 4 {
		return hex.EncodeToString(data)
	}
	return hex.EncodeToString(data[:4])
}

// on 设置方法的返回数据
func (m *mockChainClient) on(method *abi.Method, out []byte) {
	m.responses[hex.EncodeToString(method.ID())] = out
}

func (m *mockChainClient) fail(method *abi.Method, err error) {
	m.callErrs[hex.EncodeToString(method.ID())] = err
}

func (m *mockChainClient) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockChainClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockChainClient) ChainID(ctx context.Context) (uint64, error) {
	m.record("eth_chainId")
	return m.chainID, nil
}

func (m *mockChainClient) TransactionCount(ctx context.Context, addr ethgo.Address) (uint64, error) {
	m.record("eth_getTransactionCount")
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nonce, nil
}

func (m *mockChainClient) Call(ctx context.Context, msg *downstream.CallMsg) ([]byte, error) {
	m.record("eth_call")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, msg)
	key := selectorKey(msg.Data)
	if err := m.callErrs[key]; err != nil {
		return nil, err
	}
	return m.responses[key], nil
}

func (m *mockChainClient) SendTransaction(ctx context.Context, tx *downstream.TxArgs) (ethgo.Hash, error) {
	m.record("eth_sendTransaction")
	if m.sendErr != nil {
		return ethgo.Hash{}, m.sendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, tx)
	m.nonce++
	var hash ethgo.Hash
	hash[31] = byte(len(m.sent))
	return hash, nil
}

func (m *mockChainClient) TransactionReceipt(ctx context.Context, hash ethgo.Hash) (*ethgo.Receipt, error) {
	m.record("eth_getTransactionReceipt")
	return m.receipt(hash), nil
}

func (m *mockChainClient) WaitForReceipt(ctx context.Context, hash ethgo.Hash) (*ethgo.Receipt, error) {
	m.record("eth_getTransactionReceipt")
	return m.receipt(hash), nil
}

func (m *mockChainClient) receipt(hash ethgo.Hash) *ethgo.Receipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := uint64(1)
	if m.failTx[int(hash[31])-1] {
		status = 0
	}
	return &ethgo.Receipt{
		TransactionHash: hash,
		GasUsed:         21000,
		Status:          status,
		ContractAddress: m.createdAt[int(hash[31])-1],
	}
}

func (m *mockChainClient) GetLogs(ctx context.Context, filter *downstream.LogFilter) ([]*ethgo.Log, error) {
	m.record("eth_getLogs")
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ethgo.Log
	for _, topic := range filter.Topics {
		out = append(out, m.logs[topic]...)
	}
	return out, nil
}

var _ downstream.ChainClient = (*mockChainClient)(nil)

func word(n int64) []byte {
	return wordBig(big.NewInt(n))
}

func wordBig(n *big.Int) []byte {
	out := make([]byte, 32)
	n.FillBytes(out)
	return out
}

func wordAddr(a ethgo.Address) []byte {
	out := make([]byte, 32)
	copy(out[12:], a[:])
	return out
}

func concat(words ...[]byte) []byte {
	var out []byte
	for _, w := range words {
		out = append(out, w...)
	}
	return out
}

// tokensWord 编码 uint256[] 返回值
func tokensWord(uids ...*big.Int) []byte {
	out := concat(word(32), word(int64(len(uids))))
	for _, u := range uids {
		out = append(out, wordBig(u)...)
	}
	return out
}
