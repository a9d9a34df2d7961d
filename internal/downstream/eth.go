package downstream

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/umbracle/ethgo"
	"github.com/valyala/fastjson"

	"github.com/mowind/proxyadmin-go/internal/hexutil"
)

// ChainClient 合约操作需要的节点能力。交易由节点使用已解锁的账户签名。
type ChainClient interface {
	ChainID(ctx context.Context) (uint64, error)
	TransactionCount(ctx context.Context, addr ethgo.Address) (uint64, error)
	Call(ctx context.Context, msg *CallMsg) ([]byte, error)
	SendTransaction(ctx context.Context, tx *TxArgs) (ethgo.Hash, error)
	TransactionReceipt(ctx context.Context, hash ethgo.Hash) (*ethgo.Receipt, error)
	WaitForReceipt(ctx context.Context, hash ethgo.Hash) (*ethgo.Receipt, error)
	GetLogs(ctx context.Context, filter *LogFilter) ([]*ethgo.Log, error)
}

// CallMsg eth_call 参数
type CallMsg struct {
	From *ethgo.Address
	To   ethgo.Address
	Data []byte
}

// TxArgs eth_sendTransaction 参数，To 为 nil 表示部署合约
type TxArgs struct {
	From ethgo.Address
	To   *ethgo.Address
	Data []byte
	Gas  uint64
}

// LogFilter eth_getLogs 参数。Topics 为 topic0 的候选集合。
type LogFilter struct {
	Address   ethgo.Address
	Topics    []ethgo.Hash
	FromBlock string
	ToBlock   string
}

// EthClient 基于 Client 的类型化 eth_* 调用
type EthClient struct {
	client       ClientInterface
	pollInterval time.Duration
	parsers      fastjson.ParserPool
}

// NewEthClient 创建 EthClient，pollInterval 为等待回执的轮询间隔
func NewEthClient(client ClientInterface, pollInterval time.Duration) *EthClient {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &EthClient{
		client:       client,
		pollInterval: pollInterval,
	}
}

func encodeBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func encodeUint(n uint64) string {
	return fmt.Sprintf("0x%x", n)
}

func (c *EthClient) quantity(ctx context.Context, method string, params ...interface{}) (uint64, error) {
	var raw string
	if err := c.client.Call(ctx, &raw, method, params...); err != nil {
		return 0, err
	}
	return parseQuantity(raw)
}

// ChainID eth_chainId
func (c *EthClient) ChainID(ctx context.Context) (uint64, error) {
	return c.quantity(ctx, "eth_chainId")
}

// TransactionCount 返回账户的 pending nonce
func (c *EthClient) TransactionCount(ctx context.Context, addr ethgo.Address) (uint64, error) {
	return c.quantity(ctx, "eth_getTransactionCount", addr.String(), "pending")
}

// Call eth_call，在 latest 区块执行只读调用
func (c *EthClient) Call(ctx context.Context, msg *CallMsg) ([]byte, error) {
	args := map[string]interface{}{
		"to":   msg.To.String(),
		"data": encodeBytes(msg.Data),
	}
	if msg.From != nil {
		args["from"] = msg.From.String()
	}

	var raw string
	if err := c.client.Call(ctx, &raw, "eth_call", args, "latest"); err != nil {
		return nil, err
	}
	return parseData(raw)
}

// SendTransaction eth_sendTransaction，返回交易哈希
func (c *EthClient) SendTransaction(ctx context.Context, tx *TxArgs) (ethgo.Hash, error) {
	args := map[string]interface{}{
		"from": tx.From.String(),
		"data": encodeBytes(tx.Data),
	}
	if tx.To != nil {
		args["to"] = tx.To.String()
	}
	if tx.Gas > 0 {
		args["gas"] = encodeUint(tx.Gas)
	}

	var raw string
	if err := c.client.Call(ctx, &raw, "eth_sendTransaction", args); err != nil {
		return ethgo.Hash{}, err
	}
	return parseHash(raw)
}

// TransactionReceipt 返回交易回执，交易未打包时返回 nil
func (c *EthClient) TransactionReceipt(ctx context.Context, hash ethgo.Hash) (*ethgo.Receipt, error) {
	var raw json.RawMessage
	if err := c.client.Call(ctx, &raw, "eth_getTransactionReceipt", hash.String()); err != nil {
		return nil, err
	}

	p := c.parsers.Get()
	defer c.parsers.Put(p)

	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, InvalidResponseError(err)
	}
	if v.Type() == fastjson.TypeNull {
		return nil, nil
	}
	receipt, err := decodeReceipt(v)
	if err != nil {
		return nil, InvalidResponseError(err)
	}
	return receipt, nil
}

// WaitForReceipt 轮询直到回执出现或 ctx 结束
func (c *EthClient) WaitForReceipt(ctx context.Context, hash ethgo.Hash) (*ethgo.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, TimeoutError(fmt.Errorf("waiting for receipt of %s: %w", hash, ctx.Err()))
		case <-ticker.C:
		}
	}
}

// GetLogs eth_getLogs
func (c *EthClient) GetLogs(ctx context.Context, filter *LogFilter) ([]*ethgo.Log, error) {
	topics := make([]string, 0, len(filter.Topics))
	for _, t := range filter.Topics {
		topics = append(topics, t.String())
	}
	args := map[string]interface{}{
		"address":   filter.Address.String(),
		"fromBlock": blockTag(filter.FromBlock, "earliest"),
		"toBlock":   blockTag(filter.ToBlock, "latest"),
	}
	if len(topics) > 0 {
		args["topics"] = []interface{}{topics}
	}

	var raw json.RawMessage
	if err := c.client.Call(ctx, &raw, "eth_getLogs", args); err != nil {
		return nil, err
	}

	p := c.parsers.Get()
	defer c.parsers.Put(p)

	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, InvalidResponseError(err)
	}
	items, err := v.Array()
	if err != nil {
		return nil, InvalidResponseError(err)
	}

	logs := make([]*ethgo.Log, 0, len(items))
	for i, item := range items {
		log, err := decodeLog(item)
		if err != nil {
			return nil, InvalidResponseError(fmt.Errorf("log %d: %w", i, err))
		}
		logs = append(logs, log)
	}
	return logs, nil
}

func blockTag(tag, def string) string {
	if tag == "" {
		return def
	}
	return tag
}

func parseQuantity(raw string) (uint64, error) {
	n, err := hexutil.ParseUint(raw, hexutil.Uint64Digits)
	if err != nil {
		return 0, InvalidResponseError(fmt.Errorf("invalid quantity %q: %w", raw, err))
	}
	return n.Uint64(), nil
}

func parseData(raw string) ([]byte, error) {
	digits := hexutil.StripHexPrefix(raw)
	b, err := hex.DecodeString(digits)
	if err != nil {
		return nil, InvalidResponseError(fmt.Errorf("invalid data %q: %w", raw, err))
	}
	return b, nil
}

func parseHash(raw string) (ethgo.Hash, error) {
	var h ethgo.Hash
	b, err := parseData(raw)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, InvalidResponseError(fmt.Errorf("invalid hash %q", raw))
	}
	copy(h[:], b)
	return h, nil
}

func parseAddress(raw string) (ethgo.Address, error) {
	var a ethgo.Address
	b, err := parseData(raw)
	if err != nil {
		return a, err
	}
	if len(b) != len(a) {
		return a, InvalidResponseError(fmt.Errorf("invalid address %q", raw))
	}
	copy(a[:], b)
	return a, nil
}

func getQuantity(v *fastjson.Value, key string) (uint64, error) {
	if !v.Exists(key) || v.Get(key).Type() == fastjson.TypeNull {
		return 0, nil
	}
	return parseQuantity(string(v.GetStringBytes(key)))
}

func decodeReceipt(v *fastjson.Value) (*ethgo.Receipt, error) {
	r := &ethgo.Receipt{}
	var err error

	if r.TransactionHash, err = parseHash(string(v.GetStringBytes("transactionHash"))); err != nil {
		return nil, fmt.Errorf("transactionHash: %w", err)
	}
	if v.Exists("blockHash") {
		if r.BlockHash, err = parseHash(string(v.GetStringBytes("blockHash"))); err != nil {
			return nil, fmt.Errorf("blockHash: %w", err)
		}
	}
	if r.BlockNumber, err = getQuantity(v, "blockNumber"); err != nil {
		return nil, err
	}
	if r.TransactionIndex, err = getQuantity(v, "transactionIndex"); err != nil {
		return nil, err
	}
	if r.GasUsed, err = getQuantity(v, "gasUsed"); err != nil {
		return nil, err
	}
	if r.CumulativeGasUsed, err = getQuantity(v, "cumulativeGasUsed"); err != nil {
		return nil, err
	}

	// 部署交易的回执带 contractAddress，普通交易为 null
	if v.Exists("contractAddress") && v.Get("contractAddress").Type() != fastjson.TypeNull {
		if r.ContractAddress, err = parseAddress(string(v.GetStringBytes("contractAddress"))); err != nil {
			return nil, fmt.Errorf("contractAddress: %w", err)
		}
	}

	// 拜占庭之前的回执没有 status，视为成功
	r.Status = 1
	if v.Exists("status") {
		if r.Status, err = getQuantity(v, "status"); err != nil {
			return nil, err
		}
	}

	for i, item := range v.GetArray("logs") {
		log, err := decodeLog(item)
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", i, err)
		}
		r.Logs = append(r.Logs, log)
	}
	return r, nil
}

func decodePrefixedHash(v *fastjson.Value, key string) (ethgo.Hash, error) {
	if !v.Exists(key) || v.Get(key).Type() == fastjson.TypeNull {
		return ethgo.Hash{}, nil
	}
	return parseHash(string(v.GetStringBytes(key)))
}

func decodeLog(v *fastjson.Value) (*ethgo.Log, error) {
	log := &ethgo.Log{
		Removed: v.GetBool("removed"),
	}
	var err error

	if log.Address, err = parseAddress(string(v.GetStringBytes("address"))); err != nil {
		return nil, fmt.Errorf("address: %w", err)
	}
	if log.Data, err = parseData(string(v.GetStringBytes("data"))); err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	for i, t := range v.GetArray("topics") {
		h, err := parseHash(string(t.GetStringBytes()))
		if err != nil {
			return nil, fmt.Errorf("topic %d: %w", i, err)
		}
		log.Topics = append(log.Topics, h)
	}
	if log.TransactionHash, err = decodePrefixedHash(v, "transactionHash"); err != nil {
		return nil, err
	}
	if log.BlockHash, err = decodePrefixedHash(v, "blockHash"); err != nil {
		return nil, err
	}
	if log.BlockNumber, err = getQuantity(v, "blockNumber"); err != nil {
		return nil, err
	}
	if log.LogIndex, err = getQuantity(v, "logIndex"); err != nil {
		return nil, err
	}
	if log.TransactionIndex, err = getQuantity(v, "transactionIndex"); err != nil {
		return nil, err
	}
	return log, nil
}
