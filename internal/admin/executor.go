package admin

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"

	"github.com/mowind/proxyadmin-go/internal/contracts"
	"github.com/mowind/proxyadmin-go/internal/downstream"
	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// Result 一次操作的输出。Logs 是按顺序记录的操作日志。
type Result struct {
	Kind         Kind        `json:"kind"`
	OperationID  string      `json:"operation_id"`
	Logs         []string    `json:"logs"`
	Transactions []TxReport  `json:"transactions,omitempty"`
	Data         interface{} `json:"data,omitempty"`
}

// TxReport 已确认交易的摘要
type TxReport struct {
	Label   string     `json:"label,omitempty"`
	Hash    ethgo.Hash `json:"hash"`
	GasUsed uint64     `json:"gas_used"`
	Success bool       `json:"success"`
}

// Executor 执行管理操作
type Executor struct {
	client    downstream.ChainClient
	from      ethgo.Address
	contracts *contracts.DeployedContractSet
	logger    apperrors.Logger
}

// NewExecutor 创建执行器。set 为已部署的合约，可以为空集合。
func NewExecutor(client downstream.ChainClient, from ethgo.Address, set *contracts.DeployedContractSet, logger apperrors.Logger) *Executor {
	if set == nil {
		set = &contracts.DeployedContractSet{}
	}
	if logger == nil {
		logger = apperrors.NewNopLogger()
	}
	return &Executor{
		client:    client,
		from:      from,
		contracts: set,
		logger:    logger,
	}
}

// Contracts 返回执行器使用的合约集合
func (e *Executor) Contracts() *contracts.DeployedContractSet {
	return e.contracts
}

// environment 是 prepare 阶段可用的只读信息
type environment struct {
	contracts *contracts.DeployedContractSet
}

// step 是校验通过后访问节点的部分
type step func(ctx context.Context, s *session) error

// Execute 校验并执行操作。返回的 Result 在失败时也包含已产生的日志。
// 输入不合法时不会访问节点。
func (e *Executor) Execute(ctx context.Context, op Operation) (*Result, error) {
	ctx = apperrors.WithOperationID(ctx, apperrors.OperationID(ctx))
	ctx = apperrors.WithOperation(ctx, string(op.Kind()))

	result := &Result{
		Kind:        op.Kind(),
		OperationID: apperrors.OperationID(ctx),
		Logs:        []string{},
	}
	logger := e.logger.WithContext(ctx)
	start := time.Now()

	run, err := op.prepare(&environment{contracts: e.contracts})
	if err != nil {
		appErr := apperrors.ConvertError(err)
		logger.LogOperation(string(op.Kind()), start, appErr)
		return result, appErr
	}

	s := &session{
		client: e.client,
		from:   e.from,
		result: result,
		logger: logger,
	}
	if err := run(ctx, s); err != nil {
		appErr := apperrors.ConvertError(err)
		logger.LogOperation(string(op.Kind()), start, appErr)
		return result, appErr
	}

	logger.LogOperation(string(op.Kind()), start, nil)
	return result, nil
}

// session 保存一次执行的状态
type session struct {
	client downstream.ChainClient
	from   ethgo.Address
	result *Result
	logger apperrors.Logger
}

func (s *session) logf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	s.result.Logs = append(s.result.Logs, line)
	s.logger.Infow(line)
}

// send 发送交易并等待回执。回执状态为 0 时返回 TRANSACTION_FAILED。
func (s *session) send(ctx context.Context, label string, to ethgo.Address, method *abi.Method, args ...interface{}) (*ethgo.Receipt, error) {
	data, err := contracts.Pack(method, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInternal, jsonrpc.CodeInternalError, "Failed to encode call")
	}

	prefix := ""
	if label != "" {
		prefix = label + " "
	}

	hash, err := s.client.SendTransaction(ctx, &downstream.TxArgs{From: s.from, To: &to, Data: data})
	if err != nil {
		return nil, apperrors.ConvertError(err).WithContext("method", method.Name)
	}
	s.logf("%sTransaction sent: %s", prefix, hash)

	receipt, err := s.client.WaitForReceipt(ctx, hash)
	if err != nil {
		return nil, apperrors.ConvertError(err).WithContext("hash", hash.String())
	}
	return receipt, s.report(label, prefix, hash, receipt)
}

func (s *session) report(label, prefix string, hash ethgo.Hash, receipt *ethgo.Receipt) error {
	success := receipt.Status == 1
	status := "Failure"
	if success {
		status = "Success"
	}

	s.logf("%sTransaction confirmed: %s", prefix, hash)
	s.logf("%sGas used: %d", prefix, receipt.GasUsed)
	s.logf("%sStatus: %s", prefix, status)
	s.result.Transactions = append(s.result.Transactions, TxReport{
		Label:   label,
		Hash:    hash,
		GasUsed: receipt.GasUsed,
		Success: success,
	})

	if !success {
		return apperrors.New(apperrors.ErrorTypeTransactionFailed, apperrors.CodeTransactionFailed,
			fmt.Sprintf("%sTransaction failed", prefix)).
			WithContext("hash", hash.String()).
			WithContext("gas_used", receipt.GasUsed)
	}
	return nil
}

// call 执行只读调用并返回名为 output 的输出
func (s *session) call(ctx context.Context, to ethgo.Address, method *abi.Method, output string, args ...interface{}) (interface{}, error) {
	data, err := contracts.Pack(method, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInternal, jsonrpc.CodeInternalError, "Failed to encode call")
	}

	from := s.from
	raw, err := s.client.Call(ctx, &downstream.CallMsg{From: &from, To: to, Data: data})
	if err != nil {
		return nil, apperrors.ConvertError(err).WithContext("method", method.Name)
	}

	v, err := contracts.Unpack(method, raw, output)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeContractCall, apperrors.CodeContractCall,
			fmt.Sprintf("Unexpected result from %s", method.Name))
	}
	return v, nil
}

func (s *session) callBig(ctx context.Context, to ethgo.Address, method *abi.Method, output string, args ...interface{}) (*big.Int, error) {
	v, err := s.call(ctx, to, method, output, args...)
	if err != nil {
		return nil, err
	}
	n, err := contracts.ToBig(v)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeContractCall, apperrors.CodeContractCall,
			fmt.Sprintf("Unexpected result from %s", method.Name))
	}
	return n, nil
}

func (s *session) callAddress(ctx context.Context, to ethgo.Address, method *abi.Method, output string, args ...interface{}) (ethgo.Address, error) {
	v, err := s.call(ctx, to, method, output, args...)
	if err != nil {
		return ethgo.Address{}, err
	}
	addr, err := contracts.ToAddress(v)
	if err != nil {
		return ethgo.Address{}, apperrors.Wrap(err, apperrors.ErrorTypeContractCall, apperrors.CodeContractCall,
			fmt.Sprintf("Unexpected result from %s", method.Name))
	}
	return addr, nil
}

// events 查询合约的历史事件
func (s *session) events(ctx context.Context, proxy ethgo.Address, event *abi.Event) ([]contracts.Event, error) {
	logs, err := s.client.GetLogs(ctx, &downstream.LogFilter{
		Address: proxy,
		Topics:  []ethgo.Hash{event.ID()},
	})
	if err != nil {
		return nil, apperrors.ConvertError(err)
	}

	out := make([]contracts.Event, 0, len(logs))
	for _, log := range logs {
		ev, err := contracts.ParseEvent(log)
		if err != nil {
			s.logger.Warnw("Skipping undecodable log", "tx", log.TransactionHash.String(), "error", err.Error())
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
