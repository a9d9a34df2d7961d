package admin

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/umbracle/ethgo"

	"github.com/mowind/proxyadmin-go/internal/config"
	"github.com/mowind/proxyadmin-go/internal/contracts"
	"github.com/mowind/proxyadmin-go/internal/downstream"
	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
	"github.com/mowind/proxyadmin-go/internal/hexutil"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// DefaultInitialRoot Proxy 构造时使用的默认 merkle root
const DefaultInitialRoot = "a69db23e23538c3809eb86b814913f2bf5ba4be92b2abbd96898db597dc7a109"

// KindDeploy 部署不是 Operation，只用于 Result.Kind
const KindDeploy Kind = "deploy"

// DeployStatus 单个合约的部署状态
type DeployStatus string

const (
	StatusDeployed        DeployStatus = "Deployed"
	StatusAlreadyDeployed DeployStatus = "Already Deployed"
	StatusFailed          DeployStatus = "Failed"
	StatusPending         DeployStatus = "Pending"
)

// ContractStatus 部署进度中的一项
type ContractStatus struct {
	Kind    contracts.Kind `json:"kind"`
	Status  DeployStatus   `json:"status"`
	Address *ethgo.Address `json:"address,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// DeployReport 部署结果，Contracts 按部署顺序排列
type DeployReport struct {
	*Result
	Contracts []ContractStatus               `json:"contracts"`
	Set       *contracts.DeployedContractSet `json:"set"`
}

// DeployRequest 部署输入。只需要提供尚未部署的合约的字节码。
type DeployRequest struct {
	Bytecode    map[contracts.Kind][]byte
	InitialRoot string
}

// LoadBytecode 读取 set 中尚未部署的合约的字节码文件
func LoadBytecode(cfg *config.DeployConfig, set *contracts.DeployedContractSet) (map[contracts.Kind][]byte, error) {
	out := make(map[contracts.Kind][]byte)
	for _, kind := range contracts.Kinds {
		if set.Has(kind) {
			continue
		}
		path := cfg.BytecodePath(kind)
		if path == "" {
			return nil, apperrors.Newf(apperrors.ErrorTypeConfig, jsonrpc.CodeInvalidParams,
				"%s bytecode file is not configured", kind).
				WithContext("contract", string(kind))
		}
		code, err := contracts.ReadBytecode(path)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrorTypeConfig, jsonrpc.CodeInvalidParams,
				"failed to load %s bytecode", kind).
				WithContext("path", path)
		}
		out[kind] = code
	}
	return out, nil
}

// Deployer 依次部署 Proxy、Withdraw、Verifier
type Deployer struct {
	client downstream.ChainClient
	from   ethgo.Address
	logger apperrors.Logger
}

// NewDeployer 创建部署器
func NewDeployer(client downstream.ChainClient, from ethgo.Address, logger apperrors.Logger) *Deployer {
	if logger == nil {
		logger = apperrors.NewNopLogger()
	}
	return &Deployer{client: client, from: from, logger: logger}
}

// Deploy 部署 set 中缺少的合约，返回更新后的集合。set 本身不会被修改。
// 遇到第一个失败即停止，之后的合约保持 Pending。
func (d *Deployer) Deploy(ctx context.Context, set *contracts.DeployedContractSet, req *DeployRequest) (*DeployReport, error) {
	ctx = apperrors.WithOperationID(ctx, apperrors.OperationID(ctx))
	ctx = apperrors.WithOperation(ctx, string(KindDeploy))
	logger := d.logger.WithContext(ctx)
	start := time.Now()

	report := &DeployReport{
		Result: &Result{Kind: KindDeploy, OperationID: apperrors.OperationID(ctx), Logs: []string{}},
		Set:    set.Clone(),
	}

	root, err := d.validate(report.Set, req)
	if err != nil {
		appErr := apperrors.ConvertError(err)
		logger.LogOperation(string(KindDeploy), start, appErr)
		return report, appErr
	}

	s := &session{client: d.client, from: d.from, result: report.Result, logger: logger}
	err = d.run(ctx, s, report, req, root)
	if err != nil {
		appErr := apperrors.ConvertError(err)
		logger.LogOperation(string(KindDeploy), start, appErr)
		return report, appErr
	}
	logger.LogOperation(string(KindDeploy), start, nil)
	return report, nil
}

func (d *Deployer) validate(set *contracts.DeployedContractSet, req *DeployRequest) (*big.Int, error) {
	missing := 0
	for _, kind := range contracts.Kinds {
		if set.Has(kind) {
			continue
		}
		missing++
		if req == nil || len(req.Bytecode[kind]) == 0 {
			return nil, apperrors.Newf(apperrors.ErrorTypeConfig, jsonrpc.CodeInvalidParams,
				"%s bytecode is missing", kind).
				WithContext("contract", string(kind))
		}
	}
	if missing == 0 {
		return nil, apperrors.New(apperrors.ErrorTypeDeployment, apperrors.CodeDeployment,
			"All contracts are already deployed")
	}

	rootHex := DefaultInitialRoot
	if req.InitialRoot != "" {
		rootHex = req.InitialRoot
	}
	root, err := hexutil.ParseUint(rootHex, hexutil.Uint256Digits)
	if err != nil {
		return nil, err
	}
	return root.ToBig(), nil
}

func (d *Deployer) run(ctx context.Context, s *session, report *DeployReport, req *DeployRequest, root *big.Int) error {
	for _, kind := range contracts.Kinds {
		status := ContractStatus{Kind: kind, Status: StatusPending}
		if addr := report.Set.Get(kind); addr != nil {
			status.Status = StatusAlreadyDeployed
			status.Address = addr
		}
		report.Contracts = append(report.Contracts, status)
	}

	for i := range report.Contracts {
		status := &report.Contracts[i]
		if status.Status == StatusAlreadyDeployed {
			s.logf("%s already deployed, skipping.", status.Kind)
			continue
		}

		addr, err := d.deployOne(ctx, s, status.Kind, req.Bytecode[status.Kind], root)
		if err != nil {
			status.Status = StatusFailed
			status.Error = err.Error()
			s.logf("Failed to deploy %s: %v", status.Kind, err)
			d.progress(s, report)
			return apperrors.Wrap(err, apperrors.ErrorTypeDeployment, apperrors.CodeDeployment,
				"Some contracts failed to deploy. Check the progress and retry.").
				WithContext("contract", string(status.Kind))
		}

		status.Status = StatusDeployed
		status.Address = &addr
		report.Set.Set(status.Kind, addr)
		s.logf("%s deployed successfully at %s", status.Kind, addr)
	}

	d.progress(s, report)
	s.logf("All contracts deployed successfully!")
	return nil
}

func (d *Deployer) deployOne(ctx context.Context, s *session, kind contracts.Kind, code []byte, root *big.Int) (ethgo.Address, error) {
	s.logf("Starting deployment of %s...", kind)

	data := code
	if kind == contracts.KindProxy {
		chainID, err := d.client.ChainID(ctx)
		if err != nil {
			return ethgo.Address{}, err
		}
		s.logf("Chain ID: %d", chainID)
		if data, err = contracts.DeployData(code, chainID, root); err != nil {
			return ethgo.Address{}, err
		}
	}

	nonce, err := d.client.TransactionCount(ctx, d.from)
	if err != nil {
		return ethgo.Address{}, err
	}

	hash, err := d.client.SendTransaction(ctx, &downstream.TxArgs{From: d.from, Data: data})
	if err != nil {
		return ethgo.Address{}, err
	}
	s.logf("Transaction sent for %s: %s", kind, hash)

	receipt, err := d.client.WaitForReceipt(ctx, hash)
	if err != nil {
		return ethgo.Address{}, err
	}
	if err := s.report(string(kind), string(kind)+" ", hash, receipt); err != nil {
		return ethgo.Address{}, err
	}
	// 以回执为准，节点没有返回时才按发送前的 nonce 推算
	if receipt.ContractAddress != ethgo.ZeroAddress {
		return receipt.ContractAddress, nil
	}
	return contracts.ContractAddress(d.from, nonce), nil
}

func (d *Deployer) progress(s *session, report *DeployReport) {
	s.logf("Deployment progress:")
	for _, c := range report.Contracts {
		line := fmt.Sprintf("%s: %s", c.Kind, c.Status)
		if c.Address != nil {
			line += " " + c.Address.String()
		}
		s.logf("%s", line)
	}
}
