package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/umbracle/ethgo"

	"github.com/mowind/proxyadmin-go/internal/contracts"
	"github.com/mowind/proxyadmin-go/internal/downstream"
	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
	"github.com/mowind/proxyadmin-go/internal/hexutil"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// TokenInfo allTokens 中的一项
type TokenInfo struct {
	Index   int           `json:"index"`
	UID     string        `json:"uid"`
	Address ethgo.Address `json:"address"`
}

func resolveProxy(env *environment, manual string) (ethgo.Address, error) {
	return env.contracts.Resolve(contracts.KindProxy, manual)
}

// parseWord 校验并解析限定位数的十六进制整数
func parseWord(value string, digits int) (*big.Int, error) {
	n, err := hexutil.ParseUint(value, digits)
	if err != nil {
		return nil, err
	}
	return n.ToBig(), nil
}

func formatUID(uid *big.Int) string {
	return fmt.Sprintf("0x%064x", uid)
}

// listTokens 查询并记录所有代币
func (s *session) listTokens(ctx context.Context, proxy ethgo.Address) ([]TokenInfo, error) {
	raw, err := s.call(ctx, proxy, contracts.MethodAllTokens, "tokens")
	if err != nil {
		return nil, err
	}
	uids, err := contracts.ToBigSlice(raw)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeContractCall, apperrors.CodeContractCall,
			"Unexpected result from allTokens")
	}

	tokens := make([]TokenInfo, 0, len(uids))
	for i, uid := range uids {
		addr, err := hexutil.AddressFromUID(uid)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, TokenInfo{Index: i, UID: formatUID(uid), Address: addr})
	}

	if len(tokens) == 0 {
		s.logf("No tokens registered")
	} else {
		s.logf("Tokens:")
		for _, t := range tokens {
			s.logf("Token %d: uid=%s address=%s", t.Index, t.UID, t.Address)
		}
	}
	return tokens, nil
}

// AddToken 注册新代币，Token 是打包的 uid（最多64位十六进制）
type AddToken struct {
	Proxy string `json:"proxy"`
	Token string `json:"token"`
}

func (*AddToken) Kind() Kind { return KindAddToken }

func (o *AddToken) prepare(env *environment) (step, error) {
	proxy, err := resolveProxy(env, o.Proxy)
	if err != nil {
		return nil, err
	}
	uid, err := parseWord(o.Token, hexutil.Uint256Digits)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, s *session) error {
		s.logf("Valid Proxy address: %s", proxy)
		if _, err := s.send(ctx, "", proxy, contracts.MethodAddToken, uid); err != nil {
			return err
		}
		tokens, err := s.listTokens(ctx, proxy)
		if err != nil {
			return err
		}
		s.result.Data = tokens
		s.logf("Token added successfully!")
		return nil
	}, nil
}

// ModifyToken 用本地代币替换 Index 位置的代币
type ModifyToken struct {
	Proxy string `json:"proxy"`
	Index string `json:"index"`
	Token string `json:"token"`
}

func (*ModifyToken) Kind() Kind { return KindModifyToken }

// parseIndex 解析十进制 uint32 下标
func parseIndex(value string) (uint32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, &hexutil.ValidationError{Value: value, Rule: hexutil.RuleIndexRange, MaxLength: hexutil.Uint32Digits}
	}
	if err := hexutil.CheckIndex(n); err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func (o *ModifyToken) prepare(env *environment) (step, error) {
	proxy, err := resolveProxy(env, o.Proxy)
	if err != nil {
		return nil, err
	}
	index, err := parseIndex(o.Index)
	if err != nil {
		return nil, err
	}
	token, err := hexutil.NormalizeAddress(o.Token)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, s *session) error {
		s.logf("Valid Proxy address: %s", proxy)
		s.logf("Valid token address: %s", token)

		l1token, err := s.callBig(ctx, proxy, contracts.MethodL1Address, "l1token", token)
		if err != nil {
			return err
		}
		s.logf("tokenaddr: %s, l1tokenaddr(encoded): %s", token, l1token)

		local, err := s.call(ctx, proxy, contracts.MethodIsLocal, "local", l1token)
		if err != nil {
			return err
		}
		if isLocal, _ := local.(bool); !isLocal {
			return apperrors.New(apperrors.ErrorTypeContractCall, apperrors.CodeContractCall,
				"token is not a local erc token").
				WithContext("token", token.String())
		}

		if _, err := s.send(ctx, "", proxy, contracts.MethodModifyToken, index, l1token); err != nil {
			return err
		}
		tokens, err := s.listTokens(ctx, proxy)
		if err != nil {
			return err
		}
		s.result.Data = tokens
		s.logf("Token modified successfully!")
		return nil
	}, nil
}

// TopUp 授权并向 Proxy 充值。所有数值均为十六进制。
type TopUp struct {
	Proxy      string `json:"proxy"`
	TokenIndex string `json:"tokenIndex"`
	PID1       string `json:"pid1"`
	PID2       string `json:"pid2"`
	Amount     string `json:"amount"`
}

func (*TopUp) Kind() Kind { return KindTopUp }

// TopUpReport topUp 的输出数据
type TopUpReport struct {
	Token         ethgo.Address     `json:"token"`
	BalanceBefore *big.Int          `json:"balance_before"`
	BalanceAfter  *big.Int          `json:"balance_after"`
	Events        []contracts.Event `json:"events"`
}

func (o *TopUp) prepare(env *environment) (step, error) {
	proxy, err := resolveProxy(env, o.Proxy)
	if err != nil {
		return nil, err
	}
	tidx, err := parseWord(o.TokenIndex, hexutil.Uint128Digits)
	if err != nil {
		return nil, err
	}
	amount, err := parseWord(o.Amount, hexutil.Uint128Digits)
	if err != nil {
		return nil, err
	}
	pid1, err := parseWord(o.PID1, hexutil.Uint64Digits)
	if err != nil {
		return nil, err
	}
	pid2, err := parseWord(o.PID2, hexutil.Uint64Digits)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, s *session) error {
		s.logf("Valid Proxy address: %s", proxy)

		raw, err := s.call(ctx, proxy, contracts.MethodAllTokens, "tokens")
		if err != nil {
			return err
		}
		uids, err := contracts.ToBigSlice(raw)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrorTypeContractCall, apperrors.CodeContractCall,
				"Unexpected result from allTokens")
		}
		if !tidx.IsInt64() || tidx.Int64() >= int64(len(uids)) {
			return apperrors.Newf(apperrors.ErrorTypeInvalidParams, jsonrpc.CodeInvalidParams,
				"token index %s out of range (%d tokens registered)", tidx, len(uids))
		}
		token, err := hexutil.AddressFromUID(uids[tidx.Int64()])
		if err != nil {
			return err
		}
		s.logf("Token address: %s", token)

		report := &TopUpReport{Token: token}
		if report.BalanceBefore, err = s.callBig(ctx, token, contracts.MethodBalanceOf, "balance", proxy); err != nil {
			return err
		}
		s.logf("The balance of the Proxy contract before topup is: %s", report.BalanceBefore)

		if _, err := s.send(ctx, "Approve", token, contracts.MethodApprove, proxy, amount); err != nil {
			return err
		}
		if _, err := s.send(ctx, "Topup", proxy, contracts.MethodTopup, tidx, pid1.Uint64(), pid2.Uint64(), amount); err != nil {
			return err
		}

		if report.Events, err = s.events(ctx, proxy, contracts.EventTopUp); err != nil {
			return err
		}
		if len(report.Events) == 0 {
			s.logf("No Historical TopUp Events available.")
		} else {
			s.logf("Historical TopUp Events:")
			for _, ev := range report.Events {
				line, _ := json.Marshal(ev)
				s.logf("%s", line)
			}
		}

		if report.BalanceAfter, err = s.callBig(ctx, token, contracts.MethodBalanceOf, "balance", proxy); err != nil {
			return err
		}
		s.logf("The balance of the Proxy contract after topup is: %s", report.BalanceAfter)
		s.result.Data = report
		s.logf("Topup executed successfully!")
		return nil
	}, nil
}

// SetOwner 更换 Proxy 的 owner
type SetOwner struct {
	Proxy string `json:"proxy"`
	Owner string `json:"owner"`
}

func (*SetOwner) Kind() Kind { return KindSetOwner }

func (o *SetOwner) prepare(env *environment) (step, error) {
	proxy, err := resolveProxy(env, o.Proxy)
	if err != nil {
		return nil, err
	}
	owner, err := hexutil.NormalizeAddress(o.Owner)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, s *session) error {
		s.logf("Valid Proxy address: %s", proxy)
		s.logf("Valid Owner address: %s", owner)
		if _, err := s.send(ctx, "", proxy, contracts.MethodSetOwner, owner); err != nil {
			return err
		}
		current, err := s.callAddress(ctx, proxy, contracts.MethodOwner, "owner")
		if err != nil {
			return err
		}
		s.logf("Current Owner address: %s", current)
		s.result.Data = map[string]ethgo.Address{"owner": current}
		s.logf("Owner changed successfully!")
		return nil
	}, nil
}

// SetSettler 设置结算账户
type SetSettler struct {
	Proxy   string `json:"proxy"`
	Settler string `json:"settler"`
}

func (*SetSettler) Kind() Kind { return KindSetSettler }

func (o *SetSettler) prepare(env *environment) (step, error) {
	proxy, err := resolveProxy(env, o.Proxy)
	if err != nil {
		return nil, err
	}
	settler, err := hexutil.NormalizeAddress(o.Settler)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, s *session) error {
		s.logf("Valid Proxy address: %s", proxy)
		s.logf("Valid Settler address: %s", settler)
		if _, err := s.send(ctx, "", proxy, contracts.MethodSetSettler, settler); err != nil {
			return err
		}
		s.logf("Settler set successfully!")
		return nil
	}, nil
}

// SetVerifier 设置验证合约，Verifier 为空时使用已部署的 Verifier
type SetVerifier struct {
	Proxy    string `json:"proxy"`
	Verifier string `json:"verifier"`
}

func (*SetVerifier) Kind() Kind { return KindSetVerifier }

func (o *SetVerifier) prepare(env *environment) (step, error) {
	proxy, err := resolveProxy(env, o.Proxy)
	if err != nil {
		return nil, err
	}
	verifier, err := env.contracts.Resolve(contracts.KindVerifier, o.Verifier)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, s *session) error {
		s.logf("Valid Proxy address: %s", proxy)
		s.logf("Valid Verifier address: %s", verifier)
		if _, err := s.send(ctx, "", proxy, contracts.MethodSetVerifier, verifier); err != nil {
			return err
		}
		current, err := s.callAddress(ctx, proxy, contracts.MethodVerifier, "verifier")
		if err != nil {
			return err
		}
		s.logf("Current Verifier address: %s", current)
		s.result.Data = map[string]ethgo.Address{"verifier": current}
		s.logf("Verifier set successfully!")
		return nil
	}, nil
}

// SetMerkle 设置 merkle root（最多64位十六进制）
type SetMerkle struct {
	Proxy string `json:"proxy"`
	Root  string `json:"root"`
}

func (*SetMerkle) Kind() Kind { return KindSetMerkle }

func (o *SetMerkle) prepare(env *environment) (step, error) {
	proxy, err := resolveProxy(env, o.Proxy)
	if err != nil {
		return nil, err
	}
	root, err := parseWord(o.Root, hexutil.Uint256Digits)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, s *session) error {
		s.logf("Valid Proxy address: %s", proxy)
		if _, err := s.send(ctx, "", proxy, contracts.MethodSetMerkle, root); err != nil {
			return err
		}
		s.logf("Merkle root set successfully!")
		return nil
	}, nil
}

// SetWithdrawLimit 设置提现上限（最多64位十六进制）
type SetWithdrawLimit struct {
	Proxy string `json:"proxy"`
	Limit string `json:"limit"`
}

func (*SetWithdrawLimit) Kind() Kind { return KindSetWithdrawLimit }

func (o *SetWithdrawLimit) prepare(env *environment) (step, error) {
	proxy, err := resolveProxy(env, o.Proxy)
	if err != nil {
		return nil, err
	}
	limit, err := parseWord(o.Limit, hexutil.Uint256Digits)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, s *session) error {
		s.logf("Valid Proxy address: %s", proxy)
		if _, err := s.send(ctx, "", proxy, contracts.MethodSetWithdrawLimit, limit); err != nil {
			return err
		}
		s.logf("Withdraw limit set successfully!")
		return nil
	}, nil
}

// AddTransaction 把 Withdraw 合约注册为 Proxy 的交易处理器
type AddTransaction struct {
	Proxy    string `json:"proxy"`
	Withdraw string `json:"withdraw"`
}

func (*AddTransaction) Kind() Kind { return KindAddTransaction }

func (o *AddTransaction) prepare(env *environment) (step, error) {
	proxy, err := resolveProxy(env, o.Proxy)
	if err != nil {
		return nil, err
	}
	withdraw, err := env.contracts.Resolve(contracts.KindWithdraw, o.Withdraw)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, s *session) error {
		s.logf("Valid Proxy address: %s", proxy)
		s.logf("Valid Withdraw address: %s", withdraw)
		if _, err := s.send(ctx, "", proxy, contracts.MethodAddTransaction, withdraw, true); err != nil {
			return err
		}
		current, err := s.callAddress(ctx, proxy, contracts.MethodGetTransaction, "txaddr", big.NewInt(0))
		if err != nil {
			return err
		}
		s.logf("Current transaction address: %s", current)
		s.result.Data = map[string]ethgo.Address{"transaction": current}
		s.logf("Transaction added successfully!")
		return nil
	}, nil
}

// QueryAllTokens 列出所有代币及其地址
type QueryAllTokens struct {
	Proxy string `json:"proxy"`
}

func (*QueryAllTokens) Kind() Kind { return KindQueryAllTokens }

func (o *QueryAllTokens) prepare(env *environment) (step, error) {
	proxy, err := resolveProxy(env, o.Proxy)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, s *session) error {
		s.logf("Valid Proxy address: %s", proxy)
		tokens, err := s.listTokens(ctx, proxy)
		if err != nil {
			return err
		}
		s.result.Data = tokens
		return nil
	}, nil
}

// QueryProxy 查询 Proxy 信息和历史事件
type QueryProxy struct {
	Proxy string `json:"proxy"`
}

func (*QueryProxy) Kind() Kind { return KindQueryProxy }

// ProxyReport queryProxy 的输出数据
type ProxyReport struct {
	Info   *contracts.ProxyInfo `json:"info"`
	Events []contracts.Event    `json:"events"`
}

func (o *QueryProxy) prepare(env *environment) (step, error) {
	proxy, err := resolveProxy(env, o.Proxy)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, s *session) error {
		s.logf("Valid Proxy address: %s", proxy)

		data, err := contracts.Pack(contracts.MethodGetProxyInfo)
		if err != nil {
			return err
		}
		from := s.from
		raw, err := s.client.Call(ctx, &downstream.CallMsg{From: &from, To: proxy, Data: data})
		var info *contracts.ProxyInfo
		if err == nil {
			info, err = contracts.DecodeProxyInfo(raw)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrorTypeContractCall, apperrors.CodeContractCall,
				"Error querying existing Proxy: The address may not belong to a Proxy contract").
				WithContext("proxy", proxy.String())
		}

		s.logf("Chain ID: %d", info.ChainID)
		s.logf("Amount Token: %d", info.AmountToken)
		s.logf("Amount Pool: %d", info.AmountPool)
		s.logf("Owner: %s", info.Owner)
		s.logf("Merkle Root: %s", info.MerkleRoot)
		s.logf("RID: %s", info.RID)
		s.logf("Verifier: %s", info.Verifier)

		report := &ProxyReport{Info: info, Events: []contracts.Event{}}
		for _, event := range contracts.ProxyEvents {
			events, err := s.events(ctx, proxy, event)
			if err != nil {
				return err
			}
			report.Events = append(report.Events, events...)
		}

		if len(report.Events) == 0 {
			s.logf("No events found.")
		} else {
			s.logf("Historical Events:")
			for _, ev := range report.Events {
				line, _ := json.Marshal(ev)
				s.logf("%s %s", ev.EventName(), line)
			}
		}
		s.result.Data = report
		return nil
	}, nil
}
