package contracts

import (
	"fmt"
	"math/big"

	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"
)

// mustNewMethod 解析方法签名，签名写错直接 panic
func mustNewMethod(sig string) *abi.Method {
	m, err := abi.NewMethod(sig)
	if err != nil {
		panic(fmt.Sprintf("contracts: invalid method signature %q: %v", sig, err))
	}
	return m
}

// Proxy 合约方法
var (
	MethodAddToken         = mustNewMethod("addToken(uint256 token)")
	MethodModifyToken      = mustNewMethod("modifyToken(uint32 index, uint256 token)")
	MethodTopup            = mustNewMethod("topup(uint128 tidx, uint64 pid_1, uint64 pid_2, uint128 amount)")
	MethodSetOwner         = mustNewMethod("setOwner(address new_owner)")
	MethodSetSettler       = mustNewMethod("setSettler(address settler)")
	MethodSetMerkle        = mustNewMethod("setMerkle(uint256 root)")
	MethodSetWithdrawLimit = mustNewMethod("setWithdrawLimit(uint256 limit)")
	MethodSetVerifier      = mustNewMethod("setVerifier(address verifier)")
	MethodAddTransaction   = mustNewMethod("addTransaction(address txaddr, bool store)")

	MethodAllTokens      = mustNewMethod("allTokens() returns (uint256[] tokens)")
	MethodL1Address      = mustNewMethod("_l1_address(address token) returns (uint256 l1token)")
	MethodIsLocal        = mustNewMethod("_is_local(uint256 l1token) returns (bool local)")
	MethodVerifier       = mustNewMethod("verifier() returns (address verifier)")
	MethodOwner          = mustNewMethod("owner() returns (address owner)")
	MethodGetTransaction = mustNewMethod("_get_transaction(uint256 index) returns (address txaddr)")
	MethodGetProxyInfo   = mustNewMethod("getProxyInfo() returns (tuple(uint32 chain_id, uint32 amount_token, uint32 amount_pool, address owner, uint256 merkle_root, uint256 rid, uint256 verifier) info)")
)

// ERC-20 方法
var (
	MethodApprove   = mustNewMethod("approve(address spender, uint256 amount) returns (bool ok)")
	MethodBalanceOf = mustNewMethod("balanceOf(address account) returns (uint256 balance)")
)

// ProxyConstructor Proxy 合约构造参数 (chain_id, merkle_root)
var ProxyConstructor = abi.MustNewType("tuple(uint32 chain_id, uint256 root)")

// Pack 编码调用数据：4字节选择器加参数
func Pack(m *abi.Method, args ...interface{}) ([]byte, error) {
	if len(args) == 0 {
		return m.ID(), nil
	}
	data, err := m.Encode(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", m.Name, err)
	}
	return data, nil
}

// Unpack 解码返回值中名为 name 的输出
func Unpack(m *abi.Method, data []byte, name string) (interface{}, error) {
	out, err := m.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s output: %w", m.Name, err)
	}
	v, ok := out[name]
	if !ok {
		return nil, fmt.Errorf("%s output has no field %q", m.Name, name)
	}
	return v, nil
}

// DeployData 拼接部署交易数据
func DeployData(bytecode []byte, chainID uint64, root *big.Int) ([]byte, error) {
	args, err := abi.Encode([]interface{}{chainID, root}, ProxyConstructor)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constructor arguments: %w", err)
	}
	out := make([]byte, 0, len(bytecode)+len(args))
	out = append(out, bytecode...)
	return append(out, args...), nil
}

// ProxyInfo getProxyInfo 的返回值
type ProxyInfo struct {
	ChainID     uint64        `json:"chain_id"`
	AmountToken uint64        `json:"amount_token"`
	AmountPool  uint64        `json:"amount_pool"`
	Owner       ethgo.Address `json:"owner"`
	MerkleRoot  *big.Int      `json:"merkle_root"`
	RID         *big.Int      `json:"rid"`
	Verifier    *big.Int      `json:"verifier"`
}

// DecodeProxyInfo 解码 getProxyInfo 返回值
func DecodeProxyInfo(data []byte) (*ProxyInfo, error) {
	raw, err := Unpack(MethodGetProxyInfo, data, "info")
	if err != nil {
		return nil, err
	}
	fields, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected proxy info type %T", raw)
	}

	info := &ProxyInfo{}
	if info.ChainID, err = ToUint64(fields["chain_id"]); err != nil {
		return nil, fmt.Errorf("chain_id: %w", err)
	}
	if info.AmountToken, err = ToUint64(fields["amount_token"]); err != nil {
		return nil, fmt.Errorf("amount_token: %w", err)
	}
	if info.AmountPool, err = ToUint64(fields["amount_pool"]); err != nil {
		return nil, fmt.Errorf("amount_pool: %w", err)
	}
	if info.Owner, err = ToAddress(fields["owner"]); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if info.MerkleRoot, err = ToBig(fields["merkle_root"]); err != nil {
		return nil, fmt.Errorf("merkle_root: %w", err)
	}
	if info.RID, err = ToBig(fields["rid"]); err != nil {
		return nil, fmt.Errorf("rid: %w", err)
	}
	if info.Verifier, err = ToBig(fields["verifier"]); err != nil {
		return nil, fmt.Errorf("verifier: %w", err)
	}
	return info, nil
}

// ToBig 将解码出的整数统一转换为 *big.Int
func ToBig(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	}
	return nil, fmt.Errorf("expected integer, got %T", v)
}

// ToUint64 将解码出的整数转换为 uint64
func ToUint64(v interface{}) (uint64, error) {
	n, err := ToBig(v)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("value %s overflows uint64", n)
	}
	return n.Uint64(), nil
}

// ToAddress 转换解码出的地址
func ToAddress(v interface{}) (ethgo.Address, error) {
	if addr, ok := v.(ethgo.Address); ok {
		return addr, nil
	}
	return ethgo.Address{}, fmt.Errorf("expected address, got %T", v)
}

// ToBigSlice 转换解码出的 uint256[]
func ToBigSlice(v interface{}) ([]*big.Int, error) {
	switch s := v.(type) {
	case []*big.Int:
		return s, nil
	case []interface{}:
		out := make([]*big.Int, 0, len(s))
		for i, item := range s {
			n, err := ToBig(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected integer list, got %T", v)
}
