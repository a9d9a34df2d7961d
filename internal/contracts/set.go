package contracts

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/umbracle/ethgo"

	"github.com/mowind/proxyadmin-go/internal/hexutil"
)

// Kind 合约种类
type Kind string

const (
	KindProxy    Kind = "Proxy"
	KindWithdraw Kind = "Withdraw"
	KindVerifier Kind = "Verifier"
)

// Kinds 按部署顺序排列
var Kinds = []Kind{KindProxy, KindWithdraw, KindVerifier}

// ParseKind 忽略大小写解析合约种类
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown contract kind %q", s)
}

// MissingAddressError 既没有手动输入也没有已部署的地址
type MissingAddressError struct {
	Kind Kind
}

func (e *MissingAddressError) Error() string {
	return fmt.Sprintf("%s address is missing", e.Kind)
}

// DeployedContractSet 当前会话已知的合约地址，未部署的为 nil
type DeployedContractSet struct {
	Proxy    *ethgo.Address `json:"proxy,omitempty"`
	Withdraw *ethgo.Address `json:"withdraw,omitempty"`
	Verifier *ethgo.Address `json:"verifier,omitempty"`
}

// Get 返回指定合约的地址
func (s *DeployedContractSet) Get(kind Kind) *ethgo.Address {
	if s == nil {
		return nil
	}
	switch kind {
	case KindProxy:
		return s.Proxy
	case KindWithdraw:
		return s.Withdraw
	case KindVerifier:
		return s.Verifier
	}
	return nil
}

// Set 记录指定合约的地址
func (s *DeployedContractSet) Set(kind Kind, addr ethgo.Address) {
	switch kind {
	case KindProxy:
		s.Proxy = &addr
	case KindWithdraw:
		s.Withdraw = &addr
	case KindVerifier:
		s.Verifier = &addr
	}
}

// Has 检查合约是否已部署
func (s *DeployedContractSet) Has(kind Kind) bool {
	return s.Get(kind) != nil
}

// Clone 返回副本
func (s *DeployedContractSet) Clone() *DeployedContractSet {
	out := &DeployedContractSet{}
	for _, k := range Kinds {
		if addr := s.Get(k); addr != nil {
			out.Set(k, *addr)
		}
	}
	return out
}

// Resolve 选择操作使用的地址：手动输入优先，其次是已部署的地址。
// 手动输入必须是合法的40位十六进制地址。
func (s *DeployedContractSet) Resolve(kind Kind, manual string) (ethgo.Address, error) {
	if manual != "" {
		return hexutil.NormalizeAddress(manual)
	}
	if addr := s.Get(kind); addr != nil {
		return *addr, nil
	}
	return ethgo.Address{}, &MissingAddressError{Kind: kind}
}

func stateKey(kind Kind) string {
	return "contracts." + strings.ToLower(string(kind))
}

// SaveState 将合约集合写入状态文件，格式由扩展名决定（yaml/json）
func SaveState(path string, set *DeployedContractSet) error {
	v := viper.New()
	for _, k := range Kinds {
		if addr := set.Get(k); addr != nil {
			v.Set(stateKey(k), addr.String())
		}
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", path, err)
	}
	return nil
}

// LoadState 读取状态文件
func LoadState(path string) (*DeployedContractSet, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}

	set := &DeployedContractSet{}
	for _, k := range Kinds {
		raw := v.GetString(stateKey(k))
		if raw == "" {
			continue
		}
		addr, err := hexutil.NormalizeAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("state file %s: %s: %w", path, k, err)
		}
		set.Set(k, addr)
	}
	return set, nil
}
