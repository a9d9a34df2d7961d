package admin

import (
	"sort"
	"strings"

	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// Kind 管理操作的种类
type Kind string

const (
	KindAddToken         Kind = "addToken"
	KindModifyToken      Kind = "modifyToken"
	KindTopUp            Kind = "topUp"
	KindSetOwner         Kind = "setOwner"
	KindSetSettler       Kind = "setSettler"
	KindSetMerkle        Kind = "setMerkle"
	KindSetWithdrawLimit Kind = "setWithdrawLimit"
	KindSetVerifier      Kind = "setVerifier"
	KindAddTransaction   Kind = "addTransaction"
	KindQueryAllTokens   Kind = "queryAllTokens"
	KindQueryProxy       Kind = "queryProxy"
)

// Operation 一次管理操作。具体类型见 AddToken、TopUp 等。
type Operation interface {
	Kind() Kind
	// prepare 校验所有输入并解析地址，不访问节点
	prepare(env *environment) (step, error)
}

// Params 操作员输入的原始参数
type Params map[string]string

type constructor struct {
	keys  []string
	build func(p Params) Operation
}

var constructors = map[Kind]constructor{
	KindAddToken: {
		keys:  []string{"proxy", "token"},
		build: func(p Params) Operation { return &AddToken{Proxy: p["proxy"], Token: p["token"]} },
	},
	KindModifyToken: {
		keys: []string{"proxy", "index", "token"},
		build: func(p Params) Operation {
			return &ModifyToken{Proxy: p["proxy"], Index: p["index"], Token: p["token"]}
		},
	},
	KindTopUp: {
		keys: []string{"proxy", "tokenIndex", "pid1", "pid2", "amount"},
		build: func(p Params) Operation {
			return &TopUp{Proxy: p["proxy"], TokenIndex: p["tokenIndex"], PID1: p["pid1"], PID2: p["pid2"], Amount: p["amount"]}
		},
	},
	KindSetOwner: {
		keys:  []string{"proxy", "owner"},
		build: func(p Params) Operation { return &SetOwner{Proxy: p["proxy"], Owner: p["owner"]} },
	},
	KindSetSettler: {
		keys:  []string{"proxy", "settler"},
		build: func(p Params) Operation { return &SetSettler{Proxy: p["proxy"], Settler: p["settler"]} },
	},
	KindSetMerkle: {
		keys:  []string{"proxy", "root"},
		build: func(p Params) Operation { return &SetMerkle{Proxy: p["proxy"], Root: p["root"]} },
	},
	KindSetWithdrawLimit: {
		keys:  []string{"proxy", "limit"},
		build: func(p Params) Operation { return &SetWithdrawLimit{Proxy: p["proxy"], Limit: p["limit"]} },
	},
	KindSetVerifier: {
		keys:  []string{"proxy", "verifier"},
		build: func(p Params) Operation { return &SetVerifier{Proxy: p["proxy"], Verifier: p["verifier"]} },
	},
	KindAddTransaction: {
		keys:  []string{"proxy", "withdraw"},
		build: func(p Params) Operation { return &AddTransaction{Proxy: p["proxy"], Withdraw: p["withdraw"]} },
	},
	KindQueryAllTokens: {
		keys:  []string{"proxy"},
		build: func(p Params) Operation { return &QueryAllTokens{Proxy: p["proxy"]} },
	},
	KindQueryProxy: {
		keys:  []string{"proxy"},
		build: func(p Params) Operation { return &QueryProxy{Proxy: p["proxy"]} },
	},
}

// Kinds 返回所有操作种类，按名称排序
func Kinds() []Kind {
	out := make([]Kind, 0, len(constructors))
	for k := range constructors {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParamKeys 返回操作接受的参数名
func ParamKeys(kind Kind) []string {
	c, ok := constructors[kind]
	if !ok {
		return nil
	}
	return append([]string(nil), c.keys...)
}

// NewOperation 根据种类和参数构造操作。未知种类或参数返回 INVALID_PARAMS。
func NewOperation(kind string, params Params) (Operation, error) {
	c, ok := constructors[Kind(kind)]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrorTypeInvalidParams, jsonrpc.CodeInvalidParams,
			"unknown operation kind %q", kind).
			WithContext("kinds", kindNames())
	}

	for key := range params {
		if !contains(c.keys, key) {
			return nil, apperrors.Newf(apperrors.ErrorTypeInvalidParams, jsonrpc.CodeInvalidParams,
				"unknown parameter %q for %s", key, kind).
				WithContext("accepted", strings.Join(c.keys, ","))
		}
	}

	if params == nil {
		params = Params{}
	}
	return c.build(params), nil
}

func kindNames() string {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ",")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
