package downstream

import (
	"context"

	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// ClientInterface 定义节点客户端接口
type ClientInterface interface {
	// ForwardRequest 转发单个JSON-RPC请求到节点
	ForwardRequest(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error)

	// ForwardBatchRequest 转发批量JSON-RPC请求到节点
	ForwardBatchRequest(ctx context.Context, requests []jsonrpc.Request) ([]jsonrpc.Response, error)

	// Call 调用节点方法并解码结果
	Call(ctx context.Context, result interface{}, method string, params ...interface{}) error

	// TestConnection 测试节点连接
	TestConnection(ctx context.Context) error

	// GetEndpoint 获取节点端点URL
	GetEndpoint() string

	// Close 关闭客户端连接
	Close() error
}

var (
	_ ClientInterface = (*Client)(nil)
	_ ChainClient     = (*EthClient)(nil)
)
