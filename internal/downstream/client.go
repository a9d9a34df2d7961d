package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/mowind/proxyadmin-go/internal/config"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// Client 区块链节点的 JSON-RPC 客户端
type Client struct {
	config     *config.RPCConfig
	httpClient *http.Client
	logger     *logrus.Logger
	nextID     uint64
}

// NewClient 创建新的节点客户端
func NewClient(cfg *config.RPCConfig, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout(),
			Transport: newTransport(cfg),
		},
		logger: logger,
	}
}

// post 发送请求体并返回响应体
func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BuildURL(), bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(err, ErrorCodeRequestFailed, "failed to create HTTP request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, TimeoutError(err)
		}
		return nil, ConnectionError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(err, ErrorCodeInvalidResponse, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, RequestError(fmt.Errorf("node returned status %d: %s",
			resp.StatusCode, string(respBody)))
	}
	return respBody, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ForwardRequest 转发JSON-RPC请求到节点
func (c *Client) ForwardRequest(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, WrapError(err, ErrorCodeInvalidResponse, "failed to marshal request")
	}

	respBody, err := c.post(ctx, reqData)
	if err != nil {
		return nil, err
	}

	var jsonResp jsonrpc.Response
	if err := json.Unmarshal(respBody, &jsonResp); err != nil {
		return nil, InvalidResponseError(err)
	}

	c.reconcileID(req.ID, &jsonResp)
	return &jsonResp, nil
}

// ForwardBatchRequest 转发批量JSON-RPC请求到节点
func (c *Client) ForwardBatchRequest(ctx context.Context, requests []jsonrpc.Request) ([]jsonrpc.Response, error) {
	reqData, err := json.Marshal(requests)
	if err != nil {
		return nil, WrapError(err, ErrorCodeInvalidResponse, "failed to marshal batch request")
	}

	respBody, err := c.post(ctx, reqData)
	if err != nil {
		return nil, err
	}

	var jsonResponses []jsonrpc.Response
	if err := json.Unmarshal(respBody, &jsonResponses); err != nil {
		// 部分节点对单元素批量请求返回单个对象
		var singleResp jsonrpc.Response
		if err := json.Unmarshal(respBody, &singleResp); err != nil {
			return nil, InvalidResponseError(err)
		}
		jsonResponses = []jsonrpc.Response{singleResp}
	}

	if len(jsonResponses) != len(requests) {
		return nil, BatchSizeMismatchError(len(requests), len(jsonResponses))
	}

	for i := range jsonResponses {
		c.reconcileID(requests[i].ID, &jsonResponses[i])
	}

	return jsonResponses, nil
}

// reconcileID 响应缺少ID时补上请求ID，不一致时记录警告
func (c *Client) reconcileID(reqID interface{}, resp *jsonrpc.Response) {
	if reqID == nil {
		return
	}
	if resp.ID == nil {
		resp.ID = reqID
		return
	}
	if !compareIDs(reqID, resp.ID) {
		c.logger.WithFields(logrus.Fields{
			"request_id":  reqID,
			"response_id": resp.ID,
		}).Warn("Node response ID mismatch")
	}
}

// compareIDs 比较两个JSON-RPC ID值是否相等
func compareIDs(id1, id2 interface{}) bool {
	if id1 == nil && id2 == nil {
		return true
	}
	if id1 == nil || id2 == nil {
		return false
	}
	return fmt.Sprintf("%v", id1) == fmt.Sprintf("%v", id2)
}

// Call 调用节点方法并将结果解码到 result。result 为 nil 时忽略结果。
func (c *Client) Call(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	req, err := jsonrpc.NewRequest(atomic.AddUint64(&c.nextID, 1), method, params)
	if err != nil {
		return WrapError(err, ErrorCodeRequestFailed, "failed to build request")
	}

	resp, err := c.ForwardRequest(ctx, req)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return RPCError(method, resp.Error)
	}
	if result == nil {
		return nil
	}
	if len(resp.Result) == 0 {
		return InvalidResponseError(fmt.Errorf("%s returned no result", method))
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return InvalidResponseError(err)
	}
	return nil
}

// TestConnection 测试节点连接
func (c *Client) TestConnection(ctx context.Context) error {
	var version string
	if err := c.Call(ctx, &version, "web3_clientVersion"); err != nil {
		return ConnectionError(fmt.Errorf("connection test failed: %w", err))
	}
	c.logger.WithField("client_version", version).Debug("Node connection ok")
	return nil
}

// GetEndpoint 获取节点URL
func (c *Client) GetEndpoint() string {
	return c.config.BuildURL()
}

// Close 关闭空闲连接
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
