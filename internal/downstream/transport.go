package downstream

import (
	"net/http"
	"time"

	"github.com/mowind/proxyadmin-go/internal/config"
)

const (
	// 只连接一个节点，空闲连接数不需要太大
	maxIdleConns    = 16
	idleConnTimeout = 90 * time.Second
)

// newTransport 为单节点客户端创建连接池
//
// 响应头超时跟随 rpc.timeout-seconds，receipt 轮询复用同一批连接。
func newTransport(cfg *config.RPCConfig) *http.Transport {
	headerTimeout := cfg.Timeout()
	if headerTimeout <= 0 {
		headerTimeout = 10 * time.Second
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdleConns,
		IdleConnTimeout:       idleConnTimeout,
		ResponseHeaderTimeout: headerTimeout,
	}
}
