package contracts

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/mowind/proxyadmin-go/internal/hexutil"
)

// ReadBytecode 读取部署字节码。文件可以是纯十六进制文本，
// 也可以是带 "bytecode" 字段的编译产物 JSON。
func ReadBytecode(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("bytecode file is not configured")
	}
	// #nosec G304 - 路径来自操作员配置
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bytecode file: %w", err)
	}
	return ParseBytecode(raw)
}

// ParseBytecode 解析字节码内容
func ParseBytecode(raw []byte) ([]byte, error) {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "{") {
		v, err := fastjson.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("invalid artifact JSON: %w", err)
		}
		if !v.Exists("bytecode") {
			return nil, fmt.Errorf("artifact has no bytecode field")
		}
		text = string(v.GetStringBytes("bytecode"))
	}

	digits := hexutil.StripHexPrefix(text)
	if err := hexutil.ValidateHexString(digits, len(digits)); err != nil {
		return nil, fmt.Errorf("invalid bytecode: %w", err)
	}
	if len(digits)%2 != 0 {
		return nil, fmt.Errorf("invalid bytecode: odd number of hex digits")
	}
	code, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode: %w", err)
	}
	return code, nil
}
