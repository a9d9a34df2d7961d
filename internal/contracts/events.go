package contracts

import (
	"fmt"
	"math/big"

	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"

	"github.com/mowind/proxyadmin-go/internal/hexutil"
)

// Proxy 合约事件
var (
	EventTopUp    = abi.MustNewEvent("event TopUp(uint256 l1token, address account, uint64 pid_1, uint64 pid_2, uint128 amount)")
	EventWithDraw = abi.MustNewEvent("event WithDraw(address l1token, address l1account, uint256 amount)")
	EventSettled  = abi.MustNewEvent("event Settled(address sender, uint256 merkle_root, uint256 new_merkle_root, uint256 rid, uint256 sideEffectCalled)")
)

// ProxyEvents queryProxy 查询的事件，按查询顺序
var ProxyEvents = []*abi.Event{EventTopUp, EventWithDraw, EventSettled}

// Event 解析后的 Proxy 事件
type Event interface {
	EventName() string
}

// TopUpEvent 充值事件。Token 是打包的 uid，TokenAddress 是从中取出的地址
type TopUpEvent struct {
	Token        *big.Int      `json:"token"`
	TokenAddress string        `json:"token_address"`
	Account      ethgo.Address `json:"account"`
	PID1         uint64        `json:"pid1"`
	PID2         uint64        `json:"pid2"`
	Amount       *big.Int      `json:"amount"`
}

func (TopUpEvent) EventName() string { return "TopUp" }

// WithDrawEvent 提现事件
type WithDrawEvent struct {
	L1Token   ethgo.Address `json:"l1token"`
	L1Account ethgo.Address `json:"l1account"`
	Amount    *big.Int      `json:"amount"`
}

func (WithDrawEvent) EventName() string { return "WithDraw" }

// SettledEvent 结算事件
type SettledEvent struct {
	Sender           ethgo.Address `json:"sender"`
	MerkleRoot       *big.Int      `json:"merkle_root"`
	NewMerkleRoot    *big.Int      `json:"new_merkle_root"`
	RID              *big.Int      `json:"rid"`
	SideEffectCalled *big.Int      `json:"side_effect_called"`
}

func (SettledEvent) EventName() string { return "Settled" }

// ParseEvent 根据 topic0 识别并解析事件
func ParseEvent(log *ethgo.Log) (Event, error) {
	if log == nil || len(log.Topics) == 0 {
		return nil, fmt.Errorf("log has no topics")
	}

	switch log.Topics[0] {
	case EventTopUp.ID():
		return parseTopUp(log)
	case EventWithDraw.ID():
		return parseWithDraw(log)
	case EventSettled.ID():
		return parseSettled(log)
	}
	return nil, fmt.Errorf("unknown event topic %s", log.Topics[0])
}

func parseTopUp(log *ethgo.Log) (*TopUpEvent, error) {
	fields, err := EventTopUp.ParseLog(log)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TopUp log: %w", err)
	}

	ev := &TopUpEvent{}
	if ev.Token, err = ToBig(fields["l1token"]); err != nil {
		return nil, err
	}
	if ev.Account, err = ToAddress(fields["account"]); err != nil {
		return nil, err
	}
	if ev.PID1, err = ToUint64(fields["pid_1"]); err != nil {
		return nil, err
	}
	if ev.PID2, err = ToUint64(fields["pid_2"]); err != nil {
		return nil, err
	}
	if ev.Amount, err = ToBig(fields["amount"]); err != nil {
		return nil, err
	}
	addr, err := hexutil.AddressFromUID(ev.Token)
	if err != nil {
		return nil, err
	}
	ev.TokenAddress = addr.String()
	return ev, nil
}

func parseWithDraw(log *ethgo.Log) (*WithDrawEvent, error) {
	fields, err := EventWithDraw.ParseLog(log)
	if err != nil {
		return nil, fmt.Errorf("failed to parse WithDraw log: %w", err)
	}

	ev := &WithDrawEvent{}
	if ev.L1Token, err = ToAddress(fields["l1token"]); err != nil {
		return nil, err
	}
	if ev.L1Account, err = ToAddress(fields["l1account"]); err != nil {
		return nil, err
	}
	if ev.Amount, err = ToBig(fields["amount"]); err != nil {
		return nil, err
	}
	return ev, nil
}

func parseSettled(log *ethgo.Log) (*SettledEvent, error) {
	fields, err := EventSettled.ParseLog(log)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Settled log: %w", err)
	}

	ev := &SettledEvent{}
	if ev.Sender, err = ToAddress(fields["sender"]); err != nil {
		return nil, err
	}
	if ev.MerkleRoot, err = ToBig(fields["merkle_root"]); err != nil {
		return nil, err
	}
	if ev.NewMerkleRoot, err = ToBig(fields["new_merkle_root"]); err != nil {
		return nil, err
	}
	if ev.RID, err = ToBig(fields["rid"]); err != nil {
		return nil, err
	}
	if ev.SideEffectCalled, err = ToBig(fields["sideEffectCalled"]); err != nil {
		return nil, err
	}
	return ev, nil
}
