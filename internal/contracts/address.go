package contracts

import (
	"github.com/umbracle/ethgo"
	"github.com/umbracle/fastrlp"
	"golang.org/x/crypto/sha3"
)

var arenaPool fastrlp.ArenaPool

// ContractAddress 计算 CREATE 部署的合约地址：keccak256(rlp([sender, nonce]))[12:]
func ContractAddress(sender ethgo.Address, nonce uint64) ethgo.Address {
	a := arenaPool.Get()
	defer arenaPool.Put(a)

	v := a.NewArray()
	v.Set(a.NewBytes(sender[:]))
	v.Set(a.NewUint(nonce))
	encoded := v.MarshalTo(nil)

	h := sha3.NewLegacyKeccak256()
	h.Write(encoded)
	sum := h.Sum(nil)

	var addr ethgo.Address
	copy(addr[:], sum[12:])
	return addr
}
