// Solana HD 钱包功能
package hdwallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/tyler-smith/go-bip39"
)

const hardened = uint32(0x80000000)

// HDWallet 根据助记词派生 Solana 密钥对
// 路径固定 BIP44: m / 44' / 501' / account' / 0'
// ed25519 只支持强化派生 (SLIP-0010)，所以每一级都带 '
type HDWallet struct {
	seed []byte
}

// New 传入助记词实例化
func New(mnemonic string) (*HDWallet, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return nil, errors.New("mnemonic cannot be empty")
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic phrase")
	}
	// 根据助记词生成种子 (空 passphrase)
	seed := bip39.NewSeed(mnemonic, "")
	return &HDWallet{seed: seed}, nil
}

// DeriveKeypair 派生第 accountIdx 个账户的密钥对
// 返回值: 地址(base58)、私钥Hex(只给归集/签名服务用，不要返回给前端)、签名用私钥
func (w *HDWallet) DeriveKeypair(accountIdx uint32) (string, string, solana.PrivateKey, error) {
	key, chainCode := masterKey(w.seed)

	path := []uint32{
		44 | hardened,         // Purpose
		501 | hardened,        // CoinType: Solana
		accountIdx | hardened, // Account
		0 | hardened,          // Change
	}
	for _, idx := range path {
		key, chainCode = deriveChild(key, chainCode, idx)
	}

	priv := solana.PrivateKey(ed25519.NewKeyFromSeed(key))
	address := priv.PublicKey().String()
	secretHex := strings.ToUpper(hex.EncodeToString(key))

	return address, secretHex, priv, nil
}

// masterKey SLIP-0010 主密钥: HMAC-SHA512("ed25519 seed", seed)
func masterKey(seed []byte) ([]byte, []byte) {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

// deriveChild SLIP-0010 强化子密钥派生
func deriveChild(key, chainCode []byte, index uint32) ([]byte, []byte) {
	data := make([]byte, 0, 1+32+4)
	data = append(data, 0x00)
	data = append(data, key...)

	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	data = append(data, idx[:]...)

	mac := hmac.New(sha512.New, chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}
