package paybull

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// The gateway authenticates requests with an encrypted bundle of the
// transaction fields. The scheme is fixed by the provider: SHA1-derived IV and
// salt from 9-digit randoms, a SHA256-derived AES-256 key and CBC encryption
// of the pipe-joined fields. Two calls with identical inputs produce different
// bundles; both decrypt against the same shared secret.

// GenerateHashKey signs a 3-D payment request.
// Field order: total|installments|currency|merchantKey|invoiceID.
func GenerateHashKey(total, installments, currency, merchantKey, invoiceID, appSecret string) (string, error) {
	data := strings.Join([]string{total, installments, currency, merchantKey, invoiceID}, "|")
	return encryptBundle(data, appSecret)
}

// GenerateRefundHashKey signs a refund request.
// Field order: amount|invoiceID|merchantKey.
func GenerateRefundHashKey(amount, invoiceID, merchantKey, appSecret string) (string, error) {
	data := strings.Join([]string{amount, invoiceID, merchantKey}, "|")
	return encryptBundle(data, appSecret)
}

func encryptBundle(data, appSecret string) (string, error) {
	iv, err := randomDigest(16)
	if err != nil {
		return "", err
	}
	salt, err := randomDigest(4)
	if err != nil {
		return "", err
	}

	key := deriveKey(appSecret, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	plaintext := pkcs7Pad([]byte(data), block.BlockSize())
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, []byte(iv)).CryptBlocks(ciphertext, plaintext)

	bundle := fmt.Sprintf("%s:%s:%s", iv, salt, base64.StdEncoding.EncodeToString(ciphertext))
	// The gateway transports the bundle in URLs; '/' must not appear.
	return strings.ReplaceAll(bundle, "/", "__"), nil
}

// DecryptBundle reverses encryptBundle given the shared secret. The gateway
// performs this on its side; here it backs verification in tests.
func DecryptBundle(bundle, appSecret string) (string, error) {
	restored := strings.ReplaceAll(bundle, "__", "/")
	parts := strings.SplitN(restored, ":", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed bundle: expected iv:salt:ciphertext")
	}
	iv, salt := parts[0], parts[1]
	if len(iv) != 16 || len(salt) != 4 {
		return "", fmt.Errorf("malformed bundle: bad iv or salt length")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("malformed bundle: ciphertext not block aligned")
	}

	block, err := aes.NewCipher(deriveKey(appSecret, salt))
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, []byte(iv)).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, block.BlockSize())
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// deriveKey hashes the secret to a password, salts it and truncates the
// SHA256 hex digest to the 32 characters used as the AES-256 key bytes.
func deriveKey(appSecret, salt string) []byte {
	passDigest := sha1.Sum([]byte(appSecret))
	pass := hex.EncodeToString(passDigest[:])

	keyDigest := sha256.Sum256([]byte(pass + salt))
	return []byte(hex.EncodeToString(keyDigest[:])[:32])
}

// randomDigest hex-hashes a random 9-digit decimal string and truncates the
// digest to n characters.
func randomDigest(n int) (string, error) {
	num, err := rand.Int(rand.Reader, big.NewInt(900000000))
	if err != nil {
		return "", fmt.Errorf("draw random: %w", err)
	}
	seed := num.Add(num, big.NewInt(100000000)).String()

	digest := sha1.Sum([]byte(seed))
	return hex.EncodeToString(digest[:])[:n], nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
