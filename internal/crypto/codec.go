package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMalformedBlob reports a stored blob too short or oddly sized to
	// ever have been produced by Encrypt. Indicates data corruption.
	ErrMalformedBlob = errors.New("malformed encrypted blob")

	// ErrDecryptFailed reports a padding or cipher failure: wrong key or
	// corrupted ciphertext. No partial plaintext is ever returned.
	ErrDecryptFailed = errors.New("decryption failed")
)

// Codec encrypts and decrypts payloads with AES-256-CBC and PKCS#7
// padding. The stored format is IV(16 bytes) || ciphertext. The key is
// fixed for the process lifetime and shared read-only by all goroutines.
type Codec struct {
	block cipher.Block
}

func NewCodec(key []byte) (*Codec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &Codec{block: block}, nil
}

// Encrypt returns IV || ciphertext with a fresh random IV per call, so
// identical plaintexts never produce identical blobs.
func (c *Codec) Encrypt(plaintext []byte) ([]byte, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("generating iv: %w", err)
	}
	return c.encryptWithIV(iv, plaintext), nil
}

func (c *Codec) encryptWithIV(iv, plaintext []byte) []byte {
	padded := pkcs7Pad(plaintext, aes.BlockSize)

	blob := make([]byte, aes.BlockSize+len(padded))
	copy(blob, iv)
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(blob[aes.BlockSize:], padded)
	return blob
}

// Decrypt splits IV and ciphertext and reverses Encrypt. A blob shorter
// than one block, or whose ciphertext is empty or not a block multiple, is
// malformed; a padding failure means the key is wrong or the bytes are
// corrupt.
func (c *Codec) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < aes.BlockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedBlob, len(blob))
	}

	iv := blob[:aes.BlockSize]
	ciphertext := blob[aes.BlockSize:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrMalformedBlob, len(ciphertext))
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plaintext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}

	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.New("invalid padding byte")
	}
	if !bytes.Equal(data[len(data)-padding:], bytes.Repeat([]byte{byte(padding)}, padding)) {
		return nil, errors.New("inconsistent padding")
	}
	return data[:len(data)-padding], nil
}
