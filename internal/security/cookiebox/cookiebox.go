// Package cookiebox sella y abre valores de cookie con NaCl secretbox.
//
// El formato en el wire es base64(nonce)|base64(ciphertext), con la clave
// maestra cargada desde PORTAL_COOKIE_KEY (32 bytes en base64). Todo lo que
// el portal persiste en cookies de sesión pasa por aquí: el cliente solo ve
// un blob autenticado, nunca el contenido.
package cookiebox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// EnvKey es la variable de entorno con la clave maestra en base64.
	EnvKey = "PORTAL_COOKIE_KEY"

	keyLength   = 32 // secretbox.Seal requiere clave de 32 bytes
	nonceLength = 24 // nonce XSalsa20
	sep         = "|"
)

// Errores del paquete.
var (
	ErrKeyMissing = errors.New("cookiebox: " + EnvKey + " no seteada; genere una clave con: openssl rand -base64 32")
	ErrMalformed  = errors.New("cookiebox: formato inválido, esperado base64(nonce)|base64(ciphertext)")
	ErrOpenFailed = errors.New("cookiebox: autenticación fallida")
)

// Box sella y abre valores con una clave fija.
type Box struct {
	key [keyLength]byte
}

// New crea un Box con una clave raw de 32 bytes.
func New(key []byte) (*Box, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("cookiebox: clave de %d bytes, requiere %d", len(key), keyLength)
	}
	b := &Box{}
	copy(b.key[:], key)
	return b, nil
}

// FromEnv carga la clave maestra desde PORTAL_COOKIE_KEY (base64 std o raw).
func FromEnv() (*Box, error) {
	kb64 := strings.TrimSpace(os.Getenv(EnvKey))
	if kb64 == "" {
		return nil, ErrKeyMissing
	}
	k, err := base64.StdEncoding.DecodeString(kb64)
	if err != nil {
		k, err = base64.RawStdEncoding.DecodeString(kb64)
	}
	if err != nil {
		return nil, fmt.Errorf("cookiebox: decode %s: %w", EnvKey, err)
	}
	return New(k)
}

// Seal cifra plain y devuelve base64(nonce)|base64(ciphertext).
func (b *Box) Seal(plain []byte) (string, error) {
	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("cookiebox: nonce random: %w", err)
	}

	ct := secretbox.Seal(nil, plain, &nonce, &b.key)

	nonceB64 := base64.RawURLEncoding.EncodeToString(nonce[:])
	ctB64 := base64.RawURLEncoding.EncodeToString(ct)
	return nonceB64 + sep + ctB64, nil
}

// Open valida y descifra un valor producido por Seal.
func (b *Box) Open(sealed string) ([]byte, error) {
	parts := strings.Split(sealed, sep)
	if len(parts) != 2 {
		return nil, ErrMalformed
	}
	nonceRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil || len(nonceRaw) != nonceLength {
		return nil, ErrMalformed
	}
	ct, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrMalformed
	}

	var nonce [nonceLength]byte
	copy(nonce[:], nonceRaw)

	plain, ok := secretbox.Open(nil, ct, &nonce, &b.key)
	if !ok {
		return nil, ErrOpenFailed
	}
	return plain, nil
}
