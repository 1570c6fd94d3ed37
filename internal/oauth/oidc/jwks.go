package oidc

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	jwksTTL = 1 * time.Hour
	// jwksMinRefresh evita martillar el endpoint ante kids basura.
	jwksMinRefresh = 30 * time.Second
)

type jwk struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}

type jwksDoc struct {
	Keys []jwk `json:"keys"`
}

// keyCache mantiene las claves públicas del JWKS indexadas por kid,
// con TTL, revalidación por ETag y dedupe de fetches concurrentes.
type keyCache struct {
	uri  string
	http *http.Client

	store *gocache.Cache // kid -> *rsa.PublicKey
	group singleflight.Group

	mu         sync.Mutex
	etag       string
	lastFetch  time.Time
	lastForced time.Time
}

func newKeyCache(uri string, hc *http.Client) *keyCache {
	return &keyCache{
		uri:   uri,
		http:  hc,
		store: gocache.New(jwksTTL, 10*time.Minute),
	}
}

func (k *keyCache) rsaKeyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, errKidNotFound
	}
	if v, ok := k.store.Get(kid); ok {
		return v.(*rsa.PublicKey), nil
	}

	if err := k.refresh(ctx, false); err != nil {
		return nil, err
	}
	if v, ok := k.store.Get(kid); ok {
		return v.(*rsa.PublicKey), nil
	}

	// kid desconocido: un refresh forzado por si el IdP acaba de rotar
	// claves, y nada más. El intervalo mínimo acota a un fetch extra
	// por ventana ante tokens con kid inventado.
	if err := k.refresh(ctx, true); err != nil {
		return nil, err
	}
	if v, ok := k.store.Get(kid); ok {
		return v.(*rsa.PublicKey), nil
	}
	return nil, errKidNotFound
}

func (k *keyCache) invalidate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.store.Flush()
	k.etag = ""
	k.lastFetch = time.Time{}
	k.lastForced = time.Time{}
}

// refresh descarga el JWKS. Los llamados concurrentes colapsan en un
// único fetch vía singleflight.
func (k *keyCache) refresh(ctx context.Context, forced bool) error {
	k.mu.Lock()
	if forced {
		if time.Since(k.lastForced) < jwksMinRefresh {
			k.mu.Unlock()
			return nil
		}
		k.lastForced = time.Now()
	} else if time.Since(k.lastFetch) < jwksMinRefresh {
		k.mu.Unlock()
		return nil
	}
	k.mu.Unlock()

	_, err, _ := k.group.Do("jwks", func() (any, error) {
		return nil, k.fetch(ctx)
	})
	return err
}

func (k *keyCache) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", k.uri, nil)
	if err != nil {
		return err
	}
	k.mu.Lock()
	if k.etag != "" {
		req.Header.Set("If-None-Match", k.etag)
	}
	k.mu.Unlock()

	resp, err := k.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		k.mu.Lock()
		k.lastFetch = time.Now()
		k.mu.Unlock()
		return nil
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("jwks http %d", resp.StatusCode)
	}

	var doc jwksDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return err
	}

	for _, key := range doc.Keys {
		if !strings.EqualFold(key.Kty, "RSA") || key.Kid == "" {
			continue
		}
		pub, err := key.rsaPublicKey()
		if err != nil {
			continue
		}
		k.store.Set(key.Kid, pub, jwksTTL)
	}

	k.mu.Lock()
	k.etag = resp.Header.Get("ETag")
	k.lastFetch = time.Now()
	k.mu.Unlock()
	return nil
}

func (j jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(nb)
	e := 0
	if len(eb) == 0 {
		e = 65537
	} else {
		// big-endian bytes to int
		for _, b := range eb {
			e = (e << 8) | int(b)
		}
	}
	return &rsa.PublicKey{N: n, E: e}, nil
}
