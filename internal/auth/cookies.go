package auth

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"time"

	"talehub/internal/domain"

	"github.com/gorilla/securecookie"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

type CookieConfig struct {
	HashKey  string `yaml:"hash_key"`  // hex, at least 32 bytes
	BlockKey string `yaml:"block_key"` // hex, at least 32 bytes
	Secure   bool   `yaml:"secure"`
}

// CookieManager seals tokens into httpOnly cookies. Cookies are SameSite=None
// so a browser client on another origin can send them with credentials.
type CookieManager struct {
	sc         *securecookie.SecureCookie
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCookieManager builds a manager whose cookies live as long as the tokens
// they carry. Missing keys are generated, so cookies won't survive a restart.
func NewCookieManager(cfg CookieConfig, accessTTL, refreshTTL time.Duration) *CookieManager {
	hashKey := keyOrGenerate("cookie hash_key", cfg.HashKey, 32)
	blockKey := keyOrGenerate("cookie block_key", cfg.BlockKey, 32)

	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(refreshTTL.Seconds()))

	return &CookieManager{
		sc:         sc,
		secure:     cfg.Secure,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// keyOrGenerate decodes a hex key or falls back to a random one
func keyOrGenerate(name, keyHex string, length int) []byte {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err == nil && len(key) >= length {
			return key[:length]
		}
		log.Printf("Warning: %s is invalid, generating random key", name)
	}

	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("Failed to generate %s: %v", name, err)
	}
	log.Printf("Warning: %s not set, using random key (cookies won't persist)", name)
	return key
}

func (cm *CookieManager) set(w http.ResponseWriter, name, value string, ttl time.Duration) error {
	encoded, err := cm.sc.Encode(name, value)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   cm.secure,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
	return nil
}

// SetTokens writes both token cookies.
func (cm *CookieManager) SetTokens(w http.ResponseWriter, pair domain.TokenPair) error {
	if err := cm.set(w, AccessCookie, pair.AccessToken, cm.accessTTL); err != nil {
		return err
	}
	return cm.set(w, RefreshCookie, pair.RefreshToken, cm.refreshTTL)
}

// Read returns the token sealed in the named cookie.
func (cm *CookieManager) Read(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	var token string
	if err := cm.sc.Decode(name, cookie.Value, &token); err != nil {
		return "", err
	}
	return token, nil
}

// Clear expires both token cookies.
func (cm *CookieManager) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   cm.secure,
			HttpOnly: true,
			SameSite: http.SameSiteNoneMode,
		})
	}
}
