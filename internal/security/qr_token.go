package security

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	QRTokenVersion    = 1
	DefaultQRTokenTTL = 30 * time.Minute
	qrKeySalt         = "qr-salt"
)

var (
	errEmptyQRSecret  = errors.New("qr secret must not be empty")
	errInvalidQRClaim = errors.New("qr claim requires a user id and a meal type")
)

// TokenFailure explains why Verify rejected a token.
type TokenFailure string

const (
	TokenOK        TokenFailure = ""
	TokenMalformed TokenFailure = "malformed"
	TokenExpired   TokenFailure = "expired"
	TokenTampered  TokenFailure = "tampered"
)

// QRPayload is the signed claim carried by a QR code. Times are Unix
// milliseconds.
type QRPayload struct {
	Version    int    `json:"v"`
	UserID     uint   `json:"uid"`
	MealType   string `json:"meal"`
	IssuedAt   int64  `json:"iat"`
	ValidUntil int64  `json:"exp"`
	Nonce      string `json:"nonce"`
	Signature  string `json:"sig"`
}

func (payload QRPayload) signingString() string {
	return fmt.Sprintf("%d|%d|%s|%d|%d|%s",
		payload.Version, payload.UserID, payload.MealType, payload.IssuedAt, payload.ValidUntil, payload.Nonce)
}

type VerifyResult struct {
	Valid   bool
	Payload *QRPayload
	Failure TokenFailure
}

// QRTokenCodec issues and verifies HMAC-SHA256 signed QR tokens. The token
// is base64url(JSON) of QRPayload.
type QRTokenCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewQRTokenCodec(secret string, ttl time.Duration) (*QRTokenCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errEmptyQRSecret
	}
	if ttl <= 0 {
		ttl = DefaultQRTokenTTL
	}
	return &QRTokenCodec{
		key: []byte(secret + ":" + qrKeySalt),
		ttl: ttl,
		now: time.Now,
	}, nil
}

// SetClock replaces the time source used by Issue and Verify.
func (codec *QRTokenCodec) SetClock(now func() time.Time) {
	codec.now = now
}

func (codec *QRTokenCodec) TTL() time.Duration {
	return codec.ttl
}

func (codec *QRTokenCodec) Issue(userID uint, mealType string) (string, QRPayload, error) {
	if userID == 0 || strings.TrimSpace(mealType) == "" {
		return "", QRPayload{}, errInvalidQRClaim
	}

	issuedAt := codec.now()
	payload := QRPayload{
		Version:    QRTokenVersion,
		UserID:     userID,
		MealType:   mealType,
		IssuedAt:   issuedAt.UnixMilli(),
		ValidUntil: issuedAt.Add(codec.ttl).UnixMilli(),
		Nonce:      uuid.NewString(),
	}

	signature, err := jwt.SigningMethodHS256.Sign(payload.signingString(), codec.key)
	if err != nil {
		return "", QRPayload{}, fmt.Errorf("sign qr payload: %w", err)
	}
	payload.Signature = base64.RawURLEncoding.EncodeToString(signature)

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", QRPayload{}, fmt.Errorf("encode qr payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(encoded), payload, nil
}

func (codec *QRTokenCodec) Verify(token string) VerifyResult {
	return codec.VerifyAt(token, codec.now())
}

// VerifyAt checks structure, then expiry, then signature. An expired token
// is reported as expired even when its signature would not match, and no
// payload is returned for it because the payload was never authenticated.
func (codec *QRTokenCodec) VerifyAt(token string, at time.Time) VerifyResult {
	payload, ok := decodeQRPayload(token)
	if !ok {
		return VerifyResult{Failure: TokenMalformed}
	}

	if at.UnixMilli() > payload.ValidUntil {
		return VerifyResult{Failure: TokenExpired}
	}

	signature, err := base64.RawURLEncoding.Strict().DecodeString(payload.Signature)
	if err != nil {
		return VerifyResult{Failure: TokenTampered}
	}
	if err := jwt.SigningMethodHS256.Verify(payload.signingString(), signature, codec.key); err != nil {
		return VerifyResult{Failure: TokenTampered}
	}
	return VerifyResult{Valid: true, Payload: &payload}
}

// decodeQRPayload rejects anything that does not re-encode to the same bytes,
// so case-folded keys or padding-bit variants never verify.
func decodeQRPayload(token string) (QRPayload, bool) {
	raw, err := base64.RawURLEncoding.Strict().DecodeString(strings.TrimSpace(token))
	if err != nil || len(raw) == 0 {
		return QRPayload{}, false
	}

	var payload QRPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return QRPayload{}, false
	}
	if payload.Version != QRTokenVersion {
		return QRPayload{}, false
	}

	canonical, err := json.Marshal(payload)
	if err != nil || !bytes.Equal(canonical, raw) {
		return QRPayload{}, false
	}
	return payload, true
}
