package auth

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/base64"
    "encoding/hex"
    "errors"
    "strconv"
    "strings"
    "time"
)

var (
    ErrTokenFormat   = errors.New("invalid token format")
    ErrTokenSig      = errors.New("invalid token signature")
    ErrTokenExp      = errors.New("token expired")
    ErrTokenAudience = errors.New("token room/identity mismatch")
)

// AccessToken builds a signed token granting an identity access to a room,
// also used as the bearer credential for the telephony control API.
// Format: base64url(key_id "." room "." identity "." exp_unix "." hex(hmac_sha256(secret, payload)))
func AccessToken(apiKey, apiSecret, room, identity string, ttl time.Duration) (string, error) {
    if apiKey == "" || apiSecret == "" {
        return "", errors.New("missing api key or secret")
    }
    exp := time.Now().Add(ttl).Unix()
    msg := apiKey + "." + room + "." + identity + "." + strconv.FormatInt(exp, 10)
    mac := hmac.New(sha256.New, []byte(apiSecret))
    mac.Write([]byte(msg))
    sig := hex.EncodeToString(mac.Sum(nil))
    return base64.RawURLEncoding.EncodeToString([]byte(msg + "." + sig)), nil
}

// ValidateToken parses and verifies a token, returning the embedded room and
// identity. expectRoom may be empty to skip the audience check.
func ValidateToken(apiSecret, token, expectRoom string, now time.Time) (room, identity string, err error) {
    b, err := base64.RawURLEncoding.DecodeString(token)
    if err != nil {
        return "", "", ErrTokenFormat
    }
    parts := strings.Split(string(b), ".")
    if len(parts) != 5 {
        return "", "", ErrTokenFormat
    }
    room = parts[1]
    identity = parts[2]
    exp, err := strconv.ParseInt(parts[3], 10, 64)
    if err != nil {
        return "", "", ErrTokenFormat
    }
    if expectRoom != "" && room != expectRoom {
        return "", "", ErrTokenAudience
    }
    msg := strings.Join(parts[:4], ".")
    mac := hmac.New(sha256.New, []byte(apiSecret))
    mac.Write([]byte(msg))
    want := mac.Sum(nil)
    got, err := hex.DecodeString(parts[4])
    if err != nil {
        return "", "", ErrTokenFormat
    }
    if !hmac.Equal(want, got) {
        return "", "", ErrTokenSig
    }
    if now.Unix() > exp {
        return "", "", ErrTokenExp
    }
    return room, identity, nil
}
