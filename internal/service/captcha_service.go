package service

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
)

// CaptchaLength is the number of digits in a login challenge.
const CaptchaLength = 5

var captchaRadix = big.NewInt(10)

// CaptchaService issues and checks numeric login challenges.
type CaptchaService struct {
	rand io.Reader
}

// NewCaptchaService creates a CaptchaService backed by crypto/rand.
func NewCaptchaService() *CaptchaService {
	return &CaptchaService{rand: rand.Reader}
}

// Generate returns CaptchaLength uniformly random decimal digits.
func (s *CaptchaService) Generate() (string, error) {
	buf := make([]byte, CaptchaLength)
	for i := range buf {
		n, err := rand.Int(s.rand, captchaRadix)
		if err != nil {
			return "", fmt.Errorf("generate captcha: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

// Verify is an exact comparison. An empty expected value never matches.
func (s *CaptchaService) Verify(submitted, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) == 1
}
