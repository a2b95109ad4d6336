package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptchaGenerateShape(t *testing.T) {
	svc := NewCaptchaService()

	for i := 0; i < 200; i++ {
		code, err := svc.Generate()
		require.NoError(t, err)
		require.Len(t, code, CaptchaLength)
		for _, c := range code {
			require.True(t, c >= '0' && c <= '9', "non-digit in %q", code)
		}
	}
}

func TestCaptchaGenerateCoversAllDigits(t *testing.T) {
	svc := NewCaptchaService()
	seen := make(map[rune]bool)

	for i := 0; i < 200 && len(seen) < 10; i++ {
		code, err := svc.Generate()
		require.NoError(t, err)
		for _, c := range code {
			seen[c] = true
		}
	}
	assert.Len(t, seen, 10)
}

func TestCaptchaGenerateRandSourceFailure(t *testing.T) {
	svc := &CaptchaService{rand: bytes.NewReader(nil)}

	_, err := svc.Generate()
	assert.Error(t, err)
}

func TestCaptchaVerify(t *testing.T) {
	svc := NewCaptchaService()

	assert.True(t, svc.Verify("01234", "01234"))
	assert.False(t, svc.Verify("1234", "01234"))
	assert.False(t, svc.Verify(" 01234", "01234"))
	assert.False(t, svc.Verify("01234 ", "01234"))
	assert.False(t, svc.Verify("", ""))
	assert.False(t, svc.Verify("01234", ""))
}
