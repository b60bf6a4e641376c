package utils

import (
	"sync"
	"time"

	"github.com/mojocn/base64Captcha"
)

var (
	captchaStore     base64Captcha.Store
	captchaStoreOnce sync.Once
)

// store picks the Redis backed store when Redis is configured so captchas survive across instances.
func store() base64Captcha.Store {
	captchaStoreOnce.Do(func() {
		if GetRedis() != nil {
			captchaStore = NewRedisCaptchaStore(10 * time.Minute)
			return
		}
		captchaStore = base64Captcha.DefaultMemStore
	})
	return captchaStore
}

// GenerateCaptcha creates a digit captcha and returns (id, dataURI).
func GenerateCaptcha() (string, string, error) {
	driver := base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)
	c := base64Captcha.NewCaptcha(driver, store())
	id, b64, _, err := c.Generate()
	return id, b64, err
}

// VerifyCaptcha verifies the provided answer; it consumes the captcha.
func VerifyCaptcha(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return store().Verify(id, answer, true)
}
