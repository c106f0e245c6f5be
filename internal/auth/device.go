package auth

import (
	"context"
	"time"

	"github.com/tidwall/gjson"

	"github.com/byokey/byokey/internal/byok"
)

// DeviceCode is the parsed response of a device-authorization request.
type DeviceCode struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       time.Duration
	Interval        time.Duration
}

// parseDeviceCode parses a device-authorization response. When the
// provider returns a verification_uri_complete it is preferred over the
// plain verification URI. Defaults: expires_in per provider, interval 5s.
func parseDeviceCode(body []byte, defaultExpires time.Duration) (DeviceCode, error) {
	dc := DeviceCode{
		DeviceCode: gjson.GetBytes(body, "device_code").String(),
		UserCode:   gjson.GetBytes(body, "user_code").String(),
		ExpiresIn:  defaultExpires,
		Interval:   5 * time.Second,
	}
	if dc.DeviceCode == "" {
		return dc, byok.AuthError("device authorization response missing device_code")
	}
	if uri := gjson.GetBytes(body, "verification_uri_complete").String(); uri != "" {
		dc.VerificationURI = uri
	} else {
		dc.VerificationURI = gjson.GetBytes(body, "verification_uri").String()
	}
	if v := gjson.GetBytes(body, "expires_in").Int(); v > 0 {
		dc.ExpiresIn = time.Duration(v) * time.Second
	}
	if v := gjson.GetBytes(body, "interval").Int(); v > 0 {
		dc.Interval = time.Duration(v) * time.Second
	}
	return dc, nil
}

// slowDownAdd is the slow_down policy used by Copilot, Kimi, and Factory:
// the poll interval grows by five seconds.
func slowDownAdd(cur time.Duration) time.Duration { return cur + 5*time.Second }

// slowDownMultiply is Qwen's slow_down policy: interval times 1.5.
func slowDownMultiply(cur time.Duration) time.Duration {
	return time.Duration(float64(cur) * 1.5)
}

// pollDeviceToken polls a device-flow token endpoint until the grant is
// approved, denied, or the device code expires. poll performs one token
// request and returns the raw response body.
func pollDeviceToken(
	ctx context.Context,
	dc DeviceCode,
	slowDown func(time.Duration) time.Duration,
	poll func(context.Context) ([]byte, error),
) ([]byte, error) {
	interval := dc.Interval
	deadline := time.Now().Add(dc.ExpiresIn)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, byok.AuthError("device authorization cancelled")
		case <-time.After(interval):
		}
		body, err := poll(ctx)
		if err != nil {
			return nil, err
		}
		switch gjson.GetBytes(body, "error").String() {
		case "":
			return body, nil
		case "authorization_pending":
			continue
		case "slow_down":
			interval = slowDown(interval)
		default:
			return nil, byok.AuthError("device authorization failed: " + gjson.GetBytes(body, "error").String())
		}
	}
	return nil, byok.AuthError("device authorization timed out")
}
