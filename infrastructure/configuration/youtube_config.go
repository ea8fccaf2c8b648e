package configuration

import (
	"fmt"
	"os"
	"strings"

	"channel-insight/domain/model"
)

// Credentials collects API credentials from config and environment:
// YOUTUBE_API_KEY, YOUTUBE_API_KEY_1..N (stops at the first gap),
// YOUTUBE_API_KEYS (comma separated), then config apiKeys and oauthClients.
// Duplicates and YOUR_ placeholders are dropped; order is preserved.
func Credentials() []model.Credential {
	var keys []string
	keys = append(keys, os.Getenv("YOUTUBE_API_KEY"))
	for i := 1; ; i++ {
		v, ok := os.LookupEnv(fmt.Sprintf("YOUTUBE_API_KEY_%d", i))
		if !ok {
			break
		}
		keys = append(keys, v)
	}
	keys = append(keys, strings.Split(os.Getenv("YOUTUBE_API_KEYS"), ",")...)
	keys = append(keys, C.YouTube.APIKeys...)

	seen := make(map[string]struct{})
	creds := make([]model.Credential, 0, len(keys))
	for _, k := range keys {
		k = getConfigValue(strings.TrimSpace(k), "", "")
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		creds = append(creds, model.Credential{APIKey: k})
	}

	for _, o := range C.YouTube.OAuthClients {
		if getConfigValue(o.RefreshToken, "", "") == "" || o.ClientID == "" {
			continue
		}
		creds = append(creds, model.Credential{
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			RefreshToken: o.RefreshToken,
		})
	}
	return creds
}

// Validate fails when the worker cannot run a single sync
func Validate() error {
	if len(Credentials()) == 0 {
		return fmt.Errorf("youtube: %w", model.ErrNoCredentials)
	}
	return nil
}

// getConfigValue gets value from environment variable first, then config, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	if envKey != "" {
		if v := os.Getenv(envKey); v != "" {
			return v
		}
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}
