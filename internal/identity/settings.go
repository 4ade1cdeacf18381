package identity

import (
	"context"
	"net/http"
	"net/url"
)

// FetchSettings returns the full feature-flag settings map.
func (c *Client) FetchSettings(ctx context.Context) (map[string]string, error) {
	var res settingsResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/config", nil, &res); err != nil {
		return nil, err
	}
	if res.Settings == nil {
		res.Settings = make(map[string]string)
	}
	return res.Settings, nil
}

// UpdateSetting writes a single setting.
func (c *Client) UpdateSetting(ctx context.Context, key, value string) error {
	_, err := c.do(ctx, http.MethodPut, "/api/config/"+url.PathEscape(key), updateSettingRequest{Value: value}, nil)
	return err
}

// ValidateSettings asks the service whether the current settings are
// consistent.
func (c *Client) ValidateSettings(ctx context.Context) (bool, error) {
	var res validateResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/config/validate", nil, &res); err != nil {
		return false, err
	}
	return res.Valid, nil
}
