package ig

import (
	"context"
	"fmt"
	"net/http"
)

type accountPreferences struct {
	TrailingStopsEnabled bool `json:"trailingStopsEnabled"`
}

// EnsureTrailingStops checks the account preference for trailing stops and
// enables it when it is off, verifying the change took effect.
func (c *Client) EnsureTrailingStops(ctx context.Context) error {
	var prefs accountPreferences
	if err := c.doRequest(ctx, http.MethodGet, "/accounts/preferences", nil, &prefs, nil); err != nil {
		return err
	}
	if prefs.TrailingStopsEnabled {
		return nil
	}
	update := accountPreferences{TrailingStopsEnabled: true}
	if err := c.doRequest(ctx, http.MethodPut, "/accounts/preferences", update, nil, nil); err != nil {
		return err
	}
	if err := c.doRequest(ctx, http.MethodGet, "/accounts/preferences", nil, &prefs, nil); err != nil {
		return err
	}
	if !prefs.TrailingStopsEnabled {
		return fmt.Errorf("unable to enable trailing stops on the account")
	}
	return nil
}
