package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// requestError は REST 呼び出しのエラー応答です。
type requestError struct {
	Status  int
	Message string
}

func (e *requestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("hosted: api status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("hosted: api status %d", e.Status)
}

// doJSON は JSON の送受信を行います。body と out はどちらも nil を許容
// します。2xx 以外は *requestError を返します。
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("hosted: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return fmt.Errorf("hosted: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hosted: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(raw, &payload)
		return &requestError{Status: resp.StatusCode, Message: payload.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hosted: decode response: %w", err)
	}
	return nil
}

// isStatus は err が指定ステータスの requestError かどうかを返します。
func isStatus(err error, status int) bool {
	reqErr, ok := err.(*requestError)
	return ok && reqErr.Status == status
}
