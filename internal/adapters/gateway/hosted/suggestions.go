package hosted

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/ogurasousui/onboard-sync/internal/core/suggestion"
)

// SubscribeSuggestions は提案一覧を購読します。
func (c *Client) SubscribeSuggestions(cb func(items []suggestion.Suggestion)) (func(), error) {
	var records []suggestionRecord
	if err := c.doJSON(context.Background(), http.MethodGet, "/suggestions", nil, &records); err != nil {
		return nil, err
	}
	cb(suggestionsFromRecords(records))

	return c.subscribe(topicSuggest, func(data json.RawMessage) {
		var pushed []suggestionRecord
		if err := json.Unmarshal(data, &pushed); err != nil {
			c.logger.Warn("suggestions push decode failed", "error", err)
			return
		}
		cb(suggestionsFromRecords(pushed))
	}), nil
}

// CreateSuggestion は提案を作成します。
func (c *Client) CreateSuggestion(ctx context.Context, s *suggestion.Suggestion) (*suggestion.Suggestion, error) {
	body := suggestionRecord{
		StepID:     s.StepID,
		Author:     s.Author,
		Text:       s.Text,
		Status:     string(s.Status),
		InstanceID: s.InstanceID,
	}

	var created suggestionRecord
	if err := c.doJSON(ctx, http.MethodPost, "/suggestions", body, &created); err != nil {
		return nil, err
	}
	result := suggestionFromRecord(created)
	return &result, nil
}

// UpdateSuggestionStatus は提案の状態を更新します。
func (c *Client) UpdateSuggestionStatus(ctx context.Context, id string, status suggestion.Status) error {
	path := "/suggestions/" + url.PathEscape(id) + "/status"
	body := map[string]string{"status": string(status)}
	if err := c.doJSON(ctx, http.MethodPatch, path, body, nil); err != nil {
		return translateSuggestionError(err)
	}
	return nil
}

// DeleteSuggestion は提案を削除します。
func (c *Client) DeleteSuggestion(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/suggestions/"+url.PathEscape(id), nil, nil); err != nil {
		return translateSuggestionError(err)
	}
	return nil
}

func translateSuggestionError(err error) error {
	if isStatus(err, http.StatusNotFound) {
		return suggestion.ErrSuggestionNotFound
	}
	return err
}
