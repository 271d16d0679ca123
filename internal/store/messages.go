package store

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
)

func sortMessagesByCreation(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

// listAllPageSize bounds each page of the full message scan.
const listAllPageSize = 1000

// ListAll retrieves every message in the store, oldest first. Pages are
// fetched with keyset pagination on id so a full inbox rebuild never skips
// or repeats rows, then sorted by creation time.
func (s MessagesService) ListAll(ctx context.Context) ([]Message, error) {
	return listAllMessages(ctx, s)
}

func listAllMessages(ctx context.Context, r Requester) ([]Message, error) {
	var all []Message
	lastID := ""

	for {
		query := url.Values{}
		query.Set("select", "*")
		query.Set("order", "id.asc")
		query.Set("limit", strconv.Itoa(listAllPageSize))
		if lastID != "" {
			query.Set("id", "gt."+lastID)
		}

		var page []Message
		if err := r.do(ctx, http.MethodGet, r.tablePath(TableMessages)+"?"+query.Encode(), nil, &page); err != nil {
			return nil, err
		}
		for i := range page {
			if err := page[i].Validate(); err != nil {
				return nil, err
			}
		}
		all = append(all, page...)
		if len(page) < listAllPageSize {
			break
		}
		lastID = page[len(page)-1].ID
	}

	sortMessagesByCreation(all)
	return all, nil
}

// ListByConversation retrieves the messages of one conversation, oldest first.
func (s MessagesService) ListByConversation(ctx context.Context, conversationID string) ([]Message, error) {
	return listConversationMessages(ctx, s, conversationID)
}

func listConversationMessages(ctx context.Context, r Requester, conversationID string) ([]Message, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("conversation_id", "eq."+conversationID)
	query.Set("order", "created_at.asc")

	var result []Message
	if err := r.do(ctx, http.MethodGet, r.tablePath(TableMessages)+"?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	for i := range result {
		if err := result[i].Validate(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Append inserts a message and returns the stored row.
func (s MessagesService) Append(ctx context.Context, msg NewMessage) (*Message, error) {
	return appendMessage(ctx, s, msg)
}

func appendMessage(ctx context.Context, r Requester, msg NewMessage) (*Message, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	var result []Message
	if err := r.doPrefer(ctx, http.MethodPost, r.tablePath(TableMessages), preferRepresentation, msg, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &StoreError{Code: ErrServerError, Message: "store returned no row for inserted message"}
	}
	return &result[0], nil
}
