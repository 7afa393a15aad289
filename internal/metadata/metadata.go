// Package metadata is the flat KV index the Group Router keeps in sync so it can answer cross-group questions
// (which groups does a user own, which groups does an email participate in, what has a user bookmarked) without
// asking every Group Actor. It is eventually consistent: writes here never gate or roll back a Group Actor
// mutation, and a failed index write after a mutation is logged rather than returned to the HTTP caller. The
// bookmark endpoints, which read and write this store directly, return its failures as internal errors.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// GroupSummary is the denormalized record stored under group:{id}, enough to answer GET /groups/me without
// consulting the owning actor.
type GroupSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	OwnerUserID string    `json:"ownerUserId"`
	OwnerEmail  string    `json:"ownerEmail"`
}

// Store reads and writes the router's cross-group indices in Valkey.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a metadata store backed by the given Valkey client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// PutGroupSummary writes (or overwrites) the group:{id} record.
func (s *Store) PutGroupSummary(ctx context.Context, summary GroupSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal group summary for %s: %w", summary.ID, err)
	}
	if err := s.rdb.Set(ctx, groupKey(summary.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("put group summary for %s: %w", summary.ID, err)
	}
	return nil
}

// GetGroupSummary returns the summary for groupID, or (GroupSummary{}, false, nil) if no record exists.
func (s *Store) GetGroupSummary(ctx context.Context, groupID string) (GroupSummary, bool, error) {
	raw, err := s.rdb.Get(ctx, groupKey(groupID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return GroupSummary{}, false, nil
	}
	if err != nil {
		return GroupSummary{}, false, fmt.Errorf("get group summary for %s: %w", groupID, err)
	}
	var summary GroupSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return GroupSummary{}, false, fmt.Errorf("unmarshal group summary for %s: %w", groupID, err)
	}
	return summary, true, nil
}

// MarkOwner records that userID owns groupID, for GET /groups/me's owned-by-user half.
func (s *Store) MarkOwner(ctx context.Context, userID, groupID string) error {
	if err := s.rdb.Set(ctx, ownerGroupKey(userID, groupID), "1", 0).Err(); err != nil {
		return fmt.Errorf("mark owner %s of %s: %w", userID, groupID, err)
	}
	return nil
}

// OwnedGroupIDs scans owner-group:{userId}:* and returns the matched group ids.
func (s *Store) OwnedGroupIDs(ctx context.Context, userID string) ([]string, error) {
	prefix := fmt.Sprintf("owner-group:%s:", userID)
	keys, err := s.scanKeys(ctx, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan owned groups for %s: %w", userID, err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(prefix):])
	}
	return ids, nil
}

// SyncParticipantEmails diffs prevEmails against newEmails and writes/deletes participant-group:{email}:{id} keys
// accordingly, then overwrites participant-index:{id} with the authoritative sorted newEmails so the next diff is
// deterministic regardless of map iteration order.
func (s *Store) SyncParticipantEmails(ctx context.Context, groupID string, newEmails []string) error {
	sortedNew := append([]string(nil), newEmails...)
	sort.Strings(sortedNew)

	prevEmails, err := s.participantIndex(ctx, groupID)
	if err != nil {
		return fmt.Errorf("read participant index for %s: %w", groupID, err)
	}

	prevSet := toSet(prevEmails)
	newSet := toSet(sortedNew)

	pipe := s.rdb.Pipeline()
	for email := range newSet {
		if !prevSet[email] {
			pipe.Set(ctx, participantGroupKey(email, groupID), "1", 0)
		}
	}
	for email := range prevSet {
		if !newSet[email] {
			pipe.Del(ctx, participantGroupKey(email, groupID))
		}
	}
	raw, err := json.Marshal(sortedNew)
	if err != nil {
		return fmt.Errorf("marshal participant index for %s: %w", groupID, err)
	}
	pipe.Set(ctx, participantIndexKey(groupID), raw, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sync participant emails for %s: %w", groupID, err)
	}
	return nil
}

// MatchedGroupIDs scans participant-group:{email}:* for email and returns the matched group ids.
func (s *Store) MatchedGroupIDs(ctx context.Context, email string) ([]string, error) {
	prefix := fmt.Sprintf("participant-group:%s:", email)
	keys, err := s.scanKeys(ctx, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan matched groups for %s: %w", email, err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(prefix):])
	}
	return ids, nil
}

func (s *Store) participantIndex(ctx context.Context, groupID string) ([]string, error) {
	raw, err := s.rdb.Get(ctx, participantIndexKey(groupID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var emails []string
	if err := json.Unmarshal(raw, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// GetBookmarks returns the user's bookmarked group ids, or an empty slice if none are set.
func (s *Store) GetBookmarks(ctx context.Context, userID string) ([]string, error) {
	raw, err := s.rdb.Get(ctx, bookmarksKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bookmarks for %s: %w", userID, err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("unmarshal bookmarks for %s: %w", userID, err)
	}
	return ids, nil
}

// PutBookmarks normalizes groupIDs (trims, dedupes, drops blanks) and overwrites the user's bookmark list, returning
// the normalized form that was stored.
func (s *Store) PutBookmarks(ctx context.Context, userID string, groupIDs []string) ([]string, error) {
	normalized := normalizeBookmarks(groupIDs)
	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("marshal bookmarks for %s: %w", userID, err)
	}
	if err := s.rdb.Set(ctx, bookmarksKey(userID), raw, 0).Err(); err != nil {
		return nil, fmt.Errorf("put bookmarks for %s: %w", userID, err)
	}
	return normalized, nil
}

func normalizeBookmarks(groupIDs []string) []string {
	seen := make(map[string]bool, len(groupIDs))
	out := make([]string, 0, len(groupIDs))
	for _, id := range groupIDs {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return out
}

func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func toSet(vals []string) map[string]bool {
	out := make(map[string]bool, len(vals))
	for _, v := range vals {
		out[v] = true
	}
	return out
}

func groupKey(id string) string             { return "group:" + id }
func ownerGroupKey(userID, id string) string { return "owner-group:" + userID + ":" + id }
func participantGroupKey(email, id string) string {
	return "participant-group:" + email + ":" + id
}
func participantIndexKey(id string) string { return "participant-index:" + id }
func bookmarksKey(userID string) string    { return "bookmarks:" + userID }
