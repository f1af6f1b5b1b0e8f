package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mthorne/provincia/api/internal/model"
)

// Key patterns for live combat state.
func retaliationKey(victimID string) string { return "retaliation:" + victimID }
func attackLogKey(defenderID string) string { return "attacklog:" + defenderID }

// ReportChannel is the pub/sub channel battle reports are published on.
const ReportChannel = "battle_reports"

// attackLogRetention bounds the trailing attack log. Harassment detection only
// looks back 24h, so older entries are trimmed on write.
const attackLogRetention = 24 * time.Hour

// OpenRetaliation grants the victim a window against the attacker. Members are
// attacker IDs scored by expiry, so a repeat attack on the same victim simply
// pushes the score forward.
func (c *Client) OpenRetaliation(ctx context.Context, victimID, attackerID string, expiresAt time.Time) error {
	key := retaliationKey(victimID)
	pipe := c.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(expiresAt.Unix()), Member: attackerID})
	pipe.ExpireAt(ctx, key, expiresAt.Add(time.Hour))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("open retaliation window: %w", err)
	}
	return nil
}

// HasRetaliation reports whether the victim holds an unexpired window against
// the attacker. Expired members are pruned opportunistically.
func (c *Client) HasRetaliation(ctx context.Context, victimID, attackerID string, now time.Time) (bool, error) {
	key := retaliationKey(victimID)
	c.rdb.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now.Unix(), 10))
	score, err := c.rdb.ZScore(ctx, key, attackerID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check retaliation window: %w", err)
	}
	return int64(score) > now.Unix(), nil
}

// ListRetaliation returns the victim's open windows, soonest expiry first.
func (c *Client) ListRetaliation(ctx context.Context, victimID string, now time.Time) ([]model.RetaliationWindow, error) {
	key := retaliationKey(victimID)
	c.rdb.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now.Unix(), 10))
	entries, err := c.rdb.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list retaliation windows: %w", err)
	}
	windows := make([]model.RetaliationWindow, 0, len(entries))
	for _, e := range entries {
		windows = append(windows, model.RetaliationWindow{
			VictimID:   victimID,
			AttackerID: e.Member.(string),
			ExpiresAt:  time.Unix(int64(e.Score), 0).UTC(),
		})
	}
	return windows, nil
}

// RecordAttack appends to the defender's trailing attack log. Members carry a
// nanosecond suffix so rapid attacks from one attacker stay distinct entries.
func (c *Client) RecordAttack(ctx context.Context, defenderID, attackerID string, at time.Time) error {
	key := attackLogKey(defenderID)
	member := attackerID + ":" + strconv.FormatInt(at.UnixNano(), 10)
	pipe := c.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.Unix()), Member: member})
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(at.Add(-attackLogRetention).Unix(), 10))
	pipe.Expire(ctx, key, attackLogRetention+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record attack: %w", err)
	}
	return nil
}

// AttackCountFrom counts attacks on the defender by one attacker since the
// cutoff, the harassment-detection query.
func (c *Client) AttackCountFrom(ctx context.Context, defenderID, attackerID string, since time.Time) (int, error) {
	records, err := c.RecentAttacks(ctx, defenderID, since)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, rec := range records {
		if rec.AttackerID == attackerID {
			count++
		}
	}
	return count, nil
}

// RecentAttacks returns the defender's attack log entries since the cutoff,
// oldest first.
func (c *Client) RecentAttacks(ctx context.Context, defenderID string, since time.Time) ([]model.AttackRecord, error) {
	entries, err := c.rdb.ZRangeByScoreWithScores(ctx, attackLogKey(defenderID), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read attack log: %w", err)
	}
	records := make([]model.AttackRecord, 0, len(entries))
	for _, e := range entries {
		member := e.Member.(string)
		attackerID := member
		if i := strings.LastIndex(member, ":"); i > 0 {
			attackerID = member[:i]
		}
		records = append(records, model.AttackRecord{
			AttackerID: attackerID,
			At:         time.Unix(int64(e.Score), 0).UTC(),
		})
	}
	return records, nil
}

// PublishReport broadcasts a battle report to interested collaborators
// (messaging, notifications) over pub/sub.
func (c *Client) PublishReport(ctx context.Context, report *model.BattleReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal battle report: %w", err)
	}
	if err := c.rdb.Publish(ctx, ReportChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish battle report: %w", err)
	}
	return nil
}
