package store

import (
    "context"
    "encoding/json"
    "fmt"
    "strconv"
    "time"

    redis "github.com/redis/go-redis/v9"

    "github.com/local/pagepicker/internal/controller"
)

// RedisSessions keeps the latest snapshot of each session in a Redis hash so
// that a later shell can resume it.
type RedisSessions struct {
    client *redis.Client
    keyNS  string
    ttl    time.Duration
}

func NewRedisSessions(redisURL string, ttl time.Duration) (*RedisSessions, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, err }
    c := redis.NewClient(opt)
    if err := c.Ping(context.Background()).Err(); err != nil { return nil, err }
    return &RedisSessions{client: c, keyNS: "pagepicker", ttl: ttl}, nil
}

func (s *RedisSessions) key(id string) string { return fmt.Sprintf("%s:session:%s", s.keyNS, id) }

// Save overwrites the stored snapshot and refreshes its TTL.
func (s *RedisSessions) Save(ctx context.Context, snap controller.Snapshot) error {
    if snap.SessionID == "" { return fmt.Errorf("snapshot without session id") }
    fields, err := encodeSnapshot(snap)
    if err != nil { return err }
    k := s.key(snap.SessionID)
    pipe := s.client.TxPipeline()
    pipe.Del(ctx, k)
    pipe.HSet(ctx, k, fields)
    if s.ttl > 0 { pipe.Expire(ctx, k, s.ttl) }
    _, err = pipe.Exec(ctx)
    return err
}

func (s *RedisSessions) Load(ctx context.Context, id string) (controller.Snapshot, bool, error) {
    res, err := s.client.HGetAll(ctx, s.key(id)).Result()
    if err != nil { return controller.Snapshot{}, false, err }
    if len(res) == 0 { return controller.Snapshot{}, false, nil }
    snap, err := decodeSnapshot(id, res)
    if err != nil { return controller.Snapshot{}, false, err }
    return snap, true, nil
}

func (s *RedisSessions) Delete(ctx context.Context, id string) error {
    return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisSessions) Close() error { return s.client.Close() }

func encodeSnapshot(snap controller.Snapshot) (map[string]interface{}, error) {
    step, err := snap.Step.MarshalText()
    if err != nil { return nil, err }
    sel, _ := json.Marshal(snap.Selected)
    m := map[string]interface{}{
        "step":        string(step),
        "total_pages": snap.TotalPages,
        "selected":    string(sel),
        "updated":     time.Now().UTC().Format(time.RFC3339Nano),
    }
    if len(snap.Thumbnails) > 0 {
        b, _ := json.Marshal(snap.Thumbnails)
        m["thumbnails"] = string(b)
    }
    if snap.FileID != "" { m["file_id"] = snap.FileID }
    if snap.FileName != "" { m["file_name"] = snap.FileName }
    if snap.ResultRef != "" { m["result_ref"] = snap.ResultRef }
    if snap.ResultMessage != "" { m["result_message"] = snap.ResultMessage }
    return m, nil
}

func decodeSnapshot(id string, res map[string]string) (controller.Snapshot, error) {
    snap := controller.Snapshot{
        SessionID:     id,
        FileID:        res["file_id"],
        FileName:      res["file_name"],
        ResultRef:     res["result_ref"],
        ResultMessage: res["result_message"],
    }
    if err := snap.Step.UnmarshalText([]byte(res["step"])); err != nil {
        return snap, fmt.Errorf("session %s: %w", id, err)
    }
    if v := res["total_pages"]; v != "" {
        n, err := strconv.Atoi(v)
        if err != nil { return snap, fmt.Errorf("session %s: total_pages: %w", id, err) }
        snap.TotalPages = n
    }
    if v := res["selected"]; v != "" {
        if err := json.Unmarshal([]byte(v), &snap.Selected); err != nil {
            return snap, fmt.Errorf("session %s: selected: %w", id, err)
        }
    }
    if v := res["thumbnails"]; v != "" {
        _ = json.Unmarshal([]byte(v), &snap.Thumbnails)
    }
    if snap.Selected == nil { snap.Selected = []int{} }
    return snap, nil
}
