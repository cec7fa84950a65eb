package service

import (
	"context"
	"sync"
	"time"

	"lecto-bridge/internal/lecto"
	"lecto-bridge/pkg/cache/redis"
)

type memCache struct {
	mu   sync.Mutex
	kv   map[string]string
	sets map[string]map[string]struct{}
}

func newMemCache() *memCache {
	return &memCache{kv: map[string]string{}, sets: map[string]map[string]struct{}{}}
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kv[key] = value.(string)
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.kv[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (c *memCache) SAdd(_ context.Context, key string, members ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.sets[key]
	if !ok {
		set = map[string]struct{}{}
		c.sets[key] = set
	}
	for _, m := range members {
		set[m.(string)] = struct{}{}
	}
	return nil
}

func (c *memCache) SRem(_ context.Context, key string, members ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range members {
		delete(c.sets[key], m.(string))
	}
	return nil
}

func (c *memCache) SMembers(_ context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for m := range c.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (c *memCache) expire(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.kv, key)
}

type fakeReminds struct {
	reminds []lecto.Remind
	err     error

	gotGroup uint64
	gotDate  lecto.Date
}

func (f *fakeReminds) ListReminds(_ context.Context, groupID uint64, date lecto.Date) ([]lecto.Remind, error) {
	f.gotGroup = groupID
	f.gotDate = date
	return f.reminds, f.err
}

type fakeUploader struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, fileName string, data []byte) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	if u.files == nil {
		u.files = map[string][]byte{}
	}
	u.files[fileName] = data
	return "https://files.example/" + fileName, nil
}

type notification struct {
	kind     string
	exportID string
	progress float64
	payload  string
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []notification
	final chan notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{final: make(chan notification, 1)}
}

func (n *fakeNotifier) add(v notification) {
	n.mu.Lock()
	n.sent = append(n.sent, v)
	n.mu.Unlock()
}

func (n *fakeNotifier) NotifyExportProgress(_ context.Context, _ int64, exportID string, progress float64, stage string) error {
	n.add(notification{kind: "progress", exportID: exportID, progress: progress, payload: stage})
	return nil
}

func (n *fakeNotifier) NotifyExportComplete(_ context.Context, _ int64, exportID, url, _ string) error {
	v := notification{kind: "complete", exportID: exportID, payload: url}
	n.add(v)
	n.final <- v
	return nil
}

func (n *fakeNotifier) NotifyExportFailed(_ context.Context, _ int64, exportID, errMsg string) error {
	v := notification{kind: "failed", exportID: exportID, payload: errMsg}
	n.add(v)
	n.final <- v
	return nil
}

func (n *fakeNotifier) progressValues() []float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []float64
	for _, v := range n.sent {
		if v.kind == "progress" {
			out = append(out, v.progress)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
