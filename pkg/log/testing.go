package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"
)

// TestLogger は記録をJSON行としてメモリに保持するLoggerです。
// Trainer、Session、HTTPハンドラのテストで出力されたフィールドを検証するために使います。
type TestLogger struct {
	mu     *sync.Mutex
	buffer *bytes.Buffer
	level  Level
	fields map[string]any
}

// NewTestLogger は level 以上の記録を取り込む TestLogger と、その出力先バッファを返します。
//
// 使用例:
//
//	logger, _ := log.NewTestLogger(log.LevelDebug)
//	tr, _ := linear.NewTrainer(linear.WithLogger(logger))
//	...
//	assert.Equal(t, 20, logger.CountMessage("Epoch finished"))
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return &TestLogger{
		mu:     &sync.Mutex{},
		buffer: buffer,
		level:  level,
		fields: map[string]any{},
	}, buffer
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.write(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.write(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.write(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.write(LevelError, msg, fields) }

// With returns a logger sharing the same buffer with fields attached to every entry.
func (t *TestLogger) With(fields ...any) Logger {
	next := maps.Clone(t.fields)
	addFields(next, fields)
	return &TestLogger{mu: t.mu, buffer: t.buffer, level: t.level, fields: next}
}

func (t *TestLogger) Enabled(ctx context.Context, level Level) bool {
	return t.level <= level
}

func (t *TestLogger) write(level Level, msg string, fields []any) {
	if level < t.level {
		return
	}
	entry := maps.Clone(t.fields)
	entry["level"] = level.String()
	entry["message"] = msg
	if err, rest := splitError(fields); err != nil {
		entry[ErrAttrKey] = err.Error()
		fields = rest
	}
	addFields(entry, fields)

	line, _ := json.Marshal(entry)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffer.Write(line)
	t.buffer.WriteByte('\n')
}

// addFields はキーと値の交互リストを dst に展開します。エラー値は文字列化します。
func addFields(dst map[string]any, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		if err, ok := fields[i+1].(error); ok {
			dst[key] = err.Error()
			continue
		}
		dst[key] = fields[i+1]
	}
}

// String returns everything captured so far.
func (t *TestLogger) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buffer.String()
}

// Entries は取り込んだ記録をデコードして返します。数値はJSONの都合でfloat64になります。
func (t *TestLogger) Entries() ([]map[string]any, error) {
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(t.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any entry's text contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.String(), message)
}

// CountMessage は message と完全一致する記録の数を返します。
func (t *TestLogger) CountMessage(message string) int {
	entries, err := t.Entries()
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e["message"] == message {
			n++
		}
	}
	return n
}

// ContainsField reports whether some entry has key set to value.
func (t *TestLogger) ContainsField(key string, value any) bool {
	for _, v := range t.FieldValues(key) {
		if v == value {
			return true
		}
	}
	return false
}

// FieldValues は key を持つ記録の値を出力順に返します。
func (t *TestLogger) FieldValues(key string) []any {
	entries, err := t.Entries()
	if err != nil {
		return nil
	}
	var values []any
	for _, e := range entries {
		if v, ok := e[key]; ok {
			values = append(values, v)
		}
	}
	return values
}
