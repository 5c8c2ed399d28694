package dao

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lk2023060901/arise/app/progression/internal/metrics"
)

// 表名
const (
	tablePlayers       = "players"
	tableGauntlets     = "gauntlet_progress"
	tableDungeonRuns   = "dungeon_runs"
	tableAssignments   = "constellation_assignments"
	tablePurifications = "purification_progress"
)

// jsonRow 只取 data 列
type jsonRow struct {
	Data []byte `db:"data"`
}

// queryTimer 记录一次数据库操作
type queryTimer struct {
	m     *metrics.ProgressionMetrics
	op    string
	start time.Time
}

func startQuery(m *metrics.ProgressionMetrics, op string) queryTimer {
	return queryTimer{m: m, op: op, start: time.Now()}
}

func (t queryTimer) done(err error) {
	if t.m == nil {
		return
	}
	t.m.RecordDBQuery(t.op, err == nil, time.Since(t.start).Seconds())
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	return data, nil
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}
