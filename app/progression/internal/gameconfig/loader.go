package gameconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/lk2023060901/arise/pkg/logger"
)

// ErrInvalidTable 规则表不合法
var ErrInvalidTable = errors.New("gameconfig: invalid table")

// Files 可选的 JSON 覆盖文件，空路径表示使用内置表
type Files struct {
	RankTableFile     string `mapstructure:"rank_table_file" json:"rank_table_file"`
	GauntletTableFile string `mapstructure:"gauntlet_table_file" json:"gauntlet_table_file"`
	SponsorTableFile  string `mapstructure:"sponsor_table_file" json:"sponsor_table_file"`
}

// Load 加载规则表，配置了但不存在的文件降级为内置表并告警
func Load(files Files, l logger.Logger) (*Tables, error) {
	if l == nil {
		return nil, fmt.Errorf("logger is required for gameconfig.Load")
	}

	ranks := DefaultRankTable()
	if err := readTable(files.RankTableFile, "rank", &ranks, l); err != nil {
		return nil, err
	}
	bands := DefaultGauntletBands()
	if err := readTable(files.GauntletTableFile, "gauntlet", &bands, l); err != nil {
		return nil, err
	}
	sponsors := DefaultSponsors()
	if err := readTable(files.SponsorTableFile, "sponsor", &sponsors, l); err != nil {
		return nil, err
	}

	t, err := NewTables(ranks, bands, sponsors)
	if err != nil {
		return nil, err
	}
	l.Info("game tables loaded",
		"ranks", len(t.Ranks),
		"bands", len(t.Bands),
		"sponsors", len(t.Sponsors))
	return t, nil
}

func readTable[T any](path, table string, out *[]T, l logger.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.Warn("optional table file not found, using built-in table",
				"table", table,
				"path", path)
			return nil
		}
		return fmt.Errorf("failed to read %s table %s: %w", table, path, err)
	}

	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("failed to unmarshal %s table %s: %w", table, path, err)
	}
	*out = rows
	return nil
}

