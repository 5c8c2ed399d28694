package engine

import (
	"fmt"
	"time"

	"github.com/lk2023060901/arise/app/progression/internal/gameconfig"
	"github.com/lk2023060901/arise/app/progression/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubRand struct {
	n int
	f float64
}

func (s stubRand) Intn(n int) int   { return s.n % n }
func (s stubRand) Float64() float64 { return s.f }

func newTestRules() *Rules {
	seq := 0
	return NewRules(gameconfig.DefaultTables(), WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}))
}

func newTestState() *model.PlayerState {
	return model.NewPlayerState(42, testNow)
}
