// Package difficulty implements the periodic difficulty retargeting used by
// Bitcoin. Every interval of blocks the time taken is compared against the
// target timespan and the difficulty is scaled by the clamped ratio.
package difficulty

import (
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"
)

// Config represents the retargeting parameters.
type Config struct {
	Interval        uint64        // Number of blocks between adjustments.
	TargetTimespan  time.Duration // Expected time to mine an interval of blocks.
	TargetBlockTime time.Duration // Expected time to mine a single block.
	MinFactor       float64       // Lower bound on the adjustment ratio.
	MaxFactor       float64       // Upper bound on the adjustment ratio.
}

// DefaultConfig returns the Bitcoin parameters.
func DefaultConfig() Config {
	return Config{
		Interval:        2016,
		TargetTimespan:  14 * 24 * time.Hour,
		TargetBlockTime: 10 * time.Minute,
		MinFactor:       0.25,
		MaxFactor:       4,
	}
}

// BlockHeader represents the header information the adjuster tracks.
type BlockHeader struct {
	Height       uint64  `json:"height"`
	TimeStamp    int64   `json:"timestamp"`
	Difficulty   float64 `json:"difficulty"`
	Target       string  `json:"target"`
	Hash         string  `json:"hash"`
	PreviousHash string  `json:"previous_hash"`
	Nonce        uint64  `json:"nonce"`
}

// Adjustment records a single retarget.
type Adjustment struct {
	Height          uint64    `json:"height"`
	TimeStamp       time.Time `json:"timestamp"`
	OldDifficulty   float64   `json:"old_difficulty"`
	NewDifficulty   float64   `json:"new_difficulty"`
	ActualTimespan  int64     `json:"actual_timespan"`
	TargetTimespan  int64     `json:"target_timespan"`
	AdjustmentRatio float64   `json:"adjustment_ratio"`
	Reason          string    `json:"reason"`
}

// Adjuster tracks block headers and computes difficulty retargets.
type Adjuster struct {
	cfg     Config
	initial float64

	mu      sync.RWMutex
	headers []BlockHeader
	history []Adjustment
}

// New constructs an adjuster starting at the initial difficulty.
func New(cfg Config, initial float64) *Adjuster {
	if cfg.Interval == 0 {
		cfg = DefaultConfig()
	}

	return &Adjuster{
		cfg:     cfg,
		initial: initial,
	}
}

// Config returns the retargeting parameters.
func (a *Adjuster) Config() Config {
	return a.cfg
}

// AddBlockHeader appends the header to the tracked list.
func (a *Adjuster) AddBlockHeader(header BlockHeader) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.headers = append(a.headers, header)
}

// Headers returns a copy of the tracked headers.
func (a *Adjuster) Headers() []BlockHeader {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return append([]BlockHeader(nil), a.headers...)
}

// ShouldAdjust reports whether the height sits on an adjustment boundary.
func (a *Adjuster) ShouldAdjust(height uint64) bool {
	return height > 0 && height%a.cfg.Interval == 0
}

// CalculateNextDifficulty returns the difficulty for the block at the height.
// Off boundary heights return the current difficulty. On a boundary the
// timespan between the blocks at height-interval and height-1 sets the ratio.
func (a *Adjuster) CalculateNextDifficulty(height uint64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.currentDifficulty()

	if !a.ShouldAdjust(height) {
		return current
	}

	start, ok1 := a.findByHeight(height - a.cfg.Interval)
	end, ok2 := a.findByHeight(height - 1)
	if !ok1 || !ok2 {
		return current
	}

	actual := end.TimeStamp - start.TimeStamp
	target := int64(a.cfg.TargetTimespan / time.Second)
	ratio := a.ratio(float64(target), float64(actual))

	next := end.Difficulty * ratio

	a.history = append(a.history, Adjustment{
		Height:          height,
		TimeStamp:       time.Now().UTC(),
		OldDifficulty:   end.Difficulty,
		NewDifficulty:   next,
		ActualTimespan:  actual,
		TargetTimespan:  target,
		AdjustmentRatio: ratio,
		Reason:          reason(ratio),
	})

	return next
}

// ratio returns target/actual clamped to the configured factors. A timespan
// of zero or less is treated as infinitely fast.
func (a *Adjuster) ratio(target float64, actual float64) float64 {
	if actual <= 0 {
		return a.cfg.MaxFactor
	}

	return math.Max(a.cfg.MinFactor, math.Min(a.cfg.MaxFactor, target/actual))
}

func (a *Adjuster) currentDifficulty() float64 {
	if len(a.headers) == 0 {
		return a.initial
	}

	return a.headers[len(a.headers)-1].Difficulty
}

// FindBlockByHeight returns the tracked header at the height.
func (a *Adjuster) FindBlockByHeight(height uint64) (BlockHeader, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.findByHeight(height)
}

func (a *Adjuster) findByHeight(height uint64) (BlockHeader, bool) {
	for _, h := range a.headers {
		if h.Height == height {
			return h, true
		}
	}

	return BlockHeader{}, false
}

// History returns a copy of the recorded adjustments.
func (a *Adjuster) History() []Adjustment {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return append([]Adjustment(nil), a.history...)
}

func reason(ratio float64) string {
	switch {
	case ratio > 1.5:
		return "blocks far faster than target, difficulty raised sharply"
	case ratio > 1.1:
		return "blocks faster than target, difficulty raised"
	case ratio < 0.67:
		return "blocks far slower than target, difficulty lowered sharply"
	case ratio < 0.9:
		return "blocks slower than target, difficulty lowered"
	default:
		return "block rate stable, difficulty fine tuned"
	}
}

// =============================================================================

// Statistics summarizes the tracked headers.
type Statistics struct {
	TotalBlocks       int     `json:"total_blocks"`
	CurrentDifficulty float64 `json:"current_difficulty"`
	MinDifficulty     float64 `json:"min_difficulty"`
	MaxDifficulty     float64 `json:"max_difficulty"`
	AvgDifficulty     float64 `json:"avg_difficulty"`
	AvgBlockTime      float64 `json:"avg_block_time"`
	TargetBlockTime   float64 `json:"target_block_time"`
	AdjustmentCount   int     `json:"adjustment_count"`
}

// Statistics returns the summary. The boolean is false when no headers are
// tracked.
func (a *Adjuster) Statistics() (Statistics, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.headers) == 0 {
		return Statistics{}, false
	}

	stats := Statistics{
		TotalBlocks:       len(a.headers),
		CurrentDifficulty: a.headers[len(a.headers)-1].Difficulty,
		MinDifficulty:     math.Inf(1),
		MaxDifficulty:     math.Inf(-1),
		TargetBlockTime:   a.cfg.TargetBlockTime.Seconds(),
		AdjustmentCount:   len(a.history),
	}

	var sum float64
	for _, h := range a.headers {
		sum += h.Difficulty
		stats.MinDifficulty = math.Min(stats.MinDifficulty, h.Difficulty)
		stats.MaxDifficulty = math.Max(stats.MaxDifficulty, h.Difficulty)
	}
	stats.AvgDifficulty = sum / float64(len(a.headers))

	if n := len(a.headers); n > 1 {
		var total int64
		for i := 1; i < n; i++ {
			total += a.headers[i].TimeStamp - a.headers[i-1].TimeStamp
		}
		stats.AvgBlockTime = float64(total) / float64(n-1)
	}

	return stats, true
}

// Prediction estimates the outcome of the next adjustment from the pace of
// the current interval.
type Prediction struct {
	BlocksUntilAdjustment uint64  `json:"blocks_until_adjustment"`
	CurrentCycleTime      int64   `json:"current_cycle_time"`
	EstimatedCycleTime    float64 `json:"estimated_total_cycle_time"`
	AvgBlockTimeThisCycle float64 `json:"avg_block_time_this_cycle"`
	PredictedRatio        float64 `json:"predicted_adjustment_ratio"`
	CurrentDifficulty     float64 `json:"current_difficulty"`
	PredictedDifficulty   float64 `json:"predicted_difficulty"`
	Direction             string  `json:"adjustment_direction"`
}

// PredictNextAdjustment returns the prediction. The boolean is false when the
// headers don't cover the start of the current interval.
func (a *Adjuster) PredictNextAdjustment() (Prediction, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.headers) == 0 {
		return Prediction{}, false
	}

	last := a.headers[len(a.headers)-1]

	until := a.cfg.Interval - last.Height%a.cfg.Interval
	if until == a.cfg.Interval {
		until = 0
	}

	cycleStart := last.Height - last.Height%a.cfg.Interval
	start, ok := a.findByHeight(cycleStart)
	if !ok {
		return Prediction{}, false
	}

	cycleTime := last.TimeStamp - start.TimeStamp
	blocks := last.Height - cycleStart + 1

	avg := float64(cycleTime) / float64(blocks)
	estimated := avg * float64(a.cfg.Interval)
	ratio := a.ratio(a.cfg.TargetTimespan.Seconds(), estimated)

	p := Prediction{
		BlocksUntilAdjustment: until,
		CurrentCycleTime:      cycleTime,
		EstimatedCycleTime:    estimated,
		AvgBlockTimeThisCycle: avg,
		PredictedRatio:        ratio,
		CurrentDifficulty:     last.Difficulty,
		PredictedDifficulty:   last.Difficulty * ratio,
		Direction:             "decrease",
	}

	if ratio > 1 {
		p.Direction = "increase"
	}

	return p, true
}

// SimulateHashrateChange produces the headers that would follow if the
// network hashrate was multiplied by the factor for the number of blocks.
// Tracked headers are left untouched, adjustments on boundaries are applied.
func (a *Adjuster) SimulateHashrateChange(multiplier float64, blocks int) ([]BlockHeader, error) {
	if multiplier <= 0 {
		return nil, fmt.Errorf("hashrate multiplier must be positive, got %v", multiplier)
	}

	a.mu.RLock()
	sim := Adjuster{
		cfg:     a.cfg,
		initial: a.initial,
		headers: append([]BlockHeader(nil), a.headers...),
	}
	a.mu.RUnlock()

	now := time.Now().Unix()
	if len(sim.headers) > 0 {
		now = sim.headers[len(sim.headers)-1].TimeStamp
	}

	blockTime := a.cfg.TargetBlockTime.Seconds() / multiplier
	elapsed := 0.0
	difficulty := sim.currentDifficulty()

	out := make([]BlockHeader, 0, blocks)
	for i := 0; i < blocks; i++ {
		elapsed += blockTime
		height := uint64(len(sim.headers))

		if sim.ShouldAdjust(height) {
			difficulty = sim.CalculateNextDifficulty(height)
		}

		h := BlockHeader{
			Height:       height,
			TimeStamp:    now + int64(elapsed),
			Difficulty:   difficulty,
			Target:       DifficultyToTarget(difficulty),
			Hash:         fmt.Sprintf("simulated_hash_%d", height),
			PreviousHash: fmt.Sprintf("simulated_prev_%d", int64(height)-1),
		}

		sim.headers = append(sim.headers, h)
		out = append(out, h)
	}

	return out, nil
}

// DifficultyToTarget converts a difficulty into the 64 character hex target
// a hash must not exceed, max_target / difficulty.
func DifficultyToTarget(difficulty float64) string {
	maxTarget := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	if difficulty <= 0 || math.IsNaN(difficulty) || math.IsInf(difficulty, 0) {
		return fmt.Sprintf("%064x", maxTarget)
	}

	q := new(big.Float).SetPrec(512).Quo(new(big.Float).SetPrec(512).SetInt(maxTarget), big.NewFloat(difficulty))

	target, _ := q.Int(nil)
	if target.Cmp(maxTarget) > 0 {
		target = maxTarget
	}

	return fmt.Sprintf("%064x", target)
}
