package linear

// EpochStats は1エポック終了時の損失
type EpochStats struct {
	// Epoch は 1 から始まるエポック番号
	Epoch int `json:"epoch"`

	// TrainLoss はエポック中の各バッチ損失の行数加重平均
	TrainLoss float64 `json:"loss"`

	// ValLoss は検証行に対するエポック終了時の損失。Validated が false のときは 0
	ValLoss float64 `json:"val_loss"`

	// Validated は検証行が1行以上あったかどうか
	Validated bool `json:"validated"`
}

// Observer receives training progress. OnEpochEnd is called synchronously on the
// training goroutine, once per epoch, in epoch order. Slow observers slow training.
type Observer interface {
	OnEpochEnd(stats EpochStats)
}

// ObserverFunc adapts a plain function to Observer
type ObserverFunc func(stats EpochStats)

// OnEpochEnd calls f(stats)
func (f ObserverFunc) OnEpochEnd(stats EpochStats) {
	f(stats)
}

// MultiObserver fans each event out to every observer in order
type MultiObserver []Observer

// OnEpochEnd forwards stats to each non-nil observer
func (m MultiObserver) OnEpochEnd(stats EpochStats) {
	for _, o := range m {
		if o != nil {
			o.OnEpochEnd(stats)
		}
	}
}
