package component

import (
	"fmt"
	"sort"
)

// StorageCurve is a monotonic piecewise-linear lookup between volume and
// water level, the table-interpolated alternative to the linear
// surface-area formula mentioned in spec section 4.2 ("Reservoir /
// Lake ... water_level <- f(volume) (linear via surface area, or
// table-interpolated storage curve)"). parseStorageCurve sorts the
// points by increasing volume at construction.
type StorageCurve struct {
	volumes []float64
	levels  []float64
}

// parseStorageCurve builds a StorageCurve from the scenario config's
// raw representation: a list of {"volume": v, "level": l} entries.
func parseStorageCurve(raw any) (*StorageCurve, error) {
	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("storage_curve must be a list of {volume, level} entries")
	}
	sc := &StorageCurve{}
	for i, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("storage_curve[%d] must be a mapping", i)
		}
		v, vok := numeric(m["volume"])
		l, lok := numeric(m["level"])
		if !vok || !lok {
			return nil, fmt.Errorf("storage_curve[%d] requires numeric volume and level", i)
		}
		sc.volumes = append(sc.volumes, v)
		sc.levels = append(sc.levels, l)
	}
	if len(sc.volumes) < 2 {
		return nil, fmt.Errorf("storage_curve requires at least 2 points")
	}
	order := make([]int, len(sc.volumes))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return sc.volumes[order[i]] < sc.volumes[order[j]] })
	sortedV := make([]float64, len(order))
	sortedL := make([]float64, len(order))
	for i, idx := range order {
		sortedV[i] = sc.volumes[idx]
		sortedL[i] = sc.levels[idx]
	}
	sc.volumes, sc.levels = sortedV, sortedL
	return sc, nil
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// LevelForVolume interpolates level for a given volume, clamping to the
// table's endpoints outside its range.
func (sc *StorageCurve) LevelForVolume(v float64) float64 {
	return interp(sc.volumes, sc.levels, v)
}

// VolumeForLevel interpolates volume for a given level (inverse lookup).
func (sc *StorageCurve) VolumeForLevel(l float64) float64 {
	return interp(sc.levels, sc.volumes, l)
}

func interp(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	for i := 1; i < n; i++ {
		if x <= xs[i] {
			x0, x1 := xs[i-1], xs[i]
			y0, y1 := ys[i-1], ys[i]
			frac := (x - x0) / (x1 - x0)
			return y0 + frac*(y1-y0)
		}
	}
	return ys[n-1]
}
