package model

type UnitType string

const (
	Soldiers      UnitType = "soldiers"
	Fighters      UnitType = "fighters"
	Stations      UnitType = "stations"
	LightCruisers UnitType = "light_cruisers"
	HeavyCruisers UnitType = "heavy_cruisers"
	Carriers      UnitType = "carriers"
)

// UnitTypes is the canonical iteration order; maps are never ranged directly
// where the result feeds a digest or a casualty roll.
var UnitTypes = []UnitType{Soldiers, Fighters, Stations, LightCruisers, HeavyCruisers, Carriers}

func IsUnitType(s string) bool {
	for _, u := range UnitTypes {
		if string(u) == s {
			return true
		}
	}
	return false
}

type Fleet map[UnitType]int

func (f Fleet) Total() int {
	n := 0
	for _, u := range UnitTypes {
		if f[u] > 0 {
			n += f[u]
		}
	}
	return n
}

func (f Fleet) IsEmpty() bool { return f.Total() == 0 }

func (f Fleet) DistinctTypes() int {
	n := 0
	for _, u := range UnitTypes {
		if f[u] > 0 {
			n++
		}
	}
	return n
}

func (f Fleet) Clone() Fleet {
	out := make(Fleet, len(UnitTypes))
	for _, u := range UnitTypes {
		if f[u] > 0 {
			out[u] = f[u]
		}
	}
	return out
}

// Covers reports whether every committed count is available in f.
func (f Fleet) Covers(committed Fleet) bool {
	for u, n := range committed {
		if n < 0 || f[u] < n {
			return false
		}
	}
	return true
}

func (f Fleet) Subtract(other Fleet) {
	for _, u := range UnitTypes {
		if other[u] <= 0 {
			continue
		}
		f[u] -= other[u]
		if f[u] < 0 {
			f[u] = 0
		}
	}
}

func (f Fleet) Add(other Fleet) {
	for _, u := range UnitTypes {
		if other[u] > 0 {
			f[u] += other[u]
		}
	}
}
