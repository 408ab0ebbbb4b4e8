package source

// MiB is the granularity of the estimated total for downloads of unknown size.
const MiB = 1024 * 1024

// Progress reports bytes acquired so far. Total is negative when the size
// is unknown.
type Progress struct {
	Loaded int64 `json:"loaded" yaml:"loaded"`
	Total  int64 `json:"total" yaml:"total"`
}

// TotalKnown reports whether the size was announced by the source.
func (p Progress) TotalKnown() bool { return p.Total >= 0 }

// EstimatedTotal returns Total, or when it is unknown the smallest multiple
// of 1 MiB not below Loaded. The estimate only grows as Loaded grows, so a
// progress bar driven by it never moves backwards.
func (p Progress) EstimatedTotal() int64 {
	if p.TotalKnown() {
		return p.Total
	}
	if p.Loaded <= 0 {
		return 0
	}
	return (p.Loaded + MiB - 1) / MiB * MiB
}

// Fraction returns Loaded/EstimatedTotal in [0, 1].
func (p Progress) Fraction() float64 {
	total := p.EstimatedTotal()
	if total <= 0 {
		return 0
	}
	f := float64(p.Loaded) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}
