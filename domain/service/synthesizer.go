package service

import (
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"time"

	"github.com/isectech/banking-log-generator/shared/common"
)

// TimestampLayout is the second-precision local time format of every record
const TimestampLayout = "2006-01-02 15:04:05"

// RandSource is the randomness the synthesizers consume. *math/rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
	Intn(n int) int
	Int63n(n int64) int64
	NormFloat64() float64
}

// AmountDistribution parameterises a log-normal amount
type AmountDistribution struct {
	Mu    float64 `json:"mu" yaml:"mu" mapstructure:"mu"`
	Sigma float64 `json:"sigma" yaml:"sigma" mapstructure:"sigma"`
}

var (
	// PointOfSaleAmounts is the distribution of card payments
	PointOfSaleAmounts = AmountDistribution{Mu: 5, Sigma: 2}
	// TransferAmounts is the distribution of account transfers
	TransferAmounts = AmountDistribution{Mu: 6, Sigma: 1.5}
)

// Validate rejects non-positive or non-finite parameters
func (d AmountDistribution) Validate() error {
	if !(d.Mu > 0) || math.IsInf(d.Mu, 0) {
		return fmt.Errorf("log-normal mu must be positive and finite, got %v", d.Mu)
	}
	if !(d.Sigma > 0) || math.IsInf(d.Sigma, 0) {
		return fmt.Errorf("log-normal sigma must be positive and finite, got %v", d.Sigma)
	}
	return nil
}

// Synthesizer produces individual field values
type Synthesizer struct {
	rnd      RandSource
	now      func() time.Time
	daysBack float64
	numbers  common.NumberUtils
}

// NewSynthesizer creates a synthesizer. A nil clock means time.Now.
func NewSynthesizer(rnd RandSource, now func() time.Time, daysBack int) (*Synthesizer, error) {
	if rnd == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if daysBack <= 0 {
		return nil, fmt.Errorf("days back must be positive, got %d", daysBack)
	}
	if now == nil {
		now = time.Now
	}
	return &Synthesizer{
		rnd:      rnd,
		now:      now,
		daysBack: float64(daysBack),
	}, nil
}

// Rand exposes the underlying source
func (s *Synthesizer) Rand() RandSource {
	return s.rnd
}

// IP returns an address drawn uniformly from the whole IPv4 space
func (s *Synthesizer) IP() string {
	v := uint32(s.rnd.Int63n(1 << 32))
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}).String()
}

// Timestamp returns a time uniformly drawn from the trailing window
func (s *Synthesizer) Timestamp() string {
	offset := time.Duration(s.rnd.Float64() * s.daysBack * float64(24*time.Hour))
	return s.now().Add(-offset).Format(TimestampLayout)
}

// LogNormalAmount draws exp(mu + sigma*N(0,1)) rounded to cents
func (s *Synthesizer) LogNormalAmount(dist AmountDistribution) float64 {
	return s.numbers.Round(math.Exp(dist.Mu+dist.Sigma*s.rnd.NormFloat64()), 2)
}

// UniformAmount draws U(lo, hi) rounded to cents
func (s *Synthesizer) UniformAmount(lo, hi float64) float64 {
	return s.numbers.Round(lo+s.rnd.Float64()*(hi-lo), 2)
}

// ID returns prefix followed by a 7-digit number
func (s *Synthesizer) ID(prefix string) string {
	return prefix + strconv.FormatInt(1000000+s.rnd.Int63n(9000000), 10)
}

// AccountNumber returns a 10-digit account number
func (s *Synthesizer) AccountNumber() string {
	return strconv.FormatInt(1000000000+s.rnd.Int63n(9000000000), 10)
}

// IntBetween returns a uniform integer in [lo, hi]
func (s *Synthesizer) IntBetween(lo, hi int) int {
	return lo + s.rnd.Intn(hi-lo+1)
}

// Chance returns true with probability p
func (s *Synthesizer) Chance(p float64) bool {
	return s.rnd.Float64() < p
}

// Pick returns a uniformly chosen element of a non-empty pool
func Pick[T any](s *Synthesizer, pool []T) T {
	return pool[s.rnd.Intn(len(pool))]
}
