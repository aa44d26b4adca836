package service

import (
	"fmt"

	"github.com/isectech/banking-log-generator/domain/entity"
)

// Record statuses
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
)

// Default anomaly rates
const (
	DefaultFraudRate      = 0.05
	DefaultBruteForceRate = 0.03
)

// Fraudulent payments are drawn from this range instead of the log-normal
const (
	FraudAmountMin = 5000.0
	FraudAmountMax = 50000.0
)

var (
	paymentStatuses = MustCategorical(
		[]string{StatusSuccess, StatusFailed, StatusPending, StatusCancelled},
		[]float64{85, 10, 3, 2},
	)
	transferStatuses = MustCategorical(
		[]string{StatusSuccess, StatusFailed, StatusPending, StatusCancelled},
		[]float64{80, 12, 5, 3},
	)
	authStatuses = MustCategorical(
		[]string{StatusSuccess, StatusFailed},
		[]float64{90, 10},
	)
	inquiryStatuses = MustCategorical(
		[]string{StatusSuccess, StatusFailed},
		[]float64{95, 5},
	)
)

// GeneratorConfig tunes the event generators
type GeneratorConfig struct {
	FraudRate          float64
	BruteForceRate     float64
	TransactionAmounts AmountDistribution
	TransferAmounts    AmountDistribution
}

// DefaultGeneratorConfig returns the stock rates and amount distributions
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		FraudRate:          DefaultFraudRate,
		BruteForceRate:     DefaultBruteForceRate,
		TransactionAmounts: PointOfSaleAmounts,
		TransferAmounts:    TransferAmounts,
	}
}

// Validate checks rates and distributions
func (c GeneratorConfig) Validate() error {
	if c.FraudRate < 0 || c.FraudRate > 1 {
		return fmt.Errorf("fraud rate must be within [0, 1], got %v", c.FraudRate)
	}
	if c.BruteForceRate < 0 || c.BruteForceRate > 1 {
		return fmt.Errorf("brute force rate must be within [0, 1], got %v", c.BruteForceRate)
	}
	if err := c.TransactionAmounts.Validate(); err != nil {
		return fmt.Errorf("transaction amounts: %w", err)
	}
	if err := c.TransferAmounts.Validate(); err != nil {
		return fmt.Errorf("transfer amounts: %w", err)
	}
	return nil
}

// EventGenerator builds one record per call for each event category
type EventGenerator struct {
	synth       *Synthesizer
	pools       *entity.Pools
	adversarial *entity.AdversarialSet
	config      GeneratorConfig
}

// NewEventGenerator wires the synthesizer, pools and adversarial set together
func NewEventGenerator(synth *Synthesizer, pools *entity.Pools, adversarial *entity.AdversarialSet, config GeneratorConfig) (*EventGenerator, error) {
	if synth == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if pools == nil {
		return nil, fmt.Errorf("pools are required")
	}
	if err := pools.Validate(); err != nil {
		return nil, err
	}
	if adversarial == nil {
		return nil, fmt.Errorf("adversarial set is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &EventGenerator{
		synth:       synth,
		pools:       pools,
		adversarial: adversarial,
		config:      config,
	}, nil
}

// Generate dispatches to the generator for t
func (g *EventGenerator) Generate(t entity.RecordType) (entity.Record, error) {
	switch t {
	case entity.RecordTypeTransaction:
		return g.Transaction(), nil
	case entity.RecordTypeAuthentication:
		return g.Authentication(), nil
	case entity.RecordTypeATM:
		return g.ATM(), nil
	case entity.RecordTypeTransfer:
		return g.Transfer(), nil
	case entity.RecordTypeBalanceInquiry:
		return g.BalanceInquiry(), nil
	default:
		return nil, fmt.Errorf("unknown record type %q", t)
	}
}

// Transaction builds a card payment. A fraction of payments are fraudulent:
// large amount, compromised user, hostile source address.
func (g *EventGenerator) Transaction() *entity.TransactionRecord {
	s := g.synth
	rnd := s.Rand()

	amount := s.LogNormalAmount(g.config.TransactionAmounts)
	user := Pick(s, g.pools.Users)
	status := paymentStatuses.Sample(rnd)

	var ip string
	isFraud := s.Chance(g.config.FraudRate)
	if isFraud {
		amount = s.UniformAmount(FraudAmountMin, FraudAmountMax)
		user = g.adversarial.PickUser(rnd)
		ip = g.adversarial.PickIP(rnd)
	} else {
		ip = s.IP()
	}

	return &entity.TransactionRecord{
		Timestamp:        s.Timestamp(),
		TransactionType:  entity.RecordTypeTransaction,
		TransactionID:    s.ID("TXN"),
		UserID:           user,
		AccountNumber:    s.AccountNumber(),
		Amount:           amount,
		Currency:         Pick(s, g.pools.Currencies),
		Status:           status,
		Merchant:         fmt.Sprintf("Merchant_%d", s.IntBetween(1, 100)),
		MerchantCategory: Pick(s, g.pools.MerchantCategories),
		CardType:         Pick(s, g.pools.CardTypes),
		CardLast4:        fmt.Sprintf("%d", s.IntBetween(1000, 9999)),
		ClientIP:         ip,
		Country:          Pick(s, g.pools.Countries),
		Service:          Pick(s, g.pools.Services),
		ResponseTimeMs:   s.IntBetween(50, 2000),
		IsFraud:          isFraud,
	}
}

// Authentication builds a login attempt. Brute-force attempts always fail and
// come from a hostile address.
func (g *EventGenerator) Authentication() *entity.AuthenticationRecord {
	s := g.synth
	rnd := s.Rand()

	user := Pick(s, g.pools.Users)
	status := authStatuses.Sample(rnd)

	var ip string
	isBruteForce := s.Chance(g.config.BruteForceRate)
	if isBruteForce {
		status = StatusFailed
		ip = g.adversarial.PickIP(rnd)
	} else {
		ip = s.IP()
	}

	return &entity.AuthenticationRecord{
		Timestamp:       s.Timestamp(),
		TransactionType: entity.RecordTypeAuthentication,
		EventID:         s.ID("AUTH"),
		UserID:          user,
		Status:          status,
		AuthMethod:      Pick(s, g.pools.AuthMethods),
		ClientIP:        ip,
		Country:         Pick(s, g.pools.Countries),
		Service:         Pick(s, g.pools.AuthServices),
		UserAgent:       Pick(s, g.pools.UserAgents),
		SessionID:       s.ID("SES"),
		ResponseTimeMs:  s.IntBetween(100, 500),
		IsBruteForce:    isBruteForce,
	}
}

// ATM builds an ATM operation. Amount and currency are set only when the
// operation moves cash.
func (g *EventGenerator) ATM() *entity.ATMRecord {
	s := g.synth

	operation := Pick(s, g.pools.ATMOperations)
	status := paymentStatuses.Sample(s.Rand())

	var (
		amount   *int
		currency *string
	)
	if entity.MovesCash(operation) {
		a := Pick(s, g.pools.ATMAmounts)
		c := Pick(s, g.pools.Currencies)
		amount, currency = &a, &c
	}

	return &entity.ATMRecord{
		Timestamp:       s.Timestamp(),
		TransactionType: entity.RecordTypeATM,
		TransactionID:   s.ID("ATM"),
		UserID:          Pick(s, g.pools.Users),
		AccountNumber:   s.AccountNumber(),
		Operation:       operation,
		Amount:          amount,
		Currency:        currency,
		Status:          status,
		ATMID:           fmt.Sprintf("ATM%d", s.IntBetween(1000, 5000)),
		ATMLocation:     Pick(s, g.pools.ATMLocations),
		CardType:        Pick(s, g.pools.CardTypes),
		CardLast4:       fmt.Sprintf("%d", s.IntBetween(1000, 9999)),
		Country:         Pick(s, g.pools.Countries),
		ResponseTimeMs:  s.IntBetween(1000, 5000),
	}
}

// Transfer builds an account-to-account transfer
func (g *EventGenerator) Transfer() *entity.TransferRecord {
	s := g.synth
	rnd := s.Rand()

	amount := s.LogNormalAmount(g.config.TransferAmounts)
	status := transferStatuses.Sample(rnd)
	transferType := Pick(s, g.pools.TransferTypes)

	return &entity.TransferRecord{
		Timestamp:       s.Timestamp(),
		TransactionType: entity.RecordTypeTransfer,
		TransactionID:   s.ID("TRF"),
		UserID:          Pick(s, g.pools.Users),
		FromAccount:     s.AccountNumber(),
		ToAccount:       s.AccountNumber(),
		Amount:          amount,
		Currency:        Pick(s, g.pools.Currencies),
		Status:          status,
		TransferType:    transferType,
		ClientIP:        s.IP(),
		Country:         Pick(s, g.pools.Countries),
		Service:         Pick(s, g.pools.TransferServices),
		ResponseTimeMs:  s.IntBetween(200, 3000),
	}
}

// BalanceInquiry builds a balance lookup
func (g *EventGenerator) BalanceInquiry() *entity.BalanceInquiryRecord {
	s := g.synth

	return &entity.BalanceInquiryRecord{
		Timestamp:       s.Timestamp(),
		TransactionType: entity.RecordTypeBalanceInquiry,
		EventID:         s.ID("BAL"),
		UserID:          Pick(s, g.pools.Users),
		AccountNumber:   s.AccountNumber(),
		Status:          inquiryStatuses.Sample(s.Rand()),
		ClientIP:        s.IP(),
		Country:         Pick(s, g.pools.Countries),
		Service:         Pick(s, g.pools.Services),
		ResponseTimeMs:  s.IntBetween(50, 300),
	}
}
