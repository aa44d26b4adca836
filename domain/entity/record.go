package entity

// RecordType discriminates the five event categories
type RecordType string

const (
	RecordTypeTransaction    RecordType = "transaction"
	RecordTypeAuthentication RecordType = "authentication"
	RecordTypeATM            RecordType = "atm"
	RecordTypeTransfer       RecordType = "transfer"
	RecordTypeBalanceInquiry RecordType = "balance_inquiry"
)

// AllRecordTypes lists every record type in mixing order
var AllRecordTypes = []RecordType{
	RecordTypeTransaction,
	RecordTypeAuthentication,
	RecordTypeATM,
	RecordTypeTransfer,
	RecordTypeBalanceInquiry,
}

// IsValid reports whether t is one of the known record types
func (t RecordType) IsValid() bool {
	switch t {
	case RecordTypeTransaction, RecordTypeAuthentication, RecordTypeATM,
		RecordTypeTransfer, RecordTypeBalanceInquiry:
		return true
	}
	return false
}

// Anomaly names reported by records whose anomaly branch fired
const (
	AnomalyFraud      = "fraud"
	AnomalyBruteForce = "brute_force"
)

// Record is one synthetic banking event. The set of implementations is closed.
type Record interface {
	RecordType() RecordType
	// Subject is the customer the event belongs to
	Subject() string
	// Anomaly returns the injected anomaly name, or "" for ordinary records
	Anomaly() string
	isRecord()
}

// TransactionRecord is a card payment at a merchant
type TransactionRecord struct {
	Timestamp        string     `json:"timestamp"`
	TransactionType  RecordType `json:"transaction_type"`
	TransactionID    string     `json:"transaction_id"`
	UserID           string     `json:"user_id"`
	AccountNumber    string     `json:"account_number"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	Merchant         string     `json:"merchant"`
	MerchantCategory string     `json:"merchant_category"`
	CardType         string     `json:"card_type"`
	CardLast4        string     `json:"card_last4"`
	ClientIP         string     `json:"client_ip"`
	Country          string     `json:"country"`
	Service          string     `json:"service"`
	ResponseTimeMs   int        `json:"response_time_ms"`
	IsFraud          bool       `json:"is_fraud"`
}

// AuthenticationRecord is a login attempt
type AuthenticationRecord struct {
	Timestamp       string     `json:"timestamp"`
	TransactionType RecordType `json:"transaction_type"`
	EventID         string     `json:"event_id"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	AuthMethod      string     `json:"auth_method"`
	ClientIP        string     `json:"client_ip"`
	Country         string     `json:"country"`
	Service         string     `json:"service"`
	UserAgent       string     `json:"user_agent"`
	SessionID       string     `json:"session_id"`
	ResponseTimeMs  int        `json:"response_time_ms"`
	IsBruteForce    bool       `json:"is_brute_force"`
}

// ATMRecord is an ATM operation. Amount and Currency are nil unless the
// operation moves cash.
type ATMRecord struct {
	Timestamp       string     `json:"timestamp"`
	TransactionType RecordType `json:"transaction_type"`
	TransactionID   string     `json:"transaction_id"`
	UserID          string     `json:"user_id"`
	AccountNumber   string     `json:"account_number"`
	Operation       string     `json:"operation"`
	Amount          *int       `json:"amount"`
	Currency        *string    `json:"currency"`
	Status          string     `json:"status"`
	ATMID           string     `json:"atm_id"`
	ATMLocation     string     `json:"atm_location"`
	CardType        string     `json:"card_type"`
	CardLast4       string     `json:"card_last4"`
	Country         string     `json:"country"`
	ResponseTimeMs  int        `json:"response_time_ms"`
}

// TransferRecord moves money between two accounts
type TransferRecord struct {
	Timestamp       string     `json:"timestamp"`
	TransactionType RecordType `json:"transaction_type"`
	TransactionID   string     `json:"transaction_id"`
	UserID          string     `json:"user_id"`
	FromAccount     string     `json:"from_account"`
	ToAccount       string     `json:"to_account"`
	Amount          float64    `json:"amount"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	TransferType    string     `json:"transfer_type"`
	ClientIP        string     `json:"client_ip"`
	Country         string     `json:"country"`
	Service         string     `json:"service"`
	ResponseTimeMs  int        `json:"response_time_ms"`
}

// BalanceInquiryRecord is an account balance lookup
type BalanceInquiryRecord struct {
	Timestamp       string     `json:"timestamp"`
	TransactionType RecordType `json:"transaction_type"`
	EventID         string     `json:"event_id"`
	UserID          string     `json:"user_id"`
	AccountNumber   string     `json:"account_number"`
	Status          string     `json:"status"`
	ClientIP        string     `json:"client_ip"`
	Country         string     `json:"country"`
	Service         string     `json:"service"`
	ResponseTimeMs  int        `json:"response_time_ms"`
}

func (*TransactionRecord) RecordType() RecordType    { return RecordTypeTransaction }
func (*AuthenticationRecord) RecordType() RecordType { return RecordTypeAuthentication }
func (*ATMRecord) RecordType() RecordType            { return RecordTypeATM }
func (*TransferRecord) RecordType() RecordType       { return RecordTypeTransfer }
func (*BalanceInquiryRecord) RecordType() RecordType { return RecordTypeBalanceInquiry }

func (r *TransactionRecord) Subject() string    { return r.UserID }
func (r *AuthenticationRecord) Subject() string { return r.UserID }
func (r *ATMRecord) Subject() string            { return r.UserID }
func (r *TransferRecord) Subject() string       { return r.UserID }
func (r *BalanceInquiryRecord) Subject() string { return r.UserID }

func (r *TransactionRecord) Anomaly() string {
	if r.IsFraud {
		return AnomalyFraud
	}
	return ""
}

func (r *AuthenticationRecord) Anomaly() string {
	if r.IsBruteForce {
		return AnomalyBruteForce
	}
	return ""
}

func (*ATMRecord) Anomaly() string            { return "" }
func (*TransferRecord) Anomaly() string       { return "" }
func (*BalanceInquiryRecord) Anomaly() string { return "" }

func (*TransactionRecord) isRecord()    {}
func (*AuthenticationRecord) isRecord() {}
func (*ATMRecord) isRecord()            {}
func (*TransferRecord) isRecord()       {}
func (*BalanceInquiryRecord) isRecord() {}
