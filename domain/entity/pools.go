package entity

import (
	"fmt"
)

// Pools holds the static reference sets every generator draws from.
// The slices are shared and must be treated as read-only.
type Pools struct {
	Users              []string
	Currencies         []string
	Countries          []string
	CardTypes          []string
	ATMLocations       []string
	Services           []string
	UserAgents         []string
	MerchantCategories []string
	AuthMethods        []string
	AuthServices       []string
	ATMOperations      []string
	ATMAmounts         []int
	TransferTypes      []string
	TransferServices   []string
}

// UserPoolSize is the number of synthetic customers
const UserPoolSize = 500

// DefaultPools returns the reference sets used by the generator
func DefaultPools() *Pools {
	users := make([]string, 0, UserPoolSize)
	for i := 1; i <= UserPoolSize; i++ {
		users = append(users, fmt.Sprintf("user_%04d", i))
	}

	return &Pools{
		Users:      users,
		Currencies: []string{"USD", "EUR", "GBP", "UAH", "PLN"},
		Countries:  []string{"US", "UK", "UA", "PL", "DE", "FR", "IT", "ES"},
		CardTypes:  []string{"VISA", "MASTERCARD", "MAESTRO", "AMERICAN_EXPRESS"},
		ATMLocations: []string{
			"Kyiv Central", "Lviv Downtown", "Kharkiv Plaza", "Odesa Beach",
			"Dnipro Station", "Warsaw Center", "Krakow Mall", "London City",
		},
		Services: []string{"mobile_banking", "web_banking", "atm", "pos_terminal", "api"},
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			"Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X)",
			"Mozilla/5.0 (Linux; Android 10) AppleWebKit/537.36",
			"BankingApp/3.2.1 (iOS 14.0)",
			"BankingApp/3.2.1 (Android 10)",
		},
		MerchantCategories: []string{"retail", "food", "travel", "entertainment", "utilities"},
		AuthMethods:        []string{"password", "2fa", "biometric", "sms_otp", "email_otp"},
		AuthServices:       []string{"mobile_banking", "web_banking", "api"},
		ATMOperations:      []string{ATMOperationWithdrawal, ATMOperationDeposit, ATMOperationBalanceCheck, ATMOperationPINChange},
		ATMAmounts:         []int{20, 50, 100, 200, 500, 1000},
		TransferTypes:      []string{"internal", "external", "international"},
		TransferServices:   []string{"mobile_banking", "web_banking"},
	}
}

// ATM operations. Only withdrawals and deposits move money.
const (
	ATMOperationWithdrawal   = "withdrawal"
	ATMOperationDeposit      = "deposit"
	ATMOperationBalanceCheck = "balance_check"
	ATMOperationPINChange    = "pin_change"
)

// MovesCash reports whether an ATM operation carries an amount
func MovesCash(operation string) bool {
	return operation == ATMOperationWithdrawal || operation == ATMOperationDeposit
}

// Validate checks that no pool is empty
func (p *Pools) Validate() error {
	named := map[string]int{
		"users":               len(p.Users),
		"currencies":          len(p.Currencies),
		"countries":           len(p.Countries),
		"card_types":          len(p.CardTypes),
		"atm_locations":       len(p.ATMLocations),
		"services":            len(p.Services),
		"user_agents":         len(p.UserAgents),
		"merchant_categories": len(p.MerchantCategories),
		"auth_methods":        len(p.AuthMethods),
		"auth_services":       len(p.AuthServices),
		"atm_operations":      len(p.ATMOperations),
		"atm_amounts":         len(p.ATMAmounts),
		"transfer_types":      len(p.TransferTypes),
		"transfer_services":   len(p.TransferServices),
	}

	for name, size := range named {
		if size == 0 {
			return fmt.Errorf("pool %s is empty", name)
		}
	}
	return nil
}
